package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// connFlags are the connection flags shared by export and schema. Flags
// given on the command line override the fields of the selected profile.
type connFlags struct {
	profile  string
	driver   string
	host     string
	port     int
	user     string
	password string
	database string
	socket   string
	sslmode  string
	timeout  time.Duration
	init     []string
	set      []string
}

func (c *connFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&c.profile, "profile", "p", "", "Connection profile")
	f.StringVar(&c.driver, "driver", "", "Database driver (postgresql, mysql, sqlite, snowflake, bigquery)")
	f.StringVarP(&c.host, "host", "H", "", "Database host")
	f.IntVarP(&c.port, "port", "P", 0, "Database port")
	f.StringVarP(&c.user, "user", "u", "", "Database user")
	f.StringVar(&c.password, "password", "", "Database password")
	f.StringVarP(&c.database, "database", "d", "", "Database name, or file for sqlite")
	f.StringVar(&c.socket, "socket", "", "Unix socket path")
	f.StringVar(&c.sslmode, "sslmode", "", "TLS mode")
	f.DurationVar(&c.timeout, "timeout", 0, "Connect timeout")
	f.StringArrayVar(&c.init, "init", nil, "Statement to run after connecting (repeatable)")
	f.StringArrayVar(&c.set, "set", nil, "Extra connection field as key=value (repeatable)")
}

// fields returns the connection fields given on the command line.
func (c *connFlags) fields(cmd *cobra.Command) (map[string]string, error) {
	out := map[string]string{}
	changed := cmd.Flags().Changed
	str := func(flag, field, v string) {
		if changed(flag) {
			out[field] = v
		}
	}
	str("driver", core.FieldDriver, c.driver)
	str("host", core.FieldHost, c.host)
	if changed("port") {
		out[core.FieldPort] = strconv.Itoa(c.port)
	}
	str("user", core.FieldUser, c.user)
	str("password", core.FieldPassword, c.password)
	str("database", core.FieldDatabase, c.database)
	str("socket", core.FieldSocket, c.socket)
	str("sslmode", core.FieldSSLMode, c.sslmode)
	if changed("timeout") {
		out[core.FieldTimeout] = c.timeout.String()
	}
	if changed("init") {
		out[core.FieldInit] = strings.Join(c.init, "\n")
	}
	for _, kv := range c.set {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "--set %q is not key=value", kv)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

// resolve merges the profile's effective fields with overrides and builds
// connection parameters.
func (a *app) resolve(profileID string, overrides map[string]string) (core.ConnectionParams, error) {
	fields := map[string]string{}
	if profileID != "" {
		tree, err := a.profiles()
		if err != nil {
			return core.ConnectionParams{}, err
		}
		resolved, err := tree.Resolve(profileID)
		if err != nil {
			return core.ConnectionParams{}, errors.Annotate(err, errors.ErrorTypeProfile, map[string]interface{}{"profile": profileID})
		}
		fields = resolved
	}
	for k, v := range overrides {
		fields[k] = v
	}
	params, err := core.ParamsFromFields(fields)
	if err != nil {
		details := map[string]interface{}{}
		if profileID != "" {
			details["profile"] = profileID
		}
		return params, errors.Annotate(err, errors.ErrorTypeConfig, details)
	}
	return params, nil
}

func (c *connFlags) params(cmd *cobra.Command, a *app) (core.ConnectionParams, error) {
	overrides, err := c.fields(cmd)
	if err != nil {
		return core.ConnectionParams{}, err
	}
	return a.resolve(c.profile, overrides)
}
