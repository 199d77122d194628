package main

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
)

// clientDrivers lists the interactive clients and the driver each serves.
var clientDrivers = map[string]string{
	"mysql":   "mysql",
	"mycli":   "mysql",
	"psql":    "postgresql",
	"pgcli":   "postgresql",
	"sqlite3": "sqlite",
}

var defaultClients = map[string]string{
	"mysql":      "mysql",
	"postgresql": "psql",
	"postgres":   "psql",
	"sqlite":     "sqlite3",
}

// clientInvocation is a client program with its arguments and the extra
// environment it needs. Passwords travel in the environment where the
// client supports it so they do not show up in process listings.
type clientInvocation struct {
	Program string
	Args    []string
	Env     []string
}

// buildClient returns the invocation of client for params. An empty client
// picks the default for the driver.
func buildClient(client string, p core.ConnectionParams) (clientInvocation, error) {
	if client == "" {
		client = defaultClients[p.Driver]
		if client == "" {
			return clientInvocation{}, errors.Newf(errors.ErrorTypeCapability, "no interactive client for driver %q", p.Driver)
		}
	}
	driver, ok := clientDrivers[client]
	if !ok {
		return clientInvocation{}, errors.Newf(errors.ErrorTypeConfig, "unknown client %q", client)
	}
	if p.Driver == "postgres" {
		p.Driver = "postgresql"
	}
	if driver != p.Driver {
		return clientInvocation{}, errors.Newf(errors.ErrorTypeConfig, "client %q cannot connect to driver %q", client, p.Driver)
	}

	inv := clientInvocation{Program: client}
	switch client {
	case "mysql", "mycli":
		if p.Socket != "" {
			inv.Args = append(inv.Args, "-S", p.Socket)
		} else if p.Host != "" {
			inv.Args = append(inv.Args, "-h", p.Host)
		}
		if p.Port != 0 {
			inv.Args = append(inv.Args, "-P", strconv.Itoa(p.Port))
		}
		if p.User != "" {
			inv.Args = append(inv.Args, "-u", p.User)
		}
		if p.Password != "" {
			inv.Env = append(inv.Env, "MYSQL_PWD="+p.Password)
		}
		if p.Database != "" {
			inv.Args = append(inv.Args, p.Database)
		}
	case "psql", "pgcli":
		host := p.Host
		if p.Socket != "" {
			host = p.Socket
		}
		if host != "" {
			inv.Args = append(inv.Args, "-h", host)
		}
		if p.Port != 0 {
			inv.Args = append(inv.Args, "-p", strconv.Itoa(p.Port))
		}
		if p.User != "" {
			inv.Args = append(inv.Args, "-U", p.User)
		}
		if p.Database != "" {
			inv.Args = append(inv.Args, "-d", p.Database)
		}
		if p.Password != "" {
			inv.Env = append(inv.Env, "PGPASSWORD="+p.Password)
		}
		if p.SSLMode != "" {
			inv.Env = append(inv.Env, "PGSSLMODE="+p.SSLMode)
		}
		if p.Timeout > 0 {
			inv.Env = append(inv.Env, "PGCONNECT_TIMEOUT="+strconv.Itoa(int(p.Timeout.Seconds())))
		}
	case "sqlite3":
		if p.Database == "" {
			return clientInvocation{}, errors.New(errors.ErrorTypeConfig, "sqlite3 needs a database file")
		}
		inv.Args = append(inv.Args, p.Database)
	}
	return inv, nil
}

func (a *app) shellCommand() *cobra.Command {
	var (
		conn   connFlags
		client string
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive database client with a profile's connection",
		Long: `Start mysql, mycli, psql, pgcli or sqlite3 connected with the resolved
profile. Without --client the usual client for the driver is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := conn.params(cmd, a)
			if err != nil {
				return err
			}
			inv, err := buildClient(client, params)
			if err != nil {
				return err
			}
			path, err := exec.LookPath(inv.Program)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "client not found").WithDetail("client", inv.Program)
			}

			logger.Debug("starting client", zap.String("client", path), zap.Strings("args", inv.Args))
			c := exec.CommandContext(cmd.Context(), path, inv.Args...)
			c.Env = append(os.Environ(), inv.Env...)
			c.Stdin = cmd.InOrStdin()
			c.Stdout = cmd.OutOrStdout()
			c.Stderr = cmd.ErrOrStderr()
			if err := c.Run(); err != nil {
				return errors.Wrap(err, errors.ErrorTypeInternal, "client failed").WithDetail("client", inv.Program)
			}
			return nil
		},
	}
	conn.register(cmd)
	cmd.Flags().StringVarP(&client, "client", "c", "", "Client program: mysql, mycli, psql, pgcli or sqlite3")
	return cmd
}
