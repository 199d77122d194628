package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// ConnectionParams are the connection settings of a resolved profile.
type ConnectionParams struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Socket   string
	// Init statements run once after connecting, in order.
	Init    []string
	Timeout time.Duration
	SSLMode string
	// Extra holds driver specific fields such as account, warehouse or
	// credentials_file.
	Extra map[string]string
}

// Profile field names understood by ParamsFromFields.
const (
	FieldDriver   = "driver"
	FieldHost     = "host"
	FieldPort     = "port"
	FieldUser     = "user"
	FieldPassword = "password"
	FieldDatabase = "database"
	FieldSocket   = "socket"
	FieldInit     = "init"
	FieldTimeout  = "timeout"
	FieldSSLMode  = "sslmode"
)

// ParamsFromFields builds connection parameters from the effective fields
// of a profile. Unknown fields land in Extra.
func ParamsFromFields(fields map[string]string) (ConnectionParams, error) {
	p := ConnectionParams{Extra: map[string]string{}}
	for k, v := range fields {
		switch k {
		case FieldDriver:
			p.Driver = strings.ToLower(strings.TrimSpace(v))
		case FieldHost:
			p.Host = v
		case FieldPort:
			port, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || port <= 0 || port > 65535 {
				return p, errors.Newf(errors.ErrorTypeConfig, "invalid port %q", v).WithDetail("field", k)
			}
			p.Port = port
		case FieldUser:
			p.User = v
		case FieldPassword:
			p.Password = v
		case FieldDatabase:
			p.Database = v
		case FieldSocket:
			p.Socket = v
		case FieldInit:
			for _, line := range strings.Split(v, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					p.Init = append(p.Init, line)
				}
			}
		case FieldTimeout:
			d, err := parseTimeout(v)
			if err != nil {
				return p, errors.Wrap(err, errors.ErrorTypeConfig, "invalid timeout").WithDetail("field", k)
			}
			p.Timeout = d
		case FieldSSLMode:
			p.SSLMode = v
		default:
			p.Extra[k] = v
		}
	}
	if p.Driver == "" {
		return p, errors.New(errors.ErrorTypeConfig, "no driver configured")
	}
	return p, nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Fields converts the parameters back into profile fields.
func (p ConnectionParams) Fields() map[string]string {
	out := make(map[string]string, len(p.Extra)+10)
	for k, v := range p.Extra {
		out[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set(FieldDriver, p.Driver)
	set(FieldHost, p.Host)
	if p.Port != 0 {
		out[FieldPort] = strconv.Itoa(p.Port)
	}
	set(FieldUser, p.User)
	set(FieldPassword, p.Password)
	set(FieldDatabase, p.Database)
	set(FieldSocket, p.Socket)
	set(FieldInit, strings.Join(p.Init, "\n"))
	if p.Timeout != 0 {
		out[FieldTimeout] = p.Timeout.String()
	}
	set(FieldSSLMode, p.SSLMode)
	return out
}

// String renders the parameters for logs with the password masked.
func (p ConnectionParams) String() string {
	fields := p.Fields()
	if _, ok := fields[FieldPassword]; ok {
		fields[FieldPassword] = "***"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, fields[k])
	}
	return strings.Join(parts, " ")
}
