package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
)

func TestBuildClient(t *testing.T) {
	fields := map[string]string{
		"driver":   "mysql",
		"host":     "db.internal",
		"port":     "3307",
		"user":     "reporter",
		"password": "s3cr$t",
		"database": "shop",
	}
	mysqlParams, err := core.ParamsFromFields(fields)
	require.NoError(t, err)

	tests := []struct {
		name    string
		client  string
		params  core.ConnectionParams
		program string
		args    []string
		env     []string
	}{
		{
			name:    "mysql default",
			params:  mysqlParams,
			program: "mysql",
			args:    []string{"-h", "db.internal", "-P", "3307", "-u", "reporter", "shop"},
			env:     []string{"MYSQL_PWD=s3cr$t"},
		},
		{
			name:    "mycli",
			client:  "mycli",
			params:  mysqlParams,
			program: "mycli",
			args:    []string{"-h", "db.internal", "-P", "3307", "-u", "reporter", "shop"},
			env:     []string{"MYSQL_PWD=s3cr$t"},
		},
		{
			name:    "mysql over socket",
			params:  core.ConnectionParams{Driver: "mysql", Socket: "/run/mysqld.sock", User: "root"},
			program: "mysql",
			args:    []string{"-S", "/run/mysqld.sock", "-u", "root"},
		},
		{
			name:   "psql",
			client: "psql",
			params: core.ConnectionParams{
				Driver: "postgresql", Host: "pg", Port: 5432, User: "app", Password: "pw",
				Database: "main", SSLMode: "require", Timeout: 10 * time.Second,
			},
			program: "psql",
			args:    []string{"-h", "pg", "-p", "5432", "-U", "app", "-d", "main"},
			env:     []string{"PGPASSWORD=pw", "PGSSLMODE=require", "PGCONNECT_TIMEOUT=10"},
		},
		{
			name:    "pgcli with postgres alias",
			client:  "pgcli",
			params:  core.ConnectionParams{Driver: "postgres", Database: "main"},
			program: "pgcli",
			args:    []string{"-d", "main"},
		},
		{
			name:    "sqlite3",
			params:  core.ConnectionParams{Driver: "sqlite", Database: "/tmp/app.db"},
			program: "sqlite3",
			args:    []string{"/tmp/app.db"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := buildClient(tt.client, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.program, inv.Program)
			assert.Equal(t, tt.args, inv.Args)
			assert.Equal(t, tt.env, inv.Env)
		})
	}
}

func TestBuildClientRejects(t *testing.T) {
	_, err := buildClient("psql", core.ConnectionParams{Driver: "mysql"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = buildClient("dbeaver", core.ConnectionParams{Driver: "mysql"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = buildClient("", core.ConnectionParams{Driver: "bigquery"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeCapability))

	_, err = buildClient("sqlite3", core.ConnectionParams{Driver: "sqlite"})
	assert.Error(t, err)
}
