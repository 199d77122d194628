package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

type cli struct {
	t        *testing.T
	dir      string
	db       string
	profiles string
	settings string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	c := &cli{t: t, dir: dir, db: filepath.Join(dir, "app.db")}

	db, err := sql.Open("sqlite", c.db)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER, name TEXT)`,
		`INSERT INTO users VALUES (1, 'ada'), (2, 'grace'), (3, NULL)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	c.profiles = c.write("profiles.yaml", `
profiles:
  - id: local
    fields:
      driver: sqlite
      database: `+c.db+`
      password: hunter2
  - id: child
    parent: local
    unset: [password]
`)
	c.settings = c.write("sqlport.yaml", "log:\n  level: error\nflush_rows: 1\n")
	return c
}

func (c *cli) write(name, content string) string {
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (c *cli) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", c.settings, "--profiles", c.profiles}, args...)
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestExportToStdout(t *testing.T) {
	c := newCLI(t)
	code, out, stderr := c.run("export", "-p", "local", "-q", "SELECT id, name FROM users ORDER BY id", "-f", "csv", "-O", `null=\N`)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "id,name\n1,ada\n2,grace\n3,\\N\n", out)
}

func TestExportToFileWithOverrides(t *testing.T) {
	c := newCLI(t)
	other := filepath.Join(c.dir, "other.db")
	db, err := sql.Open("sqlite", other)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE t (v TEXT); INSERT INTO t VALUES ('x')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	target := filepath.Join(c.dir, "out.jsonl")
	code, _, stderr := c.run("export", "-p", "local", "-d", other, "-q", "SELECT v FROM t", "-f", "jsonl", "-o", target)
	require.Equal(t, 0, code, stderr)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "{\"v\":\"x\"}\n", string(content))
}

func TestExportExitCodes(t *testing.T) {
	c := newCLI(t)

	code, _, stderr := c.run("export", "-p", "local", "-q", "SELEC broken", "-f", "csv")
	assert.Equal(t, errors.ExitQuery, code)
	assert.Contains(t, stderr, "SELEC broken")

	code, _, _ = c.run("export", "-p", "nobody", "-q", "SELECT 1", "-f", "csv")
	assert.Equal(t, errors.ExitProfile, code)

	code, _, _ = c.run("export", "-p", "local", "-f", "csv")
	assert.Equal(t, errors.ExitInternal, code)

	target := filepath.Join(c.dir, "out.csv")
	code, _, _ = c.run("export", "-p", "local", "-q", "SELECT 1", "-f", "nope", "-o", target)
	assert.Equal(t, errors.ExitInternal, code)
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func TestExportFailureNamesOneRowIndex(t *testing.T) {
	c := newCLI(t)
	query := "SELECT abs(v) AS v FROM (SELECT 1 AS v UNION ALL SELECT 2 UNION ALL SELECT -9223372036854775807 - 1)"
	code, _, stderr := c.run("export", "-p", "local", "-q", query, "-f", "csv")
	assert.Equal(t, errors.ExitQuery, code)

	var msg string
	for _, line := range strings.Split(stderr, "\n") {
		if strings.HasPrefix(line, "sqlport:") {
			msg = line
		}
	}
	require.NotEmpty(t, msg, stderr)
	assert.Equal(t, 1, strings.Count(msg, "row="), msg)
	assert.Contains(t, msg, "row=2")
}

func TestRunJobFileUnknownProfileDoesNotStopSiblings(t *testing.T) {
	c := newCLI(t)
	good := filepath.Join(c.dir, "good.csv")
	jobs := c.write("jobs.yaml", `
defaults:
  format: csv
jobs:
  - id: good
    profile: local
    query: SELECT id FROM users ORDER BY id
    output: `+good+`
  - id: bad
    profile: nosuch
    query: SELECT 1
    output: `+filepath.Join(c.dir, "bad.csv")+`
`)

	code, _, stderr := c.run("run", "--jobs", jobs)
	assert.Equal(t, errors.ExitProfile, code)
	assert.Contains(t, stderr, "nosuch")

	content, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n2\n3\n", string(content))
	_, err = os.Stat(filepath.Join(c.dir, "bad.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunJobFile(t *testing.T) {
	c := newCLI(t)
	good := filepath.Join(c.dir, "good.csv")
	jobs := c.write("jobs.yaml", `
defaults:
  profile: local
  format: csv
jobs:
  - id: good
    query: SELECT id FROM users ORDER BY id
    output: `+good+`
  - id: bad
    query: SELECT missing FROM users
    output: `+filepath.Join(c.dir, "bad.csv")+`
`)

	code, _, stderr := c.run("run", "--jobs", jobs, "-c", "2")
	assert.Equal(t, errors.ExitQuery, code)
	assert.Contains(t, stderr, "good")
	assert.Contains(t, stderr, "completed")
	assert.Contains(t, stderr, "failed")

	content, err := os.ReadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n2\n3\n", string(content))
	_, err = os.Stat(filepath.Join(c.dir, "bad.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestProfilesCommands(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("profiles", "list")
	require.Equal(t, 0, code)
	assert.Equal(t, "local\n    child\n", out)

	code, out, _ = c.run("profiles", "show", "local")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "password  ***")
	assert.NotContains(t, out, "hunter2")

	code, out, _ = c.run("profiles", "show", "child", "--explain")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "(from local)")
	assert.NotContains(t, out, "password")

	code, out, _ = c.run("profiles", "export-hcl")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `profile "child" {`)
	assert.Contains(t, out, `parent = "local"`)
}

func TestSchemaCommand(t *testing.T) {
	c := newCLI(t)
	code, out, stderr := c.run("schema", "-p", "local", "-q", "name")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "users")
	assert.Contains(t, out, "name")
	assert.NotContains(t, out, "id")
}

func TestFormatsAndVersion(t *testing.T) {
	c := newCLI(t)
	code, out, _ := c.run("formats")
	require.Equal(t, 0, code)
	for _, name := range []string{"csv", "json", "html", "text", "xlsx", "sqlite", "parquet", "avro", "postgresql", "mysql"} {
		assert.Contains(t, out, name)
	}

	code, out, _ = c.run("version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "sqlport dev")
}
