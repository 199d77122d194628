package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/profile"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultSettingsValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.FlushRows = 0
	assert.True(t, errors.IsType(s.Validate(), errors.ErrorTypeConfig))

	s = DefaultSettings()
	s.Log.Encoding = "xml"
	assert.Error(t, s.Validate())
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := write(t, "sqlport.yaml", "concurrency: 3\nflush_rows: 50\nlog:\n  level: debug\n")
	t.Setenv("SQLPORT_PROGRESS_ROWS", "7")

	s, err := LoadSettings(NewViper(path))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Concurrency)
	assert.Equal(t, 50, s.FlushRows)
	assert.Equal(t, 7, s.ProgressRows)
	assert.Equal(t, "debug", s.Log.Level)
	assert.Equal(t, "console", s.Log.Encoding)
}

func TestLoadSettingsMissingExplicitFile(t *testing.T) {
	_, err := LoadSettings(NewViper(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SQLPORT_TEST_PW", "s3cr$t")
	assert.Equal(t, "pw=s3cr$t end", substituteEnvVars("pw=${SQLPORT_TEST_PW} end"))
	assert.Equal(t, "keep $HOME", substituteEnvVars("keep $HOME"))
	assert.Equal(t, "open ${X", substituteEnvVars("open ${X"))
}

const profilesYAML = `
profiles:
  - id: base
    fields:
      driver: postgresql
      host: db.internal
      port: 5432
      password: ${SQLPORT_TEST_PW}
      init:
        - SET search_path TO app
        - SET timezone TO 'UTC'
  - id: prod
    parent: base
    fields:
      database: app
    unset: [password]
`

func TestParseProfilesYAML(t *testing.T) {
	t.Setenv("SQLPORT_TEST_PW", "hunter2")
	nodes, err := ParseProfilesYAML([]byte(profilesYAML))
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	tree, err := profile.Build(nodes)
	require.NoError(t, err)

	base, err := tree.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, "5432", base["port"])
	assert.Equal(t, "hunter2", base["password"])
	assert.Equal(t, "SET search_path TO app\nSET timezone TO 'UTC'", base["init"])

	prod, err := tree.Resolve("prod")
	require.NoError(t, err)
	assert.Equal(t, "app", prod["database"])
	assert.Equal(t, "db.internal", prod["host"])
	_, ok := prod["password"]
	assert.False(t, ok)
}

func TestParseProfilesYAMLRequiresID(t *testing.T) {
	_, err := ParseProfilesYAML([]byte("profiles:\n  - fields: {driver: sqlite}\n"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

const profilesHCL = `
profile "base" {
  driver   = "mysql"
  host     = "db"
  port     = 3306
  password = "${SQLPORT_TEST_PW}"
  init     = ["SET NAMES utf8mb4", "SET time_zone = '+00:00'"]
}

profile "reporting" {
  parent   = "base"
  database = "reports"
  unset    = ["password"]
}
`

func TestParseProfilesHCL(t *testing.T) {
	t.Setenv("SQLPORT_TEST_PW", "hunter2")
	nodes, err := ParseProfilesHCL([]byte(profilesHCL), "profiles.hcl")
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "base", nodes[0].ID)
	assert.Equal(t, "3306", nodes[0].Fields["port"])
	assert.Equal(t, "hunter2", nodes[0].Fields["password"])
	assert.Equal(t, "SET NAMES utf8mb4\nSET time_zone = '+00:00'", nodes[0].Fields["init"])

	assert.Equal(t, "base", nodes[1].Parent)
	assert.Equal(t, []string{"password"}, nodes[1].Unset)
	_, ok := nodes[1].Fields["parent"]
	assert.False(t, ok)
}

func TestParseProfilesHCLUnknownVariable(t *testing.T) {
	_, err := ParseProfilesHCL([]byte(`profile "x" { password = "${SQLPORT_NOT_SET_ANYWHERE}" }`), "x.hcl")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestExportProfilesHCLRoundTrip(t *testing.T) {
	nodes := []profile.Node{
		{ID: "base", Fields: map[string]string{"driver": "sqlite", "database": "a.db", "init": "PRAGMA foreign_keys=ON\nPRAGMA x=1"}},
		{ID: "child", Parent: "base", Fields: map[string]string{"password": "p${not}a$"}, Unset: []string{"database"}},
	}
	var buf bytes.Buffer
	require.NoError(t, ExportProfilesHCL(&buf, nodes))
	assert.Contains(t, buf.String(), `profile "base" {`)

	back, err := ParseProfilesHCL(buf.Bytes(), "export.hcl")
	require.NoError(t, err)
	assert.Equal(t, nodes, back)
}

func TestExportProfilesHCLRejectsBadFieldName(t *testing.T) {
	err := ExportProfilesHCL(&bytes.Buffer{}, []profile.Node{{ID: "x", Fields: map[string]string{"bad key": "v"}}})
	assert.Error(t, err)
}

func TestLoadProfilesDispatch(t *testing.T) {
	nodes, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, nodes)

	path := write(t, "p.hcl", `profile "a" { driver = "sqlite" }`)
	nodes, err = LoadProfiles(path)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "sqlite", nodes[0].Fields["driver"])
}

func TestLoadJobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.sql"), []byte("SELECT * FROM users\n"), 0o600))
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
defaults:
  profile: prod
  format: csv
  options: {delimiter: ";"}
jobs:
  - id: users
    query_file: users.sql
    output: users.csv.gz
  - query: SELECT 1
    format: json
    options: {style: lines}
`), 0o600))

	jobs, err := LoadJobs(path)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "SELECT * FROM users", jobs[0].Query)
	assert.Equal(t, "prod", jobs[0].Profile)
	assert.Equal(t, "csv", jobs[0].Format)
	assert.Equal(t, map[string]string{"delimiter": ";"}, jobs[0].Options)

	assert.Equal(t, "job-2", jobs[1].ID)
	assert.Equal(t, "json", jobs[1].Format)
	assert.Equal(t, "-", jobs[1].Output)
	assert.Equal(t, map[string]string{"delimiter": ";", "style": "lines"}, jobs[1].Options)
}

func TestParseJobsValidation(t *testing.T) {
	cases := map[string]string{
		"empty":        "jobs: []\n",
		"no query":     "jobs:\n  - format: csv\n",
		"no format":    "jobs:\n  - query: SELECT 1\n",
		"duplicate id": "jobs:\n  - {id: a, query: q, format: csv, output: a}\n  - {id: a, query: q, format: csv, output: b}\n",
		"two stdout":   "jobs:\n  - {query: q, format: csv}\n  - {query: q, format: csv}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJobs([]byte(doc))
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "%v", err)
		})
	}
}
