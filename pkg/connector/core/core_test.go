package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

func TestParamsFromFields(t *testing.T) {
	p, err := ParamsFromFields(map[string]string{
		"driver":    "PostgreSQL",
		"host":      "db.local",
		"port":      "6543",
		"password":  "s3cret",
		"init":      "SET search_path TO app\n\n  SET work_mem = '64MB'  ",
		"timeout":   "15",
		"warehouse": "wh",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgresql", p.Driver)
	assert.Equal(t, 6543, p.Port)
	assert.Equal(t, []string{"SET search_path TO app", "SET work_mem = '64MB'"}, p.Init)
	assert.Equal(t, 15*time.Second, p.Timeout)
	assert.Equal(t, "wh", p.Extra["warehouse"])
	assert.NotContains(t, p.String(), "s3cret")
	assert.Contains(t, p.String(), "password=***")
}

func TestParamsFromFieldsErrors(t *testing.T) {
	_, err := ParamsFromFields(map[string]string{"host": "x"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = ParamsFromFields(map[string]string{"driver": "mysql", "port": "http"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = ParamsFromFields(map[string]string{"driver": "mysql", "timeout": "soon"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestOptions(t *testing.T) {
	opts, err := ParseOptions([]string{"delimiter=;", "compact=", "null=NULL", "bytes=hex", "rows=10"})
	require.NoError(t, err)

	assert.Equal(t, ";", opts.String("delimiter", ","))
	assert.Equal(t, "x", opts.String("missing", "x"))

	b, err := opts.Bool("compact", false)
	require.NoError(t, err)
	assert.True(t, b)

	n, err := opts.Int("rows", 1)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	fo, err := opts.FormatOptions()
	require.NoError(t, err)
	assert.Equal(t, "NULL", fo.NullText)
	assert.Equal(t, models.BytesHex, fo.BytesEncoding)

	_, err = ParseOptions([]string{"novalue"})
	assert.Error(t, err)

	_, err = Options{"bytes": "rot13"}.FormatOptions()
	assert.Error(t, err)
}
