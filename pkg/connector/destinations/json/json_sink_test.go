package json

import (
	"bytes"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/models"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

func render(t *testing.T, opts core.Options, schema *models.Schema, rows []models.Row) string {
	t.Helper()
	sink, err := New(opts)
	require.NoError(t, err)
	return string(testutil.RenderSink(t, sink, schema, rows, nil))
}

func TestSinkZeroAndOneRow(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1)

	assert.Equal(t, "[]\n", render(t, nil, schema, nil))
	assert.Equal(t, "[\n  {\n    \"a\": 1\n  }\n]\n", render(t, nil, schema, rows))

	assert.Equal(t, "[]\n", render(t, core.Options{"compact": ""}, schema, nil))
	assert.Equal(t, "[{\"a\":1}]\n", render(t, core.Options{"compact": ""}, schema, rows))

	assert.Equal(t, "", render(t, core.Options{"style": "lines"}, schema, nil))
	assert.Equal(t, "{\"a\":1}\n", render(t, core.Options{"style": "lines"}, schema, rows))
}

func TestSinkLinesInOrder(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1, 2, 3)
	sink, err := NewLines(nil)
	require.NoError(t, err)
	out := string(testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n", out)
}

func TestSinkEscaping(t *testing.T) {
	schema := models.NewSchema(models.Column{Name: `we"ird`, Kind: models.KindText})
	rows := testutil.Rows(schema, [][]models.Value{{models.Text("<b>\t\"x\"</b>")}})

	out := render(t, core.Options{"compact": "true"}, schema, rows)
	assert.Equal(t, `[{"we\"ird":"<b>\t\"x\"</b>"}]`+"\n", out)

	out = render(t, core.Options{"compact": "true", "escape_html": "true"}, schema, rows)
	assert.Contains(t, out, `\u003cb\u003e`)
	assert.True(t, gojson.Valid(bytes.TrimSpace([]byte(out))))
}

func TestSinkRejectsUnknownStyle(t *testing.T) {
	_, err := New(core.Options{"style": "xml"})
	assert.Error(t, err)
}

func TestSinkRoundTrip(t *testing.T) {
	schema := testutil.AllKindsSchema()
	rows := testutil.Rows(schema, testutil.AllKindsRows())
	keys := schema.UniqueNames()
	assert.Equal(t, "id_2", keys[7])

	for _, opts := range []core.Options{nil, {"style": "lines"}, {"compact": "true", "bytes": "hex"}} {
		out := render(t, opts, schema, rows)

		var objects []map[string]interface{}
		if opts["style"] == "lines" {
			for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
				objects = append(objects, decode(t, line))
			}
		} else {
			dec := gojson.NewDecoder(strings.NewReader(out))
			dec.UseNumber()
			require.NoError(t, dec.Decode(&objects))
		}
		require.Len(t, objects, len(rows))

		parse := models.FormatOptions{NullText: `\N`, BytesEncoding: models.BytesBase64}
		if opts["bytes"] == "hex" {
			parse.BytesEncoding = models.BytesHex
		}
		for i, obj := range objects {
			require.Len(t, obj, len(keys))
			for j, key := range keys {
				got := fromJSON(t, obj[key], schema.Columns[j].Kind, parse)
				assert.True(t, models.Equal(rows[i].Values[j], got), "row %d column %s: %#v", i, key, obj[key])
			}
		}
	}
}

func decode(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	dec := gojson.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var obj map[string]interface{}
	require.NoError(t, dec.Decode(&obj))
	return obj
}

func fromJSON(t *testing.T, raw interface{}, kind models.Kind, opts models.FormatOptions) models.Value {
	t.Helper()
	var text string
	switch v := raw.(type) {
	case nil:
		return models.Null()
	case bool:
		return models.Bool(v)
	case gojson.Number:
		text = v.String()
	case string:
		text = v
	default:
		t.Fatalf("unexpected json value %T", raw)
	}
	v, err := models.ParseDisplayText(text, kind, opts)
	require.NoError(t, err)
	return v
}
