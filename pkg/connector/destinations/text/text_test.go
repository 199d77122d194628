package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

func people() (*models.Schema, []models.Row) {
	schema := models.NewSchema(
		models.Column{Name: "id", Kind: models.KindInteger},
		models.Column{Name: "name", Kind: models.KindText},
	)
	return schema, testutil.Rows(schema, [][]models.Value{
		{models.Integer(1), models.Text("a")},
		{models.Integer(22), models.Text("bob")},
	})
}

func renderWith(t *testing.T, factory core.SinkFactory, opts core.Options, schema *models.Schema, rows []models.Row, cause error) string {
	t.Helper()
	sink, err := factory(opts)
	require.NoError(t, err)
	return string(testutil.RenderSink(t, sink, schema, rows, cause))
}

func TestRegistered(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasSink("text"))
	assert.True(t, registry.GetRegistry().HasSink("text-vertical"))
}

func TestTableZeroAndOneRow(t *testing.T) {
	schema, rows := people()
	assert.Equal(t, "id | name\n---+-----\n(0 rows)\n", renderWith(t, NewTable, nil, schema, nil, nil))
	assert.Equal(t, "id | name\n---+-----\n 1 | a\n(1 row)\n", renderWith(t, NewTable, nil, schema, rows[:1], nil))
}

func TestTableAlignsColumns(t *testing.T) {
	schema, rows := people()
	want := "id | name\n" +
		"---+-----\n" +
		" 1 | a\n" +
		"22 | bob\n" +
		"(2 rows)\n"
	assert.Equal(t, want, renderWith(t, NewTable, nil, schema, rows, nil))
}

func TestTableTruncatesRowsAfterSample(t *testing.T) {
	schema := models.NewSchema(models.Column{Name: "n", Kind: models.KindText})
	rows := testutil.Rows(schema, [][]models.Value{{models.Text("ab")}, {models.Text("abcdef")}, {models.Text("x\ty")}})

	out := renderWith(t, NewTable, core.Options{"sample_rows": "1"}, schema, rows, nil)
	assert.Equal(t, "n\n--\nab\na~\nx~\n(3 rows)\n", out)

	out = renderWith(t, NewTable, core.Options{"max_width": "3", "footer": "false"}, schema, rows, nil)
	assert.Equal(t, "n\n---\nab\nab~\nx\\~\n", out)
}

func TestTableMarksIncompleteOutput(t *testing.T) {
	schema, rows := people()
	out := renderWith(t, NewTable, nil, schema, rows[:1], errors.New(errors.ErrorTypeQuery, "boom"))
	assert.Equal(t, "id | name\n---+-----\n 1 | a\n-- output incomplete: query: boom --\n(1 row)\n", out)
}

func TestTableRejectsNegativeOptions(t *testing.T) {
	_, err := NewTable(core.Options{"max_width": "-1"})
	assert.Error(t, err)
	_, err = NewTable(core.Options{"sample_rows": "many"})
	assert.Error(t, err)
}

func TestVertical(t *testing.T) {
	schema, rows := people()
	assert.Equal(t, "(0 rows)\n", renderWith(t, NewVertical, nil, schema, nil, nil))

	want := "-[ RECORD 1 ]\n" +
		"id   | 1\n" +
		"name | a\n" +
		"-[ RECORD 2 ]\n" +
		"id   | 22\n" +
		"name | b~\n" +
		"-- output incomplete: sink: disk full --\n" +
		"(2 rows)\n"
	out := renderWith(t, NewVertical, core.Options{"truncate": "2"}, schema, rows, errors.New(errors.ErrorTypeSink, "disk full"))
	assert.Equal(t, want, out)
}

func TestFit(t *testing.T) {
	assert.Equal(t, "héllo", fit("héllo", 5))
	assert.Equal(t, "hé~", fit("héllo", 3))
	assert.Equal(t, "~", fit("héllo", 1))
	assert.Equal(t, "héllo", fit("héllo", 0))
}

func TestCellEscapesControlCharacters(t *testing.T) {
	assert.Equal(t, `a\nb\tc`, cell("a\nb\tc"))
	assert.Equal(t, `\x1b[31mred`, cell("\x1b[31mred"))
	assert.Equal(t, `bell\x07 del\x7f`, cell("bell\a del\x7f"))
	assert.Equal(t, "plain", cell("plain"))
}

func TestWideRunes(t *testing.T) {
	assert.Equal(t, 4, displayWidth("日本"))
	assert.Equal(t, 4, displayWidth("ｘab"))
	assert.Equal(t, 1, displayWidth("é"))

	assert.Equal(t, "日~", fit("日本語", 4))
	assert.Equal(t, "~", fit("日本語", 2))
	assert.Equal(t, "日本 ", pad("日本", 5, false))
}
