package html

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nethtml "golang.org/x/net/html"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

// cells parses the document and returns the text of every th/td by row.
func cells(t *testing.T, doc string) [][]string {
	t.Helper()
	root, err := nethtml.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	var rows [][]string
	var walk func(n *nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.ElementNode && n.Data == "tr" {
			var row []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == nethtml.ElementNode && (c.Data == "td" || c.Data == "th") {
					var text strings.Builder
					for x := c.FirstChild; x != nil; x = x.NextSibling {
						text.WriteString(x.Data)
					}
					row = append(row, text.String())
				}
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return rows
}

func TestSinkZeroAndOneRow(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasSink("html"))
	schema, rows := testutil.IntRows("a", 7)

	sink, err := New(nil)
	require.NoError(t, err)
	doc := string(testutil.RenderSink(t, sink, schema, nil, nil))
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.True(t, strings.HasSuffix(doc, "</html>\n"))
	assert.Equal(t, [][]string{{"a"}}, cells(t, doc))

	sink, err = New(nil)
	require.NoError(t, err)
	doc = string(testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, [][]string{{"a"}, {"7"}}, cells(t, doc))
	assert.Contains(t, doc, `<td class="num">7</td>`)
}

func TestSinkEscapesCells(t *testing.T) {
	schema := models.NewSchema(models.Column{Name: "<h>", Kind: models.KindText})
	rows := testutil.Rows(schema, [][]models.Value{{models.Text(`<script>alert("x") & 'y'</script>`)}})

	sink, err := New(core.Options{"title": "a<b", "fragment": "false"})
	require.NoError(t, err)
	doc := string(testutil.RenderSink(t, sink, schema, rows, nil))
	assert.NotContains(t, doc, "<script>")
	assert.Contains(t, doc, "<title>a&lt;b</title>")
	assert.Equal(t, [][]string{{"<h>"}, {`<script>alert("x") & 'y'</script>`}}, cells(t, doc))
}

func TestSinkMarksIncompleteOutput(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1, 2)
	sink, err := New(core.Options{"fragment": ""})
	require.NoError(t, err)
	assert.Equal(t, core.TruncationFinalize, sink.Capabilities().Truncation)

	cause := errors.New(errors.ErrorTypeQuery, "connection reset --> <gone>")
	doc := string(testutil.RenderSink(t, sink, schema, rows, cause))

	assert.True(t, strings.HasPrefix(doc, "<table>"))
	assert.True(t, strings.HasSuffix(doc, "</table>\n"))
	assert.Contains(t, doc, `<tr class="incomplete"><td colspan="1">`)
	assert.Contains(t, doc, "<!-- sqlport: output incomplete: query: connection reset - -&gt; <gone&gt; -->")
	got := cells(t, doc)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"2"}, got[2])
	assert.Equal(t, []string{"output incomplete: query: connection reset --> <gone>"}, got[3])
}
