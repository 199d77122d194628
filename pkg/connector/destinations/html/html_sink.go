// Package html renders rows as an HTML table.
package html

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the html sink.
const (
	OptionTitle    = "title"
	OptionFragment = "fragment"
)

// Sink writes a complete document holding one table. With the fragment
// option only the table element is written.
type Sink struct {
	title    string
	fragment bool
	format   models.FormatOptions

	w       *bufio.Writer
	columns int
	err     error
}

// New creates an html sink.
func New(opts core.Options) (core.Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	fragment, err := opts.Bool(OptionFragment, false)
	if err != nil {
		return nil, err
	}
	return &Sink{title: opts.String(OptionTitle, "sqlport export"), fragment: fragment, format: format}, nil
}

// Capabilities implements core.Sink. A truncated table is closed and
// marked incomplete rather than dropped.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationFinalize}
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.w = bufio.NewWriter(out)
	s.columns = schema.Len()
	if !s.fragment {
		s.str("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
		s.str(html.EscapeString(s.title))
		s.str("</title>\n</head>\n<body>\n")
	}
	s.str("<table>\n<thead>\n<tr>")
	for _, col := range schema.Columns {
		s.str("<th>")
		s.str(html.EscapeString(col.Name))
		s.str("</th>")
	}
	s.str("</tr>\n</thead>\n<tbody>\n")
	return s.check("failed to write html header")
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	s.str("<tr>")
	for _, v := range row.Values {
		switch {
		case v.IsNull():
			s.str(`<td class="null">`)
		case v.Kind() == models.KindInteger || v.Kind() == models.KindFloat:
			s.str(`<td class="num">`)
		default:
			s.str("<td>")
		}
		s.str(html.EscapeString(models.DisplayText(v, s.format)))
		s.str("</td>")
	}
	s.str("</tr>\n")
	return s.check("failed to write html row")
}

// Flush pushes buffered output to the writer.
func (s *Sink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to flush html output")
	}
	return nil
}

// End implements core.Sink. When cause is set a final row spanning the
// table and a comment record why the output stops early.
func (s *Sink) End(_ context.Context, cause error) error {
	if cause != nil {
		msg := cause.Error()
		s.str(`<tr class="incomplete"><td colspan="`)
		s.str(strconv.Itoa(max(s.columns, 1)))
		s.str(`">output incomplete: `)
		s.str(html.EscapeString(msg))
		s.str("</td></tr>\n<!-- sqlport: output incomplete: ")
		s.str(commentSafe(msg))
		s.str(" -->\n")
	}
	s.str("</tbody>\n</table>\n")
	if !s.fragment {
		s.str("</body>\n</html>\n")
	}
	if err := s.check("failed to write html trailer"); err != nil {
		return err
	}
	return s.Flush()
}

func (s *Sink) str(text string) {
	if s.err == nil {
		_, s.err = s.w.WriteString(text)
	}
}

func (s *Sink) check(msg string) error {
	if s.err != nil {
		return errors.Wrap(s.err, errors.ErrorTypeSink, msg)
	}
	return nil
}

// commentSafe strips sequences that would end an HTML comment early.
func commentSafe(s string) string {
	s = strings.ReplaceAll(s, "--", "- -")
	return strings.ReplaceAll(s, ">", "&gt;")
}
