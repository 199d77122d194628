package text

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// VerticalSink prints one block per row with a "name | value" line per
// column. The truncate option cuts long values.
type VerticalSink struct {
	format   models.FormatOptions
	truncate int
	footer   bool

	out   lineWriter
	names []string
	rule  int
	rows  int64
}

// NewVertical creates a vertical sink.
func NewVertical(opts core.Options) (core.Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	s := &VerticalSink{format: format}
	if s.truncate, err = opts.Int(OptionTruncate, 0); err != nil {
		return nil, err
	}
	if s.footer, err = opts.Bool(OptionFooter, true); err != nil {
		return nil, err
	}
	return s, nil
}

// Capabilities implements core.Sink.
func (s *VerticalSink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationFinalize}
}

// Begin implements core.Sink.
func (s *VerticalSink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.out = lineWriter{w: bufio.NewWriter(out)}
	s.rows = 0
	s.rule = 0
	s.names = make([]string, schema.Len())
	for i, col := range schema.Columns {
		s.names[i] = cell(col.Name)
		s.rule = max(s.rule, displayWidth(s.names[i]))
	}
	for i, name := range s.names {
		s.names[i] = pad(name, s.rule, false)
	}
	return nil
}

// WriteRow implements core.Sink.
func (s *VerticalSink) WriteRow(_ context.Context, row models.Row) error {
	s.rows++
	title := "-[ RECORD " + strconv.FormatInt(s.rows, 10) + " ]"
	s.out.line(title + strings.Repeat("-", max(0, s.rule+3-displayWidth(title))))
	for i, v := range row.Values {
		s.out.line(strings.TrimRight(s.names[i]+" | "+fit(cell(models.DisplayText(v, s.format)), s.truncate), " "))
	}
	return s.out.check("failed to write text record")
}

// Flush pushes printed records to the writer.
func (s *VerticalSink) Flush() error {
	return s.out.flush()
}

// End implements core.Sink.
func (s *VerticalSink) End(_ context.Context, cause error) error {
	if cause != nil {
		s.out.line(incomplete(cause))
	}
	if s.footer {
		s.out.line(footer(s.rows))
	}
	if err := s.out.check("failed to write text trailer"); err != nil {
		return err
	}
	return s.out.flush()
}
