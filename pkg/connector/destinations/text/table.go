package text

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// TableSink prints an aligned table. Column widths are measured on the
// first sample_rows rows; later cells that do not fit are cut and end in
// "~". Every cell is capped at max_width runes.
type TableSink struct {
	format     models.FormatOptions
	sampleRows int
	maxWidth   int
	footer     bool

	out     lineWriter
	headers []string
	right   []bool
	widths  []int
	sample  [][]string
	started bool
	rows    int64
}

// NewTable creates a table sink.
func NewTable(opts core.Options) (core.Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	s := &TableSink{format: format}
	if s.sampleRows, err = opts.Int(OptionSampleRows, 100); err != nil {
		return nil, err
	}
	if s.maxWidth, err = opts.Int(OptionMaxWidth, 40); err != nil {
		return nil, err
	}
	if s.footer, err = opts.Bool(OptionFooter, true); err != nil {
		return nil, err
	}
	if s.sampleRows < 0 || s.maxWidth < 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "sample_rows and max_width must not be negative")
	}
	return s, nil
}

// Capabilities implements core.Sink.
func (s *TableSink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationFinalize}
}

// Begin implements core.Sink.
func (s *TableSink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.out = lineWriter{w: bufio.NewWriter(out)}
	s.headers = make([]string, schema.Len())
	s.right = make([]bool, schema.Len())
	for i, col := range schema.Columns {
		s.headers[i] = cell(col.Name)
		s.right[i] = col.Kind == models.KindInteger || col.Kind == models.KindFloat
	}
	s.sample = s.sample[:0]
	s.started = false
	s.rows = 0
	return nil
}

// WriteRow implements core.Sink.
func (s *TableSink) WriteRow(_ context.Context, row models.Row) error {
	cells := make([]string, len(row.Values))
	for i, v := range row.Values {
		cells[i] = cell(models.DisplayText(v, s.format))
	}
	s.rows++
	if !s.started {
		s.sample = append(s.sample, cells)
		if len(s.sample) < s.sampleRows {
			return nil
		}
		s.start()
		return s.out.check("failed to write text table")
	}
	s.out.line(s.format1(cells))
	return s.out.check("failed to write text row")
}

// start sizes the columns from the sample and prints it with the header.
func (s *TableSink) start() {
	s.started = true
	s.widths = make([]int, len(s.headers))
	for i, h := range s.headers {
		s.widths[i] = displayWidth(h)
	}
	for _, cells := range s.sample {
		for i, c := range cells {
			s.widths[i] = max(s.widths[i], displayWidth(c))
		}
	}
	if s.maxWidth > 0 {
		for i := range s.widths {
			s.widths[i] = min(s.widths[i], s.maxWidth)
		}
	}

	headers := make([]string, len(s.headers))
	rules := make([]string, len(s.headers))
	for i, h := range s.headers {
		headers[i] = pad(fit(h, s.widths[i]), s.widths[i], false)
		rules[i] = strings.Repeat("-", s.widths[i])
	}
	s.out.line(strings.TrimRight(strings.Join(headers, " | "), " "))
	s.out.line(strings.Join(rules, "-+-"))
	for _, cells := range s.sample {
		s.out.line(s.format1(cells))
	}
	s.sample = nil
}

func (s *TableSink) format1(cells []string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = pad(fit(c, s.widths[i]), s.widths[i], s.right[i])
	}
	return strings.TrimRight(strings.Join(parts, " | "), " ")
}

// Flush pushes printed lines to the writer. Rows still held for width
// sampling stay buffered.
func (s *TableSink) Flush() error {
	return s.out.flush()
}

// End implements core.Sink.
func (s *TableSink) End(_ context.Context, cause error) error {
	if !s.started {
		s.start()
	}
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
