// Package csv renders rows as RFC 4180 delimited text.
package csv

import (
	"context"
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the csv sink.
const (
	OptionDelimiter = "delimiter"
	OptionCRLF      = "crlf"
	OptionHeader    = "header"
)

// Sink writes a header line followed by one record per row.
type Sink struct {
	format    models.FormatOptions
	delimiter rune
	crlf      bool
	header    bool

	w      *csv.Writer
	record []string
}

// New creates a csv sink.
func New(opts core.Options) (core.Sink, error) {
	s, err := newSink(opts, ",")
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewTSV creates a csv sink that defaults to tab separated output.
func NewTSV(opts core.Options) (core.Sink, error) {
	s, err := newSink(opts, "tab")
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSink(opts core.Options, defaultDelimiter string) (*Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	delimiter, err := parseDelimiter(opts.String(OptionDelimiter, defaultDelimiter))
	if err != nil {
		return nil, err
	}
	crlf, err := opts.Bool(OptionCRLF, false)
	if err != nil {
		return nil, err
	}
	header, err := opts.Bool(OptionHeader, true)
	if err != nil {
		return nil, err
	}
	return &Sink{format: format, delimiter: delimiter, crlf: crlf, header: header}, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, errors.Newf(errors.ErrorTypeConfig, "invalid csv delimiter %q", s).WithDetail("option", OptionDelimiter)
	}
	return r, nil
}

// Capabilities implements core.Sink. The output only round-trips when the
// null option is set: with the default empty null text, Null and an empty
// string render the same field.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationDiscard, Lossless: s.format.NullText != ""}
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.w = csv.NewWriter(out)
	s.w.Comma = s.delimiter
	s.w.UseCRLF = s.crlf
	s.record = make([]string, schema.Len())
	if !s.header {
		return nil
	}
	if err := s.w.Write(schema.Names()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write csv header")
	}
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	for i, v := range row.Values {
		s.record[i] = models.DisplayText(v, s.format)
	}
	if err := s.w.Write(s.record); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write csv record")
	}
	return nil
}

// Flush pushes buffered records to the output writer.
func (s *Sink) Flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to flush csv output")
	}
	return nil
}

// End implements core.Sink. CSV has no trailer, so a truncated stream is
// flushed as is and left to the pipeline to discard.
func (s *Sink) End(_ context.Context, _ error) error {
	return s.Flush()
}
