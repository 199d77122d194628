// Package json renders rows as JSON objects, either as one array or one
// object per line.
package json

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"math"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Style represents the JSON document layout
type Style string

const (
	// StyleArray writes a single array of objects
	StyleArray Style = "array"
	// StyleLines writes line-delimited JSON (JSONL/NDJSON)
	StyleLines Style = "lines"
)

// Option keys understood by the json sink.
const (
	OptionStyle      = "style"
	OptionCompact    = "compact"
	OptionIndent     = "indent"
	OptionEscapeHTML = "escape_html"
)

// Sink writes each row as an object keyed by column name. Duplicate column
// names get a numeric suffix so no key is lost.
//
// Integers, finite floats, booleans and null keep their JSON types. Text,
// bytes, timestamps and the non-finite floats are strings holding their
// display text.
type Sink struct {
	style   Style
	compact bool
	indent  string
	format  models.FormatOptions
	encOpts []gojson.EncodeOptionFunc

	w     *bufio.Writer
	keys  [][]byte
	buf   bytes.Buffer
	count int64
}

// New creates a json sink. The style option picks array (default) or lines.
func New(opts core.Options) (core.Sink, error) {
	s, err := newSink(opts, StyleArray)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewLines creates a json sink defaulting to line-delimited output.
func NewLines(opts core.Options) (core.Sink, error) {
	s, err := newSink(opts, StyleLines)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSink(opts core.Options, style Style) (*Sink, error) {
	format, err := opts.FormatOptions()
	if err != nil {
		return nil, err
	}
	s := &Sink{
		style:  Style(strings.ToLower(opts.String(OptionStyle, string(style)))),
		indent: opts.String(OptionIndent, "  "),
		format: format,
	}
	if s.style != StyleArray && s.style != StyleLines {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown json style %q", s.style).WithDetail("option", OptionStyle)
	}
	if s.compact, err = opts.Bool(OptionCompact, s.style == StyleLines); err != nil {
		return nil, err
	}
	// Lines are always compact.
	if s.style == StyleLines {
		s.compact = true
	}
	escape, err := opts.Bool(OptionEscapeHTML, false)
	if err != nil {
		return nil, err
	}
	if !escape {
		s.encOpts = append(s.encOpts, gojson.DisableHTMLEscape())
	}
	return s, nil
}

// Capabilities implements core.Sink.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationDiscard, Lossless: true}
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	s.w = bufio.NewWriterSize(out, 64*1024)
	s.count = 0
	names := schema.UniqueNames()
	s.keys = make([][]byte, len(names))
	for i, name := range names {
		key, err := gojson.MarshalWithOption(name, s.encOpts...)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeSink, "failed to encode column name").WithDetail("column", name)
		}
		s.keys[i] = key
	}
	if s.style == StyleArray {
		return s.write([]byte("["))
	}
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	s.buf.Reset()
	if s.style == StyleArray {
		if s.count > 0 {
			s.buf.WriteByte(',')
		}
		if !s.compact {
			s.buf.WriteByte('\n')
			s.buf.WriteString(s.indent)
		}
	}
	if err := s.encodeObject(row); err != nil {
		return err
	}
	if s.style == StyleLines {
		s.buf.WriteByte('\n')
	}
	s.count++
	return s.write(s.buf.Bytes())
}

func (s *Sink) encodeObject(row models.Row) error {
	fieldIndent := s.indent + s.indent
	s.buf.WriteByte('{')
	for i, v := range row.Values {
		if i > 0 {
			s.buf.WriteByte(',')
		}
		if !s.compact {
			s.buf.WriteByte('\n')
			s.buf.WriteString(fieldIndent)
		}
		s.buf.Write(s.keys[i])
		s.buf.WriteByte(':')
		if !s.compact {
			s.buf.WriteByte(' ')
		}
		if err := s.encodeValue(v); err != nil {
			return errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"column": row.Name(i)})
		}
	}
	if !s.compact && len(row.Values) > 0 {
		s.buf.WriteByte('\n')
		s.buf.WriteString(s.indent)
	}
	s.buf.WriteByte('}')
	return nil
}

func (s *Sink) encodeValue(v models.Value) error {
	switch v.Kind() {
	case models.KindNull:
		s.buf.WriteString("null")
		return nil
	case models.KindBool, models.KindInteger:
		s.buf.WriteString(models.DisplayText(v, s.format))
		return nil
	case models.KindFloat:
		if f, _ := v.AsFloat(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			s.buf.WriteString(models.FormatFloat(f))
			return nil
		}
	}
	text, err := gojson.MarshalWithOption(models.DisplayText(v, s.format), s.encOpts...)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to encode json string")
	}
	s.buf.Write(text)
	return nil
}

func (s *Sink) write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write json output")
	}
	return nil
}

// Flush pushes buffered output to the writer.
func (s *Sink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to flush json output")
	}
	return nil
}

// End implements core.Sink. The array is closed even for a truncated
// stream so the discarded partial output would still parse.
func (s *Sink) End(_ context.Context, _ error) error {
	if s.style == StyleArray {
		tail := "]\n"
		if !s.compact && s.count > 0 {
			tail = "\n]\n"
		}
		if err := s.write([]byte(tail)); err != nil {
			return err
		}
	}
	return s.Flush()
}
