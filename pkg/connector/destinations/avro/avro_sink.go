// Package avro renders rows as an Avro object container file.
package avro

import (
	"context"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the avro sink.
const (
	OptionCodec     = "codec"
	OptionBlockRows = "block_rows"
	OptionRecord    = "record"
)

// Sink writes one record per row. Every field is a union with null, and
// fields are renamed to valid Avro names with the column name kept in the
// field doc. Columns of unknown kind are declared as strings. Rows are
// buffered and appended one block at a time.
type Sink struct {
	codec     string
	blockRows int
	record    string

	w      *goavro.OCFWriter
	fields []string
	types  []string
	block  []interface{}
	text   models.FormatOptions
}

// New creates an avro sink.
func New(opts core.Options) (core.Sink, error) {
	s := &Sink{record: opts.String(OptionRecord, "row"), text: models.DefaultFormatOptions()}
	switch codec := strings.ToLower(opts.String(OptionCodec, goavro.CompressionNullLabel)); codec {
	case goavro.CompressionNullLabel, goavro.CompressionDeflateLabel, goavro.CompressionSnappyLabel:
		s.codec = codec
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported avro codec %q", codec).WithDetail("option", OptionCodec)
	}
	var err error
	if s.blockRows, err = opts.Int(OptionBlockRows, 1000); err != nil {
		return nil, err
	}
	if s.blockRows < 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "block_rows must be positive").WithDetail("option", OptionBlockRows)
	}
	return s, nil
}

// Capabilities implements core.Sink.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationDiscard}
}

// avroType is the union branch name used for a kind.
func avroType(kind models.Kind) string {
	switch kind {
	case models.KindBool:
		return "boolean"
	case models.KindInteger:
		return "long"
	case models.KindFloat:
		return "double"
	case models.KindBytes:
		return "bytes"
	case models.KindTimestamp:
		return "long.timestamp-micros"
	}
	return "string"
}

func schemaType(kind models.Kind) interface{} {
	if kind == models.KindTimestamp {
		return map[string]string{"type": "long", "logicalType": "timestamp-micros"}
	}
	return avroType(kind)
}

// Name sanitizes a column name into an Avro field name.
func Name(column string) string {
	var b strings.Builder
	for i, r := range column {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// SchemaJSON returns the record schema written for a result schema.
func (s *Sink) SchemaJSON(schema *models.Schema) (string, []string, error) {
	taken := make(map[string]bool, schema.Len())
	names := make([]string, schema.Len())
	fields := make([]map[string]interface{}, schema.Len())
	for i, col := range schema.Columns {
		base := Name(col.Name)
		name := base
		for n := 2; taken[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		taken[name] = true
		names[i] = name
		fields[i] = map[string]interface{}{
			"name":    name,
			"doc":     col.Name,
			"type":    []interface{}{"null", schemaType(col.Kind)},
			"default": nil,
		}
	}
	doc := map[string]interface{}{
		"type":      "record",
		"name":      Name(s.record),
		"namespace": "sqlport",
		"fields":    fields,
	}
	out, err := gojson.Marshal(doc)
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrorTypeSink, "failed to encode avro schema")
	}
	return string(out), names, nil
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	spec, names, err := s.SchemaJSON(schema)
	if err != nil {
		return err
	}
	s.fields = names
	s.types = make([]string, len(names))
	for i, col := range schema.Columns {
		s.types[i] = avroType(col.Kind)
	}
	s.w, err = goavro.NewOCFWriter(goavro.OCFConfig{W: out, Schema: spec, CompressionName: s.codec})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create avro writer")
	}
	s.block = s.block[:0]
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	rec := make(map[string]interface{}, len(s.fields))
	for i, v := range row.Values {
		native, err := s.native(i, v)
		if err != nil {
			return errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"column": row.Name(i)})
		}
		rec[s.fields[i]] = native
	}
	s.block = append(s.block, rec)
	if len(s.block) >= s.blockRows {
		return s.Flush()
	}
	return nil
}

func (s *Sink) native(i int, v models.Value) (interface{}, error) {
	var datum interface{}
	switch v.Kind() {
	case models.KindNull:
		return nil, nil
	case models.KindBool:
		datum, _ = v.AsBool()
	case models.KindInteger:
		datum, _ = v.AsInteger()
	case models.KindFloat:
		datum, _ = v.AsFloat()
	case models.KindText:
		datum, _ = v.AsText()
	case models.KindBytes:
		b, _ := v.AsBytes()
		if b == nil {
			b = []byte{}
		}
		datum = b
	case models.KindTimestamp:
		t, _, _ := v.AsTimestamp()
		datum = t.UTC()
	}
	if avroType(v.Kind()) != s.types[i] {
		// Untyped columns are declared as strings; doubles widen integers.
		switch x, isInt := v.AsInteger(); {
		case s.types[i] == "string":
			datum = models.DisplayText(v, s.text)
		case s.types[i] == "double" && isInt:
			datum = float64(x)
		default:
			return nil, errors.Newf(errors.ErrorTypeSink, "value of kind %s does not match the column type %s", v.Kind(), s.types[i])
		}
	}
	return goavro.Union(s.types[i], datum), nil
}

// Flush appends the buffered rows as one block.
func (s *Sink) Flush() error {
	if len(s.block) == 0 {
		return nil
	}
	err := s.w.Append(s.block)
	s.block = s.block[:0]
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to append avro block")
	}
	return nil
}

// End implements core.Sink.
func (s *Sink) End(_ context.Context, cause error) error {
	if cause != nil {
		s.block = nil
		return nil
	}
	return s.Flush()
}
