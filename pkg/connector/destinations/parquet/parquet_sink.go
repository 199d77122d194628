// Package parquet renders rows as a Parquet file through the Arrow writer.
package parquet

import (
	"context"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Option keys understood by the parquet sink.
const (
	OptionRowGroupRows = "row_group_rows"
	OptionCompression  = "compression"
)

// Sink collects rows in an Arrow record builder and writes one row group
// each time row_group_rows rows are buffered. Timestamps are stored with
// microsecond precision as UTC. Values without a zone keep their wall
// clock, read as if it were UTC. Columns of unknown kind are written as
// strings.
type Sink struct {
	rowGroupRows int
	codec        compress.Compression

	schema  *arrow.Schema
	builder *array.RecordBuilder
	writer  *pqarrow.FileWriter
	kinds   []models.Kind
	pending int
	text    models.FormatOptions
}

// New creates a parquet sink.
func New(opts core.Options) (core.Sink, error) {
	s := &Sink{text: models.DefaultFormatOptions()}
	var err error
	if s.rowGroupRows, err = opts.Int(OptionRowGroupRows, 10000); err != nil {
		return nil, err
	}
	if s.rowGroupRows < 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "row_group_rows must be positive").WithDetail("option", OptionRowGroupRows)
	}
	if s.codec, err = parseCodec(opts.String(OptionCompression, "snappy")); err != nil {
		return nil, err
	}
	return s, nil
}

func parseCodec(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "unsupported parquet compression %q", name).
		WithDetail("option", OptionCompression)
}

// Capabilities implements core.Sink.
func (s *Sink) Capabilities() core.Capabilities {
	return core.Capabilities{Mode: core.ModeStreaming, Truncation: core.TruncationDiscard}
}

func arrowType(kind models.Kind) arrow.DataType {
	switch kind {
	case models.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case models.KindInteger:
		return arrow.PrimitiveTypes.Int64
	case models.KindFloat:
		return arrow.PrimitiveTypes.Float64
	case models.KindBytes:
		return arrow.BinaryTypes.Binary
	case models.KindTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	}
	return arrow.BinaryTypes.String
}

// Begin implements core.Sink.
func (s *Sink) Begin(_ context.Context, schema *models.Schema, out io.Writer) error {
	names := schema.UniqueNames()
	fields := make([]arrow.Field, len(names))
	s.kinds = make([]models.Kind, len(names))
	for i, col := range schema.Columns {
		fields[i] = arrow.Field{Name: names[i], Type: arrowType(col.Kind), Nullable: true}
		s.kinds[i] = col.Kind
	}
	s.schema = arrow.NewSchema(fields, nil)

	mem := memory.NewGoAllocator()
	s.builder = array.NewRecordBuilder(mem, s.schema)
	props := pq.NewWriterProperties(pq.WithCompression(s.codec))
	w, err := pqarrow.NewFileWriter(s.schema, nopCloser{out}, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	if err != nil {
		s.builder.Release()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to create parquet writer")
	}
	s.writer = w
	s.pending = 0
	return nil
}

// WriteRow implements core.Sink.
func (s *Sink) WriteRow(_ context.Context, row models.Row) error {
	for i, v := range row.Values {
		if err := s.append(i, v); err != nil {
			return errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"column": row.Name(i)})
		}
	}
	s.pending++
	if s.pending >= s.rowGroupRows {
		return s.flushRowGroup()
	}
	return nil
}

func (s *Sink) append(i int, v models.Value) error {
	field := s.builder.Field(i)
	if v.IsNull() {
		field.AppendNull()
		return nil
	}
	if v.Kind() != s.kinds[i] {
		return s.appendMismatched(field, v, i)
	}
	switch b := field.(type) {
	case *array.BooleanBuilder:
		x, _ := v.AsBool()
		b.Append(x)
	case *array.Int64Builder:
		x, _ := v.AsInteger()
		b.Append(x)
	case *array.Float64Builder:
		x, _ := v.AsFloat()
		b.Append(x)
	case *array.StringBuilder:
		x, _ := v.AsText()
		b.Append(x)
	case *array.BinaryBuilder:
		x, _ := v.AsBytes()
		if x == nil {
			x = []byte{}
		}
		b.Append(x)
	case *array.TimestampBuilder:
		t, _, _ := v.AsTimestamp()
		b.Append(arrow.Timestamp(t.UnixMicro()))
	default:
		return errors.Newf(errors.ErrorTypeInternal, "no parquet builder for kind %s", v.Kind())
	}
	return nil
}

// appendMismatched handles a value whose kind differs from its column's,
// which happens with untyped expression columns and with engines that let a
// column hold several kinds. String columns take the display text of any
// value and double columns widen integers; anything else is rejected.
func (s *Sink) appendMismatched(field array.Builder, v models.Value, i int) error {
	switch b := field.(type) {
	case *array.StringBuilder:
		b.Append(models.DisplayText(v, s.text))
		return nil
	case *array.Float64Builder:
		if x, ok := v.AsInteger(); ok {
			b.Append(float64(x))
			return nil
		}
	}
	return errors.Newf(errors.ErrorTypeSink, "value of kind %s in %s column", v.Kind(), s.kinds[i])
}

func (s *Sink) flushRowGroup() error {
	if s.pending == 0 {
		return nil
	}
	rec := s.builder.NewRecord()
	defer rec.Release()
	s.pending = 0
	if err := s.writer.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write parquet row group")
	}
	return nil
}

// End implements core.Sink.
func (s *Sink) End(_ context.Context, cause error) error {
	if cause != nil {
		return s.Discard()
	}
	defer s.builder.Release()
	if err := s.flushRowGroup(); err != nil {
		_ = s.writer.Close()
		return err
	}
	if err := s.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to write parquet footer")
	}
	return nil
}

// Discard implements core.Discarder.
func (s *Sink) Discard() error {
	s.builder.Release()
	_ = s.writer.Close()
	return nil
}

// nopCloser keeps the parquet writer from closing the output target,
// which belongs to the pipeline.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
