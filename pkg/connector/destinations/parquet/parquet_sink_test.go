package parquet

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/models"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

func read(t *testing.T, data []byte) (*file.Reader, arrow.Table) {
	t.Helper()
	rdr, err := file.NewParquetReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { rdr.Close() })
	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	tbl, err := fr.ReadTable(context.Background())
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return rdr, tbl
}

func TestSinkZeroAndOneRow(t *testing.T) {
	assert.True(t, registry.GetRegistry().HasSink("parquet"))
	schema, rows := testutil.IntRows("a", 9)

	sink, err := New(nil)
	require.NoError(t, err)
	rdr, tbl := read(t, testutil.RenderSink(t, sink, schema, nil, nil))
	assert.Equal(t, int64(0), rdr.NumRows())
	assert.Equal(t, "a", tbl.Schema().Field(0).Name)

	sink, err = New(nil)
	require.NoError(t, err)
	rdr, tbl = read(t, testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, int64(1), rdr.NumRows())
	assert.Equal(t, int64(9), tbl.Column(0).Data().Chunk(0).(*array.Int64).Value(0))
}

func TestSinkRowGroups(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1, 2, 3, 4, 5)
	sink, err := New(core.Options{"row_group_rows": "2", "compression": "zstd"})
	require.NoError(t, err)
	rdr, _ := read(t, testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, 3, rdr.NumRowGroups())
	assert.Equal(t, int64(5), rdr.NumRows())
}

func TestSinkAllKinds(t *testing.T) {
	schema := testutil.AllKindsSchema()
	rows := testutil.Rows(schema, testutil.AllKindsRows())
	sink, err := New(nil)
	require.NoError(t, err)
	rdr, tbl := read(t, testutil.RenderSink(t, sink, schema, rows, nil))
	assert.Equal(t, int64(3), rdr.NumRows())
	assert.Equal(t, "id_2", tbl.Schema().Field(7).Name)

	names := tbl.Column(3).Data().Chunk(0).(*array.String)
	assert.Equal(t, "plain", names.Value(0))
	assert.True(t, names.IsNull(2))

	created := tbl.Column(5).Data().Chunk(0).(*array.Timestamp)
	want := time.Date(1999, 12, 31, 23, 59, 59, 999999000, time.UTC)
	assert.Equal(t, arrow.Timestamp(want.UnixMicro()), created.Value(0))

	payload := tbl.Column(4).Data().Chunk(0).(*array.Binary)
	assert.Equal(t, []byte{0, 255, 10}, payload.Value(0))
	assert.False(t, payload.IsNull(1))
	assert.True(t, payload.IsNull(2))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(core.Options{"row_group_rows": "0"})
	assert.Error(t, err)
	_, err = New(core.Options{"compression": "rar"})
	assert.Error(t, err)
}

func TestSinkMixedKindsInUntypedColumn(t *testing.T) {
	schema := models.NewSchema(
		models.Column{Name: "n"},
		models.Column{Name: "ratio", Kind: models.KindFloat},
	)
	rows := testutil.Rows(schema, [][]models.Value{
		{models.Integer(42), models.Integer(2)},
		{models.Text("x"), models.Float(0.5)},
		{models.Bool(true), models.Null()},
	})
	sink, err := New(nil)
	require.NoError(t, err)
	_, tbl := read(t, testutil.RenderSink(t, sink, schema, rows, nil))

	assert.Equal(t, arrow.BinaryTypes.String, tbl.Schema().Field(0).Type)
	n := tbl.Column(0).Data().Chunk(0).(*array.String)
	assert.Equal(t, []string{"42", "x", "true"}, []string{n.Value(0), n.Value(1), n.Value(2)})
	ratio := tbl.Column(1).Data().Chunk(0).(*array.Float64)
	assert.Equal(t, 2.0, ratio.Value(0))
	assert.True(t, ratio.IsNull(2))
}

func TestSinkRejectsTextInIntegerColumn(t *testing.T) {
	schema, _ := testutil.IntRows("id")
	sink, err := New(nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, sink.Begin(context.Background(), schema, &buf))
	err = sink.WriteRow(context.Background(), models.Row{Schema: schema, Values: []models.Value{models.Text("seven")}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSink))
	col, _ := errors.Detail(err, "column")
	assert.Equal(t, "id", col)
	require.NoError(t, sink.End(context.Background(), err))
}
