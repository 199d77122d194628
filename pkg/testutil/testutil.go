// Package testutil provides fixtures shared by the connector and pipeline
// tests: fake row sources, sample schemas and a sink driver.
package testutil

import (
	"bytes"
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/models"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// AllKindsSchema has one column per value kind plus a second text column
// sharing the first column's name.
func AllKindsSchema() *models.Schema {
	return models.NewSchema(
		models.Column{Name: "id", DatabaseType: "bigint", Kind: models.KindInteger},
		models.Column{Name: "flag", DatabaseType: "boolean", Kind: models.KindBool, Nullable: true},
		models.Column{Name: "ratio", DatabaseType: "double", Kind: models.KindFloat, Nullable: true},
		models.Column{Name: "name", DatabaseType: "text", Kind: models.KindText, Nullable: true},
		models.Column{Name: "payload", DatabaseType: "bytea", Kind: models.KindBytes, Nullable: true},
		models.Column{Name: "created", DatabaseType: "timestamptz", Kind: models.KindTimestamp, Nullable: true},
		models.Column{Name: "local", DatabaseType: "timestamp", Kind: models.KindTimestamp, Nullable: true},
		models.Column{Name: "id", DatabaseType: "text", Kind: models.KindText, Nullable: true},
	)
}

// AllKindsRows returns rows for AllKindsSchema covering the awkward corners
// of every kind: extremes, special floats, quoting, empty and null values.
func AllKindsRows() [][]models.Value {
	return [][]models.Value{
		{
			models.Integer(1),
			models.Bool(true),
			models.Float(-0.3),
			models.Text("plain"),
			models.Bytes([]byte{0, 255, 10}),
			models.Timestamp(time.Date(1999, 12, 31, 23, 59, 59, 999999999, time.UTC), true),
			models.Timestamp(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), false),
			models.Text("dup"),
		},
		{
			models.Integer(math.MinInt64),
			models.Bool(false),
			models.Float(math.Inf(1)),
			models.Text("comma, \"quote\"\nnewline <tag> & é"),
			models.Bytes(nil),
			models.Timestamp(time.Date(2030, 6, 1, 0, 0, 0, 1000, time.FixedZone("", 9*3600+1800)), true),
			models.Null(),
			models.Text(""),
		},
		{
			models.Integer(math.MaxInt64),
			models.Null(),
			models.Float(math.NaN()),
			models.Null(),
			models.Null(),
			models.Null(),
			models.Timestamp(time.Date(1970, 1, 1, 12, 30, 0, 500, time.UTC), false),
			models.Null(),
		},
	}
}

// Rows pairs values with a schema.
func Rows(schema *models.Schema, values [][]models.Value) []models.Row {
	rows := make([]models.Row, len(values))
	for i, v := range values {
		rows[i] = models.Row{Schema: schema, Values: v}
	}
	return rows
}

// IntRows builds single column integer rows named name.
func IntRows(name string, values ...int64) (*models.Schema, []models.Row) {
	schema := models.NewSchema(models.Column{Name: name, DatabaseType: "integer", Kind: models.KindInteger})
	rows := make([]models.Row, len(values))
	for i, v := range values {
		rows[i] = models.Row{Schema: schema, Values: []models.Value{models.Integer(v)}}
	}
	return schema, rows
}

// RenderSink drives a sink through Begin, every row and End(cause) and
// returns what it wrote.
func RenderSink(t *testing.T, sink core.Sink, schema *models.Schema, rows []models.Row, cause error) []byte {
	t.Helper()
	ctx := context.Background()
	var buf bytes.Buffer
	require.NoError(t, sink.Begin(ctx, schema, &buf))
	for _, row := range rows {
		require.NoError(t, sink.WriteRow(ctx, row))
	}
	require.NoError(t, sink.End(ctx, cause))
	return buf.Bytes()
}

// SliceSource is an in-memory core.RowSource. Hooks let tests block before
// a row or fail at a given position.
type SliceSource struct {
	schema *models.Schema
	rows   []models.Row

	// Before is called with the zero based index of the row about to be
	// returned.
	Before func(ctx context.Context, index int) error
	// FailAt makes Next return Err instead of the row at that index when
	// Err is set.
	FailAt int
	Err    error
	// Total is reported through core.Counter when positive.
	Total int64

	mu     sync.Mutex
	next   int
	closed int
}

// NewSliceSource creates a source over rows.
func NewSliceSource(schema *models.Schema, rows []models.Row) *SliceSource {
	return &SliceSource{schema: schema, rows: rows, FailAt: -1}
}

// Schema implements core.RowSource.
func (s *SliceSource) Schema() *models.Schema { return s.schema }

// Next implements core.RowSource.
func (s *SliceSource) Next(ctx context.Context) (models.Row, error) {
	s.mu.Lock()
	i := s.next
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.Row{}, err
	}
	if s.Before != nil {
		if err := s.Before(ctx, i); err != nil {
			return models.Row{}, err
		}
	}
	if s.Err != nil && i == s.FailAt {
		return models.Row{}, s.Err
	}
	if i >= len(s.rows) {
		return models.Row{}, io.EOF
	}
	s.mu.Lock()
	s.next++
	s.mu.Unlock()
	return s.rows[i], nil
}

// EstimatedRows implements core.Counter.
func (s *SliceSource) EstimatedRows() (int64, bool) {
	return s.Total, s.Total > 0
}

// Close implements core.RowSource.
func (s *SliceSource) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Closed reports how many times Close was called.
func (s *SliceSource) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
