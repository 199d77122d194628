// Package core defines the contracts between the export pipeline and the
// connectors: row sources pull rows from a backend, sinks render them into
// an output format.
package core

import (
	"context"
	"io"

	"github.com/ajitpratap0/sqlport/pkg/models"
)

// Query is the statement a source executes.
type Query struct {
	SQL string
	// Count asks the source to run a count(*) over the statement first so
	// progress can report a total.
	Count bool
}

// RowSource is a forward-only cursor over a result set.
//
// The schema is known as soon as the source is open. Next returns io.EOF
// once the stream is exhausted; any other error is fatal for the job. Rows
// are fetched from the driver as Next is called, never all at once.
type RowSource interface {
	Schema() *models.Schema
	Next(ctx context.Context) (models.Row, error)
	// Close releases the cursor and connection. It is idempotent.
	Close() error
}

// Counter is implemented by sources that were asked for a row count.
type Counter interface {
	EstimatedRows() (int64, bool)
}

// SourceFactory opens a source. It fails with a connection error when the
// backend cannot be reached or rejects the credentials and with a query
// error when the statement is rejected.
type SourceFactory func(ctx context.Context, params ConnectionParams, query Query) (RowSource, error)

// CatalogEntry is one column of one table as reported by a backend's
// information schema.
type CatalogEntry struct {
	Schema   string
	Table    string
	Column   string
	DataType string
}

// CatalogFunc lists the tables and columns visible to a connection.
type CatalogFunc func(ctx context.Context, params ConnectionParams) ([]CatalogEntry, error)

// Mode tells the pipeline how a sink consumes rows.
type Mode int

const (
	// ModeStreaming sinks emit output as rows arrive.
	ModeStreaming Mode = iota
	// ModeBuffered sinks need the whole stream before writing.
	ModeBuffered
)

func (m Mode) String() string {
	if m == ModeBuffered {
		return "buffered"
	}
	return "streaming"
}

// TruncationPolicy decides what happens to partial output when a job fails.
type TruncationPolicy int

const (
	// TruncationDiscard drops partial output.
	TruncationDiscard TruncationPolicy = iota
	// TruncationFinalize closes the document and marks it incomplete.
	TruncationFinalize
)

func (p TruncationPolicy) String() string {
	if p == TruncationFinalize {
		return "finalize"
	}
	return "discard"
}

// Capabilities are declared by each sink.
type Capabilities struct {
	Mode       Mode
	Truncation TruncationPolicy
	// MaxRows is the format's row limit. Zero means unlimited.
	MaxRows int64
	// Lossless is true when DisplayText survives the format unchanged.
	Lossless bool
}

// Sink renders rows into one output format.
//
// Begin is called once with the schema before any row. End is called once
// after the last row; a non-nil cause means the stream was cut short and the
// sink should mark the output incomplete. Every sink must produce
// well-formed output for zero rows.
type Sink interface {
	Capabilities() Capabilities
	Begin(ctx context.Context, schema *models.Schema, out io.Writer) error
	WriteRow(ctx context.Context, row models.Row) error
	End(ctx context.Context, cause error) error
}

// Flusher is implemented by sinks that buffer encoded bytes internally.
type Flusher interface {
	Flush() error
}

// Discarder is implemented by sinks holding resources beyond the writer,
// such as temp files. Discard is called instead of End when output is
// dropped.
type Discarder interface {
	Discard() error
}

// SinkFactory creates a sink configured with format options.
type SinkFactory func(opts Options) (Sink, error)
