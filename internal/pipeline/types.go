package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/output"
)

// State is the lifecycle position of a pipeline.
type State int32

const (
	// StateIdle is the state before the source is open.
	StateIdle State = iota
	// StateConnected means the source is open and its schema known.
	StateConnected
	// StateStreaming means the sink has begun and rows are flowing.
	StateStreaming
	// StateCompleted is terminal: all rows written and output committed.
	StateCompleted
	// StateFailed is terminal: the job stopped on an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) load() State   { return State(a.v.Load()) }
func (a *atomicState) store(s State) { a.v.Store(int32(s)) }

// Job describes one export: where rows come from and where they go.
type Job struct {
	ID string
	// Profile is the profile id the connection came from, if any.
	Profile string
	Params  core.ConnectionParams
	Query   core.Query
	Format  string
	Options core.Options
	// Output is a target location understood by output.Open.
	Output        string
	OutputOptions output.Options
}

// Config tunes pipeline behaviour.
type Config struct {
	// FlushRows is the row interval at which streaming sinks are flushed.
	FlushRows int
	// ProgressRows is the minimum number of rows between progress
	// snapshots.
	ProgressRows int
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		FlushRows:    1000,
		ProgressRows: 10000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FlushRows <= 0 {
		c.FlushRows = d.FlushRows
	}
	if c.ProgressRows <= 0 {
		c.ProgressRows = d.ProgressRows
	}
	return c
}

// Result is the outcome of one job.
type Result struct {
	JobID string
	State State
	// Rows is the number of rows handed to the sink.
	Rows int64
	// Bytes is the uncompressed size of the output.
	Bytes   int64
	Elapsed time.Duration
	// FailedAtRow is the zero based index of the row being read or written
	// when the job failed, or -1 when it failed before streaming.
	FailedAtRow int64
	Err         error
}

// Snapshot is a progress report of one job.
type Snapshot struct {
	JobID   string
	State   State
	Rows    int64
	Bytes   int64
	Elapsed time.Duration
	// Total is the expected row count when the source reported one.
	Total    int64
	HasTotal bool
	// Final marks the last snapshot of a job.
	Final bool
}

// ProgressObserver receives progress snapshots. Implementations used by
// several pipelines must be safe for concurrent use.
type ProgressObserver interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to ProgressObserver.
type ObserverFunc func(Snapshot)

// Observe implements ProgressObserver.
func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// Observers fans a snapshot out to several observers in order.
type Observers []ProgressObserver

// Observe implements ProgressObserver.
func (o Observers) Observe(s Snapshot) {
	for _, obs := range o {
		obs.Observe(s)
	}
}
