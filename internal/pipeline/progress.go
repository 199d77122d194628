package pipeline

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/metrics"
)

// Hub serializes snapshots from concurrent pipelines into one consumer.
// Intermediate snapshots are dropped when the consumer lags behind; final
// snapshots always get through.
type Hub struct {
	ch       chan Snapshot
	consumer ProgressObserver
	done     chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewHub starts a hub delivering to consumer. buffer is the number of
// intermediate snapshots held while the consumer is busy.
func NewHub(consumer ProgressObserver, buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	h := &Hub{
		ch:       make(chan Snapshot, buffer),
		consumer: consumer,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	defer close(h.done)
	for s := range h.ch {
		h.consumer.Observe(s)
	}
}

// Observe implements ProgressObserver. Snapshots sent after Close are
// ignored.
func (h *Hub) Observe(s Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	if s.Final {
		h.ch <- s
		return
	}
	select {
	case h.ch <- s:
	default:
		h.dropped.Add(1)
	}
}

// Close stops accepting snapshots and waits until the consumer has seen
// every queued one.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return
	}
	h.closed = true
	close(h.ch)
	h.mu.Unlock()
	<-h.done
}

// Dropped returns the number of intermediate snapshots skipped so far.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// LogObserver writes snapshots to a zap logger together with the process
// resident set size.
type LogObserver struct {
	logger *zap.Logger
	proc   *process.Process
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		logger.Debug("process stats unavailable", zap.Error(err))
		proc = nil
	}
	return &LogObserver{logger: logger, proc: proc}
}

// Observe implements ProgressObserver.
func (o *LogObserver) Observe(s Snapshot) {
	fields := []zap.Field{
		zap.String("job_id", s.JobID),
		zap.Stringer("state", s.State),
		zap.Int64("rows", s.Rows),
		zap.Int64("bytes", s.Bytes),
		zap.Duration("elapsed", s.Elapsed.Round(time.Millisecond)),
	}
	if secs := s.Elapsed.Seconds(); secs > 0 {
		fields = append(fields, zap.Float64("rows_per_sec", float64(s.Rows)/secs))
	}
	if s.HasTotal {
		fields = append(fields, zap.Int64("total", s.Total))
		if s.Total > 0 {
			fields = append(fields, zap.Float64("percent", 100*float64(s.Rows)/float64(s.Total)))
		}
	}
	if o.proc != nil {
		if mem, err := o.proc.MemoryInfo(); err == nil {
			fields = append(fields, zap.Uint64("rss_bytes", mem.RSS))
		}
	}

	if s.Final {
		o.logger.Info("export finished", fields...)
		return
	}
	o.logger.Info("export progress", fields...)
}

// MetricsObserver publishes running row counts as a Prometheus gauge.
type MetricsObserver struct{}

// Observe implements ProgressObserver.
func (MetricsObserver) Observe(s Snapshot) {
	if s.Final {
		metrics.JobRows.DeleteLabelValues(s.JobID)
		return
	}
	metrics.JobRows.WithLabelValues(s.JobID).Set(float64(s.Rows))
}
