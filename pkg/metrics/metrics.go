// Package metrics exposes Prometheus collectors for export jobs.
//
// Collectors are registered on the default registry at init so the
// /metrics endpoint started by Serve reports them without extra wiring.
//
//	timer := metrics.NewTimer()
//	... run the job ...
//	metrics.JobDuration.WithLabelValues("csv").Observe(timer.Stop().Seconds())
package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
)

var (
	// RowsExported counts rows handed to a sink
	RowsExported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlport_rows_exported_total",
			Help: "Total number of rows written to sinks",
		},
		[]string{"driver", "format"},
	)

	// BytesWritten counts uncompressed bytes written to targets
	BytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlport_bytes_written_total",
			Help: "Total number of uncompressed bytes written to output targets",
		},
		[]string{"format"},
	)

	// JobsTotal counts finished jobs by outcome
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlport_jobs_total",
			Help: "Total number of export jobs by final state",
		},
		[]string{"status", "error_type"},
	)

	// JobDuration observes wall time of finished jobs in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlport_job_duration_seconds",
			Help:    "Export job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"format"},
	)

	// JobRows is the row count of running jobs as last reported
	JobRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sqlport_job_rows",
			Help: "Rows exported so far by running jobs",
		},
		[]string{"job"},
	)

	// ActiveJobs is the number of jobs currently streaming
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sqlport_active_jobs",
			Help: "Number of export jobs in progress",
		},
	)
)

// Timer measures elapsed time
type Timer struct {
	start time.Time
}

// NewTimer creates a started timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a /metrics endpoint on addr and stops it when ctx is done.
// The returned address is the bound one, useful when addr ends in :0.
func Serve(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to listen for metrics").WithDetail("addr", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}
