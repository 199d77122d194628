// Package pipeline runs export jobs: it pulls rows from a row source,
// pushes them through a sink into an output target and reports progress.
//
// A pipeline is strictly synchronous. Each row is read, written and, for
// streaming sinks, periodically flushed before the next one is requested,
// so memory use does not grow with the result set. Several pipelines run
// side by side through a Runner and share nothing but a progress Hub.
//
//	p := pipeline.New(job, pipeline.DefaultConfig(), pipeline.WithLogger(log))
//	res := p.Run(ctx)
//	if res.Err != nil {
//	    os.Exit(errors.ExitCode(res.Err))
//	}
package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/metrics"
	"github.com/ajitpratap0/sqlport/pkg/observability"
	"github.com/ajitpratap0/sqlport/pkg/output"
)

// SinkFactory creates the sink for a format.
type SinkFactory func(format string, opts core.Options) (core.Sink, error)

// TargetFactory opens the output target for a location.
type TargetFactory func(ctx context.Context, location string, opts output.Options) (output.Target, error)

// Pipeline exports the result of one query.
type Pipeline struct {
	job Job
	cfg Config

	logger     *zap.Logger
	observer   ProgressObserver
	openSource core.SourceFactory
	createSink SinkFactory
	openTarget TargetFactory

	state atomicState
	span  *observability.JobSpan
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithObserver sets the progress observer.
func WithObserver(o ProgressObserver) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithSourceFactory replaces the registry lookup of row sources.
func WithSourceFactory(f core.SourceFactory) Option {
	return func(p *Pipeline) { p.openSource = f }
}

// WithSinkFactory replaces the registry lookup of sinks.
func WithSinkFactory(f SinkFactory) Option {
	return func(p *Pipeline) { p.createSink = f }
}

// WithTargetFactory replaces output.Open.
func WithTargetFactory(f TargetFactory) Option {
	return func(p *Pipeline) { p.openTarget = f }
}

// New creates a pipeline for job.
func New(job Job, cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		job:        job,
		cfg:        cfg.withDefaults(),
		logger:     logger.Get(),
		observer:   ObserverFunc(func(Snapshot) {}),
		openSource: registry.OpenSource,
		createSink: registry.CreateSink,
		openTarget: output.Open,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(
		zap.String("job_id", job.ID),
		zap.String("driver", job.Params.Driver),
		zap.String("format", job.Format),
	)
	if job.Profile != "" {
		p.logger = p.logger.With(zap.String("profile", job.Profile))
	}
	return p
}

// State returns the current state. It is safe to call from other
// goroutines while Run is in progress.
func (p *Pipeline) State() State {
	return p.state.load()
}

func (p *Pipeline) transition(to State) {
	from := p.state.load()
	p.state.store(to)
	p.logger.Debug("pipeline state", zap.Stringer("from", from), zap.Stringer("to", to))
	if p.span != nil {
		p.span.Event(to.String())
	}
}

// run carries the per-run resources so failure handling can release
// whatever was acquired.
type run struct {
	sink   core.Sink
	caps   core.Capabilities
	source core.RowSource
	target output.Target
	begun  bool
	ended  bool

	rows     int64
	total    int64
	hasTotal bool
	start    time.Time
}

// Run executes the job and blocks until it is completed or failed.
func (p *Pipeline) Run(ctx context.Context) Result {
	r := &run{start: time.Now()}
	ctx = logger.WithJob(ctx, p.job.ID, p.job.Profile)
	ctx, p.span = observability.StartJobSpan(ctx, observability.JobAttributes{
		JobID:   p.job.ID,
		Profile: p.job.Profile,
		Driver:  p.job.Params.Driver,
		Format:  p.job.Format,
		Target:  p.job.Output,
	})
	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	p.state.store(StateIdle)
	p.logger.Info("starting export", zap.String("target", p.job.Output))

	err := p.stream(ctx, r)
	res := Result{
		JobID:       p.job.ID,
		Rows:        r.rows,
		Elapsed:     time.Since(r.start),
		FailedAtRow: -1,
	}
	if err != nil {
		err = p.fail(ctx, r, err)
		if r.begun {
			res.FailedAtRow = r.rows
		}
		res.Err = err
		p.transition(StateFailed)
	} else {
		p.transition(StateCompleted)
	}
	if r.target != nil {
		res.Bytes = r.target.Written()
	}
	res.State = p.State()

	p.record(res)
	p.observer.Observe(Snapshot{
		JobID:    p.job.ID,
		State:    res.State,
		Rows:     res.Rows,
		Bytes:    res.Bytes,
		Elapsed:  res.Elapsed,
		Total:    r.total,
		HasTotal: r.hasTotal,
		Final:    true,
	})
	return res
}

func (p *Pipeline) stream(ctx context.Context, r *run) error {
	sink, err := p.createSink(p.job.Format, p.job.Options)
	if err != nil {
		return err
	}
	r.sink = sink
	r.caps = sink.Capabilities()

	source, err := p.openSource(ctx, p.job.Params, p.job.Query)
	if err != nil {
		return core.WrapDriverError(ctx, err, errors.ErrorTypeConnection, "failed to open source")
	}
	r.source = source
	defer func() {
		if err := source.Close(); err != nil {
			p.logger.Warn("failed to close source", zap.Error(err))
		}
	}()
	if c, ok := source.(core.Counter); ok {
		r.total, r.hasTotal = c.EstimatedRows()
	}
	p.transition(StateConnected)

	target, err := p.openTarget(ctx, p.job.Output, p.job.OutputOptions)
	if err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, nil)
	}
	r.target = target

	if err := sink.Begin(ctx, source.Schema(), target); err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, nil)
	}
	r.begun = true
	p.transition(StateStreaming)

	flusher, _ := sink.(core.Flusher)
	if r.caps.Mode != core.ModeStreaming {
		flusher = nil
	}
	flushRows := int64(p.cfg.FlushRows)
	progressRows := int64(p.cfg.ProgressRows)

	for {
		row, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.WrapDriverError(ctx, err, errors.ErrorTypeQuery, "failed to read row")
		}
		if r.caps.MaxRows > 0 && r.rows >= r.caps.MaxRows {
			return errors.Newf(errors.ErrorTypeSink, "format %s holds at most %d rows", p.job.Format, r.caps.MaxRows)
		}
		if err := sink.WriteRow(ctx, row); err != nil {
			return errors.Annotate(err, errors.ErrorTypeSink, nil)
		}
		r.rows++

		if flusher != nil && r.rows%flushRows == 0 {
			if err := flusher.Flush(); err != nil {
				return errors.Annotate(err, errors.ErrorTypeSink, nil)
			}
		}
		if r.rows%progressRows == 0 {
			p.progress(r)
		}
	}

	r.ended = true
	if err := sink.End(ctx, nil); err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, nil)
	}
	if err := target.Commit(); err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, nil)
	}
	return nil
}

func (p *Pipeline) progress(r *run) {
	var written int64
	if r.target != nil {
		written = r.target.Written()
	}
	p.observer.Observe(Snapshot{
		JobID:    p.job.ID,
		State:    p.State(),
		Rows:     r.rows,
		Bytes:    written,
		Elapsed:  time.Since(r.start),
		Total:    r.total,
		HasTotal: r.hasTotal,
	})
}

// fail finalizes or discards the partial output according to the sink's
// truncation policy and returns cause annotated with the job context.
func (p *Pipeline) fail(ctx context.Context, r *run, cause error) error {
	if ctx.Err() != nil && !errors.IsType(cause, errors.ErrorTypeCancelled) {
		cause = errors.Wrap(cause, errors.ErrorTypeCancelled, "export cancelled")
	}

	details := map[string]interface{}{
		"job":   p.job.ID,
		"query": p.job.Query.SQL,
	}
	if p.job.Profile != "" {
		details["profile"] = p.job.Profile
	}
	if p.job.Output != "" {
		details["target"] = p.job.Output
	}
	if r.begun {
		details["row"] = r.rows
	}
	cause = errors.Annotate(cause, errors.ErrorTypeInternal, details)

	// Cleanup must run even when the job was cancelled.
	cleanupCtx := context.WithoutCancel(ctx)

	if r.begun && !r.ended && r.caps.Truncation == core.TruncationFinalize {
		r.ended = true
		endErr := r.sink.End(cleanupCtx, cause)
		if endErr == nil {
			endErr = r.target.Commit()
		}
		if endErr == nil {
			p.logger.Warn("export failed, partial output kept", zap.Int64("rows", r.rows), zap.Error(cause))
			return cause
		}
		p.logger.Warn("failed to finalize partial output", zap.Error(endErr))
	}

	if d, ok := r.sink.(core.Discarder); ok {
		if err := d.Discard(); err != nil {
			p.logger.Warn("failed to discard sink", zap.Error(err))
		}
	}
	if r.target != nil {
		if err := r.target.Abort(); err != nil {
			p.logger.Warn("failed to abort output", zap.Error(err))
		}
	}
	p.logger.Error("export failed", zap.Int64("rows", r.rows), zap.Error(cause))
	return cause
}

func (p *Pipeline) record(res Result) {
	status := res.State.String()
	errType := ""
	if res.Err != nil {
		errType = string(errors.TypeOf(res.Err))
	}
	metrics.RowsExported.WithLabelValues(p.job.Params.Driver, p.job.Format).Add(float64(res.Rows))
	metrics.BytesWritten.WithLabelValues(p.job.Format).Add(float64(res.Bytes))
	metrics.JobsTotal.WithLabelValues(status, errType).Inc()
	metrics.JobDuration.WithLabelValues(p.job.Format).Observe(res.Elapsed.Seconds())

	p.span.End(res.Rows, res.Bytes, res.Err)
	if res.Err == nil {
		rate := 0.0
		if secs := res.Elapsed.Seconds(); secs > 0 {
			rate = float64(res.Rows) / secs
		}
		p.logger.Info("export completed",
			zap.Int64("rows", res.Rows),
			zap.Int64("bytes", res.Bytes),
			zap.Duration("duration", res.Elapsed),
			zap.Float64("throughput_rps", rate))
	}
}

// FirstError returns the error of the first failed result in job order.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// IsCancelled reports whether err stems from cancellation.
func IsCancelled(err error) bool {
	return errors.IsType(err, errors.ErrorTypeCancelled) || stderrors.Is(err, context.Canceled)
}
