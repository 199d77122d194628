package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/sqlport/pkg/logger"
)

// Runner executes several jobs on a bounded worker pool. Jobs are
// independent: a failure never cancels the others.
type Runner struct {
	cfg         Config
	concurrency int
	observer    ProgressObserver
	logger      *zap.Logger
	opts        []Option
}

// NewRunner creates a runner. observer may be nil. opts are applied to
// every pipeline.
func NewRunner(cfg Config, concurrency int, observer ProgressObserver, opts ...Option) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		cfg:         cfg,
		concurrency: concurrency,
		observer:    observer,
		logger:      logger.With(zap.String("component", "runner")),
		opts:        opts,
	}
}

// Run executes jobs and returns their results in job order.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	opts := append([]Option{WithLogger(r.logger)}, r.opts...)
	if r.observer != nil {
		hub := NewHub(r.observer, 64)
		defer hub.Close()
		opts = append(opts, WithObserver(hub))
	}

	r.logger.Info("running jobs", zap.Int("jobs", len(jobs)), zap.Int("concurrency", r.concurrency))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = New(job, r.cfg, opts...).Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("jobs finished", zap.Int("completed", len(jobs)-failed), zap.Int("failed", failed))
	return results
}
