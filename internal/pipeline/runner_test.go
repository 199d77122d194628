package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/connector/registry"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/output"
	"github.com/ajitpratap0/sqlport/pkg/testutil"
)

func TestRunnerJobsReportIndependently(t *testing.T) {
	schema, rows := testutil.IntRows("a", 1, 2, 3)

	// both jobs must be inside the pool at once
	var started sync.WaitGroup
	started.Add(2)
	sources := WithSourceFactory(func(context.Context, core.ConnectionParams, core.Query) (core.RowSource, error) {
		src := testutil.NewSliceSource(schema, rows)
		src.Before = func(_ context.Context, i int) error {
			if i == 0 {
				started.Done()
				started.Wait()
			}
			return nil
		}
		return src, nil
	})
	sinks := WithSinkFactory(func(format string, opts core.Options) (core.Sink, error) {
		if format == "broken" {
			return &fakeSink{failAt: 1}, nil
		}
		return registry.CreateSink(format, opts)
	})

	good := &syncBuffer{}
	jobs := []Job{
		{ID: "good", Format: "csv", Output: "-", OutputOptions: output.Options{Stdout: good}},
		{ID: "bad", Format: "broken", Output: "-", OutputOptions: output.Options{Stdout: &syncBuffer{}}},
	}
	obs := &collector{}

	results := NewRunner(DefaultConfig(), 2, obs, sources, sinks).Run(context.Background(), jobs)
	require.Len(t, results, 2)

	assert.Equal(t, "good", results[0].JobID)
	assert.Equal(t, StateCompleted, results[0].State)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, int64(3), results[0].Rows)
	assert.Equal(t, "a\n1\n2\n3\n", good.String())

	assert.Equal(t, "bad", results[1].JobID)
	assert.Equal(t, StateFailed, results[1].State)
	assert.Equal(t, errors.ExitSink, errors.ExitCode(results[1].Err))
	assert.Equal(t, int64(1), results[1].FailedAtRow)

	assert.Equal(t, errors.ExitSink, errors.ExitCode(FirstError(results)))

	finals := 0
	for _, s := range obs.all() {
		if s.Final {
			finals++
		}
	}
	assert.Equal(t, 2, finals)
}

func TestHubNeverDropsFinalSnapshots(t *testing.T) {
	release := make(chan struct{})
	obs := &collector{}
	hub := NewHub(ObserverFunc(func(s Snapshot) {
		<-release
		obs.Observe(s)
	}), 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := int64(1); r <= 50; r++ {
				hub.Observe(Snapshot{JobID: "j", Rows: r})
			}
			hub.Observe(Snapshot{JobID: "j", Rows: 50, Final: true})
		}()
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	hub.Close()

	finals := 0
	for _, s := range obs.all() {
		if s.Final {
			finals++
		}
	}
	assert.Equal(t, 4, finals)
	assert.Positive(t, hub.Dropped())

	// late snapshots are ignored
	hub.Observe(Snapshot{Final: true})
	hub.Close()
}

func TestLogObserver(t *testing.T) {
	o := NewLogObserver(testutil.TestLogger(t))
	o.Observe(Snapshot{JobID: "j", Rows: 10, Elapsed: time.Second, Total: 20, HasTotal: true})
	o.Observe(Snapshot{JobID: "j", Rows: 20, Final: true, State: StateCompleted})
	MetricsObserver{}.Observe(Snapshot{JobID: "j", Rows: 10})
	MetricsObserver{}.Observe(Snapshot{JobID: "j", Final: true})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateConnected.Terminal())
}
