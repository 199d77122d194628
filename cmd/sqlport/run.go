package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/internal/pipeline"
	"github.com/ajitpratap0/sqlport/pkg/config"
	"github.com/ajitpratap0/sqlport/pkg/logger"
)

func (a *app) runCommand() *cobra.Command {
	var (
		jobsFile    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the exports declared in a job file concurrently",
		Long: `Run every job of a YAML job file. Jobs run independently on a bounded
worker pool; a failing job does not stop the others. The exit code is the
one of the first failed job in file order.

Example job file:

  defaults:
    profile: prod
    format: csv
  jobs:
    - id: users
      query: SELECT * FROM users
      output: users.csv.gz
    - id: orders
      query_file: orders.sql
      format: parquet
      output: s3://exports/orders.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			specs, err := config.LoadJobs(jobsFile)
			if err != nil {
				return err
			}
			// A job whose profile or options do not resolve fails on its own;
			// the rest still run and results keep file order.
			results := make([]pipeline.Result, len(specs))
			jobs := make([]pipeline.Job, 0, len(specs))
			slots := make([]int, 0, len(specs))
			for i, spec := range specs {
				job, err := a.jobFromSpec(cmd, spec)
				if err != nil {
					results[i] = pipeline.Result{JobID: spec.ID, State: pipeline.StateFailed, FailedAtRow: -1, Err: err}
					continue
				}
				jobs = append(jobs, job)
				slots = append(slots, i)
			}

			if !cmd.Flags().Changed("concurrency") {
				concurrency = a.settings.Concurrency
			}
			log := logger.With(zap.String("component", "cli"))
			observers := pipeline.Observers{pipeline.NewLogObserver(log), pipeline.MetricsObserver{}}
			for i, r := range pipeline.NewRunner(a.pipelineConfig(), concurrency, observers).Run(cmd.Context(), jobs) {
				results[slots[i]] = r
			}

			printSummary(cmd, results)
			return pipeline.FirstError(results)
		},
	}

	cmd.Flags().StringVarP(&jobsFile, "jobs", "j", "", "Job file (YAML)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Jobs exporting at once (default: from settings)")
	_ = cmd.MarkFlagRequired("jobs")
	return cmd
}

func printSummary(cmd *cobra.Command, results []pipeline.Result) {
	tw := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tSTATE\tROWS\tBYTES\tELAPSED\tERROR")
	for _, r := range results {
		msg := ""
		if r.Err != nil {
			msg = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", r.JobID, r.State, r.Rows, r.Bytes, r.Elapsed.Round(time.Millisecond), msg)
	}
	_ = tw.Flush()
}
