package main

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/internal/pipeline"
	"github.com/ajitpratap0/sqlport/pkg/compression"
	"github.com/ajitpratap0/sqlport/pkg/config"
	"github.com/ajitpratap0/sqlport/pkg/connector/core"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/output"
)

func (a *app) exportCommand() *cobra.Command {
	var (
		conn        connFlags
		id          string
		query       string
		queryFile   string
		format      string
		out         string
		compress    string
		level       int
		options     []string
		count       bool
		s3Region    string
		s3Endpoint  string
		gcsCredFile string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a query and export its result",
		Long: `Run one query and stream its result into the chosen format.

Examples:
  sqlport export -p prod -q 'SELECT * FROM users' -f csv -o users.csv.gz
  sqlport export --driver sqlite -d app.db -q 'SELECT 1' -f json -O style=lines
  sqlport export -p warehouse --query-file report.sql -f parquet -o s3://bucket/report.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sql, err := readQuery(query, queryFile)
			if err != nil {
				return err
			}
			params, err := conn.params(cmd, a)
			if err != nil {
				return err
			}
			opts, err := core.ParseOptions(options)
			if err != nil {
				return err
			}
			algo, err := compression.Parse(compress)
			if err != nil {
				return err
			}
			if compress == "" {
				algo = ""
			}
			if id == "" {
				id = uuid.NewString()[:8]
			}

			job := pipeline.Job{
				ID:      id,
				Profile: conn.profile,
				Params:  params,
				Query:   core.Query{SQL: sql, Count: count},
				Format:  format,
				Options: opts,
				Output:  out,
				OutputOptions: output.Options{
					Compression: algo,
					Level:       compression.Level(level),
					Stdout:      cmd.OutOrStdout(),
					S3:          output.S3Options{Region: s3Region, Endpoint: s3Endpoint},
					GCS:         output.GCSOptions{CredentialsFile: gcsCredFile},
				},
			}
			return a.exportOne(cmd, job)
		},
	}

	conn.register(cmd)
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Job id used in logs and errors (default: random)")
	f.StringVarP(&query, "query", "q", "", "SQL query")
	f.StringVar(&queryFile, "query-file", "", "File holding the SQL query, - for stdin")
	f.StringVarP(&format, "format", "f", "csv", "Output format (see 'sqlport formats')")
	f.StringVarP(&out, "output", "o", output.Stdout, "Output location: file, -, s3://bucket/key or gs://bucket/object")
	f.StringVar(&compress, "compression", "", "Compression: none, gzip, zstd, lz4, snappy, s2 (default: from the output extension)")
	f.IntVar(&level, "compression-level", int(compression.Default), "Compression level from 1 (fastest) to 9 (best)")
	f.StringArrayVarP(&options, "option", "O", nil, "Format option as key=value (repeatable)")
	f.BoolVar(&count, "count", false, "Count rows first so progress reports a total")
	f.StringVar(&s3Region, "s3-region", "", "AWS region for s3:// outputs")
	f.StringVar(&s3Endpoint, "s3-endpoint", "", "Custom S3 endpoint, e.g. for MinIO")
	f.StringVar(&gcsCredFile, "gcs-credentials", "", "Service account file for gs:// outputs")
	return cmd
}

func (a *app) exportOne(cmd *cobra.Command, job pipeline.Job) error {
	log := logger.With(zap.String("component", "cli"))
	observers := pipeline.Observers{pipeline.NewLogObserver(log), pipeline.MetricsObserver{}}

	p := pipeline.New(job, a.pipelineConfig(), pipeline.WithLogger(log), pipeline.WithObserver(observers))
	res := p.Run(cmd.Context())
	return res.Err
}

func (a *app) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		FlushRows:    a.settings.FlushRows,
		ProgressRows: a.settings.ProgressRows,
	}
}

// readQuery returns the query from the flag or the file, which are
// exclusive.
func readQuery(query, file string) (string, error) {
	switch {
	case query != "" && file != "":
		return "", errors.New(errors.ErrorTypeConfig, "--query and --query-file are exclusive")
	case query != "":
		return query, nil
	case file == "-":
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to read query from stdin")
		}
		return strings.TrimSpace(string(b)), nil
	case file != "":
		b, err := os.ReadFile(file) //nolint:gosec // user supplied query file
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, "failed to read query file").WithDetail("file", file)
		}
		return strings.TrimSpace(string(b)), nil
	default:
		return "", errors.New(errors.ErrorTypeConfig, "no query given, use --query or --query-file")
	}
}

// jobFromSpec turns a job file entry into a pipeline job.
func (a *app) jobFromSpec(cmd *cobra.Command, spec config.JobSpec) (pipeline.Job, error) {
	params, err := a.resolve(spec.Profile, spec.Fields)
	if err != nil {
		return pipeline.Job{}, errors.Annotate(err, errors.ErrorTypeConfig, map[string]interface{}{"job": spec.ID})
	}
	algo, err := compression.Parse(spec.Compression)
	if err != nil {
		return pipeline.Job{}, errors.Annotate(err, errors.ErrorTypeConfig, map[string]interface{}{"job": spec.ID})
	}
	if spec.Compression == "" {
		algo = ""
	}
	return pipeline.Job{
		ID:      spec.ID,
		Profile: spec.Profile,
		Params:  params,
		Query:   core.Query{SQL: spec.Query, Count: spec.Count},
		Format:  spec.Format,
		Options: core.Options(spec.Options),
		Output:  spec.Output,
		OutputOptions: output.Options{
			Compression: algo,
			Stdout:      cmd.OutOrStdout(),
		},
	}, nil
}
