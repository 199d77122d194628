// Package output provides the byte destinations a sink writes to: local
// files, stdout and object stores. A target is written once and then
// either committed, making the output visible, or aborted, leaving nothing
// behind where the destination allows it.
package output

import (
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/compression"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
)

// Stdout is the location that selects standard output.
const Stdout = "-"

// Target is an output destination.
type Target interface {
	io.Writer
	// Location is where the output goes, as given to Open.
	Location() string
	// Written is the number of bytes written before compression.
	Written() int64
	// Commit finishes the output. It must be called once all data is
	// written.
	Commit() error
	// Abort drops the output. Calling it after Commit is a no-op.
	Abort() error
}

// Options configure Open.
type Options struct {
	// Compression defaults to the algorithm implied by the location's
	// extension.
	Compression compression.Algorithm
	Level       compression.Level
	// ContentType and Metadata are attached to uploaded objects.
	ContentType string
	Metadata    map[string]string

	// Stdout replaces os.Stdout for the "-" location.
	Stdout io.Writer

	S3  S3Options
	GCS GCSOptions
}

// destination is the raw byte sink behind a target.
type destination interface {
	io.Writer
	commit() error
	abort() error
}

// Open creates the target for location: "-" for stdout, s3://bucket/key,
// gs://bucket/object, or a file path (optionally file://).
func Open(ctx context.Context, location string, opts Options) (Target, error) {
	algo := opts.Compression
	if algo == "" {
		algo = compression.FromExtension(location)
	}
	if opts.Level == 0 {
		opts.Level = compression.Default
	}

	var (
		dst destination
		err error
	)
	switch {
	case location == "" || location == Stdout:
		location = Stdout
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		dst = &stdoutDestination{w: w}
	case strings.HasPrefix(location, "s3://"):
		dst, err = openS3(ctx, location, opts)
	case strings.HasPrefix(location, "gs://"):
		dst, err = openGCS(ctx, location, opts)
	default:
		dst, err = openFile(strings.TrimPrefix(location, "file://"))
	}
	if err != nil {
		return nil, errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"target": location})
	}

	cw, err := compression.NewWriter(dst, algo, opts.Level)
	if err != nil {
		_ = dst.abort()
		return nil, err
	}
	return &target{location: location, dst: dst, cw: cw}, nil
}

type target struct {
	location string
	dst      destination
	cw       io.WriteCloser
	written  atomic.Int64
	done     bool
}

func (t *target) Write(p []byte) (int, error) {
	n, err := t.cw.Write(p)
	t.written.Add(int64(n))
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeSink, "failed to write output").WithDetail("target", t.location)
	}
	return n, nil
}

func (t *target) Location() string { return t.location }

func (t *target) Written() int64 { return t.written.Load() }

func (t *target) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.cw.Close(); err != nil {
		_ = t.dst.abort()
		return errors.Wrap(err, errors.ErrorTypeSink, "failed to finish compressed output").WithDetail("target", t.location)
	}
	if err := t.dst.commit(); err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"target": t.location})
	}
	logger.Debug("output committed", zap.String("target", t.location), zap.Int64("bytes", t.Written()))
	return nil
}

func (t *target) Abort() error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.dst.abort()
	logger.Debug("output aborted", zap.String("target", t.location), zap.Error(err))
	if err != nil {
		return errors.Annotate(err, errors.ErrorTypeSink, map[string]interface{}{"target": t.location})
	}
	return nil
}

type stdoutDestination struct {
	w io.Writer
}

func (s *stdoutDestination) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *stdoutDestination) commit() error { return nil }

// abort cannot take back bytes already printed.
func (s *stdoutDestination) abort() error { return nil }
