// Package observability sets up OpenTelemetry tracing for export jobs.
// Tracing is off unless enabled; spans then go to a stdout exporter.
package observability

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

const instrumentationName = "github.com/ajitpratap0/sqlport"

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	// SamplingRate is the fraction of jobs traced, 1 when zero.
	SamplingRate float64
	// Output receives exported spans, stderr by default.
	Output io.Writer
	Pretty bool
}

// Init installs the global tracer provider. The returned function flushes
// and stops it; it is safe to call when tracing is disabled.
func Init(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "sqlport"
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create trace resource")
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	exporterOpts := []stdouttrace.Option{stdouttrace.WithWriter(out)}
	if cfg.Pretty {
		exporterOpts = append(exporterOpts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(exporterOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create stdout exporter")
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SamplingRate <= 0 || cfg.SamplingRate >= 1:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the tracer used for job spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// JobAttributes describe an export job on its span.
type JobAttributes struct {
	JobID   string
	Profile string
	Driver  string
	Format  string
	Target  string
}

// JobSpan wraps the span covering one export job.
type JobSpan struct {
	span trace.Span
}

// StartJobSpan starts the span for a job.
func StartJobSpan(ctx context.Context, job JobAttributes) (context.Context, *JobSpan) {
	ctx, span := Tracer().Start(ctx, "sqlport.export",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job.id", job.JobID),
			attribute.String("job.profile", job.Profile),
			attribute.String("source.driver", job.Driver),
			attribute.String("sink.format", job.Format),
			attribute.String("output.target", job.Target),
		),
	)
	return ctx, &JobSpan{span: span}
}

// Event records a state change of the job.
func (s *JobSpan) Event(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End closes the span with the job outcome.
func (s *JobSpan) End(rows, bytes int64, err error) {
	s.span.SetAttributes(
		attribute.Int64("job.rows", rows),
		attribute.Int64("job.bytes", bytes),
	)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetAttributes(attribute.String("error.type", string(errors.TypeOf(err))))
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
