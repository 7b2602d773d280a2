// Package observability sets up structured logging: a stdout handler, an
// optional OpenTelemetry log pipeline and W3C trace context propagation.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies log records emitted through the OTel bridge.
const instrumentationName = "github.com/florianilch/claudine-gateway"

// Log exporters.
const (
	ExporterNone     = "none"
	ExporterStdout   = "stdout"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

// Options configures Instrument.
type Options struct {
	Level  slog.Level
	Format string // text or json

	// LogsExporter enables the OpenTelemetry log pipeline unless it is empty
	// or ExporterNone. OTLP exporters read the standard OTEL_EXPORTER_OTLP_*
	// environment variables.
	LogsExporter string
	// MinSeverity filters records sent to the exporter.
	MinSeverity string

	// Output receives stdout logs. Nil means os.Stdout.
	Output io.Writer
}

// Instrument installs the default slog logger and the global trace context
// propagator. The returned function flushes and stops the log pipeline.
func Instrument(ctx context.Context, opts Options) (shutdown func(context.Context) error, err error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handler, err := newStdoutHandler(out, opts.Level, opts.Format)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown = func(context.Context) error { return nil }

	if opts.LogsExporter != "" && opts.LogsExporter != ExporterNone {
		provider, err := newLoggerProvider(ctx, opts.LogsExporter, opts.MinSeverity)
		if err != nil {
			return nil, err
		}
		global.SetLoggerProvider(provider)

		handler = newFanoutHandler(handler, otelslog.NewHandler(instrumentationName,
			otelslog.WithLoggerProvider(provider),
		))
		shutdown = provider.Shutdown
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))

	return shutdown, nil
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch strings.ToLower(logFormat) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text", "":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}
}

// newLoggerProvider builds exporter → batch processor → severity filter.
func newLoggerProvider(ctx context.Context, exporter, minSeverity string) (*sdklog.LoggerProvider, error) {
	exp, err := newLogExporter(ctx, exporter)
	if err != nil {
		return nil, err
	}

	severity, err := parseSeverity(minSeverity)
	if err != nil {
		return nil, errors.Join(err, exp.Shutdown(ctx))
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), severity)
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(processor)), nil
}

func newLogExporter(ctx context.Context, name string) (sdklog.Exporter, error) {
	switch name {
	case ExporterStdout:
		exp, err := stdoutlog.New()
		if err != nil {
			return nil, fmt.Errorf("create stdout log exporter: %w", err)
		}
		return exp, nil
	case ExporterOTLPGRPC:
		exp, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create otlp grpc log exporter: %w", err)
		}
		return exp, nil
	case ExporterOTLPHTTP:
		exp, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create otlp http log exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unsupported logs exporter %q (expected: none, stdout, otlp-grpc, otlp-http)", name)
	}
}

func parseSeverity(s string) (minsev.Severity, error) {
	switch strings.ToLower(s) {
	case "debug":
		return minsev.SeverityDebug, nil
	case "info", "":
		return minsev.SeverityInfo, nil
	case "warn":
		return minsev.SeverityWarn, nil
	case "error":
		return minsev.SeverityError, nil
	default:
		return 0, fmt.Errorf("unsupported min severity %q (expected: debug, info, warn, error)", s)
	}
}
