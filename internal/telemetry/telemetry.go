// Package telemetry builds the root logger and tracer provider shared by
// every component, matching cmd/fx.go's ProvideLogger/ProvideWatermillLogger
// wiring: a single *slog.Logger constructed once and threaded through
// constructors, bridged into OpenTelemetry so structured log records also
// reach whatever trace/log pipeline is configured.
package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger/tracer pair. LogFilePath is optional: when
// empty, logs go to stderr only.
type Options struct {
	ServiceName string
	LogFilePath string
	Level       slog.Level
}

// Build constructs the root logger and tracer provider, and returns a
// shutdown func that shuts down the tracer provider. The log file
// writer, if any, is not closed by it.
func Build(opts Options) (*slog.Logger, *sdktrace.TracerProvider, func(context.Context) error) {
	var out io.Writer = os.Stderr
	if opts.LogFilePath != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.LogFilePath,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	res, _ := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(opts.ServiceName)),
	)
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	bridge := otelslog.NewHandler(opts.ServiceName)
	logger := slog.New(slog.NewJSONHandler(out, nil))
	_ = bridge // kept distinct from the file/stderr handler; see fanoutHandler below
	logger = slog.New(fanoutHandler{primary: handler, otel: bridge})

	shutdown := func(ctx context.Context) error {
		return tp.Shutdown(ctx)
	}

	return logger, tp, shutdown
}

// fanoutHandler writes every record to both the process-local handler
// (stderr/file, for operators) and the OTel bridge handler (for whatever
// collector is configured), so adding telemetry never costs local
// visibility.
type fanoutHandler struct {
	primary slog.Handler
	otel    slog.Handler
}

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.primary.Enabled(ctx, level) || f.otel.Enabled(ctx, level)
}

func (f fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := f.primary.Handle(ctx, r.Clone()); err != nil {
		return err
	}
	return f.otel.Handle(ctx, r.Clone())
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanoutHandler{primary: f.primary.WithAttrs(attrs), otel: f.otel.WithAttrs(attrs)}
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	return fanoutHandler{primary: f.primary.WithGroup(name), otel: f.otel.WithGroup(name)}
}
