// Package observability wires structured logging and metrics shared by the
// CLI and every collection-pipeline component.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrRun     = "run_id"
)

// TracingHandler is an slog.Handler that injects OpenTelemetry trace
// context (trace_id, span_id) and run metadata into every log record.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner, pre-attaching service/env/run attributes
// so they stay at the top level regardless of later WithGroup calls.
func NewTracingHandler(inner slog.Handler, service, env, runID string) *TracingHandler {
	attrs := []slog.Attr{slog.String(attrService, service)}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	if runID != "" {
		attrs = append(attrs, slog.String(attrRun, runID))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// Verbosity controls slog's minimum level, matching the CLI's -v/-q flags.
type Verbosity int

const (
	// VerbosityQuiet logs warnings and errors only (-q).
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal logs info and above (default).
	VerbosityNormal
	// VerbosityVerbose logs debug and above (-v).
	VerbosityVerbose
)

func (v Verbosity) level() slog.Level {
	switch v {
	case VerbosityQuiet:
		return slog.LevelWarn
	case VerbosityVerbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the root *slog.Logger for a run: JSON output when out
// is not a terminal (piped/redirected output, scripts, CI), human text
// output otherwise, matching the collector's TTY vs non-TTY behavior.
func NewLogger(service, env, runID string, verbosity Verbosity, out *os.File) *slog.Logger {
	opts := &slog.HandlerOptions{Level: verbosity.level()}

	var inner slog.Handler
	if isTerminal(out) {
		inner = slog.NewTextHandler(out, opts)
	} else {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewTracingHandler(inner, service, env, runID))
}

// isTerminal reports whether f looks like an interactive terminal, by
// checking its file mode bits rather than importing a terminal-detection
// package for a concern this thin.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}
