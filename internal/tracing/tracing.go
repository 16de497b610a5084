// Package tracing wraps OpenTelemetry so callers only deal with StartSpan
// and EndSpan. Until Init installs a provider every span is a no-op.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "namereg"

// ShutdownFunc flushes and releases the installed provider.
type ShutdownFunc func(ctx context.Context) error

var (
	mu       sync.Mutex
	current  *sdktrace.TracerProvider
	outputFd io.Closer
)

// Init installs a tracer provider exporting spans as JSON lines through the
// stdout exporter. An empty outputFile writes to os.Stdout. A later Init
// replaces the earlier provider.
func Init(serviceName, serviceVersion, outputFile string) (ShutdownFunc, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if outputFile != "" {
		f, err := os.OpenFile(outputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		w, closer = f, f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return InitWithExporter(serviceName, serviceVersion, exporter, closer)
}

// InitWithExporter installs a provider around any SpanExporter. closer, if
// not nil, is closed after the provider shuts down.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter, closer io.Closer) (ShutdownFunc, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)

	mu.Lock()
	prev, prevCloser := current, outputFd
	current, outputFd = tp, closer
	otel.SetTracerProvider(tp)
	mu.Unlock()

	if prev != nil {
		_ = prev.Shutdown(context.Background())
		if prevCloser != nil {
			prevCloser.Close()
		}
	}

	return func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if current != tp {
			return nil
		}
		err := tp.Shutdown(ctx)
		if outputFd != nil {
			outputFd.Close()
		}
		current, outputFd = nil, nil
		otel.SetTracerProvider(noop.NewTracerProvider())
		return err
	}, nil
}

// Span wraps an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// SetAttributes attaches string attributes to the span.
func (s *Span) SetAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	kv := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kv = append(kv, attribute.String(k, v))
	}
	s.span.SetAttributes(kv...)
	return s
}

// SetStatusFromHTTPCode marks 5xx responses as errors.
func (s *Span) SetStatusFromHTTPCode(code int) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= 500 {
		s.span.SetStatus(codes.Error, "server error")
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

// End finishes the span without touching its status.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.span.End()
}

// StartSpan starts an internal span named name as a child of any span in ctx.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	return start(ctx, name, trace.SpanKindInternal)
}

// StartServerSpan starts a span for an inbound request.
func StartServerSpan(ctx context.Context, name string) (context.Context, *Span) {
	return start(ctx, name, trace.SpanKindServer)
}

func start(ctx context.Context, name string, kind trace.SpanKind) (context.Context, *Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name, trace.WithSpanKind(kind))
	return ctx, &Span{span: span}
}

// EndSpan records err (if any) as the span status and ends it.
func EndSpan(sp *Span, err error) {
	if sp == nil {
		return
	}
	if err != nil {
		sp.span.RecordError(err)
		sp.span.SetStatus(codes.Error, err.Error())
	} else {
		sp.span.SetStatus(codes.Ok, "")
	}
	sp.span.End()
}

// TraceID returns the trace id of the span in ctx, or "" when not sampled.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
