package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/notes/pkg/router"
)

const defaultTracerName = "notes"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "notes").
	TracerName string

	// Provider is the tracer provider (default: the global provider).
	Provider trace.TracerProvider

	// Filter determines which navigations to trace. If nil, all are.
	Filter func(nav *router.Navigation) bool

	// AttributeExtractor adds custom attributes to navigation spans.
	AttributeExtractor func(nav *router.Navigation) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.Provider = tp
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *router.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *router.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func newTracer(opts []OTelOption) (OTelConfig, trace.Tracer) {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		return config, otel.Tracer(config.TracerName)
	}
	return config, config.Provider.Tracer(config.TracerName)
}

// OpenTelemetry creates router middleware that opens a span per
// navigation. The span carries the routed path, resolved view and
// whether a route matched; middleware errors are recorded on it.
//
// The tracer comes from the global provider unless WithTracerProvider is
// given. Configure the provider in main() before starting the server.
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config, tracer := newTracer(opts)

	return router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func() error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("notes.path", nav.Path),
			attribute.String("notes.location", nav.Location),
			attribute.String("notes.view", viewLabel(nav)),
			attribute.Bool("notes.found", nav.Found()),
			attribute.Bool("notes.replace", nav.Replace),
		}
		if nav.Match != nil {
			attrs = append(attrs, attribute.String("notes.route", nav.Match.Entry.Pattern))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(nav)...)
		}

		_, span := tracer.Start(ctx, "navigate "+viewLabel(nav),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}

// Tracing returns chi-compatible middleware that opens a server span per
// HTTP request. Handlers see the span through r.Context().
func Tracing(opts ...OTelOption) func(http.Handler) http.Handler {
	_, tracer := newTracer(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), fmt.Sprintf("HTTP %s", r.Method),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.method", r.Method),
					attribute.String("http.target", r.URL.Path),
				),
			)
			defer span.End()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				span.SetName(fmt.Sprintf("HTTP %s %s", r.Method, rctx.RoutePattern()))
				span.SetAttributes(attribute.String("http.route", rctx.RoutePattern()))
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}
