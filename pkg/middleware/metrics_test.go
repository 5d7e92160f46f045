package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/notes/pkg/router"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func testTable(t *testing.T) *router.Table {
	t.Helper()
	table, err := router.NewTable(
		router.RouteEntry{Pattern: "/", View: "Home"},
		router.RouteEntry{Pattern: "/note/:id", View: "Note", ParamsAsProps: true},
	)
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}
	return table
}

func TestMetricsNavigation(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	r := router.New(testTable(t), router.WithMiddleware(m.Navigation()), router.WithNotFound("Missing"))

	for _, loc := range []string{"/", "/note/1", "/note/2", "/nowhere"} {
		if _, err := r.Navigate(loc); err != nil {
			t.Fatalf("Navigate(%q) error: %v", loc, err)
		}
	}

	if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues("Note", "found")); got != 2 {
		t.Errorf("navigations_total(Note, found) = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues("Missing", "not_found")); got != 1 {
		t.Errorf("navigations_total(Missing, not_found) = %v, want 1", got)
	}
	if got := metricHistogramCount(t, m.navigationDuration.WithLabelValues("Home")); got != 1 {
		t.Errorf("navigation_duration(Home) count = %d, want 1", got)
	}
}

func TestMetricsNavigationError(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	deny := router.MiddlewareFunc(func(ctx context.Context, nav *router.Navigation, next func() error) error {
		return context.Canceled
	})
	r := router.New(testTable(t), router.WithMiddleware(m.Navigation(), deny))

	if _, err := r.Navigate("/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Navigate() error = %v, want canceled", err)
	}
	if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues("Home", "error")); got != 1 {
		t.Errorf("navigations_total(Home, error) = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.navigationErrors.WithLabelValues("canceled")); got != 1 {
		t.Errorf("navigation_errors_total(canceled) = %v, want 1", got)
	}
}

func TestMetricsHTTP(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))
	mux := chi.NewRouter()
	mux.Use(m.HTTP)
	mux.Get("/api/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes/"+id, nil))
	}

	if got := metricCounterValue(t, m.requestsTotal.WithLabelValues("GET", "/api/notes/{id}", "404")); got != 2 {
		t.Errorf("http_requests_total = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.requestDuration.WithLabelValues("GET", "/api/notes/{id}")); got != 2 {
		t.Errorf("http_request_duration count = %d, want 2", got)
	}
}

func TestMetricsConnections(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.RecordWebSocketError("read")

	if got := metricGaugeValue(t, m.activeConnections); got != 1 {
		t.Errorf("active_connections = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.wsErrors.WithLabelValues("read")); got != 1 {
		t.Errorf("websocket_errors_total(read) = %v, want 1", got)
	}
}

func TestMetricsRegistryIsolation(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	NewMetrics(WithRegistry(reg))
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := categorizeError(tt.err); got != tt.want {
			t.Errorf("categorizeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
