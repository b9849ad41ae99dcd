package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.ObserveAggregateOperation("op", "ok", time.Millisecond)
	m.IncAggregateConflict("op")
	m.ObserveSnapshotBuild("ok", time.Millisecond)
	m.IncSnapshotCache("hit")
	m.IncStaleCode("color")
	m.ObserveValidation("valid", 3, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: want=%d got=%d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestCountersAndExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/product-types", "200", 10*time.Millisecond)
	m.ObserveAPI("GET", "/api/product-types", "200", 20*time.Millisecond)
	m.IncAggregateConflict("product_type.update")
	m.IncSnapshotCache("miss")

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("GET", "/api/product-types", "200")); got != 2 {
		t.Fatalf("api requests: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("product_type.update")); got != 1 {
		t.Fatalf("conflicts: want=1 got=%v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, name := range []string{"catalog_api_requests_total", "catalog_snapshot_cache_total", "catalog_aggregate_conflicts_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("exposition missing %s", name)
		}
	}
}

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=1, bad ,b = 2,=x")
	h := otelHeaders()
	if len(h) != 2 || h["a"] != "1" || h["b"] != "2" {
		t.Fatalf("headers: want=map[a:1 b:2] got=%v", h)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "7")
	if got := otelSampleRatio(); got != 1 {
		t.Fatalf("ratio clamp: want=1 got=%v", got)
	}
}
