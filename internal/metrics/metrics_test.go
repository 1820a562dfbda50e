package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	m := New(nil)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, path := range []string{"/events/a", "/events/b", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/events/{id}")); got != 2 {
		t.Fatalf("expected 2 requests on the pattern, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpErrors.WithLabelValues(http.MethodGet, "/boom", "500")); got != 1 {
		t.Fatalf("expected 1 server error, got %v", got)
	}
}

func TestObserveAdapterCall(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.ObserveAdapterCall("memory", "fetch_events", "", 5*time.Millisecond)
	m.ObserveAdapterCall("memory", "update_event", "not_found", time.Millisecond)

	if got := testutil.ToFloat64(m.adapterCalls.WithLabelValues("memory", "fetch_events", "ok")); got != 1 {
		t.Fatalf("expected ok call recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.adapterCalls.WithLabelValues("memory", "update_event", "not_found")); got != 1 {
		t.Fatalf("expected not_found call recorded, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveAdapterCall("x", "y", "", 0)
	nilMetrics.ObserveFeedRefresh("x", errors.New("ignored"))
}

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.ObserveFeedRefresh("team", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `timeline_feed_refresh_total{feed="team",result="ok"} 1`) {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}
