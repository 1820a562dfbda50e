package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/calendar/calendartest"
	"github.com/example/timeline-engine/internal/calendar/memory"
	"github.com/example/timeline-engine/internal/calendar/recurring"
	"github.com/example/timeline-engine/internal/calendar/rest"
	"github.com/example/timeline-engine/internal/metrics"
	"github.com/example/timeline-engine/internal/testfixtures"
)

type staticAuth struct{ user, pass string }

func (a staticAuth) Check(user, pass string) bool { return user == a.user && pass == a.pass }

func newServer(t *testing.T, cfg RouterConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)
	return srv
}

func eventsHandler(adapter calendar.Adapter) *EventHandler {
	return NewEventHandler(adapter, EventHandlerOptions{
		Location:    time.UTC,
		MondayStart: true,
		Now:         testfixtures.NewClock(time.Time{}).NowFunc(),
	})
}

func TestRESTAdapterRoundTripsThroughRouter(t *testing.T) {
	t.Parallel()

	calendartest.Run(t, func(t *testing.T) calendar.Adapter {
		srv := newServer(t, RouterConfig{Events: eventsHandler(memory.New(nil, memory.Options{}))})
		client, err := rest.New(rest.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
		if err != nil {
			t.Fatalf("rest adapter: %v", err)
		}
		return client
	})
}

func TestReadOnlySourceMapsTo405(t *testing.T) {
	t.Parallel()

	rec, err := recurring.New([]recurring.RecurringEvent{
		{ID: "yoga", Title: "Yoga", DayOfWeek: 1, StartTime: "07:00", EndTime: "08:00"},
	}, recurring.Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("recurring: %v", err)
	}
	srv := newServer(t, RouterConfig{Events: eventsHandler(rec)})
	client, err := rest.New(rest.Options{BaseURL: srv.URL, HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("rest adapter: %v", err)
	}

	ctx := context.Background()
	_, err = client.CreateEvent(ctx, testfixtures.NewEventFixture().Input())
	var httpErr *calendar.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected a 405 HTTPError, got %v", err)
	}
	if !errors.Is(err, calendar.ErrReadOnly) {
		t.Fatalf("expected the read-only kind to survive the hop, got %v", err)
	}

	events, err := client.FetchEvents(ctx, testfixtures.ReferenceRange())
	if err != nil || len(events) != 1 || events[0].ID != "yoga--w0--d1" {
		t.Fatalf("unexpected projected events %+v (err %v)", events, err)
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	srv := newServer(t, RouterConfig{Events: eventsHandler(memory.New(nil, memory.Options{}))})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "list without range", method: http.MethodGet, path: "/events", want: http.StatusBadRequest},
		{name: "list with garbage range", method: http.MethodGet, path: "/events?start=yesterday&end=today", want: http.StatusBadRequest},
		{name: "list with inverted range", method: http.MethodGet, path: "/events?start=2025-03-02&end=2025-03-01", want: http.StatusBadRequest},
		{name: "list with dates", method: http.MethodGet, path: "/events?start=2025-03-01&end=2025-03-02", want: http.StatusOK},
		{name: "create with malformed json", method: http.MethodPost, path: "/events", body: "{", want: http.StatusBadRequest},
		{name: "patch unknown id", method: http.MethodPatch, path: "/events/missing", body: `{"title":"x"}`, want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPut, path: "/events/missing", body: `{}`, want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("build request: %v", err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestExportICS(t *testing.T) {
	t.Parallel()

	seed := testfixtures.NewEventFixture(testfixtures.WithEventID("evt-ics"), testfixtures.WithEventTitle("Planning")).Event()
	srv := newServer(t, RouterConfig{Events: eventsHandler(memory.New([]calendar.TimelineEvent{seed}, memory.Options{}))})

	resp, err := srv.Client().Get(srv.URL + "/events.ics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	text := string(body)
	for _, want := range []string{"BEGIN:VCALENDAR", "UID:evt-ics", "SUMMARY:Planning"} {
		if !strings.Contains(text, want) {
			t.Fatalf("export missing %q:\n%s", want, text)
		}
	}
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	srv := newServer(t, RouterConfig{
		Events: eventsHandler(memory.New(nil, memory.Options{})),
		Auth:   staticAuth{user: "admin", pass: "s3cret"},
	})
	target := srv.URL + "/events?start=2025-03-01&end=2025-03-02"

	resp, err := srv.Client().Get(target)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized || resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected a 401 challenge, got %d", resp.StatusCode)
	}

	client, err := rest.New(rest.Options{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Headers:    map[string]string{"Authorization": "Basic YWRtaW46czNjcmV0"},
	})
	if err != nil {
		t.Fatalf("rest adapter: %v", err)
	}
	if _, err := client.FetchEvents(context.Background(), testfixtures.ReferenceRange()); err != nil {
		t.Fatalf("authorized fetch failed: %v", err)
	}

	health, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", health.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	srv := newServer(t, RouterConfig{
		Events:    eventsHandler(memory.New(nil, memory.Options{})),
		RateLimit: NewRateLimiter(0.001, 1, time.Minute),
	})
	target := srv.URL + "/events?start=2025-03-01&end=2025-03-02"

	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := srv.Client().Get(target)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestRateLimiterSweepsIdleClients(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	l := NewRateLimiter(1, 1, time.Minute)
	l.now = clock.Now

	if !l.Allow("10.0.0.1") || l.Allow("10.0.0.1") {
		t.Fatalf("expected a burst of exactly one")
	}
	clock.Advance(3 * time.Minute)
	l.Allow("10.0.0.2")

	l.mu.Lock()
	_, kept := l.limiters["10.0.0.1"]
	l.mu.Unlock()
	if kept {
		t.Fatalf("idle client bucket should have been swept")
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newServer(t, RouterConfig{Health: func(context.Context) error { return errors.New("database unreachable") }})
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	srv := newServer(t, RouterConfig{Events: eventsHandler(memory.New(nil, memory.Options{})), Metrics: m})

	resp, err := srv.Client().Get(srv.URL + "/events?start=2025-03-01&end=2025-03-02")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	resp.Body.Close()

	resp, err = srv.Client().Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `timeline_http_requests_total{method="GET",route="/events"} 1`) {
		t.Fatalf("expected the events request to be counted:\n%s", body)
	}
}
