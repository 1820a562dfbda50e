package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) at(i int) recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.requests = append(rec.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
		})
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestFetchEvents_SendsRangeAndHeaders(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, http.StatusOK, `[{"id":"a","title":"Yoga","start":"2025-03-01T09:00:00Z","end":"2025-03-01T10:00:00Z"}]`)
	adapter, err := New(Options{BaseURL: srv.URL + "/v1/", Headers: map[string]string{"Authorization": "Bearer token"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	events, err := adapter.FetchEvents(context.Background(), calendar.DateRange{Start: start, End: start.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || events[0].ID != "a" || !events[0].Start.Equal(start.Add(9*time.Hour)) {
		t.Fatalf("unexpected events %+v", events)
	}

	req := requests.at(0)
	if req.method != http.MethodGet || req.path != "/v1/events" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if !strings.Contains(req.query, "start=2025-03-01T00%3A00%3A00Z") || !strings.Contains(req.query, "end=2025-03-02T00%3A00%3A00Z") {
		t.Fatalf("unexpected query %q", req.query)
	}
	if req.header.Get("Authorization") != "Bearer token" || req.header.Get("Content-Type") != "application/json" {
		t.Fatalf("missing headers: %v", req.header)
	}
}

func TestCreateEvent_PostsInputWithoutID(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, http.StatusCreated, `{"id":"srv-1","title":"Standup","start":"2025-03-03T09:00:00Z","end":"2025-03-03T09:15:00Z"}`)
	adapter, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	ev, err := adapter.CreateEvent(context.Background(), calendar.EventInput{Title: "Standup", Start: start, End: start.Add(15 * time.Minute)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.ID != "srv-1" {
		t.Fatalf("expected server id, got %q", ev.ID)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(requests.at(0).body), &sent); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := sent["id"]; ok {
		t.Fatalf("create body must not carry an id: %v", sent)
	}
	if sent["title"] != "Standup" {
		t.Fatalf("unexpected body %v", sent)
	}
}

func TestUpdateEvent_EscapesIDAndSendsPartialBody(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, http.StatusOK, `{"id":"a/b","title":"Renamed","start":"2025-03-03T09:00:00Z","end":"2025-03-03T10:00:00Z"}`)
	adapter, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	title := "Renamed"
	if _, err := adapter.UpdateEvent(context.Background(), "a/b", calendar.Patch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}

	req := requests.at(0)
	if req.method != http.MethodPatch || req.path != "/events/a%2Fb" {
		t.Fatalf("unexpected request %s %s", req.method, req.path)
	}
	if strings.TrimSpace(req.body) != `{"title":"Renamed"}` {
		t.Fatalf("unexpected patch body %s", req.body)
	}
}

func TestDeleteEvent_AcceptsNoContent(t *testing.T) {
	t.Parallel()

	srv, requests := newTestServer(t, http.StatusNoContent, "")
	adapter, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := adapter.DeleteEvent(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if requests.at(0).method != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", requests.at(0).method)
	}
}

func TestNonSuccessStatusBecomesHTTPError(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, http.StatusNotFound, `{"error":"missing"}`)
	adapter, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = adapter.DeleteEvent(context.Background(), "missing")
	var httpErr *calendar.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.Status != "Not Found" {
		t.Fatalf("unexpected error fields %+v", httpErr)
	}
	if !errors.Is(err, calendar.ErrNotFound) {
		t.Fatalf("404 should unwrap to ErrNotFound")
	}
	if err.Error() != "calendar api error: 404 Not Found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCustomMapper(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, http.StatusOK, `{"items":[{"uid":"x","name":"Wrapped"}]}`)
	adapter, err := New(Options{
		BaseURL: srv.URL,
		MapEvents: func(body []byte) ([]calendar.TimelineEvent, error) {
			var payload struct {
				Items []struct {
					UID  string `json:"uid"`
					Name string `json:"name"`
				} `json:"items"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return nil, err
			}
			out := make([]calendar.TimelineEvent, 0, len(payload.Items))
			for _, item := range payload.Items {
				out = append(out, calendar.TimelineEvent{ID: item.UID, Title: item.Name})
			}
			return out, nil
		},
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	events, err := adapter.FetchEvents(context.Background(), calendar.DateRange{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 1 || events[0].ID != "x" || events[0].Title != "Wrapped" {
		t.Fatalf("mapper not applied: %+v", events)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
