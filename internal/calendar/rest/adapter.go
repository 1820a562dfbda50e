// Package rest implements calendar.Adapter against an HTTP API exposing the
// /events resource.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
)

// DefaultTimeout bounds each request when Options.HTTPClient is nil.
const DefaultTimeout = 15 * time.Second

// Options configures the adapter.
type Options struct {
	// BaseURL is the API root, e.g. "https://api.example.com/v1".
	BaseURL string
	// Headers are sent with every request, e.g. Authorization.
	Headers map[string]string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// Timeout applies to the default client. Zero means DefaultTimeout.
	Timeout time.Duration
	// MapEvents decodes a list response. Nil decodes the JSON wire shape.
	MapEvents func(body []byte) ([]calendar.TimelineEvent, error)
	// MapEvent decodes a single-event response.
	MapEvent func(body []byte) (calendar.TimelineEvent, error)
	Logger   *slog.Logger
}

// Adapter talks to the REST API.
type Adapter struct {
	baseURL   string
	headers   map[string]string
	client    *http.Client
	mapEvents func([]byte) ([]calendar.TimelineEvent, error)
	mapEvent  func([]byte) (calendar.TimelineEvent, error)
	logger    *slog.Logger
}

var _ calendar.Adapter = (*Adapter)(nil)

// New validates the base URL and builds an adapter.
func New(opts Options) (*Adapter, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("rest: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("rest: parse base url: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	a := &Adapter{
		baseURL:   base,
		headers:   headers,
		client:    client,
		mapEvents: opts.MapEvents,
		mapEvent:  opts.MapEvent,
		logger:    logging.Default(opts.Logger),
	}
	if a.mapEvents == nil {
		a.mapEvents = DecodeEvents
	}
	if a.mapEvent == nil {
		a.mapEvent = DecodeEvent
	}
	return a, nil
}

// DecodeEvents decodes a JSON array of events.
func DecodeEvents(body []byte) ([]calendar.TimelineEvent, error) {
	events := make([]calendar.TimelineEvent, 0)
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("rest: decode events: %w", err)
	}
	return events, nil
}

// DecodeEvent decodes a single JSON event.
func DecodeEvent(body []byte) (calendar.TimelineEvent, error) {
	var ev calendar.TimelineEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return calendar.TimelineEvent{}, fmt.Errorf("rest: decode event: %w", err)
	}
	return ev, nil
}

// FetchEvents issues GET /events?start=...&end=... with RFC 3339 UTC bounds.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	q := url.Values{}
	q.Set("start", r.Start.UTC().Format(time.RFC3339Nano))
	q.Set("end", r.End.UTC().Format(time.RFC3339Nano))

	body, err := a.request(ctx, http.MethodGet, "/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return a.mapEvents(body)
}

// CreateEvent issues POST /events.
func (a *Adapter) CreateEvent(ctx context.Context, in calendar.EventInput) (calendar.TimelineEvent, error) {
	body, err := a.request(ctx, http.MethodPost, "/events", in)
	if err != nil {
		return calendar.TimelineEvent{}, err
	}
	return a.mapEvent(body)
}

// UpdateEvent issues PATCH /events/{id}.
func (a *Adapter) UpdateEvent(ctx context.Context, id string, p calendar.Patch) (calendar.TimelineEvent, error) {
	body, err := a.request(ctx, http.MethodPatch, "/events/"+url.PathEscape(id), p)
	if err != nil {
		return calendar.TimelineEvent{}, err
	}
	return a.mapEvent(body)
}

// DeleteEvent issues DELETE /events/{id}. Any response body is discarded.
func (a *Adapter) DeleteEvent(ctx context.Context, id string) error {
	_, err := a.request(ctx, http.MethodDelete, "/events/"+url.PathEscape(id), nil)
	return err
}

// request sends a JSON request and returns the response body. A 204 yields
// a nil body; non-2xx statuses yield *calendar.HTTPError.
func (a *Adapter) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("rest: encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(encoded)
	}

	target := a.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("rest: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range a.headers {
		req.Header.Set(k, v)
	}

	logger := logging.Component(ctx, a.logger, "rest_adapter", method, "url", logging.RedactURL(target))
	started := time.Now()

	resp, err := a.client.Do(req)
	if err != nil {
		logger.Warn("request failed", "error", err)
		return nil, fmt.Errorf("rest: %s: %w", method, err)
	}
	defer resp.Body.Close()

	logger.Debug("request completed", "status", resp.StatusCode, "duration_ms", time.Since(started).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &calendar.HTTPError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rest: read response: %w", err)
	}
	return body, nil
}

// statusText strips the numeric prefix from resp.Status.
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
