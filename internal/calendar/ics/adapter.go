// Package ics exposes an iCalendar feed as a read-only calendar.Adapter.
//
// Feeds are parsed with golang-ical and recurring VEVENTs are expanded into
// the query range with rrule-go. Refresh pulls the feed over HTTP using
// ETag revalidation and swaps the parsed set in one step.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/logging"
	"github.com/example/timeline-engine/internal/palette"
)

// Options configures a feed adapter.
type Options struct {
	// ID names the feed in logs and in event data.
	ID string
	// URL is fetched by Refresh. Feeds loaded inline may leave it empty.
	URL        string
	Name       string
	HTTPClient *http.Client
	// Timeout applies to the default client. Zero means 15s.
	Timeout time.Duration
	// Location is the zone returned events are expressed in. Nil means
	// time.Local.
	Location       *time.Location
	ColorMap       map[string]string
	AutoColor      bool
	Accent         string
	MaxOccurrences int
	Logger         *slog.Logger
}

// Adapter serves the last successfully parsed copy of a feed.
type Adapter struct {
	opts   Options
	client *http.Client
	colors *palette.Resolver
	logger *slog.Logger

	mu        sync.RWMutex
	items     []Item
	etag      string
	refreshed time.Time
}

var _ calendar.Adapter = (*Adapter)(nil)

// New builds an empty feed adapter. Call Load or Refresh to populate it.
func New(opts Options) *Adapter {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Adapter{
		opts:   opts,
		client: client,
		colors: palette.NewResolver(palette.ResolverOptions{
			ColorMap:  opts.ColorMap,
			AutoColor: opts.AutoColor,
			Accent:    opts.Accent,
		}),
		logger: logging.Default(opts.Logger).With("component", "ics_feed", "feed", opts.ID),
	}
}

// ID returns the configured feed id.
func (a *Adapter) ID() string {
	return a.opts.ID
}

// Load replaces the feed contents with body.
func (a *Adapter) Load(body []byte) error {
	items, err := Parse(body, a.logger)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.items = items
	a.refreshed = time.Now()
	a.mu.Unlock()
	return nil
}

// Refresh fetches the feed URL. A 304 keeps the current copy; a failed
// fetch or parse also keeps it and returns the error.
func (a *Adapter) Refresh(ctx context.Context) error {
	if a.opts.URL == "" {
		return errors.New("ics: feed has no url")
	}
	logger := logging.Component(ctx, a.logger, "ics_feed", "refresh", "url", logging.RedactURL(a.opts.URL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("ics: build request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")
	a.mu.RLock()
	if a.etag != "" {
		req.Header.Set("If-None-Match", a.etag)
	}
	a.mu.RUnlock()

	resp, err := a.client.Do(req)
	if err != nil {
		logger.Warn("feed fetch failed", "error", err)
		return fmt.Errorf("ics: fetch %s: %w", a.opts.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		logger.Debug("feed not modified")
		a.mu.Lock()
		a.refreshed = time.Now()
		a.mu.Unlock()
		return nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		return &calendar.HTTPError{StatusCode: resp.StatusCode, Status: text}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ics: read %s: %w", a.opts.ID, err)
	}
	items, err := Parse(body, logger)
	if err != nil {
		logger.Warn("feed parse failed, keeping previous copy", "error", err)
		return err
	}

	a.mu.Lock()
	a.items = items
	a.etag = resp.Header.Get("ETag")
	a.refreshed = time.Now()
	a.mu.Unlock()

	logger.Info("feed refreshed", "items", len(items))
	return nil
}

// RefreshedAt reports when the feed was last loaded or revalidated.
func (a *Adapter) RefreshedAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.refreshed
}

// FetchEvents expands the feed into r.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	items := a.items
	a.mu.RUnlock()

	occs, errs := expand(items, r, a.opts.MaxOccurrences)
	for _, err := range errs {
		a.logger.Warn("skipping recurrence", "error", err)
	}

	events := make([]calendar.TimelineEvent, 0, len(occs))
	for _, occ := range occs {
		events = append(events, a.toEvent(occ))
	}
	return events, nil
}

func (a *Adapter) toEvent(occ occurrence) calendar.TimelineEvent {
	it := occ.item
	editable := false
	data := map[string]any{"uid": it.UID}
	if a.opts.ID != "" {
		data["feed"] = a.opts.ID
	}
	if a.opts.Name != "" {
		data["feedName"] = a.opts.Name
	}
	if it.Description != "" {
		data["description"] = it.Description
	}
	if it.Location != "" {
		data["location"] = it.Location
	}

	return calendar.TimelineEvent{
		ID:         occ.id(),
		Title:      it.Summary,
		Start:      occ.start.In(a.opts.Location),
		End:        occ.end.In(a.opts.Location),
		Color:      a.colors.Resolve(it.Color, it.Category, it.Summary),
		Category:   it.Category,
		AllDay:     it.AllDay,
		Recurrence: it.RRule,
		Editable:   &editable,
		Data:       data,
	}
}

// CreateEvent always fails.
func (a *Adapter) CreateEvent(context.Context, calendar.EventInput) (calendar.TimelineEvent, error) {
	return calendar.TimelineEvent{}, a.readOnly()
}

// UpdateEvent always fails.
func (a *Adapter) UpdateEvent(context.Context, string, calendar.Patch) (calendar.TimelineEvent, error) {
	return calendar.TimelineEvent{}, a.readOnly()
}

// DeleteEvent always fails.
func (a *Adapter) DeleteEvent(context.Context, string) error {
	return a.readOnly()
}

func (a *Adapter) readOnly() error {
	return fmt.Errorf("%w: ics feed %q", calendar.ErrReadOnly, a.opts.ID)
}
