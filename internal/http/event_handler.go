package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/calendar/ics"
	"github.com/example/timeline-engine/internal/timeutil"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// EventHandler serves /events over a calendar.Adapter.
type EventHandler struct {
	adapter     calendar.Adapter
	responder   responder
	logger      *slog.Logger
	now         func() time.Time
	loc         *time.Location
	mondayStart bool
}

// EventHandlerOptions configures the default export window of /events.ics.
type EventHandlerOptions struct {
	Location    *time.Location
	MondayStart bool
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventHandler serves adapter.
func NewEventHandler(adapter calendar.Adapter, opts EventHandlerOptions) *EventHandler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &EventHandler{
		adapter:     adapter,
		responder:   newResponder(opts.Logger),
		logger:      opts.Logger,
		now:         now,
		loc:         loc,
		mondayStart: opts.MondayStart,
	}
}

// List handles GET /events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adapter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	rng, err := parseRange(r.URL.Query(), h.loc)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	events, err := h.adapter.FetchEvents(r.Context(), rng)
	if err != nil {
		h.responder.handleAdapterError(r.Context(), w, err)
		return
	}
	if events == nil {
		events = []calendar.TimelineEvent{}
	}

	handlerLogger(r.Context(), h.logger, "events", "list", "count", len(events)).DebugContext(r.Context(), "events listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, events)
}

// Create handles POST /events.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adapter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var in calendar.EventInput
	if err := decodeBody(w, r, &in); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	created, err := h.adapter.CreateEvent(r.Context(), in)
	if err != nil {
		h.responder.handleAdapterError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "events", "create", "event_id", created.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, created)
}

// Update handles PATCH /events/{id}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adapter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := eventID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var patch calendar.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	patch.ID = nil

	updated, err := h.adapter.UpdateEvent(r.Context(), id, patch)
	if err != nil {
		h.responder.handleAdapterError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "events", "update", "event_id", id).InfoContext(r.Context(), "event updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, updated)
}

// Delete handles DELETE /events/{id}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adapter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := eventID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.adapter.DeleteEvent(r.Context(), id); err != nil {
		h.responder.handleAdapterError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "events", "delete", "event_id", id).InfoContext(r.Context(), "event deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ExportICS handles GET /events.ics.
func (h *EventHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.adapter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	var rng calendar.DateRange
	if q.Get("start") == "" && q.Get("end") == "" {
		start := timeutil.StartOfWeek(h.now().In(h.loc), h.mondayStart)
		rng = calendar.DateRange{Start: start, End: timeutil.AddDays(start, 7*9)}
	} else {
		parsed, err := parseRange(q, h.loc)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		rng = parsed
	}

	events, err := h.adapter.FetchEvents(r.Context(), rng)
	if err != nil {
		h.responder.handleAdapterError(r.Context(), w, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.Encode(&buf, events, h.now()); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("encode calendar: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func eventID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

// parseRange reads start and end. Date-only values are midnight in loc.
func parseRange(q url.Values, loc *time.Location) (calendar.DateRange, error) {
	start, err := parseInstant(q.Get("start"), loc)
	if err != nil {
		return calendar.DateRange{}, err
	}
	end, err := parseInstant(q.Get("end"), loc)
	if err != nil {
		return calendar.DateRange{}, err
	}
	if end.Before(start) {
		return calendar.DateRange{}, errInvalidRange
	}
	return calendar.DateRange{Start: start, End: end}, nil
}

func parseInstant(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errInvalidRange
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidRange
}
