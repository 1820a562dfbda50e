package engine

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/timeutil"
)

// Built-in view identifiers. Any other string is accepted as a custom view.
const (
	ViewDayGrid     = "day-grid"
	ViewDayAgenda   = "day-agenda"
	ViewWeekGrid    = "week-grid"
	ViewWeekAgenda  = "week-agenda"
	ViewWeekHeatmap = "week-heatmap"
)

// Granularity is the span a view covers.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// GranularityFor derives the granularity of a view id: ids starting with
// "day" cover one day, everything else one week.
func GranularityFor(view string) Granularity {
	if strings.HasPrefix(view, "day") {
		return GranularityDay
	}
	return GranularityWeek
}

// ViewOptions configures a ViewState.
type ViewOptions struct {
	// DefaultView is the initial view id. Defaults to week-grid.
	DefaultView string
	// SundayStart begins weeks on Sunday instead of Monday.
	SundayStart bool
	// Timezone is an IANA zone name. Empty selects the process local zone.
	Timezone string
	// Now overrides time.Now.
	Now func() time.Time
}

// ViewState tracks the active view and the focus date. Granularity and range
// are derived on every read.
type ViewState struct {
	notifier

	now         func() time.Time
	loc         *time.Location
	timezone    string
	mondayStart bool

	mu    sync.RWMutex
	view  string
	focus time.Time
}

// NewViewState focuses the current instant. It fails only on an unknown
// timezone name.
func NewViewState(opts ViewOptions) (*ViewState, error) {
	loc, err := timeutil.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("view state: timezone %q: %w", opts.Timezone, err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	view := strings.TrimSpace(opts.DefaultView)
	if view == "" {
		view = ViewWeekGrid
	}
	return &ViewState{
		now:         now,
		loc:         loc,
		timezone:    strings.TrimSpace(opts.Timezone),
		mondayStart: !opts.SundayStart,
		view:        view,
		focus:       now().In(loc),
	}, nil
}

// View returns the active view id.
func (v *ViewState) View() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.view
}

// FocusDate returns the focus instant in the view's location.
func (v *ViewState) FocusDate() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.focus
}

// Granularity returns the granularity of the active view.
func (v *ViewState) Granularity() Granularity {
	return GranularityFor(v.View())
}

// Range returns the visible window: the focus day for day views, otherwise
// the week containing the focus date.
func (v *ViewState) Range() calendar.DateRange {
	v.mu.RLock()
	focus, view := v.focus, v.view
	v.mu.RUnlock()

	if GranularityFor(view) == GranularityDay {
		return calendar.DateRange{Start: timeutil.StartOfDay(focus), End: timeutil.EndOfDay(focus)}
	}
	start := timeutil.StartOfWeek(focus, v.mondayStart)
	return calendar.DateRange{Start: start, End: timeutil.AddDays(start, 7)}
}

// MondayStart reports whether weeks begin on Monday.
func (v *ViewState) MondayStart() bool { return v.mondayStart }

// Timezone returns the configured zone name, "" for the local zone.
func (v *ViewState) Timezone() string { return v.timezone }

// Location returns the zone the view computes boundaries in.
func (v *ViewState) Location() *time.Location { return v.loc }

// SetView switches the active view.
func (v *ViewState) SetView(id string) {
	v.mu.Lock()
	v.view = id
	v.mu.Unlock()
	v.notify()
}

// SetFocusDate moves the focus to t.
func (v *ViewState) SetFocusDate(t time.Time) {
	v.mu.Lock()
	v.focus = t.In(v.loc)
	v.mu.Unlock()
	v.notify()
}

// Next advances the focus by one day or one week depending on the active
// view's granularity.
func (v *ViewState) Next() { v.step(1) }

// Prev moves the focus back by one day or one week.
func (v *ViewState) Prev() { v.step(-1) }

// GoToday focuses the current instant.
func (v *ViewState) GoToday() {
	v.SetFocusDate(v.now())
}

func (v *ViewState) step(dir int) {
	v.mu.Lock()
	days := 7
	if GranularityFor(v.view) == GranularityDay {
		days = 1
	}
	v.focus = timeutil.AddDays(v.focus, dir*days)
	v.mu.Unlock()
	v.notify()
}
