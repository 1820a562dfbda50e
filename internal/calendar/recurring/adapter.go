// Package recurring projects a static weekly schedule onto concrete dates.
//
// The adapter is a derived view: FetchEvents synthesizes instances for the
// requested range and every mutation fails with calendar.ErrReadOnly.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
	"github.com/example/timeline-engine/internal/palette"
	"github.com/example/timeline-engine/internal/timeutil"
)

// RecurringEvent is a weekly template such as "Yoga, Monday 07:00-08:30".
type RecurringEvent struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	// DayOfWeek is the ISO weekday: 1 = Monday ... 7 = Sunday.
	DayOfWeek int `json:"dayOfWeek" yaml:"day_of_week"`
	// StartTime and EndTime are 24-hour "HH:MM" wall-clock times.
	StartTime string         `json:"startTime" yaml:"start_time"`
	EndTime   string         `json:"endTime" yaml:"end_time"`
	Color     string         `json:"color,omitempty" yaml:"color"`
	Subtitle  string         `json:"subtitle,omitempty" yaml:"subtitle"`
	Tags      []string       `json:"tags,omitempty" yaml:"tags"`
	Category  string         `json:"category,omitempty" yaml:"category"`
	Data      map[string]any `json:"data,omitempty" yaml:"data"`
}

// Options configures projection and coloring.
type Options struct {
	// MondayStart selects Monday-start weeks. Nil means true.
	MondayStart *bool
	// Location is the zone wall-clock times are interpreted in. Nil means
	// time.Local.
	Location  *time.Location
	ColorMap  map[string]string
	AutoColor bool
	Accent    string
}

// ErrInvalidTemplate reports a schedule entry that cannot be projected.
var ErrInvalidTemplate = errors.New("recurring: invalid template")

type template struct {
	event                  RecurringEvent
	color                  string
	startHour, startMinute int
	endHour, endMinute     int
}

// Adapter implements calendar.Adapter over a weekly schedule.
type Adapter struct {
	templates   []template
	mondayStart bool
	location    *time.Location
}

var _ calendar.Adapter = (*Adapter)(nil)

// New validates the schedule and resolves each template's color once, in
// schedule order, so every instance of a template shares its color.
func New(schedule []RecurringEvent, opts Options) (*Adapter, error) {
	mondayStart := true
	if opts.MondayStart != nil {
		mondayStart = *opts.MondayStart
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	resolver := palette.NewResolver(palette.ResolverOptions{
		ColorMap:  opts.ColorMap,
		AutoColor: opts.AutoColor,
		Accent:    opts.Accent,
	})

	templates := make([]template, 0, len(schedule))
	for i, rec := range schedule {
		tpl, err := compile(rec)
		if err != nil {
			return nil, fmt.Errorf("schedule[%d] %q: %w", i, rec.ID, err)
		}
		tpl.color = resolver.Resolve(rec.Color, rec.Category, rec.Title)
		templates = append(templates, tpl)
	}

	return &Adapter{templates: templates, mondayStart: mondayStart, location: loc}, nil
}

func compile(rec RecurringEvent) (template, error) {
	if rec.ID == "" {
		return template{}, fmt.Errorf("%w: missing id", ErrInvalidTemplate)
	}
	if rec.DayOfWeek < 1 || rec.DayOfWeek > 7 {
		return template{}, fmt.Errorf("%w: day of week %d outside 1..7", ErrInvalidTemplate, rec.DayOfWeek)
	}
	sh, sm, err := timeutil.ParseClock(rec.StartTime)
	if err != nil {
		return template{}, fmt.Errorf("%w: start time: %v", ErrInvalidTemplate, err)
	}
	eh, em, err := timeutil.ParseClock(rec.EndTime)
	if err != nil {
		return template{}, fmt.Errorf("%w: end time: %v", ErrInvalidTemplate, err)
	}
	if eh*60+em < sh*60+sm {
		return template{}, fmt.Errorf("%w: ends at %s before it starts at %s", ErrInvalidTemplate, rec.EndTime, rec.StartTime)
	}
	return template{
		event:       cloneTemplate(rec),
		startHour:   sh,
		startMinute: sm,
		endHour:     eh,
		endMinute:   em,
	}, nil
}

// Schedule returns a copy of the templates the adapter projects.
func (a *Adapter) Schedule() []RecurringEvent {
	out := make([]RecurringEvent, len(a.templates))
	for i, tpl := range a.templates {
		out[i] = cloneTemplate(tpl.event)
	}
	return out
}

// FetchEvents projects every template onto each week overlapping r and keeps
// the instances that overlap r.
func (a *Adapter) FetchEvents(ctx context.Context, r calendar.DateRange) ([]calendar.TimelineEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make([]calendar.TimelineEvent, 0)
	for weekIndex, weekStart := range a.weeks(r) {
		for _, tpl := range a.templates {
			ev := a.project(tpl, weekStart, weekIndex)
			if ev.Overlaps(r) {
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

// weeks lists the week-start boundaries from the week containing r.Start up
// to r.End.
func (a *Adapter) weeks(r calendar.DateRange) []time.Time {
	var out []time.Time
	end := r.End.In(a.location)
	for cursor := timeutil.StartOfWeek(r.Start.In(a.location), a.mondayStart); cursor.Before(end); cursor = timeutil.AddDays(cursor, 7) {
		out = append(out, cursor)
	}
	return out
}

func (a *Adapter) project(tpl template, weekStart time.Time, weekIndex int) calendar.TimelineEvent {
	day := timeutil.AddDays(weekStart, a.dayOffset(tpl.event.DayOfWeek))
	rec := tpl.event

	data := make(map[string]any, len(rec.Data)+3)
	for k, v := range rec.Data {
		data[k] = v
	}
	data["recurringId"] = rec.ID
	if rec.Subtitle != "" {
		data["subtitle"] = rec.Subtitle
	}
	if len(rec.Tags) > 0 {
		data["tags"] = append([]string(nil), rec.Tags...)
	}

	return calendar.TimelineEvent{
		ID:       fmt.Sprintf("%s--w%d--d%d", rec.ID, weekIndex, rec.DayOfWeek),
		Title:    rec.Title,
		Start:    timeutil.AtClock(day, tpl.startHour, tpl.startMinute),
		End:      timeutil.AtClock(day, tpl.endHour, tpl.endMinute),
		Color:    tpl.color,
		Category: rec.Category,
		Data:     data,
	}
}

// dayOffset is the number of days from the week start to the ISO weekday.
func (a *Adapter) dayOffset(isoWeekday int) int {
	first := time.Monday
	if !a.mondayStart {
		first = time.Sunday
	}
	target := time.Weekday(isoWeekday % 7)
	return (int(target) - int(first) + 7) % 7
}

// CreateEvent always fails.
func (a *Adapter) CreateEvent(context.Context, calendar.EventInput) (calendar.TimelineEvent, error) {
	return calendar.TimelineEvent{}, readOnly()
}

// UpdateEvent always fails.
func (a *Adapter) UpdateEvent(context.Context, string, calendar.Patch) (calendar.TimelineEvent, error) {
	return calendar.TimelineEvent{}, readOnly()
}

// DeleteEvent always fails.
func (a *Adapter) DeleteEvent(context.Context, string) error {
	return readOnly()
}

func readOnly() error {
	return fmt.Errorf("%w: recurring schedules are projected, use a memory, sql or rest adapter for mutations", calendar.ErrReadOnly)
}

func cloneTemplate(rec RecurringEvent) RecurringEvent {
	out := rec
	if rec.Tags != nil {
		out.Tags = append([]string(nil), rec.Tags...)
	}
	if rec.Data != nil {
		out.Data = make(map[string]any, len(rec.Data))
		for k, v := range rec.Data {
			out.Data[k] = v
		}
	}
	return out
}
