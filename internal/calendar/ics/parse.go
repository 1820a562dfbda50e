package ics

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

const propertyColor = ical.ComponentProperty("COLOR")

// Item is one VEVENT as read from a feed, before recurrence expansion.
type Item struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Category    string
	Color       string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set on VEVENTs that override one instance of a
	// recurring item with the same UID.
	RecurrenceID *time.Time
}

// Duration returns End - Start.
func (it Item) Duration() time.Duration {
	return it.End.Sub(it.Start)
}

// Parse reads a VCALENDAR document. VEVENTs that cannot be read are logged
// and skipped.
func Parse(body []byte, logger *slog.Logger) ([]Item, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	items := make([]Item, 0)
	for _, ve := range cal.Events() {
		it, err := parseEvent(ve)
		if err != nil {
			if logger != nil {
				logger.Warn("skipping vevent", "error", err)
			}
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

func parseEvent(ve *ical.VEvent) (Item, error) {
	var it Item

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return it, errors.New("missing UID")
	}
	it.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		it.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		it.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		it.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		first, _, _ := strings.Cut(p.Value, ",")
		it.Category = strings.TrimSpace(first)
	}
	if p := ve.GetProperty(propertyColor); p != nil {
		it.Color = strings.TrimSpace(p.Value)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return it, fmt.Errorf("%s: missing DTSTART", it.UID)
	}
	it.AllDay = isDateValue(dtStart)

	var err error
	if it.AllDay {
		it.Start, err = ve.GetAllDayStartAt()
	} else {
		it.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return it, fmt.Errorf("%s: DTSTART: %w", it.UID, err)
	}

	switch {
	case ve.GetProperty(ical.ComponentPropertyDtEnd) == nil && it.AllDay:
		it.End = it.Start.AddDate(0, 0, 1)
	case ve.GetProperty(ical.ComponentPropertyDtEnd) == nil:
		it.End = it.Start
	case it.AllDay:
		it.End, err = ve.GetAllDayEndAt()
	default:
		it.End, err = ve.GetEndAt()
	}
	if err != nil {
		return it, fmt.Errorf("%s: DTEND: %w", it.UID, err)
	}
	if it.End.Before(it.Start) {
		return it, fmt.Errorf("%s: DTEND before DTSTART", it.UID)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		it.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTimeValue(part, tzid(p.ICalParameters, it.Start.Location())); err == nil {
				it.ExDates = append(it.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")); p != nil {
		if t, err := parseTimeValue(p.Value, tzid(p.ICalParameters, it.Start.Location())); err == nil {
			it.RecurrenceID = &t
		}
	}
	return it, nil
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// tzid resolves a TZID parameter, falling back to def.
func tzid(params map[string][]string, def *time.Location) *time.Location {
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseTimeValue reads the DATE, local DATE-TIME and UTC DATE-TIME forms.
func parseTimeValue(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
