package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/timeline-engine/internal/calendar"
)

// ProductID identifies documents written by Encode.
const ProductID = "-//timeline-engine//timelined//EN"

// Encode writes events as a VCALENDAR document. Instances keep their own
// id as UID so each one round-trips as a single VEVENT.
func Encode(w io.Writer, events []calendar.TimelineEvent, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp.UTC())
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start.UTC())
			ve.SetEndAt(ev.End.UTC())
		}
		ve.SetSummary(ev.Title)
		if ev.Category != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.Category)
		}
		if ev.Color != "" {
			ve.SetProperty(propertyColor, ev.Color)
		}
		if desc, ok := ev.Data["description"].(string); ok && desc != "" {
			ve.SetDescription(desc)
		}
		if loc, ok := ev.Data["location"].(string); ok && loc != "" {
			ve.SetLocation(loc)
		}
	}
	return cal.SerializeTo(w)
}
