package sqlite

import (
	"fmt"
	"time"

	"github.com/example/timeline-engine/internal/calendar"
)

// timeLayout is fixed width in UTC, so stored values order correctly as
// strings for every year from 0001 to 9999.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	minStored = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxStored = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// encodeTime formats an event time. Years outside 0001..9999 have no
// fixed-width form and are rejected.
func encodeTime(t time.Time) (string, error) {
	u := t.UTC()
	if u.Before(minStored) || u.After(maxStored) {
		return "", fmt.Errorf("%w: %s is outside years 0001-9999", calendar.ErrInvalidRange, t.Format(time.RFC3339))
	}
	return u.Format(timeLayout), nil
}

// encodeBound formats a query bound, clamped to the storable span.
func encodeBound(t time.Time) string {
	u := t.UTC()
	switch {
	case u.Before(minStored):
		u = minStored
	case u.After(maxStored):
		u = maxStored
	}
	return u.Format(timeLayout)
}

func decodeTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
