// Package timeutil holds the pure date helpers shared by the engine and the
// adapters.
//
// Every helper works in the Location carried by its argument. Calendar math
// (day and week boundaries, day offsets) goes through time.Date so that DST
// transitions never shift a boundary away from local midnight.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Hour is the length of one clock hour.
	Hour = time.Hour
	// Day is the nominal length of one day. Use AddDays for calendar math.
	Day = 24 * time.Hour
	// DayMS is the nominal length of one day in milliseconds.
	DayMS = int64(Day / time.Millisecond)
	// HourMS is the length of one hour in milliseconds.
	HourMS = int64(Hour / time.Millisecond)
)

// ErrInvalidClock indicates a malformed "HH:MM" value.
var ErrInvalidClock = errors.New("timeutil: invalid clock value")

// Hours returns the hour slots of a day, 0 through 23.
func Hours() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the midnight that closes the day containing t, which is
// the exclusive end of that day.
func EndOfDay(t time.Time) time.Time {
	return AddDays(StartOfDay(t), 1)
}

// StartOfWeek returns midnight of the first day of the week containing t.
// Weeks begin on Monday when mondayStart is set, otherwise on Sunday.
func StartOfWeek(t time.Time, mondayStart bool) time.Time {
	weekStart := time.Sunday
	if mondayStart {
		weekStart = time.Monday
	}
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return AddDays(StartOfDay(t), -offset)
}

// AddDays moves t by n calendar days keeping its wall clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DiffDays returns the number of calendar days between the days containing a
// and b (a - b).
func DiffDays(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ua.Sub(ub) / Day)
}

// Pad zero-pads n to two digits.
func Pad(n int) string {
	if n < 10 && n >= 0 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// FractionalHour returns the hours elapsed since midnight, e.g. 14:30 -> 14.5.
func FractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// FmtHM formats the wall clock time as "14:30".
func FmtHM(t time.Time) string {
	return Pad(t.Hour()) + ":" + Pad(t.Minute())
}

// FmtS formats the seconds component as ":05".
func FmtS(t time.Time) string {
	return ":" + Pad(t.Second())
}

// FmtH formats an hour index as a compact 12h label: 12a, 1a ... 12p, 1p.
func FmtH(h int) string {
	switch {
	case h == 0:
		return "12a"
	case h == 12:
		return "12p"
	case h < 12:
		return strconv.Itoa(h) + "a"
	default:
		return strconv.Itoa(h-12) + "p"
	}
}

// DayNum returns the day of the month.
func DayNum(t time.Time) int {
	return t.Day()
}

// Weekday returns the day of the week with Sunday as 0.
func Weekday(t time.Time) int {
	return int(t.Weekday())
}

// ISOWeekday returns the ISO day of the week, Monday = 1 through Sunday = 7.
func ISOWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

// ParseClock parses a 24-hour "HH:MM" value. The minutes part is optional.
func ParseClock(value string) (hour, minute int, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, fmt.Errorf("%w: empty", ErrInvalidClock)
	}

	hh, mm, hasMinutes := strings.Cut(value, ":")
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if hasMinutes {
		minute, err = strconv.Atoi(mm)
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
		}
	}
	return hour, minute, nil
}

// AtClock returns the instant at hour:minute on the calendar day of day.
func AtClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

// LoadLocation resolves an IANA timezone name. An empty name or "Local"
// selects the process local zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
