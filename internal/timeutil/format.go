package timeutil

import (
	"fmt"
	"time"
)

// FmtWeekRange formats the seven days starting at weekStart:
//
//	Feb 17 – 23, 2026
//	Jan 27 – Feb 2, 2026
//	Dec 29, 2025 – Jan 4, 2026
func FmtWeekRange(weekStart time.Time) string {
	end := AddDays(weekStart, 6)
	sm := weekStart.Format("Jan")
	em := end.Format("Jan")
	sy, ey := weekStart.Year(), end.Year()

	switch {
	case sy != ey:
		return fmt.Sprintf("%s %d, %d – %s %d, %d", sm, weekStart.Day(), sy, em, end.Day(), ey)
	case sm != em:
		return fmt.Sprintf("%s %d – %s %d, %d", sm, weekStart.Day(), em, end.Day(), ey)
	default:
		return fmt.Sprintf("%s %d – %d, %d", sm, weekStart.Day(), end.Day(), ey)
	}
}

// FmtDay formats a day relative to today: "Today · Feb 21", "Yesterday ·
// Feb 20", "Tomorrow · Feb 22", otherwise "Mon, Feb 17". The short form drops
// the date from relative labels and the month from the others ("Mon 17").
func FmtDay(day, today time.Time, short bool) string {
	label := day.Format("Jan 2")
	switch DiffDays(day, today) {
	case 0:
		if short {
			return "Today"
		}
		return "Today · " + label
	case -1:
		if short {
			return "Yesterday"
		}
		return "Yesterday · " + label
	case 1:
		if short {
			return "Tomorrow"
		}
		return "Tomorrow · " + label
	}
	if short {
		return day.Format("Mon 2")
	}
	return day.Format("Mon, Jan 2")
}
