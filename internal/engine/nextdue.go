package engine

import (
	"time"

	"github.com/limbo/cadence/pkg/daykey"
)

// How far ahead NextDueDate searches before giving up.
const nextDueScanDays = 366

// NextDueDate finds the first active day on or after from.
func (e *Evaluator) NextDueDate(s *Snapshot, from time.Time) (time.Time, bool) {
	if s == nil {
		return time.Time{}, false
	}
	day := daykey.Midnight(from, e.loc)
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	if day.Before(start) {
		day = start
	}
	for i := 0; i < nextDueScanDays; i++ {
		if e.IsActive(s, day) {
			return day, true
		}
		day = daykey.AddDays(day, 1, e.loc)
	}
	return time.Time{}, false
}

// NextDueDescription renders the next due day as short human text relative
// to the real current day: "Today", "Tomorrow", "Yesterday", a weekday name
// within the next week, "Last <weekday>" within the previous one, otherwise
// "dd. MMMM". Empty when no due day is found in the scan horizon.
func (e *Evaluator) NextDueDescription(s *Snapshot, from time.Time) string {
	due, ok := e.NextDueDate(s, from)
	if !ok {
		return ""
	}
	today := daykey.Midnight(e.now(), e.loc)
	diff := daykey.DaysBetween(today, due, e.loc)
	switch {
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Tomorrow"
	case diff == -1:
		return "Yesterday"
	case diff >= 2 && diff <= 7:
		return due.Format("Monday")
	case diff <= -2 && diff >= -7:
		return "Last " + due.Format("Monday")
	default:
		return due.Format("02. January")
	}
}
