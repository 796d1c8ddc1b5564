// Package daykey normalizes timestamps to timezone-local calendar days.
// Every other package compares dates through these helpers so that two
// timestamps agree on a day iff they fall on the same local calendar day.
package daykey

import "time"

const Layout = "2006-01-02"

// Key returns the local-day identifier of t in loc, formatted yyyy-MM-dd.
func Key(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(Layout)
}

// Midnight truncates t to local midnight in loc using calendar arithmetic.
// time.Truncate would drift across DST transitions.
func Midnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// AddDays advances t by n calendar days, keeping local midnight.
func AddDays(t time.Time, n int, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+n, 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from a to b; negative when a is after b.
// Rounding absorbs the 23h/25h days around DST switches.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ma := Midnight(a, loc)
	mb := Midnight(b, loc)
	hours := mb.Sub(ma).Hours()
	if hours >= 0 {
		return int(hours/24 + 0.5)
	}
	return -int(-hours/24 + 0.5)
}

// DayIndex maps t to a stable integer day ordinal in loc, usable as a cache
// key component.
func DayIndex(t time.Time, loc *time.Location) int {
	epoch := time.Date(1970, 1, 1, 0, 0, 0, 0, loc)
	return DaysBetween(epoch, t, loc)
}

// Weekday returns the ISO weekday of t with Monday = 0 .. Sunday = 6.
func Weekday(t time.Time, loc *time.Location) int {
	return (int(t.In(loc).Weekday()) + 6) % 7
}

// WeekStart returns local midnight of the Monday of t's ISO week.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	return AddDays(t, -Weekday(t, loc), loc)
}

// WeeksBetween counts whole ISO weeks from a's week to b's week.
func WeeksBetween(a, b time.Time, loc *time.Location) int {
	return DaysBetween(WeekStart(a, loc), WeekStart(b, loc), loc) / 7
}

// ISOWeek returns the ISO-8601 year and week of t (Monday first weekday,
// at least 4 days of the week in the new year).
func ISOWeek(t time.Time, loc *time.Location) (year, week int) {
	return t.In(loc).ISOWeek()
}

// MonthsBetween counts whole calendar months from a's month to b's month,
// ignoring the day component.
func MonthsBetween(a, b time.Time, loc *time.Location) int {
	la := a.In(loc)
	lb := b.In(loc)
	return (lb.Year()-la.Year())*12 + int(lb.Month()) - int(la.Month())
}

// LastDayOfMonth returns the number of days in t's month.
func LastDayOfMonth(t time.Time, loc *time.Location) int {
	lt := t.In(loc)
	first := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
	return first.AddDate(0, 1, -1).Day()
}

// Range returns the contiguous local-midnight days from from to to inclusive.
// Empty when from is after to.
func Range(from, to time.Time, loc *time.Location) []time.Time {
	start := Midnight(from, loc)
	end := Midnight(to, loc)
	if start.After(end) {
		return nil
	}
	days := make([]time.Time, 0, DaysBetween(start, end, loc)+1)
	for d := start; !d.After(end); d = AddDays(d, 1, loc) {
		days = append(days, d)
	}
	return days
}
