package engine

import (
	"time"

	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

const (
	// Longest chain of due-date hops a follow-up walk may take.
	followUpMaxHops = 90
	// Day-by-day scan ceiling when searching for the next scheduled grid
	// day. Covers month intervals past two years.
	gridScanLimit = 800
)

// Evaluator answers activity, completion, streak and score queries over habit
// snapshots. The clock is injectable so "today" leniency is deterministic in
// tests.
type Evaluator struct {
	cache *ActivityCache
	loc   *time.Location
	now   func() time.Time
}

func NewEvaluator(cache *ActivityCache, loc *time.Location) *Evaluator {
	return NewEvaluatorWithClock(cache, loc, time.Now)
}

func NewEvaluatorWithClock(cache *ActivityCache, loc *time.Location, now func() time.Time) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{
		cache: cache,
		loc:   loc,
		now:   now,
	}
}

func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// IsActive reports whether the habit's schedule requires action on the given
// date. Results are memoized per (habit, day) when a cache is attached.
func (e *Evaluator) IsActive(s *Snapshot, date time.Time) bool {
	if s == nil || s.Habit.StartDate.IsZero() {
		return false
	}
	day := daykey.Midnight(date, e.loc)
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	if day.Before(start) {
		return false
	}
	rule := s.EffectiveRule(day)
	if rule == nil {
		return false
	}
	dayIdx := daykey.DayIndex(day, e.loc)
	if e.cache != nil {
		if active, ok := e.cache.Get(s.Habit.ID, dayIdx); ok {
			return active
		}
	}
	active := e.isRegularlyActive(rule, day)
	if !active && rule.FollowUp {
		active = e.isActiveForFollowUp(s, rule, day)
	}
	if e.cache != nil {
		e.cache.Set(s.Habit.ID, dayIdx, active)
	}
	return active
}

// isRegularlyActive is the pure grid test for the rule's goal shape. Interval
// daily goals under follow-up are deliberately excluded: the catch-up walk
// owns those days entirely.
func (e *Evaluator) isRegularlyActive(rule *entity.RecurrenceRule, day time.Time) bool {
	effFrom := daykey.Midnight(rule.EffectiveFrom, e.loc)
	switch rule.Goal.Kind {
	case entity.GoalDaily:
		g := rule.Goal.Daily
		if g == nil {
			return false
		}
		if g.EveryDay {
			return true
		}
		if g.DaysInterval > 0 {
			if rule.FollowUp {
				return false
			}
			offset := daykey.DaysBetween(effFrom, day, e.loc)
			return offset >= 0 && offset%g.DaysInterval == 0
		}
		return e.specificDaysActive(g, effFrom, day)
	case entity.GoalWeekly:
		g := rule.Goal.Weekly
		if g == nil || len(g.Weekdays) != 7 {
			return false
		}
		if !g.Weekdays[daykey.Weekday(day, e.loc)] {
			return false
		}
		if g.EveryWeek {
			return true
		}
		if g.WeekInterval <= 0 {
			return false
		}
		weeks := daykey.WeeksBetween(effFrom, day, e.loc)
		return mod(weeks, g.WeekInterval) == 0
	case entity.GoalMonthly:
		g := rule.Goal.Monthly
		if g == nil || len(g.MonthDays) != 31 {
			return false
		}
		if !e.monthDayMarked(g, day) {
			return false
		}
		if g.EveryMonth {
			return true
		}
		if g.MonthInterval <= 0 {
			return false
		}
		months := daykey.MonthsBetween(effFrom, day, e.loc)
		return mod(months, g.MonthInterval) == 0
	}
	return false
}

// specificDaysActive evaluates an N-week rotating weekday mask. The rotation
// counts 7-day blocks from the rule's effective date and wraps for dates
// before it; the weekday index inside a block stays Monday-based.
func (e *Evaluator) specificDaysActive(g *entity.DailyGoal, effFrom, day time.Time) bool {
	n := len(g.SpecificDays)
	if n == 0 || n%7 != 0 {
		return false
	}
	weekCount := n / 7
	offset := daykey.DaysBetween(effFrom, day, e.loc)
	weekInCycle := mod(offset/7, weekCount)
	index := weekInCycle*7 + daykey.Weekday(day, e.loc)
	if index < 0 || index >= n {
		return false
	}
	return g.SpecificDays[index]
}

// monthDayMarked checks the day-of-month mask with last-day fallback: when a
// marked day (29-31) does not exist in the month, the month's actual last day
// stands in for it.
func (e *Evaluator) monthDayMarked(g *entity.MonthlyGoal, day time.Time) bool {
	dom := day.In(e.loc).Day()
	if g.MonthDays[dom-1] {
		return true
	}
	if dom != daykey.LastDayOfMonth(day, e.loc) {
		return false
	}
	for i := dom; i < 31; i++ {
		if g.MonthDays[i] {
			return true
		}
	}
	return false
}

// isActiveForFollowUp models "still due because not done since it became
// due". An already-completed day stays active so multi-repeat logging keeps
// working; otherwise the date is active iff it equals the computed next due
// day.
func (e *Evaluator) isActiveForFollowUp(s *Snapshot, rule *entity.RecurrenceRule, day time.Time) bool {
	if s.HasCompletedDay(daykey.Key(day, e.loc)) {
		return true
	}
	due, ok := e.nextDueDay(s, rule, day)
	return ok && due.Equal(day)
}

// nextDueDay runs the catch-up walk: start from the most recent fully
// satisfied day (or the rule's effective start when nothing was ever done),
// advance one period at a time, and skip chain days that are already in the
// completed-day set, until the chain reaches or passes upTo. The same walk
// serves past overdue checks and future due-date previews.
func (e *Evaluator) nextDueDay(s *Snapshot, rule *entity.RecurrenceRule, upTo time.Time) (time.Time, bool) {
	start := daykey.Midnight(rule.EffectiveFrom, e.loc)
	if hs := daykey.Midnight(s.Habit.StartDate, e.loc); hs.After(start) {
		start = hs
	}
	anchor, hasAnchor := s.MostRecentSatisfiedDay(upTo)

	interval := 0
	if rule.Goal.Kind == entity.GoalDaily && rule.Goal.Daily != nil {
		interval = rule.Goal.Daily.DaysInterval
	}

	var due time.Time
	var ok bool
	if interval > 0 {
		// Interval chains re-anchor at the last satisfied day, so a
		// late catch-up completion shifts every following due date.
		if hasAnchor {
			due, ok = daykey.AddDays(anchor, interval, e.loc), true
		} else {
			due, ok = start, true
		}
	} else {
		if hasAnchor {
			due, ok = e.nextGridDay(rule, daykey.AddDays(anchor, 1, e.loc))
		} else {
			due, ok = e.nextGridDay(rule, start)
		}
	}

	for hops := 0; ok && hops < followUpMaxHops; hops++ {
		if !s.HasCompletedDay(daykey.Key(due, e.loc)) && !due.Before(upTo) {
			return due, true
		}
		if interval > 0 {
			due = daykey.AddDays(due, interval, e.loc)
		} else {
			due, ok = e.nextGridDay(rule, daykey.AddDays(due, 1, e.loc))
		}
	}
	return time.Time{}, false
}

// nextGridDay finds the first day on or after from that the rule's grid
// marks, scanning day-by-day under a hard bound. Follow-up suppression does
// not apply here: the grid itself is what the walk advances along.
func (e *Evaluator) nextGridDay(rule *entity.RecurrenceRule, from time.Time) (time.Time, bool) {
	day := daykey.Midnight(from, e.loc)
	for i := 0; i < gridScanLimit; i++ {
		if e.matchesGrid(rule, day) {
			return day, true
		}
		day = daykey.AddDays(day, 1, e.loc)
	}
	return time.Time{}, false
}

// matchesGrid is isRegularlyActive without the follow-up exclusion for
// interval goals.
func (e *Evaluator) matchesGrid(rule *entity.RecurrenceRule, day time.Time) bool {
	if rule.Goal.Kind == entity.GoalDaily && rule.Goal.Daily != nil && rule.Goal.Daily.DaysInterval > 0 {
		effFrom := daykey.Midnight(rule.EffectiveFrom, e.loc)
		offset := daykey.DaysBetween(effFrom, day, e.loc)
		return offset >= 0 && offset%rule.Goal.Daily.DaysInterval == 0
	}
	return e.isRegularlyActive(rule, day)
}

func mod(a, m int) int {
	return ((a % m) + m) % m
}
