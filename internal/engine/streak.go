package engine

import (
	"time"

	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

const (
	// Backward-scan ceiling of the generic current-streak walk.
	streakLookbackDays = 365
	// Bound of the everyday fast path, which iterates plain calendar days.
	everydayLookbackDays = 500
)

// CurrentStreak counts the unbroken run of satisfied active days ending at
// asOf, walking backward day by day. Inactive days never break the run. The
// real current day gets leniency: not yet satisfied doesn't break the run, it
// just isn't counted.
func (e *Evaluator) CurrentStreak(s *Snapshot, asOf time.Time) int {
	if s == nil || s.Habit.StartDate.IsZero() {
		return 0
	}
	day := daykey.Midnight(asOf, e.loc)
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	today := daykey.Midnight(e.now(), e.loc)
	if rule, ok := e.everydayFastPath(s); ok {
		return e.everydayCurrentStreak(s, rule, day, start, today)
	}
	streak := 0
	for steps := 0; steps < streakLookbackDays && !day.Before(start); steps++ {
		if e.IsActive(s, day) {
			switch {
			case e.IsDaySatisfied(s, day):
				streak++
			case day.Equal(today):
				// leniency: today still has time
			default:
				return streak
			}
		}
		day = daykey.AddDays(day, -1, e.loc)
	}
	return streak
}

// LongestStreak scans forward from the habit's start maintaining the current
// run. An unsatisfied day resets the run unless it is today. The complex-rule
// path bounds the scan to the last year; the everyday fast path covers the
// habit's whole life.
func (e *Evaluator) LongestStreak(s *Snapshot) int {
	if s == nil || s.Habit.StartDate.IsZero() {
		return 0
	}
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	today := daykey.Midnight(e.now(), e.loc)
	if start.After(today) {
		return 0
	}
	if rule, ok := e.everydayFastPath(s); ok {
		return e.everydayLongestStreak(s, rule, start, today)
	}
	scanStart := daykey.AddDays(today, -(streakLookbackDays - 1), e.loc)
	if start.After(scanStart) {
		scanStart = start
	}
	best, run := 0, 0
	for day := scanStart; !day.After(today); day = daykey.AddDays(day, 1, e.loc) {
		if !e.IsActive(s, day) {
			continue
		}
		switch {
		case e.IsDaySatisfied(s, day):
			run++
			if run > best {
				best = run
			}
		case day.Equal(today):
			// incomplete today leaves the run open
		default:
			run = 0
		}
	}
	return best
}

// Streaks assembles the derived streak projection. BestStreakEver is defined
// as the freshly computed longest streak, never an independently incremented
// counter.
func (e *Evaluator) Streaks(s *Snapshot) entity.StreakData {
	today := daykey.Midnight(e.now(), e.loc)
	current := e.CurrentStreak(s, today)
	longest := e.LongestStreak(s)
	data := entity.StreakData{
		CurrentStreak:  current,
		LongestStreak:  longest,
		BestStreakEver: longest,
		IsActive:       e.IsActive(s, today),
	}
	if last, ok := e.lastActiveDay(s, today); ok {
		data.LastActiveDate = &last
	}
	return data
}

// everydayFastPath reports whether the habit qualifies for the direct
// calendar iteration: one rule version, plain every-day schedule, repetition
// tracking, no catch-up semantics. Both streak paths must agree on habits
// that qualify.
func (e *Evaluator) everydayFastPath(s *Snapshot) (*entity.RecurrenceRule, bool) {
	if len(s.Rules) != 1 {
		return nil, false
	}
	rule := &s.Rules[0]
	if rule.FollowUp || rule.Goal.Kind != entity.GoalDaily || rule.Goal.Daily == nil || !rule.Goal.Daily.EveryDay {
		return nil, false
	}
	if rule.Tracking != "" && rule.Tracking != entity.TrackRepetitions {
		return nil, false
	}
	return rule, true
}

func (e *Evaluator) everydayCurrentStreak(s *Snapshot, rule *entity.RecurrenceRule, day, start, today time.Time) int {
	required := rule.RepeatsPerDay
	if required < 1 {
		required = 1
	}
	streak := 0
	for steps := 0; steps < everydayLookbackDays && !day.Before(start); steps++ {
		count := s.CompletedCount(daykey.Key(day, e.loc))
		satisfied := count >= required
		if s.Habit.IsBadHabit {
			satisfied = count < required
		}
		switch {
		case satisfied:
			streak++
		case day.Equal(today):
		default:
			return streak
		}
		day = daykey.AddDays(day, -1, e.loc)
	}
	return streak
}

func (e *Evaluator) everydayLongestStreak(s *Snapshot, rule *entity.RecurrenceRule, start, today time.Time) int {
	required := rule.RepeatsPerDay
	if required < 1 {
		required = 1
	}
	best, run := 0, 0
	for day := start; !day.After(today); day = daykey.AddDays(day, 1, e.loc) {
		count := s.CompletedCount(daykey.Key(day, e.loc))
		satisfied := count >= required
		if s.Habit.IsBadHabit {
			satisfied = count < required
		}
		switch {
		case satisfied:
			run++
			if run > best {
				best = run
			}
		case day.Equal(today):
		default:
			run = 0
		}
	}
	return best
}

func (e *Evaluator) lastActiveDay(s *Snapshot, today time.Time) (time.Time, bool) {
	if s == nil || s.Habit.StartDate.IsZero() {
		return time.Time{}, false
	}
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	day := today
	for steps := 0; steps < streakLookbackDays && !day.Before(start); steps++ {
		if e.IsActive(s, day) {
			return day, true
		}
		day = daykey.AddDays(day, -1, e.loc)
	}
	return time.Time{}, false
}
