package engine

import (
	"time"

	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

// IsDaySatisfied decides whether the required action was logged on the given
// date, accounting for tracking mode and polarity. For bad habits in
// repetitions mode fewer completions is better: a day is satisfied while the
// logged count stays below the requirement. Duration and quantity modes do
// not invert for bad habits; that asymmetry is long-standing observed
// behavior and is kept on purpose.
func (e *Evaluator) IsDaySatisfied(s *Snapshot, date time.Time) bool {
	if s == nil {
		return false
	}
	day := daykey.Midnight(date, e.loc)
	key := daykey.Key(day, e.loc)
	rule := s.EffectiveRule(day)
	if rule == nil {
		if s.Habit.IsBadHabit {
			return s.CompletedCount(key) < 1
		}
		return s.CompletedCount(key) >= 1
	}
	switch rule.Tracking {
	case entity.TrackDuration:
		return rule.TargetDuration <= 0 || s.SumDuration(key) >= rule.TargetDuration
	case entity.TrackQuantity:
		return rule.TargetQuantity <= 0 || s.SumQuantity(key) >= rule.TargetQuantity
	default:
		required := s.RepeatsRequired(day)
		count := s.CompletedCount(key)
		if s.Habit.IsBadHabit {
			return count < required
		}
		return count >= required
	}
}

// DayProgress reports how much of the day's requirement was logged and what
// the requirement is, in the unit of the tracking mode (repetitions, minutes
// or quantity units).
func (e *Evaluator) DayProgress(s *Snapshot, date time.Time) (progress, target int) {
	if s == nil {
		return 0, 0
	}
	day := daykey.Midnight(date, e.loc)
	key := daykey.Key(day, e.loc)
	rule := s.EffectiveRule(day)
	if rule == nil {
		return s.CompletedCount(key), 1
	}
	switch rule.Tracking {
	case entity.TrackDuration:
		return s.SumDuration(key), rule.TargetDuration
	case entity.TrackQuantity:
		return s.SumQuantity(key), rule.TargetQuantity
	default:
		return s.CompletedCount(key), s.RepeatsRequired(day)
	}
}

// DayStatus bundles the activity, satisfaction and progress of one day for
// the query API.
func (e *Evaluator) DayStatus(s *Snapshot, date time.Time) entity.DayStatus {
	day := daykey.Midnight(date, e.loc)
	key := daykey.Key(day, e.loc)
	progress, target := e.DayProgress(s, day)
	skipped := false
	if s != nil {
		skipped = s.IsSkipped(key)
	}
	return entity.DayStatus{
		Date:      day,
		DayKey:    key,
		Active:    e.IsActive(s, day),
		Satisfied: e.IsDaySatisfied(s, day),
		Skipped:   skipped,
		Progress:  progress,
		Target:    target,
	}
}
