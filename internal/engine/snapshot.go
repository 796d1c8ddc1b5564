// Package engine is the habit evaluation core: given an immutable snapshot of
// a habit's schedule versions and completion ledger it answers, for any
// calendar date, whether the habit is due, whether the day is satisfied, the
// current and longest streaks and a 0-100 consistency score. All entry points
// are total functions; malformed input degrades to "not due"/"not satisfied".
package engine

import (
	"sort"
	"time"

	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

// Snapshot is a value copy of one habit's rules and completion records with
// day-keyed indexes prebuilt for O(1) ledger lookups. Evaluators never touch
// live storage objects, so a snapshot can be queried from any goroutine.
type Snapshot struct {
	Habit entity.Habit
	Rules []entity.RecurrenceRule

	loc           *time.Location
	byDay         map[string][]entity.CompletionRecord
	completedDays map[string]struct{}
	// day keys with at least one completed record, ascending. yyyy-MM-dd
	// keys sort chronologically.
	completedKeys []string
}

func NewSnapshot(habit entity.Habit, rules []entity.RecurrenceRule, records []entity.CompletionRecord, loc *time.Location) *Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	s := &Snapshot{
		Habit:         habit,
		Rules:         make([]entity.RecurrenceRule, len(rules)),
		loc:           loc,
		byDay:         make(map[string][]entity.CompletionRecord),
		completedDays: make(map[string]struct{}),
	}
	copy(s.Rules, rules)
	sort.SliceStable(s.Rules, func(i, j int) bool {
		return s.Rules[i].EffectiveFrom.Before(s.Rules[j].EffectiveFrom)
	})
	for _, rec := range records {
		key := rec.DayKey
		if key == "" {
			key = daykey.Key(rec.Date, loc)
		}
		s.byDay[key] = append(s.byDay[key], rec)
		if rec.Completed {
			s.completedDays[key] = struct{}{}
		}
	}
	s.completedKeys = make([]string, 0, len(s.completedDays))
	for key := range s.completedDays {
		s.completedKeys = append(s.completedKeys, key)
	}
	sort.Strings(s.completedKeys)
	return s
}

func (s *Snapshot) Location() *time.Location {
	return s.loc
}

// EffectiveRule selects the rule version governing date: the one with the
// latest EffectiveFrom on or before the date. A date predating every version
// still gets the earliest-known rule, so old days don't lose their schedule.
// Nil when the habit has no rules at all.
func (s *Snapshot) EffectiveRule(date time.Time) *entity.RecurrenceRule {
	if len(s.Rules) == 0 {
		return nil
	}
	day := daykey.Midnight(date, s.loc)
	var picked *entity.RecurrenceRule
	for i := range s.Rules {
		from := daykey.Midnight(s.Rules[i].EffectiveFrom, s.loc)
		if from.After(day) {
			break
		}
		picked = &s.Rules[i]
	}
	if picked == nil {
		picked = &s.Rules[0]
	}
	return picked
}

// RepeatsRequired is the effective rule's RepeatsPerDay, never below 1.
func (s *Snapshot) RepeatsRequired(date time.Time) int {
	rule := s.EffectiveRule(date)
	if rule == nil || rule.RepeatsPerDay < 1 {
		return 1
	}
	return rule.RepeatsPerDay
}

func (s *Snapshot) CompletedCount(key string) int {
	count := 0
	for _, rec := range s.byDay[key] {
		if rec.Completed {
			count++
		}
	}
	return count
}

func (s *Snapshot) SumDuration(key string) int {
	total := 0
	for _, rec := range s.byDay[key] {
		if !rec.Skipped {
			total += rec.Duration
		}
	}
	return total
}

func (s *Snapshot) SumQuantity(key string) int {
	total := 0
	for _, rec := range s.byDay[key] {
		if !rec.Skipped {
			total += rec.Quantity
		}
	}
	return total
}

func (s *Snapshot) IsSkipped(key string) bool {
	for _, rec := range s.byDay[key] {
		if rec.Skipped {
			return true
		}
	}
	return false
}

// HasCompletedDay reports whether the day has at least one completed record.
// For multi-repeat habits this does not mean the day is satisfied.
func (s *Snapshot) HasCompletedDay(key string) bool {
	_, ok := s.completedDays[key]
	return ok
}

// MostRecentSatisfiedDay returns local midnight of the latest day strictly
// before the given date whose ledger entries satisfy the day's requirement:
// enough completed records for the effective RepeatsPerDay in repetitions
// mode, or a record flagged completed in duration/quantity mode.
func (s *Snapshot) MostRecentSatisfiedDay(before time.Time) (time.Time, bool) {
	limit := daykey.Key(daykey.Midnight(before, s.loc), s.loc)
	for i := len(s.completedKeys) - 1; i >= 0; i-- {
		key := s.completedKeys[i]
		if key >= limit {
			continue
		}
		day, err := time.ParseInLocation(daykey.Layout, key, s.loc)
		if err != nil {
			continue
		}
		if s.daySatisfiedPlain(day, key) {
			return day, true
		}
	}
	return time.Time{}, false
}

// daySatisfiedPlain checks the day's requirement without bad-habit polarity;
// it answers "was the required action fully logged", which is what anchors
// the follow-up walk.
func (s *Snapshot) daySatisfiedPlain(day time.Time, key string) bool {
	rule := s.EffectiveRule(day)
	if rule == nil {
		return s.CompletedCount(key) >= 1
	}
	switch rule.Tracking {
	case entity.TrackDuration:
		return rule.TargetDuration <= 0 || s.SumDuration(key) >= rule.TargetDuration
	case entity.TrackQuantity:
		return rule.TargetQuantity <= 0 || s.SumQuantity(key) >= rule.TargetQuantity
	default:
		return s.CompletedCount(key) >= s.RepeatsRequired(day)
	}
}
