package engine_test

import (
	"testing"
	"time"

	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
	"github.com/stretchr/testify/assert"
)

func TestCurrentStreakEveryday(t *testing.T) {
	// Scenario: completions on Jan 1 and Jan 2, skip record on Jan 3.
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{everyDayRule(habit.ID, start)}
	records := []entity.CompletionRecord{
		completedOn(habit.ID, date(2024, time.January, 1)),
		completedOn(habit.ID, date(2024, time.January, 2)),
		{
			HabitID: habit.ID,
			Date:    date(2024, time.January, 3),
			DayKey:  "2024-01-03",
			Skipped: true,
		},
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 4))

	assert.Equal(t, 2, e.CurrentStreak(snap, date(2024, time.January, 2)))
	// Jan 3 was skipped, not completed, so by Jan 4 the streak is broken.
	assert.Equal(t, 0, e.CurrentStreak(snap, date(2024, time.January, 4)))
}

func TestCurrentStreakBadHabitAbsence(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	habit.IsBadHabit = true
	snap := engine.NewSnapshot(habit, []entity.RecurrenceRule{everyDayRule(habit.ID, start)}, nil, testLoc)
	e := newEval(date(2024, time.January, 10))

	assert.Equal(t, 10, e.CurrentStreak(snap, date(2024, time.January, 10)),
		"absence of completions is success for a bad habit")
}

func TestCurrentStreakTodayLeniency(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{everyDayRule(habit.ID, start)}
	records := []entity.CompletionRecord{
		completedOn(habit.ID, date(2024, time.January, 1)),
		completedOn(habit.ID, date(2024, time.January, 2)),
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 3))

	// Today (Jan 3) is not yet done: not counted, but not a break either.
	assert.Equal(t, 2, e.CurrentStreak(snap, date(2024, time.January, 3)))
}

func TestCurrentStreakIntervalRule(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{intervalRule(habit.ID, start, 3, false)}
	records := []entity.CompletionRecord{
		completedOn(habit.ID, date(2024, time.January, 1)),
		completedOn(habit.ID, date(2024, time.January, 4)),
		completedOn(habit.ID, date(2024, time.January, 7)),
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 8))

	// Off days don't break the run; three scheduled days all done.
	assert.Equal(t, 3, e.CurrentStreak(snap, date(2024, time.January, 8)))
}

func TestLongestStreak(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{everyDayRule(habit.ID, start)}
	var records []entity.CompletionRecord
	// Runs: Jan 1-3 (3 days), gap Jan 4, Jan 5-6 (2 days).
	for _, d := range []int{1, 2, 3, 5, 6} {
		records = append(records, completedOn(habit.ID, date(2024, time.January, d)))
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 7))

	assert.Equal(t, 3, e.LongestStreak(snap))
	assert.Equal(t, 2, e.CurrentStreak(snap, date(2024, time.January, 7)))
}

func TestLongestStreakTodayDoesNotReset(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{everyDayRule(habit.ID, start)}
	var records []entity.CompletionRecord
	for _, d := range []int{1, 2, 3, 4} {
		records = append(records, completedOn(habit.ID, date(2024, time.January, d)))
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 5))

	// Jan 5 (today) has no completion yet; the 4-day run survives.
	assert.Equal(t, 4, e.LongestStreak(snap))
	assert.Equal(t, 4, e.CurrentStreak(snap, date(2024, time.January, 5)))
}

func TestCurrentNeverExceedsLongest(t *testing.T) {
	today := date(2024, time.March, 15)
	start := date(2024, time.January, 1)
	fixtures := map[string]func(habit entity.Habit) *engine.Snapshot{
		"everyday with gaps": func(habit entity.Habit) *engine.Snapshot {
			var records []entity.CompletionRecord
			for d := start; d.Before(today); d = daykey.AddDays(d, 1, testLoc) {
				if d.Day()%4 != 0 {
					records = append(records, completedOn(habit.ID, d))
				}
			}
			return engine.NewSnapshot(habit, []entity.RecurrenceRule{everyDayRule(habit.ID, start)}, records, testLoc)
		},
		"interval rule": func(habit entity.Habit) *engine.Snapshot {
			var records []entity.CompletionRecord
			for d := start; d.Before(today); d = daykey.AddDays(d, 3, testLoc) {
				records = append(records, completedOn(habit.ID, d))
			}
			return engine.NewSnapshot(habit, []entity.RecurrenceRule{intervalRule(habit.ID, start, 3, false)}, records, testLoc)
		},
		"weekly rule no completions": func(habit entity.Habit) *engine.Snapshot {
			return engine.NewSnapshot(habit, []entity.RecurrenceRule{weeklyRule(habit.ID, start, 1, 0, 3)}, nil, testLoc)
		},
	}
	e := newEval(today)
	for name, build := range fixtures {
		t.Run(name, func(t *testing.T) {
			snap := build(testHabit(start))
			current := e.CurrentStreak(snap, today)
			longest := e.LongestStreak(snap)
			assert.LessOrEqual(t, current, longest)
		})
	}
}

func TestFastPathMatchesGenericWalk(t *testing.T) {
	// The same everyday schedule expressed as one rule version (fast path)
	// and as two identical versions (generic walk) must agree.
	start := date(2024, time.January, 1)
	today := date(2024, time.February, 10)
	fast := testHabit(start)
	generic := testHabit(start)

	var fastRecords, genericRecords []entity.CompletionRecord
	for d := start; d.Before(today); d = daykey.AddDays(d, 1, testLoc) {
		if d.Day()%5 == 0 {
			continue
		}
		fastRecords = append(fastRecords, completedOn(fast.ID, d))
		genericRecords = append(genericRecords, completedOn(generic.ID, d))
	}
	fastSnap := engine.NewSnapshot(fast, []entity.RecurrenceRule{
		everyDayRule(fast.ID, start),
	}, fastRecords, testLoc)
	genericSnap := engine.NewSnapshot(generic, []entity.RecurrenceRule{
		everyDayRule(generic.ID, start),
		everyDayRule(generic.ID, date(2024, time.January, 15)),
	}, genericRecords, testLoc)
	e := newEval(today)

	for d := start; !d.After(today); d = daykey.AddDays(d, 1, testLoc) {
		assert.Equal(t,
			e.CurrentStreak(genericSnap, d),
			e.CurrentStreak(fastSnap, d),
			d.Format(daykey.Layout),
		)
	}
	assert.Equal(t, e.LongestStreak(genericSnap), e.LongestStreak(fastSnap))
}

func TestStreaksProjection(t *testing.T) {
	start := date(2024, time.January, 1)
	habit := testHabit(start)
	rules := []entity.RecurrenceRule{everyDayRule(habit.ID, start)}
	var records []entity.CompletionRecord
	for _, d := range []int{1, 2, 3} {
		records = append(records, completedOn(habit.ID, date(2024, time.January, d)))
	}
	snap := engine.NewSnapshot(habit, rules, records, testLoc)
	e := newEval(date(2024, time.January, 4))

	data := e.Streaks(snap)
	assert.Equal(t, 3, data.CurrentStreak)
	assert.Equal(t, 3, data.LongestStreak)
	assert.Equal(t, data.LongestStreak, data.BestStreakEver)
	assert.True(t, data.IsActive)
	if assert.NotNil(t, data.LastActiveDate) {
		assert.Equal(t, date(2024, time.January, 4), *data.LastActiveDate)
	}
}
