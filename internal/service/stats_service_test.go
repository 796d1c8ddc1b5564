package service_test

import (
	"context"
	"testing"
	"time"

	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/service"
	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
	"github.com/stretchr/testify/assert"
)

type statsFixture struct {
	svc   *service.StatsService
	comps *completionsRepoMock
	today time.Time
}

func newStatsFixture(rule entity.RecurrenceRule) *statsFixture {
	habits := newHabitRepoMock()
	rules := &rulesRepoMock{rules: []entity.RecurrenceRule{rule}}
	comps := &completionsRepoMock{}
	return &statsFixture{
		svc:   service.NewStatsService(habits, rules, comps, engine.NewActivityCache(), time.UTC),
		comps: comps,
		today: daykey.Midnight(time.Now().In(time.UTC), time.UTC),
	}
}

func (f *statsFixture) complete(t *testing.T, day time.Time) {
	t.Helper()
	_, err := f.comps.Create(context.Background(), &entity.CompletionRecord{
		HabitID:   habitID,
		Date:      day,
		DayKey:    daykey.Key(day, time.UTC),
		Completed: true,
	})
	assert.NoError(t, err)
}

func TestStatsDayStatus(t *testing.T) {
	f := newStatsFixture(everydayRule(1))
	ctx := context.Background()
	f.complete(t, f.today)
	t.Run("completed day", func(t *testing.T) {
		status, err := f.svc.DayStatus(ctx, habitID, userID, f.today)
		assert.NoError(t, err)
		assert.True(t, status.Active)
		assert.True(t, status.Satisfied)
		assert.Equal(t, 1, status.Progress)
		assert.Equal(t, 1, status.Target)
	})
	t.Run("empty day", func(t *testing.T) {
		status, err := f.svc.DayStatus(ctx, habitID, userID, f.today.AddDate(0, 0, -1))
		assert.NoError(t, err)
		assert.True(t, status.Active)
		assert.False(t, status.Satisfied)
		assert.Equal(t, 0, status.Progress)
	})
	t.Run("wrong owner", func(t *testing.T) {
		other := newStatsFixture(everydayRule(1))
		otherHabits := newHabitRepoMock()
		otherHabits.state = stateWrongOwner
		svc := service.NewStatsService(otherHabits, &rulesRepoMock{}, other.comps, nil, time.UTC)
		_, err := svc.DayStatus(ctx, habitID, userID, f.today)
		assert.ErrorIs(t, err, errorvalues.ErrWrongOwner)
	})
}

func TestStatsHistory(t *testing.T) {
	f := newStatsFixture(everydayRule(1))
	ctx := context.Background()
	f.complete(t, f.today.AddDate(0, 0, -1))
	t.Run("range of statuses", func(t *testing.T) {
		statuses, err := f.svc.History(ctx, habitID, userID, f.today.AddDate(0, 0, -2), f.today)
		assert.NoError(t, err)
		if assert.Len(t, statuses, 3) {
			assert.False(t, statuses[0].Satisfied)
			assert.True(t, statuses[1].Satisfied)
			assert.False(t, statuses[2].Satisfied)
		}
	})
	t.Run("reversed range", func(t *testing.T) {
		_, err := f.svc.History(ctx, habitID, userID, f.today, f.today.AddDate(0, 0, -2))
		assert.ErrorIs(t, err, errorvalues.ErrDateNotAllowed)
	})
	t.Run("range too long", func(t *testing.T) {
		_, err := f.svc.History(ctx, habitID, userID, f.today.AddDate(-2, 0, 0), f.today)
		assert.ErrorIs(t, err, errorvalues.ErrDateNotAllowed)
	})
}

func TestStatsStreaks(t *testing.T) {
	f := newStatsFixture(everydayRule(1))
	ctx := context.Background()
	f.complete(t, f.today)
	f.complete(t, f.today.AddDate(0, 0, -1))
	streaks, err := f.svc.Streaks(ctx, habitID, userID)
	assert.NoError(t, err)
	assert.Equal(t, 2, streaks.CurrentStreak)
	assert.Equal(t, 2, streaks.LongestStreak)
	assert.Equal(t, streaks.LongestStreak, streaks.BestStreakEver)
}

func TestStatsScore(t *testing.T) {
	f := newStatsFixture(everydayRule(1))
	ctx := context.Background()
	f.complete(t, f.today)
	f.complete(t, f.today.AddDate(0, 0, -1))
	breakdown, err := f.svc.Score(ctx, habitID, userID)
	assert.NoError(t, err)
	assert.Equal(t, 30, breakdown.Expected)
	assert.Equal(t, 2, breakdown.Actual)
	assert.Equal(t, 2, breakdown.StreakDays)
	// 2/30 of 80 completion points plus 2/30 of 20 momentum points
	assert.Equal(t, 7, breakdown.Score)
}

func TestStatsNextDue(t *testing.T) {
	f := newStatsFixture(everydayRule(1))
	ctx := context.Background()
	desc, err := f.svc.NextDue(ctx, habitID, userID)
	assert.NoError(t, err)
	assert.Equal(t, "Today", desc)
}
