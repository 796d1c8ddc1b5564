package engine

import (
	"math"
	"time"

	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

const (
	scoreWindowDays  = 30
	scoreBasePoints  = 80.0
	scoreBonusPoints = 20.0
)

// Score rates recent consistency 0-100 over the trailing 30-day window:
// up to 80 points for the completion ratio on scheduled days and up to 20
// points for streak momentum. Completions on non-scheduled days never count,
// so logging extra days can't inflate the ratio. A window with no scheduled
// repetitions scores zero.
func (e *Evaluator) Score(s *Snapshot, today time.Time) entity.ScoreBreakdown {
	if s == nil || s.Habit.StartDate.IsZero() {
		return entity.ScoreBreakdown{}
	}
	day := daykey.Midnight(today, e.loc)
	start := daykey.Midnight(s.Habit.StartDate, e.loc)
	winStart := daykey.AddDays(day, -(scoreWindowDays - 1), e.loc)
	if start.After(winStart) {
		winStart = start
	}
	if winStart.After(day) {
		return entity.ScoreBreakdown{}
	}
	expected, actual := 0, 0
	for d := winStart; !d.After(day); d = daykey.AddDays(d, 1, e.loc) {
		if !e.IsActive(s, d) {
			continue
		}
		required := s.RepeatsRequired(d)
		expected += required
		count := s.CompletedCount(daykey.Key(d, e.loc))
		if count > required {
			count = required
		}
		actual += count
	}
	if expected == 0 {
		return entity.ScoreBreakdown{}
	}
	completion := float64(actual) / float64(expected)
	if completion > 1 {
		completion = 1
	}
	base := completion * scoreBasePoints

	streakDays := e.CurrentStreak(s, day)
	momentum := float64(streakDays) / float64(expected)
	if momentum > 1 {
		momentum = 1
	}
	bonus := momentum * scoreBonusPoints

	total := base + bonus
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return entity.ScoreBreakdown{
		Score:      int(math.Round(total)),
		Base:       base,
		Bonus:      bonus,
		Expected:   expected,
		Actual:     actual,
		StreakDays: streakDays,
	}
}
