package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/repository"
	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

const maxHistoryDays = 366

// StatsService answers the read-side questions: is the habit due, was it
// done, how long is the streak, what is the score. All evaluation happens on
// an in-memory snapshot, storage is only read once per request.
type StatsService struct {
	loader snapshotLoader
	eval   *engine.Evaluator
	loc    *time.Location
}

func NewStatsService(
	habitsRepo repository.HabitsRepositoryI,
	rulesRepo repository.RulesRepositoryI,
	completionsRepo repository.CompletionsRepositoryI,
	cache *engine.ActivityCache,
	loc *time.Location,
) *StatsService {
	if habitsRepo == nil || rulesRepo == nil || completionsRepo == nil {
		log.Fatal("on stats service provided nil repos")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		loader: snapshotLoader{
			habitsRepo:      habitsRepo,
			rulesRepo:       rulesRepo,
			completionsRepo: completionsRepo,
			loc:             loc,
		},
		eval: engine.NewEvaluator(cache, loc),
		loc:  loc,
	}
}

func (ss *StatsService) DayStatus(ctx context.Context, habitID, userID uuid.UUID, date time.Time) (*entity.DayStatus, error) {
	s, err := ss.loader.Load(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	status := ss.eval.DayStatus(s, date)
	return &status, nil
}

func (ss *StatsService) History(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) ([]entity.DayStatus, error) {
	if to.Before(from) {
		return nil, errorvalues.ErrDateNotAllowed
	}
	if daykey.DaysBetween(from, to, ss.loc) >= maxHistoryDays {
		return nil, errorvalues.ErrDateNotAllowed
	}
	s, err := ss.loader.Load(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	days := daykey.Range(from, to, ss.loc)
	statuses := make([]entity.DayStatus, 0, len(days))
	for _, day := range days {
		statuses = append(statuses, ss.eval.DayStatus(s, day))
	}
	return statuses, nil
}

func (ss *StatsService) Streaks(ctx context.Context, habitID, userID uuid.UUID) (*entity.StreakData, error) {
	s, err := ss.loader.Load(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	streaks := ss.eval.Streaks(s)
	return &streaks, nil
}

func (ss *StatsService) Score(ctx context.Context, habitID, userID uuid.UUID) (*entity.ScoreBreakdown, error) {
	s, err := ss.loader.Load(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	today := daykey.Midnight(time.Now().In(ss.loc), ss.loc)
	breakdown := ss.eval.Score(s, today)
	return &breakdown, nil
}

func (ss *StatsService) NextDue(ctx context.Context, habitID, userID uuid.UUID) (string, error) {
	s, err := ss.loader.Load(ctx, habitID, userID)
	if err != nil {
		return "", err
	}
	today := daykey.Midnight(time.Now().In(ss.loc), ss.loc)
	return ss.eval.NextDueDescription(s, today), nil
}
