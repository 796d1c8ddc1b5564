package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/repository"
)

// snapshotLoader assembles the in-memory evaluation snapshot the engine
// works on: the habit row, all rule versions and the full ledger.
type snapshotLoader struct {
	habitsRepo      repository.HabitsRepositoryI
	rulesRepo       repository.RulesRepositoryI
	completionsRepo repository.CompletionsRepositoryI
	loc             *time.Location
}

// Load checks ownership and returns a snapshot ready for evaluation.
func (sl *snapshotLoader) Load(ctx context.Context, habitID, userID uuid.UUID) (*engine.Snapshot, error) {
	habit, err := sl.habitsRepo.GetByID(ctx, habitID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("habits repository error: " + err.Error())
	}
	if habit.UserID != userID {
		return nil, errorvalues.ErrWrongOwner
	}
	rules, err := sl.rulesRepo.GetByHabitID(ctx, habitID)
	if err != nil {
		return nil, errors.New("rules repository error: " + err.Error())
	}
	records, err := sl.completionsRepo.GetByHabitID(ctx, habitID)
	if err != nil {
		return nil, errors.New("completions repository error: " + err.Error())
	}
	return engine.NewSnapshot(*habit, rules, records, sl.loc), nil
}
