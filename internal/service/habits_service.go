package service

import (
	"context"
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/repository"
	"github.com/limbo/cadence/pkg/entity"
)

type HabitsService struct {
	habitsRepo repository.HabitsRepositoryI
	rulesRepo  repository.RulesRepositoryI
	cache      *engine.ActivityCache
}

func NewHabitsService(habitsRepo repository.HabitsRepositoryI, rulesRepo repository.RulesRepositoryI, cache *engine.ActivityCache) *HabitsService {
	if habitsRepo == nil || rulesRepo == nil {
		log.Fatal("on habits service provided nil repos")
	}
	return &HabitsService{
		habitsRepo: habitsRepo,
		rulesRepo:  rulesRepo,
		cache:      cache,
	}
}

// CreateHabit creates the habit row plus a default every-day rule version so
// the habit is immediately evaluable.
func (hs *HabitsService) CreateHabit(ctx context.Context, uid uuid.UUID, req *CreateHabitRequest) (*entity.Habit, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	h := entity.Habit{
		UserID:      uid,
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		IsBadHabit:  req.IsBadHabit,
	}
	id, err := hs.habitsRepo.Create(ctx, &h)
	if err != nil {
		switch {
		case errors.Is(err, errorvalues.ErrOwnerNotFound):
			return nil, errorvalues.ErrUserNotFound
		case errors.Is(err, errorvalues.ErrUserHasHabit):
			return nil, errorvalues.ErrUserHasHabit
		}
		return nil, errors.New("habits repository error: " + err.Error())
	}
	_, err = hs.rulesRepo.Create(ctx, &entity.RecurrenceRule{
		HabitID:       id,
		EffectiveFrom: req.StartDate,
		RepeatsPerDay: 1,
		Tracking:      entity.TrackRepetitions,
		Goal: entity.Goal{
			Kind:  entity.GoalDaily,
			Daily: &entity.DailyGoal{EveryDay: true},
		},
	})
	if err != nil {
		return nil, errors.New("rules repository error: " + err.Error())
	}
	habit, err := hs.habitsRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("habits repository error: " + err.Error())
	}
	return habit, nil
}

func (hs *HabitsService) GetHabit(ctx context.Context, habitID, userID uuid.UUID) (*entity.Habit, error) {
	habit, err := hs.habitsRepo.GetByID(ctx, habitID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("habits repository error: " + err.Error())
	}
	if habit.UserID != userID {
		return nil, errorvalues.ErrWrongOwner
	}
	return habit, nil
}

func (hs *HabitsService) GetUserHabits(ctx context.Context, uid uuid.UUID, pagination PaginationOpts) ([]*entity.Habit, error) {
	habits, err := hs.habitsRepo.GetByUserID(ctx, uid, pagination.Limit, pagination.Offset)
	if err != nil {
		return nil, errors.New("habits repository error: " + err.Error())
	}
	return habits, nil
}

func (hs *HabitsService) UpdateHabit(ctx context.Context, habitID, userID uuid.UUID, req *UpdateHabitRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	habit, err := hs.GetHabit(ctx, habitID, userID)
	if err != nil {
		return err
	}
	habit.Title = req.Title
	habit.Description = req.Description
	err = hs.habitsRepo.Update(ctx, habit)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return err
		}
		return errors.New("habits repository error: " + err.Error())
	}
	return nil
}

func (hs *HabitsService) ArchiveHabit(ctx context.Context, habitID, userID uuid.UUID, archived bool) error {
	_, err := hs.GetHabit(ctx, habitID, userID)
	if err != nil {
		return err
	}
	err = hs.habitsRepo.SetArchived(ctx, habitID, archived)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return err
		}
		return errors.New("habits repository error: " + err.Error())
	}
	return nil
}

func (hs *HabitsService) DeleteHabit(ctx context.Context, habitID, userID uuid.UUID) error {
	_, err := hs.GetHabit(ctx, habitID, userID)
	if err != nil {
		return err
	}
	err = hs.habitsRepo.Delete(ctx, habitID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return err
		}
		return errors.New("habits repository error: " + err.Error())
	}
	if hs.cache != nil {
		hs.cache.InvalidateHabit(habitID)
	}
	return nil
}

// AddRuleVersion appends a new rule version. Every cached activity value of
// the habit is dropped since any past or future day may now resolve through
// the new rule.
func (hs *HabitsService) AddRuleVersion(ctx context.Context, habitID, userID uuid.UUID, req *CreateRuleRequest) (*entity.RecurrenceRule, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if err := validateGoal(&req.Goal); err != nil {
		return nil, err
	}
	habit, err := hs.GetHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	if habit.IsArchived {
		return nil, errorvalues.ErrHabitArchived
	}
	rule := entity.RecurrenceRule{
		HabitID:        habitID,
		EffectiveFrom:  req.EffectiveFrom,
		RepeatsPerDay:  req.RepeatsPerDay,
		FollowUp:       req.FollowUp,
		Tracking:       entity.TrackingType(req.Tracking),
		TargetDuration: req.TargetDuration,
		TargetQuantity: req.TargetQuantity,
		QuantityUnit:   req.QuantityUnit,
		Goal:           req.Goal,
	}
	id, err := hs.rulesRepo.Create(ctx, &rule)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("rules repository error: " + err.Error())
	}
	rule.ID = id
	if hs.cache != nil {
		hs.cache.InvalidateHabit(habitID)
	}
	return &rule, nil
}

func (hs *HabitsService) GetRuleVersions(ctx context.Context, habitID, userID uuid.UUID) ([]entity.RecurrenceRule, error) {
	_, err := hs.GetHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	rules, err := hs.rulesRepo.GetByHabitID(ctx, habitID)
	if err != nil {
		return nil, errors.New("rules repository error: " + err.Error())
	}
	return rules, nil
}

// validateGoal checks that exactly the goal shape named by Kind is present
// and that its masks satisfy the evaluator's contract: SpecificDays is a
// whole number of weeks, Weekdays is exactly 7 wide, MonthDays exactly 31,
// and every mask marks at least one day.
func validateGoal(g *entity.Goal) error {
	switch g.Kind {
	case entity.GoalDaily:
		if g.Daily == nil || g.Weekly != nil || g.Monthly != nil {
			return errorvalues.ErrInvalidGoal
		}
		d := g.Daily
		shapes := 0
		if d.EveryDay {
			shapes++
		}
		if d.DaysInterval > 0 {
			shapes++
		}
		if len(d.SpecificDays) > 0 {
			if len(d.SpecificDays)%7 != 0 || !anyMarked(d.SpecificDays) {
				return errorvalues.ErrInvalidGoal
			}
			shapes++
		}
		if shapes != 1 {
			return errorvalues.ErrInvalidGoal
		}
	case entity.GoalWeekly:
		if g.Weekly == nil || g.Daily != nil || g.Monthly != nil {
			return errorvalues.ErrInvalidGoal
		}
		w := g.Weekly
		if !w.EveryWeek && w.WeekInterval <= 0 {
			return errorvalues.ErrInvalidGoal
		}
		if len(w.Weekdays) != 7 || !anyMarked(w.Weekdays) {
			return errorvalues.ErrInvalidGoal
		}
	case entity.GoalMonthly:
		if g.Monthly == nil || g.Daily != nil || g.Weekly != nil {
			return errorvalues.ErrInvalidGoal
		}
		m := g.Monthly
		if !m.EveryMonth && m.MonthInterval <= 0 {
			return errorvalues.ErrInvalidGoal
		}
		if len(m.MonthDays) != 31 || !anyMarked(m.MonthDays) {
			return errorvalues.ErrInvalidGoal
		}
	default:
		return errorvalues.ErrInvalidGoal
	}
	return nil
}

func anyMarked(mask []bool) bool {
	for _, set := range mask {
		if set {
			return true
		}
	}
	return false
}

func validateStruct(req any) error {
	err := validate.Struct(req)
	if err != nil {
		if validationError, ok := err.(validator.ValidationErrors); ok {
			err = errors.New("validation error: ")
			for _, fieldErr := range validationError {
				err = errors.Join(err, fieldErr)
			}
			return err
		}
		return errors.New("validation unexpected error: " + err.Error())
	}
	return nil
}
