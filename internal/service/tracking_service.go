package service

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/engine"
	"github.com/limbo/cadence/internal/repository"
	"github.com/limbo/cadence/pkg/daykey"
	"github.com/limbo/cadence/pkg/entity"
)

const recomputeTimeout = 30 * time.Second

// TrackingService owns every ledger mutation. After each write it drops the
// affected activity-cache window and schedules a background recompute of the
// habit's derived streak columns.
type TrackingService struct {
	habitsRepo      repository.HabitsRepositoryI
	completionsRepo repository.CompletionsRepositoryI
	loader          snapshotLoader
	eval            *engine.Evaluator
	cache           *engine.ActivityCache
	loc             *time.Location

	// generation counter per habit. A recompute only writes its result if no
	// newer mutation arrived while it ran, so the latest write wins. writeMu
	// keeps the staleness check and the projection write in one critical
	// section, without it a newer run could commit between an older run's
	// check and its write.
	mu      sync.Mutex
	gen     map[uuid.UUID]uint64
	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func NewTrackingService(
	habitsRepo repository.HabitsRepositoryI,
	rulesRepo repository.RulesRepositoryI,
	completionsRepo repository.CompletionsRepositoryI,
	cache *engine.ActivityCache,
	loc *time.Location,
) *TrackingService {
	if habitsRepo == nil || rulesRepo == nil || completionsRepo == nil {
		log.Fatal("on tracking service provided nil repos")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &TrackingService{
		habitsRepo:      habitsRepo,
		completionsRepo: completionsRepo,
		loader: snapshotLoader{
			habitsRepo:      habitsRepo,
			rulesRepo:       rulesRepo,
			completionsRepo: completionsRepo,
			loc:             loc,
		},
		eval:  engine.NewEvaluator(cache, loc),
		cache: cache,
		loc:   loc,
		gen:   make(map[uuid.UUID]uint64),
	}
}

// Toggle adds one repetition for the day, or removes the most recent one when
// the day already holds the required count.
func (ts *TrackingService) Toggle(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error {
	s, rule, err := ts.prepareMutation(ctx, habitID, userID, date)
	if err != nil {
		return err
	}
	if rule.Tracking != entity.TrackRepetitions {
		return errorvalues.ErrWrongTracking
	}
	key := daykey.Key(date, ts.loc)
	if s.IsSkipped(key) {
		return errorvalues.ErrDaySkipped
	}
	if s.CompletedCount(key) < s.RepeatsRequired(date) {
		_, err = ts.completionsRepo.Create(ctx, &entity.CompletionRecord{
			HabitID:   habitID,
			Date:      date,
			DayKey:    key,
			Completed: true,
		})
		if err != nil {
			if errors.Is(err, errorvalues.ErrHabitNotFound) {
				return err
			}
			return errors.New("completions repository error: " + err.Error())
		}
	} else {
		err = ts.completionsRepo.DeleteLatestCompleted(ctx, habitID, key)
		if err != nil {
			if errors.Is(err, errorvalues.ErrNothingToRemove) {
				return err
			}
			return errors.New("completions repository error: " + err.Error())
		}
	}
	ts.invalidate(habitID, date, rule)
	ts.scheduleRecompute(habitID, userID)
	return nil
}

// Skip wipes the day's records and marks the day skipped.
func (ts *TrackingService) Skip(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error {
	_, rule, err := ts.prepareMutation(ctx, habitID, userID, date)
	if err != nil {
		return err
	}
	key := daykey.Key(date, ts.loc)
	if err = ts.completionsRepo.DeleteForDay(ctx, habitID, key); err != nil {
		return errors.New("completions repository error: " + err.Error())
	}
	_, err = ts.completionsRepo.Create(ctx, &entity.CompletionRecord{
		HabitID: habitID,
		Date:    date,
		DayKey:  key,
		Skipped: true,
	})
	if err != nil {
		return errors.New("completions repository error: " + err.Error())
	}
	ts.invalidate(habitID, date, rule)
	ts.scheduleRecompute(habitID, userID)
	return nil
}

// Unskip removes the skip record only. Completions wiped by the skip are gone.
func (ts *TrackingService) Unskip(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error {
	_, rule, err := ts.prepareMutation(ctx, habitID, userID, date)
	if err != nil {
		return err
	}
	key := daykey.Key(date, ts.loc)
	if err = ts.completionsRepo.DeleteSkip(ctx, habitID, key); err != nil {
		if errors.Is(err, errorvalues.ErrRecordNotFound) {
			return err
		}
		return errors.New("completions repository error: " + err.Error())
	}
	ts.invalidate(habitID, date, rule)
	ts.scheduleRecompute(habitID, userID)
	return nil
}

// LogDuration replaces the day's duration total, in seconds.
func (ts *TrackingService) LogDuration(ctx context.Context, habitID, userID uuid.UUID, date time.Time, seconds int) error {
	if seconds < 0 {
		return errors.New("duration must not be negative")
	}
	s, rule, err := ts.prepareMutation(ctx, habitID, userID, date)
	if err != nil {
		return err
	}
	if rule.Tracking != entity.TrackDuration {
		return errorvalues.ErrWrongTracking
	}
	key := daykey.Key(date, ts.loc)
	if s.IsSkipped(key) {
		return errorvalues.ErrDaySkipped
	}
	err = ts.completionsRepo.UpsertDayTotal(ctx, &entity.CompletionRecord{
		HabitID:   habitID,
		Date:      date,
		DayKey:    key,
		Completed: rule.TargetDuration > 0 && seconds >= rule.TargetDuration,
		Duration:  seconds,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return err
		}
		return errors.New("completions repository error: " + err.Error())
	}
	ts.invalidate(habitID, date, rule)
	ts.scheduleRecompute(habitID, userID)
	return nil
}

// LogQuantity replaces the day's quantity total.
func (ts *TrackingService) LogQuantity(ctx context.Context, habitID, userID uuid.UUID, date time.Time, amount int) error {
	if amount < 0 {
		return errors.New("quantity must not be negative")
	}
	s, rule, err := ts.prepareMutation(ctx, habitID, userID, date)
	if err != nil {
		return err
	}
	if rule.Tracking != entity.TrackQuantity {
		return errorvalues.ErrWrongTracking
	}
	key := daykey.Key(date, ts.loc)
	if s.IsSkipped(key) {
		return errorvalues.ErrDaySkipped
	}
	err = ts.completionsRepo.UpsertDayTotal(ctx, &entity.CompletionRecord{
		HabitID:   habitID,
		Date:      date,
		DayKey:    key,
		Completed: rule.TargetQuantity > 0 && amount >= rule.TargetQuantity,
		Quantity:  amount,
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return err
		}
		return errors.New("completions repository error: " + err.Error())
	}
	ts.invalidate(habitID, date, rule)
	ts.scheduleRecompute(habitID, userID)
	return nil
}

// Wait blocks until every scheduled recompute has finished. Shutdown hook and
// test helper.
func (ts *TrackingService) Wait() {
	ts.wg.Wait()
}

// prepareMutation runs the shared preconditions: ownership, archived flag,
// no logging into the future, and an effective rule for the day.
func (ts *TrackingService) prepareMutation(ctx context.Context, habitID, userID uuid.UUID, date time.Time) (*engine.Snapshot, *entity.RecurrenceRule, error) {
	s, err := ts.loader.Load(ctx, habitID, userID)
	if err != nil {
		return nil, nil, err
	}
	if s.Habit.IsArchived {
		return nil, nil, errorvalues.ErrHabitArchived
	}
	today := daykey.Midnight(time.Now().In(ts.loc), ts.loc)
	if daykey.Midnight(date, ts.loc).After(today) {
		return nil, nil, errorvalues.ErrDateNotAllowed
	}
	rule := s.EffectiveRule(date)
	if rule == nil {
		return nil, nil, errorvalues.ErrRuleNotFound
	}
	return s, rule, nil
}

// invalidate drops the cached day, plus a bounded window of future days for
// follow-up rules whose projected due days may have shifted.
func (ts *TrackingService) invalidate(habitID uuid.UUID, date time.Time, rule *entity.RecurrenceRule) {
	if ts.cache == nil {
		return
	}
	day := daykey.DayIndex(date, ts.loc)
	interval := 1
	if rule.FollowUp {
		switch rule.Goal.Kind {
		case entity.GoalDaily:
			if rule.Goal.Daily != nil && rule.Goal.Daily.DaysInterval > 0 {
				interval = rule.Goal.Daily.DaysInterval
			}
		case entity.GoalWeekly:
			interval = 7
		case entity.GoalMonthly:
			interval = 14
		}
	}
	if rule.FollowUp && interval > 1 {
		window := min(2*interval, 14)
		ts.cache.InvalidateWindow(habitID, day, window)
		return
	}
	ts.cache.Invalidate(habitID, day)
}

// scheduleRecompute refreshes the habit's derived streak columns off the
// request path. Stale runs detect a newer generation and drop their result.
func (ts *TrackingService) scheduleRecompute(habitID, userID uuid.UUID) {
	ts.mu.Lock()
	ts.gen[habitID]++
	g := ts.gen[habitID]
	ts.mu.Unlock()
	ts.wg.Add(1)
	go func() {
		defer ts.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		defer cancel()
		if err := ts.recompute(ctx, habitID, userID, g); err != nil {
			slog.Warn("streak recompute failed", "habit_id", habitID, "error", err)
		}
	}()
}

func (ts *TrackingService) recompute(ctx context.Context, habitID, userID uuid.UUID, g uint64) error {
	s, err := ts.loader.Load(ctx, habitID, userID)
	if err != nil {
		return err
	}
	streaks := ts.eval.Streaks(s)
	total, err := ts.completionsRepo.CountCompleted(ctx, habitID)
	if err != nil {
		return err
	}
	last, err := ts.completionsRepo.LastCompletionDate(ctx, habitID)
	if err != nil {
		return err
	}
	ts.writeMu.Lock()
	defer ts.writeMu.Unlock()
	ts.mu.Lock()
	stale := ts.gen[habitID] != g
	ts.mu.Unlock()
	if stale {
		return nil
	}
	return ts.habitsRepo.UpdateStreakCache(ctx, habitID, streaks.BestStreakEver, total, last)
}
