package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/pkg/entity"
)

type mockState int

const (
	stateSuccess mockState = iota
	stateDBError
	stateUserHasHabitError
	stateHabitNotFoundError
	stateUserNotFoundError
	stateWrongOwner
)

// Variables for tests
var (
	userID    = uuid.New()
	habitID   = uuid.New()
	testStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	testHabit = entity.Habit{
		ID:        habitID,
		UserID:    userID,
		Title:     "test_habit",
		StartDate: testStart,
	}
)

type usersRepoMock struct {
	state mockState
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newUsersRepoMock() *usersRepoMock {
	return &usersRepoMock{users: make(map[uuid.UUID]*entity.User)}
}

func (m *usersRepoMock) Create(ctx context.Context, user *entity.User) error {
	if m.state == stateDBError {
		return errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == user.Name {
			return errorvalues.ErrUserExists
		}
	}
	stored := *user
	stored.ID = uuid.New()
	m.users[stored.ID] = &stored
	return nil
}

func (m *usersRepoMock) FindByName(ctx context.Context, name string) (*entity.User, error) {
	if m.state == stateDBError {
		return nil, errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Name == name {
			copied := *u
			return &copied, nil
		}
	}
	return nil, errorvalues.ErrUserNotFound
}

func (m *usersRepoMock) FindByID(ctx context.Context, uid uuid.UUID) (*entity.User, error) {
	if m.state == stateDBError {
		return nil, errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return nil, errorvalues.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *usersRepoMock) Update(ctx context.Context, user *entity.User) error {
	if m.state == stateDBError {
		return errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return errorvalues.ErrUserNotFound
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *usersRepoMock) Delete(ctx context.Context, uid uuid.UUID) error {
	if m.state == stateDBError {
		return errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[uid]; !ok {
		return errorvalues.ErrUserNotFound
	}
	delete(m.users, uid)
	return nil
}

type habitRepoMock struct {
	state mockState
	mu    sync.Mutex
	habit entity.Habit

	streakUpdates int
	lastBest      int
	lastTotal     int
}

func newHabitRepoMock() *habitRepoMock {
	return &habitRepoMock{habit: testHabit}
}

func (m *habitRepoMock) Create(ctx context.Context, habit *entity.Habit) (uuid.UUID, error) {
	switch m.state {
	case stateUserNotFoundError:
		return uuid.UUID{}, errorvalues.ErrOwnerNotFound
	case stateUserHasHabitError:
		return uuid.UUID{}, errorvalues.ErrUserHasHabit
	case stateDBError:
		return uuid.UUID{}, errors.New("db error")
	default:
		return habitID, nil
	}
}

func (m *habitRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error) {
	switch m.state {
	case stateHabitNotFoundError:
		return nil, errorvalues.ErrHabitNotFound
	case stateDBError:
		return nil, errors.New("db error")
	case stateWrongOwner:
		h := m.snapshotHabit()
		h.UserID = uuid.New()
		return &h, nil
	default:
		h := m.snapshotHabit()
		return &h, nil
	}
}

func (m *habitRepoMock) snapshotHabit() entity.Habit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.habit
}

func (m *habitRepoMock) GetByUserID(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*entity.Habit, error) {
	switch m.state {
	case stateDBError:
		return nil, errors.New("db error")
	default:
		h := m.snapshotHabit()
		return []*entity.Habit{&h}, nil
	}
}

func (m *habitRepoMock) Update(ctx context.Context, habit *entity.Habit) error {
	switch m.state {
	case stateDBError:
		return errors.New("db error")
	case stateHabitNotFoundError:
		return errorvalues.ErrHabitNotFound
	default:
		m.mu.Lock()
		m.habit.Title = habit.Title
		m.habit.Description = habit.Description
		m.mu.Unlock()
		return nil
	}
}

func (m *habitRepoMock) SetArchived(ctx context.Context, id uuid.UUID, archived bool) error {
	switch m.state {
	case stateDBError:
		return errors.New("db error")
	case stateHabitNotFoundError:
		return errorvalues.ErrHabitNotFound
	default:
		m.mu.Lock()
		m.habit.IsArchived = archived
		m.mu.Unlock()
		return nil
	}
}

func (m *habitRepoMock) UpdateStreakCache(ctx context.Context, id uuid.UUID, bestStreak, totalCompletions int, lastCompletion *time.Time) error {
	if m.state == stateDBError {
		return errors.New("db error")
	}
	m.mu.Lock()
	m.streakUpdates++
	m.lastBest = bestStreak
	m.lastTotal = totalCompletions
	m.mu.Unlock()
	return nil
}

func (m *habitRepoMock) streakCacheState() (updates, best, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streakUpdates, m.lastBest, m.lastTotal
}

func (m *habitRepoMock) Delete(ctx context.Context, id uuid.UUID) error {
	switch m.state {
	case stateDBError:
		return errors.New("db error")
	case stateHabitNotFoundError:
		return errorvalues.ErrHabitNotFound
	default:
		return nil
	}
}

type rulesRepoMock struct {
	state mockState
	mu    sync.Mutex
	rules []entity.RecurrenceRule
}

func (m *rulesRepoMock) Create(ctx context.Context, rule *entity.RecurrenceRule) (uuid.UUID, error) {
	switch m.state {
	case stateHabitNotFoundError:
		return uuid.UUID{}, errorvalues.ErrHabitNotFound
	case stateDBError:
		return uuid.UUID{}, errors.New("db error")
	default:
		stored := *rule
		stored.ID = uuid.New()
		m.mu.Lock()
		m.rules = append(m.rules, stored)
		m.mu.Unlock()
		return stored.ID, nil
	}
}

func (m *rulesRepoMock) GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.RecurrenceRule, error) {
	if m.state == stateDBError {
		return nil, errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.RecurrenceRule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

type completionsRepoMock struct {
	state  mockState
	mu     sync.Mutex
	nextID int64
	recs   []entity.CompletionRecord
}

func (m *completionsRepoMock) Create(ctx context.Context, rec *entity.CompletionRecord) (int64, error) {
	if m.state == stateDBError {
		return 0, errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	stored := *rec
	stored.ID = m.nextID
	stored.LoggedAt = time.Now()
	m.recs = append(m.recs, stored)
	return stored.ID, nil
}

func (m *completionsRepoMock) GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionRecord, error) {
	if m.state == stateDBError {
		return nil, errors.New("db error")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.CompletionRecord, len(m.recs))
	copy(out, m.recs)
	return out, nil
}

func (m *completionsRepoMock) GetByDayRange(ctx context.Context, habitID uuid.UUID, fromKey, toKey string) ([]entity.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.CompletionRecord, 0)
	for _, r := range m.recs {
		if r.DayKey >= fromKey && r.DayKey <= toKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *completionsRepoMock) GetForDay(ctx context.Context, habitID uuid.UUID, dayKey string) ([]entity.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.CompletionRecord, 0)
	for _, r := range m.recs {
		if r.DayKey == dayKey {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *completionsRepoMock) DeleteLatestCompleted(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.recs) - 1; i >= 0; i-- {
		if m.recs[i].DayKey == dayKey && m.recs[i].Completed {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return errorvalues.ErrNothingToRemove
}

func (m *completionsRepoMock) DeleteForDay(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recs[:0]
	for _, r := range m.recs {
		if r.DayKey != dayKey {
			kept = append(kept, r)
		}
	}
	m.recs = kept
	return nil
}

func (m *completionsRepoMock) DeleteSkip(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recs {
		if r.DayKey == dayKey && r.Skipped {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return errorvalues.ErrRecordNotFound
}

func (m *completionsRepoMock) UpsertDayTotal(ctx context.Context, rec *entity.CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.recs {
		if r.DayKey == rec.DayKey && !r.Skipped {
			m.recs[i].Completed = rec.Completed
			m.recs[i].Duration = rec.Duration
			m.recs[i].Quantity = rec.Quantity
			m.recs[i].LoggedAt = time.Now()
			return nil
		}
	}
	m.nextID++
	stored := *rec
	stored.ID = m.nextID
	stored.LoggedAt = time.Now()
	m.recs = append(m.recs, stored)
	return nil
}

func (m *completionsRepoMock) CountCompleted(ctx context.Context, habitID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.recs {
		if r.Completed {
			count++
		}
	}
	return count, nil
}

func (m *completionsRepoMock) LastCompletionDate(ctx context.Context, habitID uuid.UUID) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, r := range m.recs {
		if r.Completed && (last == nil || r.Date.After(*last)) {
			d := r.Date
			last = &d
		}
	}
	return last, nil
}
