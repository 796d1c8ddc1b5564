package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/cadence/pkg/entity"
)

type RegisterRequest struct {
	Name     string `validate:"required,alphanum_underscore,min=3,max=100"`
	Password string `validate:"required,min=8,max=72"`
}

type CreateHabitRequest struct {
	Title       string `validate:"required,min=1,max=200"`
	Description string `validate:"max=2000"`
	StartDate   time.Time
	IsBadHabit  bool
}

type UpdateHabitRequest struct {
	Title       string `validate:"required,min=1,max=200"`
	Description string `validate:"max=2000"`
}

// CreateRuleRequest carries one new rule version. Exactly one of the goal
// shapes must be filled, matching Kind.
type CreateRuleRequest struct {
	EffectiveFrom  time.Time
	RepeatsPerDay  int    `validate:"min=0,max=100"`
	FollowUp       bool
	Tracking       string `validate:"required,oneof=repetitions duration quantity"`
	TargetDuration int    `validate:"min=0"`
	TargetQuantity int    `validate:"min=0"`
	QuantityUnit   string `validate:"max=50"`
	Goal           entity.Goal
}

type PaginationOpts struct {
	Limit  int
	Offset int
}

type UserServiceI interface {
	// Validates user's credentials, creates new row in database. Returns user's data with ID
	Register(ctx context.Context, req *RegisterRequest) (*entity.User, error)
	// Compares given credentials. If ok, give back user's data with ID.
	Login(ctx context.Context, name, password string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByName(ctx context.Context, name string) (*entity.User, error)
	DeleteAccount(ctx context.Context, id uuid.UUID, password string) error
}

type HabitsServiceI interface {
	// Creates a habit together with its default every-day rule version
	CreateHabit(ctx context.Context, uid uuid.UUID, req *CreateHabitRequest) (*entity.Habit, error)
	GetHabit(ctx context.Context, habitID, userID uuid.UUID) (*entity.Habit, error)
	GetUserHabits(ctx context.Context, uid uuid.UUID, pagination PaginationOpts) ([]*entity.Habit, error)
	UpdateHabit(ctx context.Context, habitID, userID uuid.UUID, req *UpdateHabitRequest) error
	ArchiveHabit(ctx context.Context, habitID, userID uuid.UUID, archived bool) error
	DeleteHabit(ctx context.Context, habitID, userID uuid.UUID) error
	// Appends a rule version and drops every cached activity value of the habit
	AddRuleVersion(ctx context.Context, habitID, userID uuid.UUID, req *CreateRuleRequest) (*entity.RecurrenceRule, error)
	GetRuleVersions(ctx context.Context, habitID, userID uuid.UUID) ([]entity.RecurrenceRule, error)
}

type TrackingServiceI interface {
	// Adds one repetition, or removes the latest when the day is already full
	Toggle(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error
	// Wipes the day's records and marks it skipped
	Skip(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error
	// Removes the skip record only, prior completions are not restored
	Unskip(ctx context.Context, habitID, userID uuid.UUID, date time.Time) error
	// Replaces the day's duration total, seconds
	LogDuration(ctx context.Context, habitID, userID uuid.UUID, date time.Time, seconds int) error
	// Replaces the day's quantity total
	LogQuantity(ctx context.Context, habitID, userID uuid.UUID, date time.Time, amount int) error
}

type StatsServiceI interface {
	DayStatus(ctx context.Context, habitID, userID uuid.UUID, date time.Time) (*entity.DayStatus, error)
	History(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) ([]entity.DayStatus, error)
	Streaks(ctx context.Context, habitID, userID uuid.UUID) (*entity.StreakData, error)
	Score(ctx context.Context, habitID, userID uuid.UUID) (*entity.ScoreBreakdown, error)
	NextDue(ctx context.Context, habitID, userID uuid.UUID) (string, error)
}
