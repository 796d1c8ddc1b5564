package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/limbo/cadence/pkg/entity"
)

type UsersRepositoryI interface {
	// Creates new user in database
	Create(ctx context.Context, user *entity.User) error
	// Looks up user by name. Can be used for login
	FindByName(ctx context.Context, name string) (*entity.User, error)
	// Looks up user by uid. Can be used for authorization middleware
	FindByID(ctx context.Context, uid uuid.UUID) (*entity.User, error)
	// Updates user's info
	Update(ctx context.Context, user *entity.User) error
	// Deletes user
	Delete(ctx context.Context, uid uuid.UUID) error
}

type HabitsRepositoryI interface {
	// Creates new habit. Only UserID, Title, Description, StartDate and
	// IsBadHabit are read from the given habit
	Create(ctx context.Context, habit *entity.Habit) (uuid.UUID, error)
	// Searches habit with given id
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error)
	// Lists habits owned by user with uid. Requires pagination params provided
	GetByUserID(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*entity.Habit, error)
	// Updates habit's editable fields by ID
	Update(ctx context.Context, habit *entity.Habit) error
	// Flips the archived flag
	SetArchived(ctx context.Context, id uuid.UUID, archived bool) error
	// Stores the derived streak projection columns. These are a display
	// cache, never a source of truth
	UpdateStreakCache(ctx context.Context, id uuid.UUID, bestStreak, totalCompletions int, lastCompletion *time.Time) error
	// Deletes habit with id
	Delete(ctx context.Context, id uuid.UUID) error
}

type RulesRepositoryI interface {
	// Appends a new rule version. Rules are never updated in place
	Create(ctx context.Context, rule *entity.RecurrenceRule) (uuid.UUID, error)
	// Lists all rule versions of a habit ordered by effective_from
	GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.RecurrenceRule, error)
}

type CompletionsRepositoryI interface {
	// Inserts one ledger record
	Create(ctx context.Context, rec *entity.CompletionRecord) (int64, error)
	// Lists the whole ledger of a habit ordered by date
	GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionRecord, error)
	// Lists records of a habit for an inclusive day-key range
	GetByDayRange(ctx context.Context, habitID uuid.UUID, fromKey, toKey string) ([]entity.CompletionRecord, error)
	// Lists records of one day
	GetForDay(ctx context.Context, habitID uuid.UUID, dayKey string) ([]entity.CompletionRecord, error)
	// Removes the most recently logged completed record of the day
	DeleteLatestCompleted(ctx context.Context, habitID uuid.UUID, dayKey string) error
	// Removes every record of the day (used before inserting a skip)
	DeleteForDay(ctx context.Context, habitID uuid.UUID, dayKey string) error
	// Removes only the skip record of the day, leaving nothing behind
	DeleteSkip(ctx context.Context, habitID uuid.UUID, dayKey string) error
	// Replaces the day's duration/quantity totals on the single upserted
	// record of the day
	UpsertDayTotal(ctx context.Context, rec *entity.CompletionRecord) error
	// Returns count of completed records of a habit
	CountCompleted(ctx context.Context, habitID uuid.UUID) (int, error)
	// Returns date of the latest completed record, nil when none
	LastCompletionDate(ctx context.Context, habitID uuid.UUID) (*time.Time, error)
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
}

func (pgcfg *PGCfg) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
}
