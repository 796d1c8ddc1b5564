package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Name         string
	PasswordHash string
}

type Habit struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"uid"`
	Title              string     `json:"title"`
	Description        string     `json:"desc"`
	StartDate          time.Time  `json:"start_date"`
	IsBadHabit         bool       `json:"is_bad_habit"`
	IsArchived         bool       `json:"is_archived"`
	BestStreakEver     int        `json:"best_streak_ever"`
	TotalCompletions   int        `json:"total_completions"`
	LastCompletionDate *time.Time `json:"last_completion_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type TrackingType string

const (
	TrackRepetitions TrackingType = "repetitions"
	TrackDuration    TrackingType = "duration"
	TrackQuantity    TrackingType = "quantity"
)

type GoalKind string

const (
	GoalDaily   GoalKind = "daily"
	GoalWeekly  GoalKind = "weekly"
	GoalMonthly GoalKind = "monthly"
)

// DailyGoal holds exactly one active mode: EveryDay first, then DaysInterval,
// then SpecificDays (a repeating Monday-indexed weekday mask whose length is a
// multiple of 7, one block per week of the rotation).
type DailyGoal struct {
	EveryDay     bool   `json:"every_day"`
	DaysInterval int    `json:"days_interval"`
	SpecificDays []bool `json:"specific_days,omitempty"`
}

// WeeklyGoal is a Monday-indexed weekday mask, applied every week or every
// WeekInterval-th week counted from the rule's effective week.
type WeeklyGoal struct {
	EveryWeek    bool   `json:"every_week"`
	WeekInterval int    `json:"week_interval"`
	Weekdays     []bool `json:"weekdays"`
}

// MonthlyGoal is a 31-element day-of-month mask. Marked days past the end of
// a short month fall back to its last calendar day.
type MonthlyGoal struct {
	EveryMonth    bool   `json:"every_month"`
	MonthInterval int    `json:"month_interval"`
	MonthDays     []bool `json:"month_days"`
}

// Goal is a tagged union: exactly the field matching Kind is non-nil.
type Goal struct {
	Kind    GoalKind     `json:"kind"`
	Daily   *DailyGoal   `json:"daily,omitempty"`
	Weekly  *WeeklyGoal  `json:"weekly,omitempty"`
	Monthly *MonthlyGoal `json:"monthly,omitempty"`
}

// RecurrenceRule is one version of a habit's schedule. Rules are append-only:
// editing a schedule inserts a new version with a later EffectiveFrom, and the
// version with the latest EffectiveFrom on or before a query date wins.
type RecurrenceRule struct {
	ID             uuid.UUID    `json:"id"`
	HabitID        uuid.UUID    `json:"habit_id"`
	EffectiveFrom  time.Time    `json:"effective_from"`
	RepeatsPerDay  int          `json:"repeats_per_day"`
	FollowUp       bool         `json:"follow_up"`
	Tracking       TrackingType `json:"tracking"`
	TargetDuration int          `json:"target_duration,omitempty"`
	TargetQuantity int          `json:"target_quantity,omitempty"`
	QuantityUnit   string       `json:"quantity_unit,omitempty"`
	Goal           Goal         `json:"goal"`
	CreatedAt      time.Time    `json:"created_at"`
}

// CompletionRecord is one ledger entry. DayKey is derived from Date once at
// insert time and never changes afterwards; value fields may be updated.
type CompletionRecord struct {
	ID        int64     `json:"id"`
	HabitID   uuid.UUID `json:"habit_id"`
	Date      time.Time `json:"date"`
	DayKey    string    `json:"day_key"`
	Completed bool      `json:"completed"`
	Skipped   bool      `json:"skipped"`
	Duration  int       `json:"duration"`
	Quantity  int       `json:"quantity"`
	LoggedAt  time.Time `json:"logged_at"`
}

// StreakData is a derived projection, recomputed from the ledger on demand.
// BestStreakEver always equals the freshly computed LongestStreak.
type StreakData struct {
	CurrentStreak  int        `json:"current_streak"`
	LongestStreak  int        `json:"longest_streak"`
	BestStreakEver int        `json:"best_streak_ever"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
	IsActive       bool       `json:"is_active"`
}

type ScoreBreakdown struct {
	Score      int     `json:"score"`
	Base       float64 `json:"base"`
	Bonus      float64 `json:"bonus"`
	Expected   int     `json:"expected"`
	Actual     int     `json:"actual"`
	StreakDays int     `json:"streak_days"`
}

type DayStatus struct {
	Date      time.Time `json:"date"`
	DayKey    string    `json:"day_key"`
	Active    bool      `json:"active"`
	Satisfied bool      `json:"satisfied"`
	Skipped   bool      `json:"skipped"`
	Progress  int       `json:"progress"`
	Target    int       `json:"target"`
}
