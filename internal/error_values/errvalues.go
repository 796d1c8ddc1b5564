package errorvalues

import "errors"

var (
	ErrUserExists       = errors.New("such user already exists")
	ErrUserNotFound     = errors.New("user doesn't exists")
	ErrWrongCredentials = errors.New("wrong name or password")
	ErrInvalidToken     = errors.New("invalid auth token")

	ErrOwnerNotFound = errors.New("habit owner doesn't exists")
	ErrUserHasHabit  = errors.New("user already has habit with such title")
	ErrHabitNotFound = errors.New("habit doesn't exists")
	ErrWrongOwner    = errors.New("habit belongs to another user")
	ErrHabitArchived = errors.New("habit is archived")

	ErrRuleNotFound    = errors.New("recurrence rule doesn't exists")
	ErrInvalidGoal     = errors.New("goal definition is invalid")
	ErrDateNotAllowed  = errors.New("date is not allowed for this operation")
	ErrDaySkipped      = errors.New("day is marked as skipped")
	ErrNothingToRemove = errors.New("no completion to remove for this day")
	ErrRecordNotFound  = errors.New("completion record doesn't exists")
	ErrWrongTracking   = errors.New("operation doesn't match habit tracking type")
)
