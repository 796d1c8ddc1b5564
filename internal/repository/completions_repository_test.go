package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/internal/repository"
	"github.com/limbo/cadence/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
)

func testRecord() *entity.CompletionRecord {
	return &entity.CompletionRecord{
		HabitID:   uuid.New(),
		Date:      time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC),
		DayKey:    "2024-01-05",
		Completed: true,
	}
}

func TestCreateCompletion(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	rec := testRecord()
	query := regexp.QuoteMeta(`INSERT INTO completion_records`)
	t.Run("successfully created", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Skipped, rec.Duration, rec.Quantity).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(41)))
		id, err := repo.Create(ctx, rec)
		assert.NoError(t, err)
		assert.Equal(t, int64(41), id)
	})
	t.Run("habit fk violation", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Skipped, rec.Duration, rec.Quantity).
			WillReturnError(&pgconn.PgError{Code: "23503"})
		_, err := repo.Create(ctx, rec)
		assert.ErrorIs(t, err, errorvalues.ErrHabitNotFound)
	})
	t.Run("nil record", func(t *testing.T) {
		_, err := repo.Create(ctx, nil)
		assert.Error(t, err)
	})
}

func TestGetCompletionsByDayRange(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	rec := testRecord()
	rec.ID = 7
	query := regexp.QuoteMeta(`WHERE habit_id = $1 AND day_key >= $2 AND day_key <= $3 ORDER BY date;`)
	cols := []string{"id", "habit_id", "date", "day_key", "completed", "skipped", "duration", "quantity", "logged_at"}
	t.Run("found", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, "2024-01-01", "2024-01-31").
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				rec.ID, rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Skipped, rec.Duration, rec.Quantity, rec.LoggedAt,
			))
		result, err := repo.GetByDayRange(ctx, rec.HabitID, "2024-01-01", "2024-01-31")
		assert.NoError(t, err)
		assert.Len(t, result, 1)
		assert.Equal(t, *rec, result[0])
	})
	t.Run("empty", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, "2024-02-01", "2024-02-29").
			WillReturnRows(pgxmock.NewRows(cols))
		result, err := repo.GetByDayRange(ctx, rec.HabitID, "2024-02-01", "2024-02-29")
		assert.NoError(t, err)
		assert.Empty(t, result)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, "2024-01-01", "2024-01-31").
			WillReturnError(errors.New("db error"))
		_, err := repo.GetByDayRange(ctx, rec.HabitID, "2024-01-01", "2024-01-31")
		assert.Error(t, err)
	})
}

func TestGetCompletionsForDay(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	rec := testRecord()
	rec.ID = 3
	query := regexp.QuoteMeta(`WHERE habit_id = $1 AND day_key = $2 ORDER BY logged_at;`)
	cols := []string{"id", "habit_id", "date", "day_key", "completed", "skipped", "duration", "quantity", "logged_at"}
	t.Run("found", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(rec.HabitID, rec.DayKey).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				rec.ID, rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Skipped, rec.Duration, rec.Quantity, rec.LoggedAt,
			))
		result, err := repo.GetForDay(ctx, rec.HabitID, rec.DayKey)
		assert.NoError(t, err)
		assert.Len(t, result, 1)
		assert.Equal(t, *rec, result[0])
	})
}

func TestDeleteLatestCompleted(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	habitID := uuid.New()
	query := regexp.QuoteMeta(`DELETE FROM completion_records WHERE id = (`)
	t.Run("deleted", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(habitID, "2024-01-05").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		err := repo.DeleteLatestCompleted(ctx, habitID, "2024-01-05")
		assert.NoError(t, err)
	})
	t.Run("nothing to remove", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(habitID, "2024-01-05").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		err := repo.DeleteLatestCompleted(ctx, habitID, "2024-01-05")
		assert.ErrorIs(t, err, errorvalues.ErrNothingToRemove)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(habitID, "2024-01-05").
			WillReturnError(errors.New("db error"))
		err := repo.DeleteLatestCompleted(ctx, habitID, "2024-01-05")
		assert.Error(t, err)
	})
}

func TestDeleteSkip(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	habitID := uuid.New()
	query := regexp.QuoteMeta(`DELETE FROM completion_records WHERE habit_id = $1 AND day_key = $2 AND skipped = TRUE;`)
	t.Run("deleted", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(habitID, "2024-01-05").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		err := repo.DeleteSkip(ctx, habitID, "2024-01-05")
		assert.NoError(t, err)
	})
	t.Run("no skip record", func(t *testing.T) {
		conn.ExpectExec(query).
			WithArgs(habitID, "2024-01-05").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		err := repo.DeleteSkip(ctx, habitID, "2024-01-05")
		assert.ErrorIs(t, err, errorvalues.ErrRecordNotFound)
	})
}

func TestUpsertDayTotal(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	rec := testRecord()
	rec.Completed = false
	rec.Duration = 25 * 60
	deleteQuery := regexp.QuoteMeta(`DELETE FROM completion_records WHERE habit_id = $1 AND day_key = $2 AND skipped = FALSE;`)
	insertQuery := regexp.QuoteMeta(`INSERT INTO completion_records`)
	t.Run("upserted", func(t *testing.T) {
		conn.ExpectBegin()
		conn.ExpectExec(deleteQuery).
			WithArgs(rec.HabitID, rec.DayKey).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		conn.ExpectExec(insertQuery).
			WithArgs(rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Duration, rec.Quantity).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		conn.ExpectCommit()
		err := repo.UpsertDayTotal(ctx, rec)
		assert.NoError(t, err)
	})
	t.Run("habit fk violation", func(t *testing.T) {
		conn.ExpectBegin()
		conn.ExpectExec(deleteQuery).
			WithArgs(rec.HabitID, rec.DayKey).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		conn.ExpectExec(insertQuery).
			WithArgs(rec.HabitID, rec.Date, rec.DayKey, rec.Completed, rec.Duration, rec.Quantity).
			WillReturnError(&pgconn.PgError{Code: "23503"})
		conn.ExpectRollback()
		err := repo.UpsertDayTotal(ctx, rec)
		assert.ErrorIs(t, err, errorvalues.ErrHabitNotFound)
	})
	t.Run("nil record", func(t *testing.T) {
		err := repo.UpsertDayTotal(ctx, nil)
		assert.Error(t, err)
	})
}

func TestCountCompleted(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	habitID := uuid.New()
	query := regexp.QuoteMeta(`SELECT COUNT(*) FROM completion_records WHERE habit_id = $1 AND completed = TRUE;`)
	t.Run("counted", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(habitID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(17))
		count, err := repo.CountCompleted(ctx, habitID)
		assert.NoError(t, err)
		assert.Equal(t, 17, count)
	})
	t.Run("db error", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(habitID).
			WillReturnError(errors.New("db error"))
		_, err := repo.CountCompleted(ctx, habitID)
		assert.Error(t, err)
	})
}

func TestLastCompletionDate(t *testing.T) {
	conn, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	repo := repository.NewCompletionsRepoWithConn(conn)
	habitID := uuid.New()
	query := regexp.QuoteMeta(`SELECT date FROM completion_records WHERE habit_id = $1 AND completed = TRUE ORDER BY date DESC LIMIT 1;`)
	t.Run("found", func(t *testing.T) {
		date := time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC)
		conn.ExpectQuery(query).
			WithArgs(habitID).
			WillReturnRows(pgxmock.NewRows([]string{"date"}).AddRow(date))
		result, err := repo.LastCompletionDate(ctx, habitID)
		assert.NoError(t, err)
		if assert.NotNil(t, result) {
			assert.Equal(t, date, *result)
		}
	})
	t.Run("no completions", func(t *testing.T) {
		conn.ExpectQuery(query).
			WithArgs(habitID).
			WillReturnError(pgx.ErrNoRows)
		result, err := repo.LastCompletionDate(ctx, habitID)
		assert.NoError(t, err)
		assert.Nil(t, result)
	})
}
