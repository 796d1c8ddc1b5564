package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/pkg/cleanup"
	"github.com/limbo/cadence/pkg/entity"
)

// CompletionsRepository is the persisted ledger. Records are keyed by the
// habit and a derived local-day key; the key never changes after insert.
type CompletionsRepository struct {
	conn PgConnection
}

func NewCompletionsRepo(cfg DBConfig) *CompletionsRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for completionsRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for completionsRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing completions pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &CompletionsRepository{
		conn: pool,
	}
}

func NewCompletionsRepoWithConn(conn PgConnection) *CompletionsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for completionsRepo: " + err.Error())
	}
	return &CompletionsRepository{
		conn: conn,
	}
}

const completionColumns = `id, habit_id, date, day_key, completed, skipped, duration, quantity, logged_at`

func (cr *CompletionsRepository) Create(ctx context.Context, rec *entity.CompletionRecord) (int64, error) {
	if rec == nil {
		return 0, errors.New("record is nil")
	}
	var id int64
	row := cr.conn.QueryRow(ctx, `INSERT INTO completion_records
		(habit_id, date, day_key, completed, skipped, duration, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id;`,
		rec.HabitID,
		rec.Date,
		rec.DayKey,
		rec.Completed,
		rec.Skipped,
		rec.Duration,
		rec.Quantity,
	)
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation
			case "23503":
				return 0, errorvalues.ErrHabitNotFound
			}
		}
		return 0, errors.New("creating completion record error: " + err.Error())
	}
	return id, nil
}

func (cr *CompletionsRepository) GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionRecord, error) {
	rows, err := cr.conn.Query(ctx,
		`SELECT `+completionColumns+` FROM completion_records WHERE habit_id = $1 ORDER BY date;`,
		habitID,
	)
	if err != nil {
		return nil, errors.New("getting completions by habit error: " + err.Error())
	}
	return scanCompletions(rows)
}

func (cr *CompletionsRepository) GetByDayRange(ctx context.Context, habitID uuid.UUID, fromKey, toKey string) ([]entity.CompletionRecord, error) {
	rows, err := cr.conn.Query(ctx,
		`SELECT `+completionColumns+` FROM completion_records WHERE habit_id = $1 AND day_key >= $2 AND day_key <= $3 ORDER BY date;`,
		habitID,
		fromKey,
		toKey,
	)
	if err != nil {
		return nil, errors.New("getting completions for period error: " + err.Error())
	}
	return scanCompletions(rows)
}

func (cr *CompletionsRepository) GetForDay(ctx context.Context, habitID uuid.UUID, dayKey string) ([]entity.CompletionRecord, error) {
	rows, err := cr.conn.Query(ctx,
		`SELECT `+completionColumns+` FROM completion_records WHERE habit_id = $1 AND day_key = $2 ORDER BY logged_at;`,
		habitID,
		dayKey,
	)
	if err != nil {
		return nil, errors.New("getting completions for day error: " + err.Error())
	}
	return scanCompletions(rows)
}

func (cr *CompletionsRepository) DeleteLatestCompleted(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	ct, err := cr.conn.Exec(ctx, `DELETE FROM completion_records WHERE id = (
		SELECT id FROM completion_records
		WHERE habit_id = $1 AND day_key = $2 AND completed = TRUE
		ORDER BY logged_at DESC LIMIT 1
	);`, habitID, dayKey)
	if err != nil {
		return errors.New("deleting latest completion error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrNothingToRemove
	}
	return nil
}

func (cr *CompletionsRepository) DeleteForDay(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	_, err := cr.conn.Exec(ctx, `DELETE FROM completion_records WHERE habit_id = $1 AND day_key = $2;`, habitID, dayKey)
	if err != nil {
		return errors.New("deleting day records error: " + err.Error())
	}
	return nil
}

func (cr *CompletionsRepository) DeleteSkip(ctx context.Context, habitID uuid.UUID, dayKey string) error {
	ct, err := cr.conn.Exec(ctx, `DELETE FROM completion_records WHERE habit_id = $1 AND day_key = $2 AND skipped = TRUE;`, habitID, dayKey)
	if err != nil {
		return errors.New("deleting skip record error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrRecordNotFound
	}
	return nil
}

// UpsertDayTotal keeps duration/quantity days on a single record holding the
// running total. The old total is dropped and rewritten in one transaction,
// repetition days may hold several rows per day so a unique index can't back
// a plain upsert here.
func (cr *CompletionsRepository) UpsertDayTotal(ctx context.Context, rec *entity.CompletionRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	tx, err := cr.conn.Begin(ctx)
	if err != nil {
		return errors.New("upserting day total error: " + err.Error())
	}
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx, `DELETE FROM completion_records WHERE habit_id = $1 AND day_key = $2 AND skipped = FALSE;`,
		rec.HabitID, rec.DayKey)
	if err != nil {
		return errors.New("upserting day total error: " + err.Error())
	}
	_, err = tx.Exec(ctx, `INSERT INTO completion_records
		(habit_id, date, day_key, completed, skipped, duration, quantity)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6);`,
		rec.HabitID,
		rec.Date,
		rec.DayKey,
		rec.Completed,
		rec.Duration,
		rec.Quantity,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation
			case "23503":
				return errorvalues.ErrHabitNotFound
			}
		}
		return errors.New("upserting day total error: " + err.Error())
	}
	if err = tx.Commit(ctx); err != nil {
		return errors.New("upserting day total error: " + err.Error())
	}
	return nil
}

func (cr *CompletionsRepository) CountCompleted(ctx context.Context, habitID uuid.UUID) (int, error) {
	row := cr.conn.QueryRow(ctx, `SELECT COUNT(*) FROM completion_records WHERE habit_id = $1 AND completed = TRUE;`, habitID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, errors.New("error counting completions: " + err.Error())
	}
	return count, nil
}

func (cr *CompletionsRepository) LastCompletionDate(ctx context.Context, habitID uuid.UUID) (*time.Time, error) {
	row := cr.conn.QueryRow(ctx,
		`SELECT date FROM completion_records WHERE habit_id = $1 AND completed = TRUE ORDER BY date DESC LIMIT 1;`,
		habitID,
	)
	var date time.Time
	if err := row.Scan(&date); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.New("getting last completion date error: " + err.Error())
	}
	return &date, nil
}

func scanCompletions(rows pgx.Rows) ([]entity.CompletionRecord, error) {
	defer rows.Close()
	result := make([]entity.CompletionRecord, 0, 8)
	for rows.Next() {
		var rec entity.CompletionRecord
		err := rows.Scan(
			&rec.ID,
			&rec.HabitID,
			&rec.Date,
			&rec.DayKey,
			&rec.Completed,
			&rec.Skipped,
			&rec.Duration,
			&rec.Quantity,
			&rec.LoggedAt,
		)
		if err != nil {
			return nil, errors.New("completion row parsing error: " + err.Error())
		}
		result = append(result, rec)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected completion rows error: " + rows.Err().Error())
	}
	return result, nil
}
