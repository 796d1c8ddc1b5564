package repository

import (
	"context"
	"errors"
	"log"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/cadence/internal/error_values"
	"github.com/limbo/cadence/pkg/cleanup"
	"github.com/limbo/cadence/pkg/entity"
)

// RulesRepository stores recurrence rule versions. The goal union is kept as
// a jsonb column; the scalar fields get plain columns for filtering.
type RulesRepository struct {
	conn PgConnection
}

func NewRulesRepo(cfg DBConfig) *RulesRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for rulesRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for rulesRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing rules pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &RulesRepository{
		conn: pool,
	}
}

func NewRulesRepoWithConn(conn PgConnection) *RulesRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for rulesRepo: " + err.Error())
	}
	return &RulesRepository{
		conn: conn,
	}
}

func (rr *RulesRepository) Create(ctx context.Context, rule *entity.RecurrenceRule) (uuid.UUID, error) {
	if rule == nil {
		return uuid.UUID{}, errors.New("rule is nil")
	}
	goalJSON, err := sonic.Marshal(rule.Goal)
	if err != nil {
		return uuid.UUID{}, errors.New("marshalling goal error: " + err.Error())
	}
	var id uuid.UUID
	row := rr.conn.QueryRow(ctx, `INSERT INTO recurrence_rules
		(habit_id, effective_from, repeats_per_day, follow_up, tracking, target_duration, target_quantity, quantity_unit, goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id;`,
		rule.HabitID,
		rule.EffectiveFrom,
		rule.RepeatsPerDay,
		rule.FollowUp,
		string(rule.Tracking),
		rule.TargetDuration,
		rule.TargetQuantity,
		rule.QuantityUnit,
		goalJSON,
	)
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation
			case "23503":
				return uuid.UUID{}, errorvalues.ErrHabitNotFound
			}
		}
		return uuid.UUID{}, errors.New("creating rule db error: " + err.Error())
	}
	return id, nil
}

func (rr *RulesRepository) GetByHabitID(ctx context.Context, habitID uuid.UUID) ([]entity.RecurrenceRule, error) {
	rows, err := rr.conn.Query(ctx, `SELECT id, habit_id, effective_from, repeats_per_day, follow_up, tracking,
		target_duration, target_quantity, quantity_unit, goal, created_at
		FROM recurrence_rules WHERE habit_id = $1 ORDER BY effective_from;`, habitID)
	if err != nil {
		return nil, errors.New("getting rules by habit error: " + err.Error())
	}
	defer rows.Close()
	rules := make([]entity.RecurrenceRule, 0, 2)
	for rows.Next() {
		var rule entity.RecurrenceRule
		var tracking string
		var goalJSON []byte
		err = rows.Scan(
			&rule.ID,
			&rule.HabitID,
			&rule.EffectiveFrom,
			&rule.RepeatsPerDay,
			&rule.FollowUp,
			&tracking,
			&rule.TargetDuration,
			&rule.TargetQuantity,
			&rule.QuantityUnit,
			&goalJSON,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, errors.New("rule row parsing error: " + err.Error())
		}
		rule.Tracking = entity.TrackingType(tracking)
		if err = sonic.Unmarshal(goalJSON, &rule.Goal); err != nil {
			return nil, errors.New("unmarshalling goal error: " + err.Error())
		}
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected rule rows error: " + rows.Err().Error())
	}
	return rules, nil
}
