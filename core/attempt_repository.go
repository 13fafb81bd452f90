package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRecord is the timed relationship between one user and one challenge.
// FinishAt is nil while the clock runs and set exactly once on a solve.
type AttemptRecord struct {
	UserID   string
	TaskID   string
	StartAt  time.Time
	FinishAt *time.Time
}

// SolverRecord is the dashboard projection of a finished attempt.
type SolverRecord struct {
	Username string     `json:"username"`
	StartAt  time.Time  `json:"start_at"`
	FinishAt *time.Time `json:"finish_at"`
}

// AttemptRepository persists attempt rows. Start relies on the storage-level
// uniqueness constraint on (user_id, task_id) to reject concurrent
// duplicates; callers classify that rejection with isUniqueViolation.
type AttemptRepository interface {
	Get(ctx context.Context, userID, taskID string) (*AttemptRecord, error)
	Start(ctx context.Context, userID, taskID string, at time.Time) error
	Finish(ctx context.Context, userID, taskID string, at time.Time) error
	ListForUser(ctx context.Context, userID string) ([]AttemptRecord, error)
	ListSolvers(ctx context.Context, taskID string) ([]SolverRecord, error)
}

// PgAttemptRepository implements AttemptRepository using pgxpool.
type PgAttemptRepository struct {
	db *pgxpool.Pool
}

func NewPgAttemptRepository(db *pgxpool.Pool) *PgAttemptRepository {
	return &PgAttemptRepository{db: db}
}

func (r *PgAttemptRepository) Get(ctx context.Context, userID, taskID string) (*AttemptRecord, error) {
	const q = `SELECT user_id, task_id, start_at, finish_at FROM attempts WHERE user_id=$1 AND task_id=$2`
	var a AttemptRecord
	err := r.db.QueryRow(ctx, q, userID, taskID).Scan(&a.UserID, &a.TaskID, &a.StartAt, &a.FinishAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PgAttemptRepository) Start(ctx context.Context, userID, taskID string, at time.Time) error {
	const q = `INSERT INTO attempts (user_id, task_id, start_at) VALUES ($1,$2,$3)`
	_, err := r.db.Exec(ctx, q, userID, taskID, at)
	return err
}

func (r *PgAttemptRepository) Finish(ctx context.Context, userID, taskID string, at time.Time) error {
	const q = `UPDATE attempts SET finish_at=$3 WHERE user_id=$1 AND task_id=$2 AND finish_at IS NULL`
	_, err := r.db.Exec(ctx, q, userID, taskID, at)
	return err
}

func (r *PgAttemptRepository) ListForUser(ctx context.Context, userID string) ([]AttemptRecord, error) {
	const q = `SELECT user_id, task_id, start_at, finish_at FROM attempts WHERE user_id=$1 ORDER BY start_at`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AttemptRecord
	for rows.Next() {
		var a AttemptRecord
		if err := rows.Scan(&a.UserID, &a.TaskID, &a.StartAt, &a.FinishAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListSolvers returns finished attempts joined with usernames, fastest first.
func (r *PgAttemptRepository) ListSolvers(ctx context.Context, taskID string) ([]SolverRecord, error) {
	const q = `
SELECT u.username, a.start_at, a.finish_at
FROM attempts a
JOIN users u ON u.id = a.user_id
WHERE a.task_id=$1 AND a.finish_at IS NOT NULL
ORDER BY a.finish_at - a.start_at`
	rows, err := r.db.Query(ctx, q, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SolverRecord
	for rows.Next() {
		var s SolverRecord
		if err := rows.Scan(&s.Username, &s.StartAt, &s.FinishAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
