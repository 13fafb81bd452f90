package core

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskFlags is the only challenge state that lives in storage.
type TaskFlags struct {
	IsOpen    bool
	IsFreezed bool
}

// TaskStateRepository persists per-challenge visibility flags.
type TaskStateRepository interface {
	// Register inserts the task closed and unfrozen; an existing row is
	// left untouched so reloads never clobber admin state.
	Register(ctx context.Context, taskID string) error
	Flags(ctx context.Context, taskID string) (*TaskFlags, error)
	AllFlags(ctx context.Context) (map[string]TaskFlags, error)
	SetOpen(ctx context.Context, taskID string, open bool) error
	SetFreezed(ctx context.Context, taskID string, freezed bool) error
}

// PgTaskStateRepository implements TaskStateRepository using pgxpool.
type PgTaskStateRepository struct {
	db *pgxpool.Pool
}

func NewPgTaskStateRepository(db *pgxpool.Pool) *PgTaskStateRepository {
	return &PgTaskStateRepository{db: db}
}

func (r *PgTaskStateRepository) Register(ctx context.Context, taskID string) error {
	const q = `INSERT INTO tasks (id, is_open, is_freezed) VALUES ($1, FALSE, FALSE) ON CONFLICT (id) DO NOTHING`
	_, err := r.db.Exec(ctx, q, taskID)
	return err
}

func (r *PgTaskStateRepository) Flags(ctx context.Context, taskID string) (*TaskFlags, error) {
	const q = `SELECT is_open, is_freezed FROM tasks WHERE id=$1`
	var f TaskFlags
	if err := r.db.QueryRow(ctx, q, taskID).Scan(&f.IsOpen, &f.IsFreezed); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *PgTaskStateRepository) AllFlags(ctx context.Context) (map[string]TaskFlags, error) {
	const q = `SELECT id, is_open, is_freezed FROM tasks`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]TaskFlags{}
	for rows.Next() {
		var id string
		var f TaskFlags
		if err := rows.Scan(&id, &f.IsOpen, &f.IsFreezed); err != nil {
			return nil, err
		}
		out[id] = f
	}
	return out, rows.Err()
}

func (r *PgTaskStateRepository) SetOpen(ctx context.Context, taskID string, open bool) error {
	const q = `UPDATE tasks SET is_open=$2 WHERE id=$1`
	_, err := r.db.Exec(ctx, q, taskID, open)
	return err
}

func (r *PgTaskStateRepository) SetFreezed(ctx context.Context, taskID string, freezed bool) error {
	const q = `UPDATE tasks SET is_freezed=$2 WHERE id=$1`
	_, err := r.db.Exec(ctx, q, taskID, freezed)
	return err
}
