package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRecord maps an opaque token to a user with an absolute expiry.
type SessionRecord struct {
	SessionID string
	UserID    string
	ExpiredAt time.Time
}

// SessionRepository persists session tokens. Expired rows are never purged
// here; validity is a predicate evaluated at lookup time.
type SessionRepository interface {
	Create(ctx context.Context, s SessionRecord) error
	Find(ctx context.Context, sessionID string) (*SessionRecord, error)
}

// PgSessionRepository implements SessionRepository using pgxpool.
type PgSessionRepository struct {
	db *pgxpool.Pool
}

func NewPgSessionRepository(db *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{db: db}
}

func (r *PgSessionRepository) Create(ctx context.Context, s SessionRecord) error {
	const q = `INSERT INTO sessions (session_id, user_id, expired_at) VALUES ($1,$2,$3)`
	_, err := r.db.Exec(ctx, q, s.SessionID, s.UserID, s.ExpiredAt)
	return err
}

func (r *PgSessionRepository) Find(ctx context.Context, sessionID string) (*SessionRecord, error) {
	const q = `SELECT session_id, user_id, expired_at FROM sessions WHERE session_id=$1`
	var s SessionRecord
	err := r.db.QueryRow(ctx, q, sessionID).Scan(&s.SessionID, &s.UserID, &s.ExpiredAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
