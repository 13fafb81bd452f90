package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRecord is the persisted projection of a user.
type UserRecord struct {
	ID           string
	Username     string
	PasswordHash string
	IsRunner     bool
	IsAdmin      bool
	CreatedAt    time.Time
}

// UserRepository defines persistence operations for users.
// Lookups return (nil, nil) when the row is absent; a non-nil error always
// means the store itself failed.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*UserRecord, error)
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	Create(ctx context.Context, u UserRecord) error
	HasAdmin(ctx context.Context) (bool, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

func (r *PgUserRepository) FindByID(ctx context.Context, id string) (*UserRecord, error) {
	const q = `SELECT id, username, password_hash, is_runner, is_admin, created_at FROM users WHERE id=$1`
	return r.findOne(ctx, q, id)
}

func (r *PgUserRepository) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	const q = `SELECT id, username, password_hash, is_runner, is_admin, created_at FROM users WHERE username=$1`
	return r.findOne(ctx, q, username)
}

func (r *PgUserRepository) findOne(ctx context.Context, q string, arg any) (*UserRecord, error) {
	var u UserRecord
	err := r.db.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsRunner, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PgUserRepository) Create(ctx context.Context, u UserRecord) error {
	const q = `INSERT INTO users (id, username, password_hash, is_runner, is_admin) VALUES ($1,$2,$3,$4,$5)`
	_, err := r.db.Exec(ctx, q, u.ID, u.Username, u.PasswordHash, u.IsRunner, u.IsAdmin)
	return err
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE is_admin LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
