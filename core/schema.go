package core

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL creates the four tables the service owns. Statements are
// idempotent so the process can apply them on every boot.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_runner     BOOLEAN NOT NULL DEFAULT TRUE,
    is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id    TEXT NOT NULL REFERENCES users(id),
    expired_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
    id         TEXT PRIMARY KEY,
    is_open    BOOLEAN NOT NULL DEFAULT FALSE,
    is_freezed BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS attempts (
    user_id   TEXT NOT NULL REFERENCES users(id),
    task_id   TEXT NOT NULL REFERENCES tasks(id),
    start_at  TIMESTAMPTZ NOT NULL,
    finish_at TIMESTAMPTZ,
    PRIMARY KEY (user_id, task_id)
);
`

// EnsureSchema applies the DDL above. The composite primary key on attempts
// is what makes concurrent duplicate starts safe (see SubmissionEngine.Start).
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaDDL)
	return err
}
