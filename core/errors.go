package core

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Sentinel errors forming the failure taxonomy exposed by the core.
// Handlers map these onto HTTP status codes; anything not in this list is
// treated as a transient store failure and reported generically.
var (
	// ErrInvalidCredentials is returned when username/password is wrong.
	// Unknown user and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned on registration when the username exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrChallengeNotFound covers both unknown ids and closed challenges,
	// so a closed challenge cannot be probed before launch.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrAlreadyStarted is returned when an attempt row already exists.
	ErrAlreadyStarted = errors.New("challenge already started")

	// ErrChallengeFrozen rejects starting a frozen challenge; freeze mode
	// has no individual clock, so there is nothing to start.
	ErrChallengeFrozen = errors.New("challenge is freezed")

	// ErrClockNotStarted rejects submissions before start on timed challenges.
	ErrClockNotStarted = errors.New("clock not started")

	// ErrAlreadySolved rejects submissions after a recorded solve.
	ErrAlreadySolved = errors.New("challenge already solved")

	// ErrAttachmentLocked rejects attachment downloads before the
	// description is visible (not started, not frozen).
	ErrAttachmentLocked = errors.New("attachment not available yet")

	// ErrNoAttachment is returned when the challenge ships no files.
	ErrNoAttachment = errors.New("challenge has no attachment")
)

// isUniqueViolation reports whether err looks like a storage-level unique
// constraint rejection.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

// isNoRows reports whether err means "row absent" rather than "store broken".
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
