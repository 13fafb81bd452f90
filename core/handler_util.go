package core

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError sends the unified error payload. Every error body carries a
// message field.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": code, "message": message})
}

// respondCoreError maps the core error taxonomy onto HTTP statuses. Anything
// unclassified is treated as a transient store failure: logged with context,
// reported generically.
func respondCoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrChallengeNotFound):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "challenge not found")
	case errors.Is(err, ErrAlreadyStarted):
		respondError(c, http.StatusConflict, "CONFLICT", "challenge already started")
	case errors.Is(err, ErrChallengeFrozen):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "freezed challenges have no clock to start")
	case errors.Is(err, ErrClockNotStarted):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "start the challenge before submitting")
	case errors.Is(err, ErrAlreadySolved):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "challenge already solved")
	case errors.Is(err, ErrAttachmentLocked):
		respondError(c, http.StatusForbidden, "FORBIDDEN", "attachment not available yet")
	case errors.Is(err, ErrNoAttachment):
		respondError(c, http.StatusNotFound, "NOT_FOUND", "challenge has no attachment")
	case errors.Is(err, ErrUsernameTaken):
		respondError(c, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
	case errors.Is(err, ErrInvalidCredentials):
		respondError(c, http.StatusBadRequest, "INVALID_CREDENTIALS", "wrong username or password")
	default:
		log.Printf("store failure on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "temporary backend failure, try again")
	}
}
