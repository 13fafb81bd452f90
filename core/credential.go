package core

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// sessionTTL is how long a minted session token stays valid.
const sessionTTL = 24 * time.Hour

// CredentialService owns users and sessions: password hashing, verification,
// and opaque session tokens.
type CredentialService struct {
	users    UserRepository
	sessions SessionRepository
	now      func() time.Time
}

func NewCredentialService(users UserRepository, sessions SessionRepository) *CredentialService {
	return &CredentialService{users: users, sessions: sessions, now: time.Now}
}

// Register creates a new runner account and returns its id.
// A taken username is surfaced as ErrUsernameTaken, not a generic failure.
func (s *CredentialService) Register(ctx context.Context, username, password string) (string, error) {
	u := UserRecord{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: "",
		IsRunner:     true,
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	u.PasswordHash = string(hash)

	if err := s.users.Create(ctx, u); err != nil {
		if isUniqueViolation(err) {
			return "", ErrUsernameTaken
		}
		return "", err
	}
	return u.ID, nil
}

// Authenticate verifies username/password. Unknown user and wrong password
// both return ErrInvalidCredentials so usernames cannot be enumerated.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (*UserRecord, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CreateSession mints a fresh opaque token for the user. Every successful
// login or registration gets its own session; older ones stay valid until
// they expire.
func (s *CredentialService) CreateSession(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	rec := SessionRecord{
		SessionID: token,
		UserID:    userID,
		ExpiredAt: s.now().Add(sessionTTL),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return "", err
	}
	return token, nil
}

// ResolveSession maps a token to its user. Absent, unknown, and expired
// tokens all resolve to anonymous (nil, nil); only a store failure is an
// error.
func (s *CredentialService) ResolveSession(ctx context.Context, token string) (*UserRecord, error) {
	if token == "" {
		return nil, nil
	}
	rec, err := s.sessions.Find(ctx, token)
	if err != nil {
		return nil, err
	}
	if rec == nil || !s.now().Before(rec.ExpiredAt) {
		return nil, nil
	}
	u, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	return u, nil
}
