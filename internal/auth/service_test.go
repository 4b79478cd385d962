package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/quorum-app/quorum/internal/shared"
)

type stubRepo struct {
	creds    *Credentials
	sessions map[string]int64
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*Credentials, error) {
	if s.creds == nil || s.creds.Username != username {
		return nil, shared.ErrNotFound
	}
	return s.creds, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	repo := &stubRepo{creds: &Credentials{UserID: 1, Username: "jdoe", PasswordHash: hashed(t, "correct horse"), IsActive: true}}
	svc := NewService(repo)

	creds, err := svc.Authenticate(context.Background(), "jdoe", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, int64(1), creds.UserID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := &stubRepo{creds: &Credentials{UserID: 1, Username: "jdoe", PasswordHash: hashed(t, "correct horse"), IsActive: true}}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "jdoe", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := &stubRepo{creds: &Credentials{UserID: 1, Username: "jdoe", PasswordHash: hashed(t, "correct horse"), IsActive: false}}
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "jdoe", "correct horse")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
