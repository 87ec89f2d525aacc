package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/botica-erp/botica-erp/internal/shared"
)

type memoryUserRepo struct {
	users map[string]*User
}

func (m *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, shared.ErrInvalidCredentials
	}
	copied := *user
	return &copied, nil
}

func newAuthService(t *testing.T, users ...*User) *Service {
	t.Helper()
	repo := &memoryUserRepo{users: make(map[string]*User)}
	for _, u := range users {
		repo.users[u.Username] = u
	}
	return NewService(repo, "test-secret", time.Hour)
}

func testUser(t *testing.T, username, password string, role shared.Role, branchID int64) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           7,
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		BranchID:     branchID,
		IsActive:     true,
	}
}

func TestAuthenticate(t *testing.T) {
	user := testUser(t, "maria", "s3cret", shared.RolePharmacist, 2)
	svc := newAuthService(t, user)

	got, err := svc.Authenticate(context.Background(), "maria", "s3cret")
	require.NoError(t, err)
	require.Equal(t, int64(7), got.ID)

	_, err = svc.Authenticate(context.Background(), "maria", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody", "s3cret")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	user := testUser(t, "maria", "s3cret", shared.RolePharmacist, 2)
	user.IsActive = false
	svc := newAuthService(t, user)

	_, err := svc.Authenticate(context.Background(), "maria", "s3cret")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenRoundTrip(t *testing.T) {
	user := testUser(t, "maria", "s3cret", shared.RolePharmacist, 2)
	svc := newAuthService(t, user)

	now := time.Now().UTC()
	token, expiresAt, err := svc.IssueToken(user, now)
	require.NoError(t, err)
	require.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	actor, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), actor.UserID)
	require.Equal(t, "maria", actor.Username)
	require.Equal(t, shared.RolePharmacist, actor.Role)
	require.Equal(t, int64(2), actor.BranchID)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	user := testUser(t, "maria", "s3cret", shared.RolePharmacist, 2)
	svc := newAuthService(t, user)

	token, _, err := svc.IssueToken(user, time.Now().UTC())
	require.NoError(t, err)

	other := NewService(&memoryUserRepo{users: map[string]*User{}}, "other-secret", time.Hour)
	_, err = other.ParseToken(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	user := testUser(t, "maria", "s3cret", shared.RoleAdmin, 0)
	svc := newAuthService(t, user)

	token, _, err := svc.IssueToken(user, time.Now().UTC().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)
	_, err := svc.ParseToken("not-a-token")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}
