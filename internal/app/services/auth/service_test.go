package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/app/services/auth"
	domainauth "stayhub/internal/domain/auth"
	domainuser "stayhub/internal/domain/user"
	"stayhub/internal/infra/security"
	"stayhub/internal/infra/storage/memory"
)

func newService(ttl time.Duration) *auth.Service {
	return &auth.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: ttl,
	}
}

func TestRegisterIssuesSessionAndHashesPassword(t *testing.T) {
	svc := newService(0)
	ctx := context.Background()

	result, err := svc.Register(ctx, auth.RegisterParams{
		Email:    "Marta@Example.com",
		Name:     "Marta",
		Password: "sturdy-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "marta@example.com", result.User.Email)
	assert.NotEqual(t, "sturdy-password", result.User.PasswordHash)
	assert.True(t, result.User.HasRole(domainuser.RoleGuest))
	assert.False(t, result.User.HasRole(domainuser.RoleHost))

	resolved, err := svc.ResolveToken(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resolved.User.ID)
}

func TestRegisterWantToHostGrantsHostRole(t *testing.T) {
	svc := newService(0)

	result, err := svc.Register(context.Background(), auth.RegisterParams{
		Email: "host@example.com", Name: "Hosty", Password: "sturdy-password", WantToHost: true,
	})
	require.NoError(t, err)
	assert.True(t, result.User.HasRole(domainuser.RoleHost))
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(0)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "A", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)

	_, err = svc.Register(ctx, auth.RegisterParams{Email: "", Name: "A", Password: "sturdy-password"})
	assert.ErrorIs(t, err, domainuser.ErrEmailRequired)

	_, err = svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "  ", Password: "sturdy-password"})
	assert.ErrorIs(t, err, domainuser.ErrNameRequired)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newService(0)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "A", Password: "sturdy-password"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterParams{Email: "A@B.com", Name: "B", Password: "sturdy-password"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)
}

func TestLogin(t *testing.T) {
	svc := newService(0)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "A", Password: "sturdy-password"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, auth.LoginParams{Email: "A@b.com", Password: "sturdy-password"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	_, err = svc.Login(ctx, auth.LoginParams{Email: "a@b.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, auth.LoginParams{Email: "nobody@b.com", Password: "sturdy-password"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc := newService(0)
	ctx := context.Background()

	result, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "A", Password: "sturdy-password"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))

	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestResolveTokenExpiredSession(t *testing.T) {
	svc := newService(time.Nanosecond)
	ctx := context.Background()

	result, err := svc.Register(ctx, auth.RegisterParams{Email: "a@b.com", Name: "A", Password: "sturdy-password"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.ResolveToken(ctx, result.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
