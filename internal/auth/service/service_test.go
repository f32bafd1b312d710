package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/auth/repository"
	"github.com/dfund/marketplace/internal/auth/token"
	"github.com/dfund/marketplace/internal/clock"
	"github.com/dfund/marketplace/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWelcomer struct {
	users []*authdomain.User
}

func (w *recordingWelcomer) Welcome(_ context.Context, user *authdomain.User) {
	w.users = append(w.users, user)
}

type fixture struct {
	svc      authdomain.Service
	clock    *clock.FakeClock
	welcomer *recordingWelcomer
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	welcomer := &recordingWelcomer{}
	svc := New(Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Tokens:      token.New("test-secret", time.Hour, fake.Now),
		Clock:       fake,
		Welcomer:    welcomer,
	})
	return fixture{svc: svc, clock: fake, welcomer: welcomer}
}

func register(t *testing.T, svc authdomain.Service, email string) *authdomain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:     email,
		Password:  "correct-password",
		FirstName: "Alice",
		LastName:  "Martin",
		Role:      authdomain.RoleTalent,
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	user := register(t, f.svc, " Alice@Example.com ")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "correct-password", user.PasswordHash)
	assert.Len(t, f.welcomer.users, 1)

	_, err := f.svc.Register(context.Background(), authdomain.RegisterRequest{
		Email:     "alice@example.com",
		Password:  "another-password",
		FirstName: "A",
		LastName:  "B",
		Role:      authdomain.RoleMentor,
	})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	base := authdomain.RegisterRequest{
		Email:     "bob@example.com",
		Password:  "long-enough",
		FirstName: "Bob",
		LastName:  "Durand",
		Role:      authdomain.RoleInvestor,
	}

	tests := []struct {
		name   string
		mutate func(*authdomain.RegisterRequest)
		want   error
	}{
		{"bad email", func(r *authdomain.RegisterRequest) { r.Email = "nope" }, authdomain.ErrInvalidEmail},
		{"short password", func(r *authdomain.RegisterRequest) { r.Password = "short" }, authdomain.ErrPasswordTooShort},
		{"missing name", func(r *authdomain.RegisterRequest) { r.FirstName = " " }, authdomain.ErrInvalidName},
		{"unknown role", func(r *authdomain.RegisterRequest) { r.Role = "admin" }, authdomain.ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := f.svc.Register(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.welcomer.users)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	register(t, f.svc, "alice@example.com")

	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLoginIssuesUsableTokens(t *testing.T) {
	f := newFixture(t)
	user := register(t, f.svc, "alice@example.com")

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), result.Session.UserID)
	assert.NotEmpty(t, result.RawToken)
	assert.NotEmpty(t, result.AccessToken)

	session, err := f.svc.Authenticate(context.Background(), result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)

	session, err = f.svc.ValidateAccessToken(context.Background(), result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.SessionID, session.ID)

	_, err = f.svc.ValidateAccessToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	register(t, f.svc, "alice@example.com")

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), result.RawToken))

	_, err = f.svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
	_, err = f.svc.ValidateAccessToken(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	assert.ErrorIs(t, f.svc.Logout(context.Background(), ""), authdomain.ErrInvalidSession)
}

func TestAuthenticateExpired(t *testing.T) {
	f := newFixture(t)
	register(t, f.svc, "alice@example.com")

	result, err := f.svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	f.clock.Advance(sessionTTL + time.Minute)
	_, err = f.svc.Authenticate(context.Background(), result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)
	user := register(t, f.svc, "alice@example.com")

	found, err := f.svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Martin", found.FullName())

	_, err = f.svc.GetUser(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}
