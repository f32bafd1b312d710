package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	ValidateAccessToken(ctx context.Context, accessToken string) (*Session, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
}

// Welcomer is notified after a successful registration.
type Welcomer interface {
	Welcome(ctx context.Context, user *User)
}

type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Session     *SessionView
	RawToken    string
	AccessToken string
	ExpiresAt   time.Time
	SessionID   snowflake.ID
}
