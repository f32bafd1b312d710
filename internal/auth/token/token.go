// Package token issues and validates HS256 access tokens bound to a session.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dfund/marketplace/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	issuer = "dfund"

	// Used only outside production when AUTH_JWT_SECRET is unset.
	developmentSecret = "dfund-development-secret-change-me"
)

var (
	ErrMissingSecret = errors.New("auth_jwt_secret_required")
	ErrEmptyToken    = errors.New("empty_token")
)

// Claims carries the session identity inside an access token.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg config.Config, log *zap.Logger) (*Issuer, error) {
	secret := cfg.AuthJWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		log.Warn("AUTH_JWT_SECRET not set, using development secret")
		secret = developmentSecret
	}
	return New(secret, cfg.AuthJWTTTL, time.Now), nil
}

// New builds an issuer from an explicit secret.
func New(secret string, ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}
}

// TTL is the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the session, capped at notAfter when it is earlier
// than the default expiry.
func (i *Issuer) Issue(userID, sessionID snowflake.ID, notAfter time.Time) (string, time.Time, error) {
	now := i.now().UTC()
	expiresAt := now.Add(i.ttl)
	if !notAfter.IsZero() && notAfter.Before(expiresAt) {
		expiresAt = notAfter
	}

	claims := &Claims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates signature, expiry and issuer and returns the ids it carries.
func (i *Issuer) Parse(raw string) (userID, sessionID snowflake.ID, err error) {
	if raw == "" {
		return 0, 0, ErrEmptyToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return 0, 0, errors.New("token is not valid")
	}

	userID, err = snowflake.ParseString(claims.UserID)
	if err != nil {
		return 0, 0, fmt.Errorf("user_id claim: %w", err)
	}
	sessionID, err = snowflake.ParseString(claims.SessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("session_id claim: %w", err)
	}
	return userID, sessionID, nil
}
