// Package principal carries the authenticated caller through a request context.
package principal

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// UserContextKey is the request context key for the authenticated user ID.
type UserContextKey struct{}

// SessionContextKey is the request context key for the active session ID.
type SessionContextKey struct{}

// WithUserID stores the caller's user ID in the context.
func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// WithSessionID stores the caller's session ID in the context.
func WithSessionID(ctx context.Context, sessionID snowflake.ID) context.Context {
	return context.WithValue(ctx, SessionContextKey{}, sessionID)
}

// UserIDFromContext returns the caller's user ID, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return idFromValue(ctx.Value(UserContextKey{}))
}

// SessionIDFromContext returns the caller's session ID, if set.
func SessionIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return idFromValue(ctx.Value(SessionContextKey{}))
}

func idFromValue(value any) (snowflake.ID, bool) {
	switch typed := value.(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
