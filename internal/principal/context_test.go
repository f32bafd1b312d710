package principal

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), snowflake.ID(42))
	got, ok := UserIDFromContext(ctx)
	if !ok || got != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", got, ok)
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), 0)); ok {
		t.Fatal("expected zero id to be treated as missing")
	}
}

func TestSessionIDFromStringValue(t *testing.T) {
	ctx := context.WithValue(context.Background(), SessionContextKey{}, " 1234 ")
	got, ok := SessionIDFromContext(ctx)
	if !ok || got != 1234 {
		t.Fatalf("expected 1234, got %v (ok=%v)", got, ok)
	}
}
