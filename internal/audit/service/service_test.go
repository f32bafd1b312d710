package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	"github.com/dfund/marketplace/internal/audit/repository"
	"github.com/dfund/marketplace/internal/clock"
	obscontext "github.com/dfund/marketplace/internal/observability/context"
	"github.com/dfund/marketplace/internal/principal"
	"github.com/dfund/marketplace/pkg/db"
	"github.com/dfund/marketplace/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: fake,
	})
	return svc, fake
}

func ptr(v string) *string { return &v }

func TestAuditLogRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.AuditLog(context.Background(), auditdomain.ActorTypeUser, ptr("1"), " ", "application", ptr("2"), nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListReturnsOnlyCallerEntries(t *testing.T) {
	svc, fake := newTestService(t)

	ctx := obscontext.WithClient(obscontext.WithRequestID(context.Background(), "req-1"), "10.0.0.1", "test-agent")
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeUser, ptr("100"), auditdomain.ActionApplicationCreate,
			auditdomain.TargetTypeApplication, ptr("7"), map[string]any{"referral_code_used": "PARTNER-2026"}))
		fake.Advance(time.Second)
	}
	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeUser, ptr("200"), auditdomain.ActionApplicationCreate,
		auditdomain.TargetTypeApplication, ptr("8"), nil))

	callerCtx := principal.WithUserID(context.Background(), snowflake.ID(100))
	resp, err := svc.List(callerCtx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 2)
	assert.True(t, resp.HasMore)
	assert.NotEmpty(t, resp.NextPageToken)
	assert.True(t, resp.AuditLogs[0].CreatedAt.After(resp.AuditLogs[1].CreatedAt))

	first := resp.AuditLogs[0]
	assert.Equal(t, "100", *first.ActorID)
	assert.Equal(t, "10.0.0.1", *first.IPAddress)
	assert.Equal(t, "req-1", first.Metadata["request_id"])
	assert.Equal(t, "****2026", first.Metadata["referral_code_used"])

	next, err := svc.List(callerCtx, auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: resp.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, next.AuditLogs, 1)
	assert.False(t, next.HasMore)
}

func TestListValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrUnauthenticated)

	ctx := principal.WithUserID(context.Background(), snowflake.ID(1))
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}

func TestAuditLogFallsBackToContextActor(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := obscontext.WithActor(context.Background(), "user", "300")
	require.NoError(t, svc.AuditLog(ctx, "", nil, auditdomain.ActionOpportunityCreate, auditdomain.TargetTypeOpportunity, ptr("9"), nil))

	resp, err := svc.List(principal.WithUserID(context.Background(), snowflake.ID(300)), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, auditdomain.ActionOpportunityCreate, resp.AuditLogs[0].Action)
}
