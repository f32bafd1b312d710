package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/clock"
	obsmetrics "github.com/dfund/marketplace/internal/observability/metrics"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"github.com/dfund/marketplace/pkg/db"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type schedulerFixture struct {
	sched    *Scheduler
	db       *gorm.DB
	clock    *clock.FakeClock
	registry *prometheus.Registry
	node     *snowflake.Node
}

func newSchedulerFixture(t *testing.T, cfg Config) *schedulerFixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}, &oppdomain.Opportunity{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics, err := obsmetrics.NewSchedulerMetricsWithRegisterer(registry)
	require.NoError(t, err)

	fake := clock.NewFakeClock(baseTime)
	sched, err := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fake,
		Config:  cfg,
		Metrics: metrics,
	})
	require.NoError(t, err)

	return &schedulerFixture{sched: sched, db: conn, clock: fake, registry: registry, node: node}
}

func (f *schedulerFixture) insertSession(t *testing.T, expiresAt time.Time, revokedAt *time.Time) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&authdomain.Session{
		ID:               id,
		UserID:           snowflake.ID(1),
		SessionTokenHash: id.String(),
		ExpiresAt:        expiresAt,
		RevokedAt:        revokedAt,
		CreatedAt:        baseTime.Add(-30 * 24 * time.Hour),
		LastSeenAt:       baseTime.Add(-30 * 24 * time.Hour),
	}).Error)
	return id
}

func (f *schedulerFixture) insertOpportunity(t *testing.T, status oppdomain.Status, expiresAt *time.Time) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	require.NoError(t, f.db.Create(&oppdomain.Opportunity{
		ID:             id,
		OwnerID:        snowflake.ID(1),
		Name:           "Listing " + id.String(),
		Slug:           "listing-" + id.String(),
		Type:           oppdomain.TypeEvent,
		Status:         status,
		ExpirationDate: expiresAt,
		CreatedAt:      baseTime.Add(-48 * time.Hour),
		UpdatedAt:      baseTime.Add(-48 * time.Hour),
	}).Error)
	return id
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPurgeSessionsRemovesOnlyStaleRows(t *testing.T) {
	f := newSchedulerFixture(t, Config{BatchSize: 2, SessionRetention: 24 * time.Hour})

	longAgo := baseTime.Add(-10 * 24 * time.Hour)
	recent := baseTime.Add(-2 * time.Hour)

	stale1 := f.insertSession(t, longAgo, nil)
	stale2 := f.insertSession(t, longAgo, nil)
	revoked := f.insertSession(t, baseTime.Add(24*time.Hour), &longAgo)
	recentlyExpired := f.insertSession(t, recent, nil)
	recentlyRevoked := f.insertSession(t, baseTime.Add(24*time.Hour), &recent)
	live := f.insertSession(t, baseTime.Add(24*time.Hour), nil)

	require.NoError(t, f.sched.runJob(context.Background(), JobPurgeSessions, time.Minute, f.sched.PurgeSessionsJob))

	var remaining []snowflake.ID
	require.NoError(t, f.db.Model(&authdomain.Session{}).Order("id").Pluck("id", &remaining).Error)
	assert.ElementsMatch(t, []snowflake.ID{recentlyExpired, recentlyRevoked, live}, remaining)
	assert.NotContains(t, remaining, stale1)
	assert.NotContains(t, remaining, stale2)
	assert.NotContains(t, remaining, revoked)

	assert.Equal(t, float64(3), counterValue(t, f.registry, "dfund_scheduler_job_processed_total", map[string]string{"job": JobPurgeSessions}))
}

func TestCloseExpiredOpportunities(t *testing.T) {
	f := newSchedulerFixture(t, Config{BatchSize: 1})

	yesterday := baseTime.Add(-24 * time.Hour)
	tomorrow := baseTime.Add(24 * time.Hour)

	expiredActive := f.insertOpportunity(t, oppdomain.StatusActive, &yesterday)
	expiredPending := f.insertOpportunity(t, oppdomain.StatusPending, &yesterday)
	expiredDraft := f.insertOpportunity(t, oppdomain.StatusDraft, &yesterday)
	future := f.insertOpportunity(t, oppdomain.StatusActive, &tomorrow)
	noExpiry := f.insertOpportunity(t, oppdomain.StatusActive, nil)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	statuses := map[snowflake.ID]oppdomain.Status{}
	var rows []oppdomain.Opportunity
	require.NoError(t, f.db.Find(&rows).Error)
	for _, row := range rows {
		statuses[row.ID] = row.Status
	}
	assert.Equal(t, oppdomain.StatusClosed, statuses[expiredActive])
	assert.Equal(t, oppdomain.StatusClosed, statuses[expiredPending])
	assert.Equal(t, oppdomain.StatusDraft, statuses[expiredDraft])
	assert.Equal(t, oppdomain.StatusActive, statuses[future])
	assert.Equal(t, oppdomain.StatusActive, statuses[noExpiry])

	f.clock.Advance(48 * time.Hour)
	require.NoError(t, f.sched.RunOnce(context.Background()))
	var reloaded oppdomain.Opportunity
	require.NoError(t, f.db.First(&reloaded, "id = ?", future).Error)
	assert.Equal(t, oppdomain.StatusClosed, reloaded.Status)
}

func TestEnabledJobsFilter(t *testing.T) {
	f := newSchedulerFixture(t, Config{EnabledJobs: []string{JobPurgeSessions}})

	yesterday := baseTime.Add(-24 * time.Hour)
	id := f.insertOpportunity(t, oppdomain.StatusActive, &yesterday)

	require.NoError(t, f.sched.RunOnce(context.Background()))

	var reloaded oppdomain.Opportunity
	require.NoError(t, f.db.First(&reloaded, "id = ?", id).Error)
	assert.Equal(t, oppdomain.StatusActive, reloaded.Status)
	assert.True(t, f.sched.isJobEnabled("PURGE_SESSIONS"))
	assert.False(t, f.sched.isJobEnabled(JobCloseExpiredOpportunities))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	f := newSchedulerFixture(t, Config{})

	err := f.sched.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	assert.Equal(t, float64(1), counterValue(t, f.registry, "dfund_scheduler_job_timeouts_total", map[string]string{"job": "timeout_job"}))
	assert.Equal(t, float64(1), counterValue(t, f.registry, "dfund_scheduler_job_errors_total", map[string]string{
		"job":    "timeout_job",
		"reason": obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}))
}

func TestRunJobWrapsFailures(t *testing.T) {
	f := newSchedulerFixture(t, Config{})
	boom := errors.New("boom")

	err := f.sched.runJob(context.Background(), "failing_job", time.Second, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing_job")
	assert.Equal(t, float64(1), counterValue(t, f.registry, "dfund_scheduler_job_runs_total", map[string]string{"job": "failing_job"}))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.RunInterval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.JobTimeout)
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
