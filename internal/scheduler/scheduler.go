// Package scheduler runs periodic maintenance over sessions and opportunities.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/dfund/marketplace/internal/audit/domain"
	authdomain "github.com/dfund/marketplace/internal/auth/domain"
	"github.com/dfund/marketplace/internal/clock"
	obsmetrics "github.com/dfund/marketplace/internal/observability/metrics"
	oppdomain "github.com/dfund/marketplace/internal/opportunity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Config   Config
	AuditSvc auditdomain.Service          `optional:"true"`
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
}

type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	metrics  *obsmetrics.SchedulerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name, s.cfg.BatchSize)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	s.metrics.AddProcessed(name, run.processedCount)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	// A deadline only means the batch loop will continue next tick.
	if errors.Is(err, context.DeadlineExceeded) {
		s.metrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobPurgeSessions, s.PurgeSessionsJob},
		{JobCloseExpiredOpportunities, s.CloseExpiredOpportunitiesJob},
	}

	var err error
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// isJobEnabled treats an empty allow-list as every job enabled.
func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), jobName) {
			return true
		}
	}
	return false
}

// PurgeSessionsJob deletes sessions that expired or were revoked more than
// SessionRetention ago.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ids []snowflake.ID
		if err := s.db.WithContext(ctx).
			Model(&authdomain.Session{}).
			Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
			Order("id ASC").
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&authdomain.Session{})
		if res.Error != nil {
			return res.Error
		}
		run.AddProcessed(int(res.RowsAffected))
		if len(ids) < s.cfg.BatchSize {
			return nil
		}
	}
}

// CloseExpiredOpportunitiesJob moves open listings past their expiration
// date to CLOSED. Applications are left untouched.
func (s *Scheduler) CloseExpiredOpportunitiesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	open := []oppdomain.Status{oppdomain.StatusActive, oppdomain.StatusPending}
	var jobErr error

	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(jobErr, err)
		}
		now := s.clock.Now()

		var ids []snowflake.ID
		if err := s.db.WithContext(ctx).
			Model(&oppdomain.Opportunity{}).
			Where("status IN ? AND expiration_date IS NOT NULL AND expiration_date <= ?", open, now).
			Order("expiration_date ASC").
			Limit(s.cfg.BatchSize).
			Pluck("id", &ids).Error; err != nil {
			return errors.Join(jobErr, err)
		}
		if len(ids) == 0 {
			return jobErr
		}

		closed := 0
		for _, id := range ids {
			res := s.db.WithContext(ctx).
				Model(&oppdomain.Opportunity{}).
				Where("id = ? AND status IN ?", id, open).
				Updates(map[string]any{
					"status":     oppdomain.StatusClosed,
					"updated_at": now,
				})
			if res.Error != nil {
				jobErr = errors.Join(jobErr, res.Error)
				s.logJobError(ctx, "scheduler.opportunity.close_failed", res.Error, zap.String("opportunity_id", id.String()))
				continue
			}
			if res.RowsAffected == 0 {
				continue
			}
			closed++
			run.AddProcessed(1)
			s.emitAudit(ctx, auditdomain.ActionOpportunityExpire, auditdomain.TargetTypeOpportunity, id, map[string]any{
				"status": string(oppdomain.StatusClosed),
			})
		}
		if closed == 0 || len(ids) < s.cfg.BatchSize {
			return jobErr
		}
	}
}

func (s *Scheduler) emitAudit(ctx context.Context, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	actorID := "scheduler"
	target := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, auditdomain.ActorTypeSystem, &actorID, action, targetType, &target, metadata); err != nil {
		s.logJobError(ctx, "scheduler.audit.failed", err, zap.String("action", action))
	}
}
