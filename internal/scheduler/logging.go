package scheduler

import (
	"context"
	"time"

	obscontext "github.com/dfund/marketplace/internal/observability/context"
	obslogger "github.com/dfund/marketplace/internal/observability/logger"
	"go.uber.org/zap"
)

type jobRun struct {
	job            string
	runID          string
	batchSize      int
	startedAt      time.Time
	processedCount int
	errorCount     int
}

type jobRunKey struct{}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) startJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: time.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithRequestID(ctx, "scheduler-"+run.runID)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	if run, ok := ctx.Value(jobRunKey{}).(*jobRun); ok {
		return run
	}
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Debug("scheduler.job.start",
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("batch_size", run.batchSize),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("error_count", run.errorCount),
	}
	log := s.logger(ctx)
	switch {
	case run.errorCount > 0:
		log.Warn("scheduler.job.finish", fields...)
	case run.processedCount > 0:
		log.Info("scheduler.job.finish", fields...)
	default:
		log.Debug("scheduler.job.finish", fields...)
	}
}

func (s *Scheduler) logJobError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	if run := jobRunFromContext(ctx); run != nil {
		run.IncError()
		fields = append(fields, zap.String("job", run.job), zap.String("run_id", run.runID))
	}
	fields = append(fields, zap.Error(err))
	s.logger(ctx).Warn(msg, fields...)
}
