package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerJobReasonDeadlineExceeded = "deadline_exceeded"
	SchedulerJobReasonCanceled         = "canceled"
	SchedulerJobReasonError            = "error"
)

// SchedulerMetrics instrument background maintenance jobs.
type SchedulerMetrics struct {
	runs      *prometheus.CounterVec
	errors    *prometheus.CounterVec
	timeouts  *prometheus.CounterVec
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	lag       prometheus.Histogram
}

func NewSchedulerMetrics() (*SchedulerMetrics, error) {
	return NewSchedulerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func NewSchedulerMetricsWithRegisterer(reg prometheus.Registerer) (*SchedulerMetrics, error) {
	m := &SchedulerMetrics{}
	var err error
	if m.runs, err = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dfund_scheduler_job_runs_total",
		Help: "Scheduler job executions.",
	}, []string{"job"})); err != nil {
		return nil, err
	}
	if m.errors, err = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dfund_scheduler_job_errors_total",
		Help: "Scheduler job failures by reason.",
	}, []string{"job", "reason"})); err != nil {
		return nil, err
	}
	if m.timeouts, err = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dfund_scheduler_job_timeouts_total",
		Help: "Scheduler jobs that hit their deadline.",
	}, []string{"job"})); err != nil {
		return nil, err
	}
	if m.processed, err = registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dfund_scheduler_job_processed_total",
		Help: "Rows handled by scheduler jobs.",
	}, []string{"job"})); err != nil {
		return nil, err
	}
	if m.duration, err = registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dfund_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})); err != nil {
		return nil, err
	}
	if m.lag, err = registerOrReuse(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dfund_scheduler_run_loop_lag_seconds",
		Help:    "Delay between the planned and actual start of a scheduler tick.",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60},
	})); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(job, schedulerErrorReason(err)).Inc()
}

func (m *SchedulerMetrics) AddProcessed(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.processed.WithLabelValues(job).Add(float64(n))
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil {
		return
	}
	m.lag.Observe(d.Seconds())
}

func schedulerErrorReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SchedulerJobReasonDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return SchedulerJobReasonCanceled
	default:
		return SchedulerJobReasonError
	}
}
