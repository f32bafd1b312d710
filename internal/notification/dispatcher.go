package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dfund/marketplace/internal/config"
	obscontext "github.com/dfund/marketplace/internal/observability/context"
	"github.com/dfund/marketplace/internal/observability/metrics"
	"github.com/dfund/marketplace/internal/providers/email"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	resultQueued  = "queued"
	resultDropped = "dropped"
	resultSent    = "sent"
	resultFailed  = "failed"
)

var (
	ErrDispatcherStopped = errors.New("notification_dispatcher_stopped")
	ErrQueueFull         = errors.New("notification_queue_full")
)

// Message is a rendered email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// BuildFunc resolves recipients and renders a message. It runs on a worker,
// never on the caller's goroutine.
type BuildFunc func(ctx context.Context) (Message, error)

type job struct {
	id        string
	eventType string
	requestID string
	build     BuildFunc
}

// Dispatcher delivers notifications from a bounded queue. Enqueue never
// blocks: when the queue is full the event is dropped and counted.
type Dispatcher struct {
	log      *zap.Logger
	provider email.Provider
	metrics  *metrics.Metrics
	timeout  time.Duration
	workers  int

	queue chan job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewDispatcher(cfg config.NotificationConfig, provider email.Provider, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		log:      log.Named("notification.dispatcher"),
		provider: provider,
		metrics:  m,
		timeout:  timeout,
		workers:  workers,
		queue:    make(chan job, size),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop closes the queue and waits for in-flight deliveries until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn("notification queue not drained before shutdown", zap.Int("pending", len(d.queue)))
		return ctx.Err()
	}
}

// Enqueue schedules a notification and returns its event ID.
func (d *Dispatcher) Enqueue(ctx context.Context, eventType string, build BuildFunc) (string, error) {
	j := job{
		id:        ulid.Make().String(),
		eventType: eventType,
		requestID: obscontext.RequestIDFromContext(ctx),
		build:     build,
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.metrics.RecordNotification(ctx, eventType, resultDropped)
		return "", ErrDispatcherStopped
	}

	select {
	case d.queue <- j:
		d.metrics.RecordNotification(ctx, eventType, resultQueued)
		return j.id, nil
	default:
		d.metrics.RecordNotification(ctx, eventType, resultDropped)
		d.log.Warn("notification queue full, dropping event",
			zap.String("event_id", j.id),
			zap.String("event_type", eventType),
		)
		return "", ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if j.requestID != "" {
		ctx = obscontext.WithRequestID(ctx, j.requestID)
	}

	log := d.log.With(
		zap.String("event_id", j.id),
		zap.String("event_type", j.eventType),
		zap.String("request_id", j.requestID),
	)

	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordNotification(ctx, j.eventType, resultFailed)
			log.Error("notification panicked", zap.Any("panic", r))
		}
	}()

	msg, err := j.build(ctx)
	if err != nil {
		d.metrics.RecordNotification(ctx, j.eventType, resultFailed)
		log.Warn("notification build failed", zap.Error(err))
		return
	}
	if err := d.provider.Send(ctx, msg.To, msg.Subject, msg.HTML); err != nil {
		d.metrics.RecordNotification(ctx, j.eventType, resultFailed)
		log.Warn("notification send failed", zap.Error(err))
		return
	}
	d.metrics.RecordNotification(ctx, j.eventType, resultSent)
	log.Debug("notification sent", zap.Int("recipients", len(msg.To)))
}
