package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dfund/marketplace/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	to      []string
	subject string
	body    string
}

type recordingProvider struct {
	mu   sync.Mutex
	err  error
	sent chan sentMessage
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{sent: make(chan sentMessage, 16)}
}

func (p *recordingProvider) Send(_ context.Context, to []string, subject, body string) error {
	p.mu.Lock()
	err := p.err
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.sent <- sentMessage{to: to, subject: subject, body: body}
	return nil
}

func (p *recordingProvider) wait(t *testing.T) sentMessage {
	t.Helper()
	select {
	case msg := <-p.sent:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return sentMessage{}
	}
}

func staticMessage(to string) BuildFunc {
	return func(context.Context) (Message, error) {
		return Message{To: []string{to}, Subject: "hello", HTML: "<p>hi</p>"}, nil
	}
}

func TestDispatcherDelivers(t *testing.T) {
	provider := newRecordingProvider()
	d := NewDispatcher(config.NotificationConfig{QueueSize: 4, Workers: 1}, provider, nil, zap.NewNop())
	d.Start()
	defer d.Stop(context.Background())

	id, err := d.Enqueue(context.Background(), EventUserWelcome, staticMessage("a@dfund.test"))
	require.NoError(t, err)
	assert.Len(t, id, 26)

	msg := provider.wait(t)
	assert.Equal(t, []string{"a@dfund.test"}, msg.to)
	assert.Equal(t, "hello", msg.subject)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	provider := newRecordingProvider()
	// Workers are never started so the queue only fills.
	d := NewDispatcher(config.NotificationConfig{QueueSize: 1, Workers: 1}, provider, nil, zap.NewNop())

	_, err := d.Enqueue(context.Background(), EventUserWelcome, staticMessage("a@dfund.test"))
	require.NoError(t, err)
	_, err = d.Enqueue(context.Background(), EventUserWelcome, staticMessage("b@dfund.test"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestDispatcherSurvivesFailures(t *testing.T) {
	provider := newRecordingProvider()
	d := NewDispatcher(config.NotificationConfig{QueueSize: 4, Workers: 1}, provider, nil, zap.NewNop())
	d.Start()
	defer d.Stop(context.Background())

	_, err := d.Enqueue(context.Background(), EventUserWelcome, func(context.Context) (Message, error) {
		return Message{}, errors.New("lookup failed")
	})
	require.NoError(t, err)
	_, err = d.Enqueue(context.Background(), EventUserWelcome, func(context.Context) (Message, error) {
		panic("template exploded")
	})
	require.NoError(t, err)
	_, err = d.Enqueue(context.Background(), EventUserWelcome, staticMessage("c@dfund.test"))
	require.NoError(t, err)

	msg := provider.wait(t)
	assert.Equal(t, []string{"c@dfund.test"}, msg.to)
}

func TestDispatcherStopDrainsAndRejects(t *testing.T) {
	provider := newRecordingProvider()
	d := NewDispatcher(config.NotificationConfig{QueueSize: 4, Workers: 2}, provider, nil, zap.NewNop())
	for _, to := range []string{"a@dfund.test", "b@dfund.test"} {
		_, err := d.Enqueue(context.Background(), EventUserWelcome, staticMessage(to))
		require.NoError(t, err)
	}
	d.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.Len(t, provider.sent, 2)

	_, err := d.Enqueue(context.Background(), EventUserWelcome, staticMessage("late@dfund.test"))
	assert.ErrorIs(t, err, ErrDispatcherStopped)
	assert.NoError(t, d.Stop(ctx))
}
