package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"cantiere/pkg/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMessage struct {
	routingKey string
	body       string
	traceID    string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (f *fakeSender) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	body, _ := json.Marshal(payload)
	f.sent = append(f.sent, sentMessage{routingKey, string(body), trace.FromContext(ctx)})
	return nil
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func TestDispatcher_DirectPublish(t *testing.T) {
	sender := &fakeSender{}
	repo := NewRepository(10)
	d := NewDispatcher(repo, sender, zap.NewNop())

	require.NoError(t, d.Publish("schedule.task.created", map[string]string{"task_id": "t1"}))
	require.Len(t, sender.sent, 1)
	assert.JSONEq(t, `{"task_id":"t1"}`, sender.sent[0].body)
	assert.Equal(t, 0, repo.Len())
}

func TestDispatcher_QueuesAndRedelivers(t *testing.T) {
	sender := &fakeSender{err: errors.New("channel closed")}
	repo := NewRepository(10)
	d := NewDispatcher(repo, sender, zap.NewNop())

	ctx := trace.WithContext(context.Background(), "trace-1")
	require.NoError(t, d.PublishWithContext(ctx, "schedule.task.updated", map[string]int{"progress": 40}))
	assert.Equal(t, 1, repo.Len())

	sender.fail(nil)
	d.processPendingEvents(context.Background())

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "schedule.task.updated", sender.sent[0].routingKey)
	assert.JSONEq(t, `{"progress":40}`, sender.sent[0].body)
	assert.Equal(t, "trace-1", sender.sent[0].traceID)
	assert.Equal(t, 0, repo.Len())
}

func TestDispatcher_FullOutboxReturnsError(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection reset")}
	d := NewDispatcher(NewRepository(1), sender, zap.NewNop())

	require.NoError(t, d.Publish("a", 1))
	assert.Error(t, d.Publish("b", 2))
}

func TestDispatcher_GivesUpAfterMaxRetriesThenReplays(t *testing.T) {
	sender := &fakeSender{err: errors.New("broker down")}
	repo := NewRepository(0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	d := NewDispatcher(repo, sender, zap.NewNop()).WithMaxRetries(2)

	require.NoError(t, d.Publish("schedule.task.deleted", "x"))

	d.processPendingEvents(context.Background())
	assert.Empty(t, repo.GetFailedEvents(0))
	// backoff: not due yet
	assert.Empty(t, repo.GetPendingEvents(0))

	now = now.Add(time.Minute)
	d.processPendingEvents(context.Background())
	failed := repo.GetFailedEvents(0)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].RetryCount)

	now = now.Add(time.Hour)
	d.processPendingEvents(context.Background())
	assert.Len(t, repo.GetFailedEvents(0), 1, "failed events are not retried automatically")

	sender.fail(nil)
	assert.Equal(t, 1, d.ReplayFailedEvents(context.Background(), 10))
	assert.Equal(t, 0, repo.Len())
	assert.Len(t, sender.sent, 1)
}

func TestDispatcher_BatchSizeLimitsEachPass(t *testing.T) {
	sender := &fakeSender{err: errors.New("broker down")}
	repo := NewRepository(0)
	d := NewDispatcher(repo, sender, zap.NewNop()).WithBatchSize(2).WithBatchSize(0)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Publish("schedule.task.created", i))
	}
	sender.fail(nil)

	d.processPendingEvents(context.Background())
	assert.Len(t, sender.sent, 2)
	assert.Equal(t, 3, repo.Len())

	d.processPendingEvents(context.Background())
	d.processPendingEvents(context.Background())
	assert.Len(t, sender.sent, 5)
	assert.Equal(t, 0, repo.Len())
}

func TestDispatcher_ReplayUnknownEvent(t *testing.T) {
	d := NewDispatcher(NewRepository(0), &fakeSender{}, zap.NewNop())
	assert.Error(t, d.ReplayEvent(context.Background(), 42))
}

func TestDispatcher_StartStopsOnCancel(t *testing.T) {
	sender := &fakeSender{err: errors.New("down")}
	repo := NewRepository(0)
	d := NewDispatcher(repo, sender, zap.NewNop()).WithInterval(5 * time.Millisecond)
	require.NoError(t, d.Publish("k", 1))
	sender.fail(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
