package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type published struct {
	key   string
	value []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	messages []published
}

func (p *fakePublisher) Publish(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, published{key: key, value: value})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newWorker(t *testing.T, db *database.DB, pub *fakePublisher, rdb *redis.Client, cfg config.OutboxConfig) (*OutboxWorker, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(t0)
	logger := zerolog.New(io.Discard)
	return NewOutboxWorker(db, pub, rdb, cfg, clk, &logger), clk
}

func bookingEvent(t *testing.T, typ string, bookingID int64) *events.Event {
	t.Helper()
	raw, err := json.Marshal(events.BookingEventPayload{BookingID: bookingID, Status: "WAITING"})
	require.NoError(t, err)
	return &events.Event{Type: typ, Payload: raw, CreatedAt: t0}
}

func TestOutboxWorker_DeliverFromMemoryQueue(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	w, _ := newWorker(t, db, pub, nil, config.OutboxConfig{})
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, bookingEvent(t, events.EventBookingCreated, 7)))
	assert.Equal(t, 1, w.processOnce(ctx))

	require.Equal(t, 1, pub.count())
	assert.Equal(t, "7", pub.messages[0].key)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.messages[0].value, &msg))
	assert.Equal(t, events.EventBookingCreated, msg.Type)
	assert.JSONEq(t, `{"booking_id":7,"item_id":0,"item_name":"","owner_id":0,"booker_id":0,"status":"WAITING","start":"0001-01-01T00:00:00Z","end":"0001-01-01T00:00:00Z","actor_id":0}`, string(msg.Payload))

	task, err := db.GetOutboxTask(ctx, msg.TaskID)
	require.NoError(t, err)
	assert.Equal(t, models.OutboxStatusCompleted, task.Status)
	assert.NotNil(t, task.ProcessedAt)

	// polling must not deliver it twice
	assert.Equal(t, 0, w.processOnce(ctx))
	assert.Equal(t, 1, pub.count())
}

func TestOutboxWorker_RetryThenFail(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	w, clk := newWorker(t, db, pub, nil, config.OutboxConfig{MaxRetries: 2, BaseDelay: time.Second})
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, bookingEvent(t, events.EventBookingApproved, 9)))
	require.Equal(t, 1, w.processOnce(ctx))

	pending, err := db.GetPendingOutboxTasks(ctx, clk.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "retry is scheduled in the future")

	tasks, err := db.GetPendingOutboxTasks(ctx, clk.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.OutboxStatusRetry, tasks[0].Status)
	assert.Equal(t, 1, tasks[0].RetryCount)
	require.NotNil(t, tasks[0].LastError)
	assert.Equal(t, "broker down", *tasks[0].LastError)

	clk.Add(time.Second)
	require.Equal(t, 1, w.processOnce(ctx))

	failed, err := db.GetFailedOutboxTasks(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, tasks[0].ID, failed[0].ID)
}

func TestOutboxWorker_RedisQueueAndDeadLetter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db := newTestDB(t)
	pub := &fakePublisher{}
	cfg := config.OutboxConfig{UseRedis: true, RedisQueue: "q", RedisDLQ: "q:dead", MaxRetries: 1}
	w, _ := newWorker(t, db, pub, rdb, cfg)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, bookingEvent(t, events.EventBookingCreated, 1)))
	queued, err := mr.List("q")
	require.NoError(t, err)
	assert.Len(t, queued, 1)

	_, ok := w.tryLocalQueue()
	assert.False(t, ok, "redis took the task")

	require.Equal(t, 1, w.processOnce(ctx))
	assert.Equal(t, 1, pub.count())

	pub.err = errors.New("rejected")
	require.NoError(t, w.Enqueue(ctx, bookingEvent(t, events.EventBookingRejected, 2)))
	require.Equal(t, 1, w.processOnce(ctx))

	dead, err := mr.List("q:dead")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var task models.OutboxTask
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &task))
	assert.Equal(t, int64(2), task.BookingID)
}

func TestOutboxWorker_RedisIgnoredWhenDisabled(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	w, _ := newWorker(t, newTestDB(t), &fakePublisher{}, rdb, config.OutboxConfig{UseRedis: false})
	require.NoError(t, w.Enqueue(context.Background(), bookingEvent(t, events.EventBookingCreated, 1)))
	assert.False(t, mr.Exists("shareit:outbox"))

	_, ok := w.tryLocalQueue()
	assert.True(t, ok)
}

func TestOutboxWorker_SubscribedToBus(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	w, _ := newWorker(t, db, pub, nil, config.OutboxConfig{})

	bus := events.NewEventBus()
	bus.SubscribeAll(w.HandleEvent)

	require.NoError(t, bus.PublishJSON(events.EventBookingCreated, events.BookingEventPayload{BookingID: 3}))
	require.NoError(t, bus.PublishJSON(events.EventCommentAdded, events.CommentEventPayload{CommentID: 1, ItemID: 5}))

	ctx := context.Background()
	assert.Equal(t, 1, w.processOnce(ctx))
	assert.Equal(t, 1, w.processOnce(ctx))
	require.Equal(t, 2, pub.count())
	assert.Equal(t, "3", pub.messages[0].key)
	assert.Equal(t, events.EventCommentAdded, pub.messages[1].key)
}

func TestOutboxWorker_EnqueueRejectsBadEvents(t *testing.T) {
	w, _ := newWorker(t, newTestDB(t), &fakePublisher{}, nil, config.OutboxConfig{})
	ctx := context.Background()

	assert.Error(t, w.Enqueue(ctx, nil))
	assert.Error(t, w.Enqueue(ctx, &events.Event{}))
	assert.Error(t, w.Enqueue(ctx, &events.Event{Type: "x", Payload: []byte("not json")}))
}

func TestOutboxWorker_StartStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	w, _ := newWorker(t, db, pub, nil, config.OutboxConfig{PollInterval: 10 * time.Millisecond})
	require.NoError(t, w.Enqueue(context.Background(), bookingEvent(t, events.EventBookingCreated, 4)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
