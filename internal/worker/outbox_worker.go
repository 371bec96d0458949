package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"shareit/internal/clock"
	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message is the envelope written to the broker.
type Message struct {
	TaskID    int64           `json:"task_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// OutboxWorker persists domain events and delivers them to a broker with retries.
type OutboxWorker struct {
	repo          domain.OutboxRepository
	publisher     domain.MessagePublisher
	redis         *redis.Client
	retryPolicy   RetryPolicy
	clock         clock.Clock
	queue         chan models.OutboxTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	popTimeout    time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

// NewOutboxWorker builds a worker; redisClient may be nil.
func NewOutboxWorker(
	repo domain.OutboxRepository,
	publisher domain.MessagePublisher,
	redisClient *redis.Client,
	cfg config.OutboxConfig,
	clk clock.Clock,
	logger *zerolog.Logger,
) *OutboxWorker {
	retry := RetryPolicyFromConfig(cfg)
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	queueKey := cfg.RedisQueue
	if queueKey == "" {
		queueKey = "shareit:outbox"
	}
	deadKey := cfg.RedisDLQ
	if deadKey == "" {
		deadKey = queueKey + ":dead"
	}
	if !cfg.UseRedis {
		redisClient = nil
	}

	return &OutboxWorker{
		repo:          repo,
		publisher:     publisher,
		redis:         redisClient,
		retryPolicy:   retry,
		clock:         clk,
		queue:         make(chan models.OutboxTask, models.OutboxQueueSize),
		redisQueueKey: queueKey,
		deadLetterKey: deadKey,
		pollInterval:  pollInterval,
		popTimeout:    time.Second,
		batchSize:     models.OutboxBatchSize,
		logger:        logger,
	}
}

// HandleEvent is an events.EventHandler that stores the event for delivery.
func (w *OutboxWorker) HandleEvent(event *events.Event) error {
	return w.Enqueue(context.Background(), event)
}

// Enqueue persists event as an outbox task and schedules it via redis or the in-memory queue.
func (w *OutboxWorker) Enqueue(ctx context.Context, event *events.Event) error {
	if event == nil || event.Type == "" {
		return errors.New("event type is required")
	}

	var ref struct {
		BookingID int64 `json:"booking_id"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &ref); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
	}

	task := models.OutboxTask{
		EventType: event.Type,
		BookingID: ref.BookingID,
		Payload:   string(event.Payload),
		Status:    models.OutboxStatusPending,
	}
	if err := w.repo.CreateOutboxTask(ctx, &task); err != nil {
		return fmt.Errorf("persist outbox task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, &task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("Redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("Outbox memory queue full, task left to polling")
	}
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("Outbox worker started")
	defer w.logger.Info().Msg("Outbox worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		if w.processOnce(ctx) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

// processOnce handles queued work from one source and returns the number of tasks handled.
func (w *OutboxWorker) processOnce(ctx context.Context) int {
	if t, ok := w.tryLocalQueue(); ok {
		w.processTask(ctx, &t)
		return 1
	}

	if t, ok := w.tryRedis(ctx); ok {
		w.processTask(ctx, &t)
		return 1
	}

	tasks, err := w.repo.GetPendingOutboxTasks(ctx, w.clock.Now(), w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to fetch pending outbox tasks")
		return 0
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
}

func (w *OutboxWorker) tryLocalQueue() (models.OutboxTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.OutboxTask{}, false
	}
}

func (w *OutboxWorker) tryRedis(ctx context.Context) (models.OutboxTask, bool) {
	if w.redis == nil {
		return models.OutboxTask{}, false
	}
	res, err := w.redis.BRPop(ctx, w.popTimeout, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("Redis BRPOP failed")
		}
		return models.OutboxTask{}, false
	}
	if len(res) != 2 {
		return models.OutboxTask{}, false
	}
	var task models.OutboxTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("Failed to decode outbox task from redis")
		return models.OutboxTask{}, false
	}
	return task, true
}

func (w *OutboxWorker) processTask(ctx context.Context, task *models.OutboxTask) {
	// queued copies may be stale once polling has delivered the same row
	current, err := w.repo.GetOutboxTask(ctx, task.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to reload outbox task")
		return
	}
	if current.Status == models.OutboxStatusCompleted || current.Status == models.OutboxStatusFailed {
		return
	}
	task = current

	value, err := json.Marshal(Message{
		TaskID:    task.ID,
		Type:      task.EventType,
		Payload:   json.RawMessage(task.Payload),
		CreatedAt: task.CreatedAt,
	})
	if err != nil {
		w.failTask(ctx, task, fmt.Errorf("encode message: %w", err))
		return
	}

	if err := w.publisher.Publish(ctx, messageKey(task), value); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.repo.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark outbox task completed")
		return
	}
	metrics.IncOutbox(models.OutboxStatusCompleted)
}

func (w *OutboxWorker) retryOrFail(ctx context.Context, task *models.OutboxTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.failTask(ctx, task, cause)
		return
	}

	next := w.clock.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.repo.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark outbox task for retry")
		return
	}
	metrics.IncOutbox(models.OutboxStatusRetry)
	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Time("next_retry_at", next).Msg("Outbox delivery failed, will retry")
}

func (w *OutboxWorker) failTask(ctx context.Context, task *models.OutboxTask, cause error) {
	if err := w.repo.UpdateOutboxTaskStatus(ctx, task.ID, models.OutboxStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to mark outbox task failed")
	}
	metrics.IncOutbox(models.OutboxStatusFailed)
	w.logger.Error().Err(cause).Int64("task_id", task.ID).Msg("Outbox delivery failed permanently")

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("Dead letter push failed")
		}
	}
}

func (w *OutboxWorker) pushRedis(ctx context.Context, key string, task *models.OutboxTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

// messageKey keeps every event of one booking on one partition.
func messageKey(task *models.OutboxTask) string {
	if task.BookingID != 0 {
		return strconv.FormatInt(task.BookingID, 10)
	}
	return task.EventType
}
