package models

import "time"

const (
	OutboxStatusPending   = "pending"
	OutboxStatusRetry     = "retry"
	OutboxStatusCompleted = "completed"
	OutboxStatusFailed    = "failed"
)

// OutboxTask is a queued event waiting to be delivered to the broker.
type OutboxTask struct {
	ID          int64      `json:"id"`
	EventType   string     `json:"event_type"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
