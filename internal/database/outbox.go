package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/models"
)

const outboxColumns = `id, event_type, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateOutboxTask(ctx context.Context, task *models.OutboxTask) error {
	query := `INSERT INTO outbox (event_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if task.Status == "" {
		task.Status = models.OutboxStatusPending
	}
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		task.EventType,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		toNanos(now),
		nullableNanos(task.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = fromNanos(toNanos(now))

	return nil
}

func (db *DB) GetOutboxTask(ctx context.Context, id int64) (*models.OutboxTask, error) {
	task, err := scanOutboxTask(db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Outbox task %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox task: %w", err)
	}
	return task, nil
}

// GetPendingOutboxTasks returns tasks due at now, oldest first.
func (db *DB) GetPendingOutboxTasks(ctx context.Context, now time.Time, limit int) ([]models.OutboxTask, error) {
	query := `SELECT ` + outboxColumns + `
              FROM outbox
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC, id ASC LIMIT ?`
	return db.queryOutbox(ctx, query, models.OutboxStatusPending, models.OutboxStatusRetry, toNanos(now), limit)
}

func (db *DB) GetFailedOutboxTasks(ctx context.Context) ([]models.OutboxTask, error) {
	query := `SELECT ` + outboxColumns + ` FROM outbox WHERE status = ? ORDER BY created_at DESC, id DESC`
	return db.queryOutbox(ctx, query, models.OutboxStatusFailed)
}

func (db *DB) UpdateOutboxTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var (
		query string
		args  []any
	)
	lastErr := sql.NullString{String: errMsg, Valid: errMsg != ""}

	switch status {
	case models.OutboxStatusRetry:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []any{status, lastErr, nullableNanos(nextRetryAt), id}
	case models.OutboxStatusCompleted, models.OutboxStatusFailed:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`
		args = []any{status, lastErr, toNanos(time.Now()), id}
	default:
		query = `UPDATE outbox SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []any{status, lastErr, nullableNanos(nextRetryAt), id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update outbox task status: %w", err)
	}
	return nil
}

func (db *DB) queryOutbox(ctx context.Context, query string, args ...any) ([]models.OutboxTask, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var tasks []models.OutboxTask
	for rows.Next() {
		t, err := scanOutboxTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox: %w", err)
	}
	return tasks, nil
}

func scanOutboxTask(row rowScanner) (*models.OutboxTask, error) {
	var (
		t                    models.OutboxTask
		lastErr              sql.NullString
		created              int64
		processed, nextRetry sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.EventType, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &lastErr, &created, &processed, &nextRetry)
	if err != nil {
		return nil, err
	}
	if lastErr.Valid {
		t.LastError = &lastErr.String
	}
	t.CreatedAt = fromNanos(created)
	t.ProcessedAt = timePtr(processed)
	t.NextRetryAt = timePtr(nextRetry)
	return &t, nil
}
