package models

const (
	// UserIDHeader carries the id of the calling user on every request.
	UserIDHeader = "X-Sharer-User-Id"

	// DefaultRateLimitRequests количество запросов пользователя в окне
	DefaultRateLimitRequests = 60

	// DefaultRateLimitWindow окно ограничения частоты запросов, секунды
	DefaultRateLimitWindow = 60

	// OutboxQueueSize размер локальной очереди воркера
	OutboxQueueSize = 128

	// OutboxBatchSize сколько задач воркер забирает из БД за раз
	OutboxBatchSize = 20

	// DefaultBackupRetentionDays сколько дней хранятся резервные копии
	DefaultBackupRetentionDays = 7
)
