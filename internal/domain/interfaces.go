package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type ItemDirectory interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	GetItemsByOwner(ctx context.Context, ownerID int64) ([]models.Item, error)
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, from, to models.Status) error
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	GetLastAndNextBookings(ctx context.Context, itemIDs []int64, now time.Time) (map[int64]*models.ItemBookings, error)
	HasApprovedPastBooking(ctx context.Context, userID, itemID int64, now time.Time) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentsByItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error)
}

type OutboxRepository interface {
	CreateOutboxTask(ctx context.Context, task *models.OutboxTask) error
	GetOutboxTask(ctx context.Context, id int64) (*models.OutboxTask, error)
	GetPendingOutboxTasks(ctx context.Context, now time.Time, limit int) ([]models.OutboxTask, error)
	UpdateOutboxTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedOutboxTasks(ctx context.Context) ([]models.OutboxTask, error)
}

// Repository is everything the services need from storage.
type Repository interface {
	UserDirectory
	ItemDirectory
	BookingRepository
	CommentRepository
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// MessagePublisher delivers a keyed message to an external broker.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, req models.BookingRequest, requesterID int64) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID, callerID int64) (*models.Booking, error)
	ApproveBooking(ctx context.Context, bookingID, ownerID int64, approved bool) (*models.Booking, error)
	ListBookerBookings(ctx context.Context, userID int64, state models.State) ([]*models.Booking, error)
	ListOwnerBookings(ctx context.Context, ownerID int64, state models.State) ([]*models.Booking, error)
}

type ItemService interface {
	LastAndNext(ctx context.Context, itemIDs []int64) (map[int64]*models.ItemBookings, error)
	GetOwnerItems(ctx context.Context, ownerID int64) ([]models.OwnerItem, error)
}

type CommentService interface {
	CanComment(ctx context.Context, userID, itemID int64) (bool, error)
	AddComment(ctx context.Context, itemID, userID int64, text string) (*models.Comment, error)
}
