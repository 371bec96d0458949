package database

import (
	"context"
	"io"
	"testing"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()
	now := time.Now()

	checks := map[string]func() error{
		"SyncUsers": func() error { return db.SyncUsers(ctx, nil) },
		"SyncItems": func() error { return db.SyncItems(ctx, nil) },
		"GetUserByID": func() error {
			_, err := db.GetUserByID(ctx, 1)
			return err
		},
		"GetItemByID": func() error {
			_, err := db.GetItemByID(ctx, 1)
			return err
		},
		"GetItemsByOwner": func() error {
			_, err := db.GetItemsByOwner(ctx, 1)
			return err
		},
		"CreateBooking": func() error { return db.CreateBooking(ctx, &models.Booking{}) },
		"GetBooking": func() error {
			_, err := db.GetBooking(ctx, 1)
			return err
		},
		"UpdateBookingStatus": func() error {
			return db.UpdateBookingStatus(ctx, 1, models.StatusWaiting, models.StatusApproved)
		},
		"ListBookings": func() error {
			_, err := db.ListBookings(ctx, models.BookingFilter{BookerID: 1, Now: now})
			return err
		},
		"GetLastAndNextBookings": func() error {
			_, err := db.GetLastAndNextBookings(ctx, []int64{1}, now)
			return err
		},
		"HasApprovedPastBooking": func() error {
			_, err := db.HasApprovedPastBooking(ctx, 1, 1, now)
			return err
		},
		"CreateComment": func() error { return db.CreateComment(ctx, &models.Comment{}) },
		"GetCommentsByItems": func() error {
			_, err := db.GetCommentsByItems(ctx, []int64{1})
			return err
		},
		"CreateOutboxTask": func() error { return db.CreateOutboxTask(ctx, &models.OutboxTask{}) },
		"GetPendingOutboxTasks": func() error {
			_, err := db.GetPendingOutboxTasks(ctx, now, 1)
			return err
		},
		"UpdateOutboxTaskStatus": func() error {
			return db.UpdateOutboxTaskStatus(ctx, 1, models.OutboxStatusCompleted, "", nil)
		},
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			err := check()
			require.Error(t, err)
			assert.Equal(t, "internal", apperr.Kind(err), "driver failures must not look like domain errors")
		})
	}
}
