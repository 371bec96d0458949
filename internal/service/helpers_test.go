package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    int64 = 1
	bookerID   int64 = 2
	strangerID int64 = 3

	drillID    int64 = 100
	brokenID   int64 = 101
	bikeID     int64 = 102
	strangerIt int64 = 103
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db       *database.DB
	clock    *clock.MockClock
	bus      *events.EventBus
	recorder *eventRecorder
	bookings *BookingService
	items    *ItemService
	comments *CommentService
}

type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) handle(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Type)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.SyncUsers(ctx, []models.User{
		{ID: ownerID, Name: "Alice", Email: "alice@example.com"},
		{ID: bookerID, Name: "Bob", Email: "bob@example.com"},
		{ID: strangerID, Name: "Carol", Email: "carol@example.com"},
	}))
	require.NoError(t, db.SyncItems(ctx, []models.Item{
		{ID: drillID, Name: "Drill", Available: true, OwnerID: ownerID},
		{ID: brokenID, Name: "Broken saw", Available: false, OwnerID: ownerID},
		{ID: bikeID, Name: "Bike", Available: true, OwnerID: ownerID},
		{ID: strangerIt, Name: "Kayak", Available: true, OwnerID: strangerID},
	}))

	clk := clock.NewMockClock(t0)
	bus := events.NewEventBus()
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.handle)

	return &fixture{
		db:       db,
		clock:    clk,
		bus:      bus,
		recorder: rec,
		bookings: NewBookingService(db, bus, clk, &logger),
		items:    NewItemService(db, clk, &logger),
		comments: NewCommentService(db, bus, clk, &logger),
	}
}

// book creates a booking through the service at the current mock time.
func (f *fixture) book(t *testing.T, itemID, booker int64, start, end time.Time) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), models.BookingRequest{ItemID: itemID, Start: start, End: end}, booker)
	require.NoError(t, err)
	return b
}

// bookAndDecide creates a booking and records the owner's decision.
func (f *fixture) bookAndDecide(t *testing.T, itemID, booker int64, start, end time.Time, approved bool) *models.Booking {
	t.Helper()
	b := f.book(t, itemID, booker, start, end)
	item, err := f.db.GetItemByID(context.Background(), itemID)
	require.NoError(t, err)
	decided, err := f.bookings.ApproveBooking(context.Background(), b.ID, item.OwnerID, approved)
	require.NoError(t, err)
	return decided
}

func ids(bookings []*models.Booking) []int64 {
	out := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.ID)
	}
	return out
}
