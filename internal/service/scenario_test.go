package service

import (
	"context"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A books B's item, B approves, time passes, A may comment.
func TestBookingLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := 24 * time.Hour

	w1, err := f.bookings.CreateBooking(ctx, models.BookingRequest{
		ItemID: drillID,
		Start:  t0.Add(day),
		End:    t0.Add(2 * day),
	}, bookerID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, w1.Status)

	approved, err := f.bookings.ApproveBooking(ctx, w1.ID, ownerID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)

	future, err := f.bookings.ListBookerBookings(ctx, bookerID, models.StateFuture)
	require.NoError(t, err)
	assert.Equal(t, []int64{w1.ID}, ids(future))

	canComment, err := f.comments.CanComment(ctx, bookerID, drillID)
	require.NoError(t, err)
	assert.False(t, canComment)

	f.clock.Set(t0.Add(2*day + time.Second))

	past, err := f.bookings.ListBookerBookings(ctx, bookerID, models.StatePast)
	require.NoError(t, err)
	assert.Equal(t, []int64{w1.ID}, ids(past))

	lastNext, err := f.items.LastAndNext(ctx, []int64{drillID})
	require.NoError(t, err)
	require.Contains(t, lastNext, drillID)
	require.NotNil(t, lastNext[drillID].Last)
	assert.Nil(t, lastNext[drillID].Next)
	if diff := cmp.Diff(approved, lastNext[drillID].Last); diff != "" {
		t.Errorf("last booking mismatch (-want +got):\n%s", diff)
	}

	canComment, err = f.comments.CanComment(ctx, bookerID, drillID)
	require.NoError(t, err)
	assert.True(t, canComment)
}
