package database

import (
	"context"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := &models.Comment{ItemID: drillID, AuthorID: bookerID, Text: "Great drill", CreatedAt: baseTime}
	second := &models.Comment{ItemID: drillID, AuthorID: otherID, Text: "Battery weak", CreatedAt: baseTime.Add(time.Minute)}
	onSaw := &models.Comment{ItemID: sawID, AuthorID: bookerID, Text: "Sharp"}

	for _, c := range []*models.Comment{second, first, onSaw} {
		require.NoError(t, db.CreateComment(ctx, c))
		assert.NotZero(t, c.ID)
	}
	assert.False(t, onSaw.CreatedAt.IsZero())

	got, err := db.GetCommentsByItems(ctx, []int64{drillID, sawID, tentID})
	require.NoError(t, err)

	require.Len(t, got[drillID], 2)
	assert.Equal(t, "Great drill", got[drillID][0].Text)
	assert.Equal(t, "Booker", got[drillID][0].AuthorName)
	assert.Equal(t, "Other", got[drillID][1].AuthorName)
	assert.True(t, baseTime.Equal(got[drillID][0].CreatedAt))

	require.Len(t, got[sawID], 1)
	assert.Empty(t, got[tentID])

	empty, err := db.GetCommentsByItems(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
