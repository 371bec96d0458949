package database

import (
	"context"
	"testing"

	"shareit/internal/apperr"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetItemByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	item, err := db.GetItemByID(ctx, drillID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", item.Name)
	assert.Equal(t, "Cordless", item.Description)
	assert.Equal(t, ownerID, item.OwnerID)
	assert.True(t, item.Available)

	tent, err := db.GetItemByID(ctx, tentID)
	require.NoError(t, err)
	assert.False(t, tent.Available)

	_, err = db.GetItemByID(ctx, 404)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestGetItemsByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	items, err := db.GetItemsByOwner(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, drillID, items[0].ID)
	assert.Equal(t, sawID, items[1].ID)

	none, err := db.GetItemsByOwner(ctx, bookerID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSyncItems_UnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	err := db.SyncItems(context.Background(), []models.Item{{ID: 50, Name: "Ghost", OwnerID: 777}})
	assert.Error(t, err)
}

func TestSyncItems_UpdatesAvailability(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SyncItems(ctx, []models.Item{{ID: drillID, Name: "Drill", Available: false, OwnerID: ownerID}}))
	item, err := db.GetItemByID(ctx, drillID)
	require.NoError(t, err)
	assert.False(t, item.Available)
}
