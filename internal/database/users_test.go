package database

import (
	"context"
	"testing"

	"shareit/internal/apperr"
	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserByID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user, err := db.GetUserByID(ctx, bookerID)
	require.NoError(t, err)
	assert.Equal(t, "Booker", user.Name)
	assert.Equal(t, "booker@example.com", user.Email)

	_, err = db.GetUserByID(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "User with id 999 not found", err.Error())
}

func TestSyncUsers_Upserts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SyncUsers(ctx, []models.User{{ID: bookerID, Name: "Renamed", Email: "new@example.com"}}))

	user, err := db.GetUserByID(ctx, bookerID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, "new@example.com", user.Email)
}
