package export

import (
	"bytes"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteBookings(t *testing.T) {
	start := time.Date(2024, 6, 2, 9, 30, 0, 0, time.UTC)
	bookings := []*models.Booking{
		{ID: 2, ItemName: "Drill", BookerName: "Bob", Start: start, End: start.Add(time.Hour), Status: models.StatusApproved, CreatedAt: start.Add(-time.Hour)},
		{ID: 1, ItemName: "Bike", BookerName: "Carol", Start: start, End: start.Add(2 * time.Hour), Status: models.StatusWaiting},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, "Owner", "Bookings of Alice", bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Owner"}, f.GetSheetList())

	rows, err := f.GetRows("Owner")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Bookings of Alice", rows[0][0])
	assert.Equal(t, headers, rows[1])
	assert.Equal(t, []string{"2", "Drill", "Bob", "02.06.2024 09:30", "02.06.2024 10:30", "APPROVED", "02.06.2024 08:30"}, rows[2])
	assert.Equal(t, "WAITING", rows[3][5])
}

func TestWriteBookings_EmptyUsesDefaultSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookings(&buf, "", "Nothing", nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(defaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
