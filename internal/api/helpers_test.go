package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/events"
	"shareit/internal/models"
	"shareit/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    int64 = 1
	bookerID   int64 = 2
	strangerID int64 = 3
	drillID    int64 = 10
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type testAPI struct {
	db      *database.DB
	clock   *clock.MockClock
	server  *HTTPServer
	handler http.Handler
}

func newTestAPI(t *testing.T, mutate func(cfg *config.Config, deps *Dependencies)) *testAPI {
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
	}))

	clk := clock.NewMockClock(t0)
	bus := events.NewEventBus()

	cfg := &config.Config{}
	cfg.Exports.SheetName = "Bookings"
	deps := Dependencies{
		Bookings: service.NewBookingService(db, bus, clk, &logger),
		Items:    service.NewItemService(db, clk, &logger),
		Comments: service.NewCommentService(db, bus, clk, &logger),
		Pinger:   db,
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	srv := NewHTTPServer(cfg, deps, &logger)
	return &testAPI{db: db, clock: clk, server: srv, handler: srv.Handler()}
}

// do sends a request as userID (0 omits the header) and returns the recorder.
func (a *testAPI) do(t *testing.T, method, target string, userID int64, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != 0 {
		req.Header.Set(models.UserIDHeader, strconv.FormatInt(userID, 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bookingBody(itemID int64, start, end time.Time) map[string]any {
	return map[string]any{"itemId": itemID, "start": start, "end": end}
}
