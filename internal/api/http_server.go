package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

// Dependencies are the services and infrastructure the HTTP API serves.
type Dependencies struct {
	Bookings    domain.BookingService
	Items       domain.ItemService
	Comments    domain.CommentService
	Pinger      Pinger
	UserLimiter domain.RateLimiter
}

// HTTPServer exposes the booking API over HTTP.
type HTTPServer struct {
	cfg       config.APIConfig
	bookings  domain.BookingService
	items     domain.ItemService
	comments  domain.CommentService
	pinger    Pinger
	sheetName string
	handler   http.Handler
	server    *http.Server
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, deps Dependencies, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	httpLogger := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:       cfg.API,
		bookings:  deps.Bookings,
		items:     deps.Items,
		comments:  deps.Comments,
		pinger:    deps.Pinger,
		sheetName: cfg.Exports.SheetName,
		logger:    &httpLogger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /bookings", srv.handleCreateBooking)
	mux.HandleFunc("GET /bookings", srv.handleListBookerBookings)
	mux.HandleFunc("GET /bookings/owner", srv.handleListOwnerBookings)
	mux.HandleFunc("GET /bookings/owner/export", srv.handleExportOwnerBookings)
	mux.HandleFunc("GET /bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("PATCH /bookings/{id}", srv.handleApproveBooking)
	mux.HandleFunc("GET /items", srv.handleOwnerItems)
	mux.HandleFunc("POST /items/{id}/comment", srv.handleAddComment)
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	var handler http.Handler = mux
	handler = userRateLimitMiddleware(cfg.API.UserRateLimit, deps.UserLimiter, srv.logger, handler)
	handler = NewHTTPAuth(cfg.API).Wrap(handler)
	handler = loggingMiddleware(srv.logger, handler)
	handler = requestIDMiddleware(handler)
	srv.handler = handler

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
