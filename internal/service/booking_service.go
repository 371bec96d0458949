package service

import (
	"context"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *BookingService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		clock:    clk,
		logger:   logger,
	}
}

// CreateBooking stores a WAITING booking of req.ItemID for requesterID.
func (s *BookingService) CreateBooking(ctx context.Context, req models.BookingRequest, requesterID int64) (*models.Booking, error) {
	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	requester, err := s.repo.GetUserByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if item.OwnerID == requester.ID {
		s.logger.Debug().Int64("item_id", item.ID).Int64("user_id", requesterID).Msg("owner tried to book own item")
		return nil, apperr.Validation("owner cannot book own item")
	}
	if !item.Available {
		return nil, apperr.Validation("Item %d is not available for booking", item.ID)
	}
	if err := validateWindow(req, s.clock); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ItemID:     item.ID,
		ItemName:   item.Name,
		OwnerID:    item.OwnerID,
		BookerID:   requester.ID,
		BookerName: requester.Name,
		Start:      req.Start,
		End:        req.End,
		Status:     models.StatusWaiting,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", booking.ItemID).
		Int64("booker_id", booking.BookerID).
		Msg("booking created")
	s.publishEvent(events.EventBookingCreated, booking, requesterID)

	return booking, nil
}

// validateWindow requires now < start < end, with now read once.
func validateWindow(req models.BookingRequest, clk clock.Clock) error {
	now := clk.Now()
	switch {
	case req.Start.IsZero() || req.End.IsZero():
		return apperr.Validation("Booking start and end are required")
	case !models.Storable(req.Start) || !models.Storable(req.End):
		return apperr.Validation("Booking dates must be between %s and %s",
			models.MinStoredTime.Format(time.RFC3339), models.MaxStoredTime.Format(time.RFC3339))
	case !req.Start.Before(req.End):
		return apperr.Validation("Booking start must be before end")
	case !req.Start.After(now):
		return apperr.Validation("Booking start must be in the future")
	case !req.End.After(now):
		return apperr.Validation("Booking end must be in the future")
	}
	return nil
}

// GetBooking returns the booking if callerID is its booker or the item owner.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, callerID int64) (*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, callerID); err != nil {
		return nil, err
	}
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != callerID && booking.OwnerID != callerID {
		return nil, apperr.Forbidden("User %d has no access to booking %d", callerID, bookingID)
	}
	return booking, nil
}

// ApproveBooking records the owner's decision. Decided bookings cannot be changed.
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, ownerID int64, approved bool) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, apperr.Forbidden("User %d is not the owner of item %d", ownerID, booking.ItemID)
	}
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	if booking.Status.IsTerminal() {
		metrics.IncDecision("conflict")
		return nil, apperr.Conflict("Booking %d is already %s", bookingID, booking.Status)
	}

	target, eventType := models.StatusRejected, events.EventBookingRejected
	if approved {
		target, eventType = models.StatusApproved, events.EventBookingApproved
	}

	if err := s.repo.UpdateBookingStatus(ctx, bookingID, models.StatusWaiting, target); err != nil {
		if apperr.Is(err, apperr.ErrConflict) {
			metrics.IncDecision("conflict")
			s.logger.Warn().Int64("booking_id", bookingID).Msg("concurrent decision lost")
		}
		return nil, err
	}

	updated, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	metrics.IncDecision(string(target))
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("owner_id", ownerID).
		Str("status", string(target)).
		Msg("booking decided")
	s.publishEvent(eventType, updated, ownerID)

	return updated, nil
}

func (s *BookingService) ListBookerBookings(ctx context.Context, userID int64, state models.State) ([]*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListBookings(ctx, models.BookingFilter{BookerID: userID, State: state, Now: s.clock.Now()})
}

func (s *BookingService) ListOwnerBookings(ctx context.Context, ownerID int64, state models.State) ([]*models.Booking, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListBookings(ctx, models.BookingFilter{OwnerID: ownerID, State: state, Now: s.clock.Now()})
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		ItemID:    booking.ItemID,
		ItemName:  booking.ItemName,
		OwnerID:   booking.OwnerID,
		BookerID:  booking.BookerID,
		Status:    string(booking.Status),
		Start:     booking.Start,
		End:       booking.End,
		ActorID:   actorID,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
