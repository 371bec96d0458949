package service

import (
	"context"
	"strings"

	"shareit/internal/apperr"
	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type CommentService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewCommentService(repo domain.Repository, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *CommentService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &CommentService{repo: repo, eventBus: eventBus, clock: clk, logger: logger}
}

// CanComment reports whether userID has an approved booking of itemID that already ended.
func (s *CommentService) CanComment(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.repo.HasApprovedPastBooking(ctx, userID, itemID, s.clock.Now())
}

func (s *CommentService) AddComment(ctx context.Context, itemID, userID int64, text string) (*models.Comment, error) {
	if _, err := s.repo.GetItemByID(ctx, itemID); err != nil {
		return nil, err
	}
	author, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Comment text must not be blank")
	}

	now := s.clock.Now()
	eligible, err := s.repo.HasApprovedPastBooking(ctx, userID, itemID, now)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, apperr.CommentNotEligible("User %d cannot comment on item %d without a finished approved booking", userID, itemID)
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		CreatedAt:  now,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("comment_id", comment.ID).Int64("item_id", itemID).Int64("author_id", userID).Msg("comment added")
	if s.eventBus != nil {
		payload := events.CommentEventPayload{
			CommentID: comment.ID,
			ItemID:    itemID,
			AuthorID:  userID,
			CreatedAt: comment.CreatedAt,
		}
		if err := s.eventBus.PublishJSON(events.EventCommentAdded, payload); err != nil {
			s.logger.Error().Err(err).Int64("comment_id", comment.ID).Msg("publish event error")
		}
	}

	return comment, nil
}
