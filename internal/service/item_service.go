package service

import (
	"context"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

type ItemService struct {
	repo   domain.Repository
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewItemService(repo domain.Repository, clk clock.Clock, logger *zerolog.Logger) *ItemService {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &ItemService{repo: repo, clock: clk, logger: logger}
}

// LastAndNext maps each existing item to its nearest past and next approved booking.
func (s *ItemService) LastAndNext(ctx context.Context, itemIDs []int64) (map[int64]*models.ItemBookings, error) {
	if len(itemIDs) == 0 {
		return map[int64]*models.ItemBookings{}, nil
	}
	return s.repo.GetLastAndNextBookings(ctx, uniqueIDs(itemIDs), s.clock.Now())
}

// GetOwnerItems lists the owner's items with booking neighbours and comments.
func (s *ItemService) GetOwnerItems(ctx context.Context, ownerID int64) ([]models.OwnerItem, error) {
	if _, err := s.repo.GetUserByID(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.GetItemsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	result := make([]models.OwnerItem, 0, len(items))
	if len(items) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}

	bookings, err := s.LastAndNext(ctx, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.GetCommentsByItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		owned := models.OwnerItem{Item: item, Comments: comments[item.ID]}
		if owned.Comments == nil {
			owned.Comments = []models.Comment{}
		}
		if ib, ok := bookings[item.ID]; ok {
			owned.LastBooking = ib.Last
			owned.NextBooking = ib.Next
		}
		result = append(result, owned)
	}

	s.logger.Debug().Int64("owner_id", ownerID).Int("items", len(result)).Msg("owner items loaded")
	return result, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
