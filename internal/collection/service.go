package collection

import (
	"context"
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/database/repositories"
)

// Service reads collection views. It never mutates state; rolls and sells go
// through the economy services.
type Service struct {
	cards     repositories.CardRepository
	userCards repositories.UserCardRepository
}

func NewService(cards repositories.CardRepository, userCards repositories.UserCardRepository) *Service {
	return &Service{
		cards:     cards,
		userCards: userCards,
	}
}

// GetUserCollection loads the user's owned cards joined with catalog metadata,
// filtered and sorted. An empty result is a valid collection, not an error.
func (s *Service) GetUserCollection(ctx context.Context, userID string, filters Filters, sortBy SortKey) ([]OwnedCard, error) {
	userCards, err := s.userCards.GetAllByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user cards: %w", err)
	}

	view, err := s.buildView(ctx, userCards)
	if err != nil {
		return nil, err
	}

	return Apply(view, filters, sortBy), nil
}

// UserLocations returns the distinct locations in the user's collection.
func (s *Service) UserLocations(ctx context.Context, userID string) ([]string, error) {
	userCards, err := s.userCards.GetAllByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user cards: %w", err)
	}

	view, err := s.buildView(ctx, userCards)
	if err != nil {
		return nil, err
	}

	return Locations(view), nil
}

// GetRecent returns the newest acquisitions across all users, for the landing
// page ticker.
func (s *Service) GetRecent(ctx context.Context, limit int) ([]OwnedCard, error) {
	userCards, err := s.userCards.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent cards: %w", err)
	}
	return s.buildView(ctx, userCards)
}

// SearchCatalog fuzzy-matches catalog cards by title and location.
func (s *Service) SearchCatalog(ctx context.Context, query string, limit int) ([]*models.Card, error) {
	catalog, err := s.cards.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if query == "" {
		if limit > 0 && len(catalog) > limit {
			return catalog[:limit], nil
		}
		return catalog, nil
	}

	haystack := make([]string, len(catalog))
	for i, card := range catalog {
		haystack[i] = card.Title + " " + card.Location
	}

	matches := fuzzy.Find(query, haystack)
	out := make([]*models.Card, 0, len(matches))
	for _, match := range matches {
		out = append(out, catalog[match.Index])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Service) buildView(ctx context.Context, userCards []*models.UserCard) ([]OwnedCard, error) {
	if len(userCards) == 0 {
		return []OwnedCard{}, nil
	}

	ids := make([]string, 0, len(userCards))
	seen := make(map[string]struct{}, len(userCards))
	for _, uc := range userCards {
		if _, ok := seen[uc.CardID]; ok {
			continue
		}
		seen[uc.CardID] = struct{}{}
		ids = append(ids, uc.CardID)
	}

	cards, err := s.cards.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog cards: %w", err)
	}

	byID := make(map[string]*models.Card, len(cards))
	for _, card := range cards {
		byID[card.ID] = card
	}

	view := make([]OwnedCard, 0, len(userCards))
	for _, uc := range userCards {
		card, ok := byID[uc.CardID]
		if !ok {
			// Catalog row vanished under us; skip rather than render a hole.
			continue
		}
		view = append(view, OwnedCard{
			ID:           uc.ID,
			CardID:       card.ID,
			UniqueCardID: uc.UniqueCardID,
			Title:        card.Title,
			Location:     card.Location,
			Rarity:       card.Rarity,
			ImageURL:     card.ImageURL,
			Description:  card.Description,
			ManaValue:    uc.ManaValue,
			CollectedAt:  uc.CollectedAt,
		})
	}
	return view, nil
}
