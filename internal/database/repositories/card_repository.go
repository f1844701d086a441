package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/database/models"
)

const (
	defaultQueryTimeout = 10 * time.Second
	cacheExpiration     = 5 * time.Minute
)

type CardRepository interface {
	Create(ctx context.Context, card *models.Card) error
	GetByID(ctx context.Context, id string) (*models.Card, error)
	GetAll(ctx context.Context) ([]*models.Card, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.Card, error)
	GetCardCount(ctx context.Context) (int64, error)
	BulkCreate(ctx context.Context, cards []*models.Card) (int, error)
}

type cardRepository struct {
	db    *bun.DB
	cache *sync.Map
}

type cardCacheEntry struct {
	cards     []*models.Card
	expiresAt time.Time
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{
		db:    db,
		cache: &sync.Map{},
	}
}

func (r *cardRepository) Create(ctx context.Context, card *models.Card) error {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	card.CreatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(card).
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}

	r.invalidateCatalog()
	return nil
}

func (r *cardRepository) GetByID(ctx context.Context, id string) (*models.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	card := new(models.Card)
	err := r.db.NewSelect().
		Model(card).
		Where("id = ?", id).
		Scan(ctx)

	return card, err
}

// GetAll returns the full catalog. The catalog only changes on admin seeding,
// so it is cached with a short TTL.
func (r *cardRepository) GetAll(ctx context.Context) ([]*models.Card, error) {
	if entry, ok := r.cache.Load("catalog"); ok {
		cached := entry.(cardCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.cards, nil
		}
		r.cache.Delete("catalog")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Order("card_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	r.cache.Store("catalog", cardCacheEntry{
		cards:     cards,
		expiresAt: time.Now().Add(cacheExpiration),
	})
	return cards, nil
}

func (r *cardRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var cards []*models.Card
	err := r.db.NewSelect().
		Model(&cards).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)

	return cards, err
}

func (r *cardRepository) GetCardCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	count, err := r.db.NewSelect().
		Model((*models.Card)(nil)).
		Count(ctx)

	return int64(count), err
}

func (r *cardRepository) BulkCreate(ctx context.Context, cards []*models.Card) (int, error) {
	if len(cards) == 0 {
		return 0, nil
	}

	now := time.Now()
	for _, card := range cards {
		card.CreatedAt = now
	}

	res, err := r.db.NewInsert().
		Model(&cards).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk create cards: %w", err)
	}

	r.invalidateCatalog()
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (r *cardRepository) invalidateCatalog() {
	r.cache.Delete("catalog")
}
