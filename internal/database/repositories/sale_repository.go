package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/database/models"
)

var ErrSaleNotFound = errors.New("sale not found")

type SaleRepository interface {
	CreateTx(ctx context.Context, idb bun.IDB, sale *models.CardSale) error
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.CardSale, error)
	GetByUserID(ctx context.Context, userID string, limit int) ([]*models.CardSale, error)
}

type saleRepository struct {
	db *bun.DB
}

func NewSaleRepository(db *bun.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) CreateTx(ctx context.Context, idb bun.IDB, sale *models.CardSale) error {
	if sale.SoldAt.IsZero() {
		sale.SoldAt = time.Now()
	}
	_, err := idb.NewInsert().Model(sale).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record sale: %w", err)
	}
	return nil
}

func (r *saleRepository) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.CardSale, error) {
	sale := new(models.CardSale)
	err := r.db.NewSelect().
		Model(sale).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sale: %w", err)
	}
	return sale, nil
}

func (r *saleRepository) GetByUserID(ctx context.Context, userID string, limit int) ([]*models.CardSale, error) {
	var sales []*models.CardSale
	err := r.db.NewSelect().
		Model(&sales).
		Where("user_id = ?", userID).
		Order("sold_at DESC").
		Limit(limit).
		Scan(ctx)
	return sales, err
}
