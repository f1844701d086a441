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

type ManaRepository interface {
	GetOrCreate(ctx context.Context, userID string) (*models.UserMana, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	CreditTx(ctx context.Context, idb bun.IDB, userID string, amount int64) error
}

type manaRepository struct {
	db *bun.DB
}

func NewManaRepository(db *bun.DB) ManaRepository {
	return &manaRepository{db: db}
}

// GetOrCreate returns the user's balance row, creating it at 0 on first read.
func (r *manaRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserMana, error) {
	mana := new(models.UserMana)
	err := r.db.NewSelect().
		Model(mana).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err == nil {
		return mana, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get mana balance: %w", err)
	}

	mana = &models.UserMana{
		UserID:    userID,
		Mana:      0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	// Concurrent first reads race on the unique user_id constraint; the loser
	// re-reads the winner's row.
	_, err = r.db.NewInsert().
		Model(mana).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create mana balance: %w", err)
	}

	err = r.db.NewSelect().
		Model(mana).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read mana balance: %w", err)
	}
	return mana, nil
}

func (r *manaRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	mana, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	return mana.Mana, nil
}

// CreditTx adds amount to the user's balance inside the caller's transaction,
// creating the row when the user has never been initialized.
func (r *manaRepository) CreditTx(ctx context.Context, idb bun.IDB, userID string, amount int64) error {
	result, err := idb.NewUpdate().
		Model((*models.UserMana)(nil)).
		Set("mana = mana + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit mana: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		_, err = idb.NewInsert().
			Model(&models.UserMana{
				UserID:    userID,
				Mana:      amount,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create mana balance: %w", err)
		}
	}

	return nil
}
