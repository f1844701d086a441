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

var ErrUserCardNotFound = errors.New("user card not found")

type UserCardRepository interface {
	CreateTx(ctx context.Context, idb bun.IDB, userCard *models.UserCard) error
	GetByID(ctx context.Context, id string) (*models.UserCard, error)
	GetAllByUserID(ctx context.Context, userID string) ([]*models.UserCard, error)
	GetLastRollAt(ctx context.Context, userID string) (time.Time, error)
	GetLastRollAtTx(ctx context.Context, idb bun.IDB, userID string) (time.Time, error)
	GetForUpdateTx(ctx context.Context, idb bun.IDB, id, userID string) (*models.UserCard, error)
	DeleteTx(ctx context.Context, idb bun.IDB, id string) error
	GetRecent(ctx context.Context, limit int) ([]*models.UserCard, error)
}

type userCardRepository struct {
	db *bun.DB
}

func NewUserCardRepository(db *bun.DB) UserCardRepository {
	return &userCardRepository{db: db}
}

func (r *userCardRepository) CreateTx(ctx context.Context, idb bun.IDB, userCard *models.UserCard) error {
	_, err := idb.NewInsert().Model(userCard).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user card: %w", err)
	}
	return nil
}

func (r *userCardRepository) GetByID(ctx context.Context, id string) (*models.UserCard, error) {
	userCard := new(models.UserCard)
	err := r.db.NewSelect().
		Model(userCard).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserCardNotFound
	}
	return userCard, err
}

func (r *userCardRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.UserCard, error) {
	var userCards []*models.UserCard
	err := r.db.NewSelect().
		Model(&userCards).
		Where("user_id = ?", userID).
		Order("collected_at DESC").
		Scan(ctx)
	return userCards, err
}

// GetLastRollAt returns the timestamp of the user's most recent roll, or the
// zero time when the user never rolled.
func (r *userCardRepository) GetLastRollAt(ctx context.Context, userID string) (time.Time, error) {
	return r.GetLastRollAtTx(ctx, r.db, userID)
}

func (r *userCardRepository) GetLastRollAtTx(ctx context.Context, idb bun.IDB, userID string) (time.Time, error) {
	userCard := new(models.UserCard)
	err := idb.NewSelect().
		Model(userCard).
		Column("last_roll_at").
		Where("user_id = ?", userID).
		Order("last_roll_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last roll: %w", err)
	}
	return userCard.LastRollAt, nil
}

// GetForUpdateTx loads a user card scoped to its owner and locks the row for
// the rest of the transaction.
func (r *userCardRepository) GetForUpdateTx(ctx context.Context, idb bun.IDB, id, userID string) (*models.UserCard, error) {
	userCard := new(models.UserCard)
	err := idb.NewSelect().
		Model(userCard).
		Where("id = ? AND user_id = ?", id, userID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user card: %w", err)
	}
	return userCard, nil
}

func (r *userCardRepository) DeleteTx(ctx context.Context, idb bun.IDB, id string) error {
	result, err := idb.NewDelete().
		Model((*models.UserCard)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user card: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrUserCardNotFound
	}
	return nil
}

func (r *userCardRepository) GetRecent(ctx context.Context, limit int) ([]*models.UserCard, error) {
	var userCards []*models.UserCard
	err := r.db.NewSelect().
		Model(&userCards).
		Order("collected_at DESC").
		Limit(limit).
		Scan(ctx)
	return userCards, err
}
