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

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) (created bool, err error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

type profileRepository struct {
	db *bun.DB
}

func NewProfileRepository(db *bun.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert creates or refreshes the profile row for an identity-provider user.
// The created flag lets the caller send a welcome email only once.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) (bool, error) {
	now := time.Now()

	result, err := r.db.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("email = ?", profile.Email).
		Set("updated_at = ?", now).
		Where("id = ?", profile.ID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to update profile: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		return false, nil
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	_, err = r.db.NewInsert().Model(profile).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to create profile: %w", err)
	}
	return true, nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	profile := new(models.Profile)
	err := r.db.NewSelect().
		Model(profile).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}
