package economy

import (
	"context"

	"github.com/newzealection/new-zealection/internal/database/repositories"
)

// ManaService exposes the per-user currency balance.
type ManaService struct {
	mana repositories.ManaRepository
}

func NewManaService(mana repositories.ManaRepository) *ManaService {
	return &ManaService{mana: mana}
}

// Balance returns the user's mana, initializing the balance row to 0 on first
// read.
func (s *ManaService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.mana.GetBalance(ctx, userID)
}
