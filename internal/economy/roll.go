package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/database/repositories"
	"github.com/newzealection/new-zealection/internal/gacha"
)

var (
	ErrRollOnCooldown = errors.New("roll is on cooldown")
	ErrEmptyCatalog   = errors.New("card catalog is empty")
)

// RollService draws random cards into user collections. Selection authority
// lives here, server-side; clients only ask for a draw and never propose the
// result.
type RollService struct {
	txm       TxRunner
	cards     repositories.CardRepository
	userCards repositories.UserCardRepository

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewRollService(txm TxRunner, cards repositories.CardRepository, userCards repositories.UserCardRepository) *RollService {
	return &RollService{
		txm:       txm,
		cards:     cards,
		userCards: userCards,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// RollStatus describes a user's current roll eligibility.
type RollStatus struct {
	CanRoll    bool          `json:"can_roll"`
	Remaining  time.Duration `json:"remaining"`
	LastRollAt time.Time     `json:"last_roll_at"`
}

func (s *RollService) Status(ctx context.Context, userID string) (*RollStatus, error) {
	lastRoll, err := s.userCards.GetLastRollAt(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &RollStatus{
		CanRoll:    gacha.CanRoll(lastRoll, now),
		Remaining:  gacha.Countdown(lastRoll, now),
		LastRollAt: lastRoll,
	}, nil
}

// RollResult is a successful draw.
type RollResult struct {
	Card     *models.Card
	UserCard *models.UserCard
}

// Roll draws one card uniformly at random from the catalog and binds it to the
// user. Eligibility is re-checked inside the transaction so two concurrent
// requests cannot both pass the cooldown gate.
func (s *RollService) Roll(ctx context.Context, userID string) (*RollResult, error) {
	catalog, err := s.cards.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	var result *RollResult
	err = s.txm.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, idb bun.IDB) error {
		lastRoll, err := s.userCards.GetLastRollAtTx(ctx, idb, userID)
		if err != nil {
			return err
		}

		now := s.now()
		if !gacha.CanRoll(lastRoll, now) {
			return ErrRollOnCooldown
		}

		card := catalog[s.pick(len(catalog))]

		code, err := gacha.NewInstanceCode(card.CardCode, card.Season)
		if err != nil {
			return err
		}

		userCard := &models.UserCard{
			UserID:       userID,
			CardID:       card.ID,
			UniqueCardID: code,
			ManaValue:    card.Rarity.ManaValue(),
			CollectedAt:  now,
			LastRollAt:   now,
		}
		if err := s.userCards.CreateTx(ctx, idb, userCard); err != nil {
			return err
		}

		result = &RollResult{Card: card, UserCard: userCard}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Card rolled",
		slog.String("user_id", userID),
		slog.String("card_id", result.Card.ID),
		slog.String("rarity", string(result.Card.Rarity)),
		slog.String("instance", result.UserCard.UniqueCardID))

	return result, nil
}

func (s *RollService) pick(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
