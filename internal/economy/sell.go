package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/database/repositories"
)

// ErrCardNotFound is returned when the card does not belong to the caller or
// was already sold. The client reacts by refetching its collection.
var ErrCardNotFound = errors.New("card not owned by user or already sold")

// SellService performs the atomic sell-for-mana operation: removing the owned
// card, crediting its snapshotted mana value, and writing the audit row happen
// in one transaction or not at all.
type SellService struct {
	txm       TxRunner
	userCards repositories.UserCardRepository
	mana      repositories.ManaRepository
	sales     repositories.SaleRepository
}

func NewSellService(txm TxRunner, userCards repositories.UserCardRepository, mana repositories.ManaRepository, sales repositories.SaleRepository) *SellService {
	return &SellService{
		txm:       txm,
		userCards: userCards,
		mana:      mana,
		sales:     sales,
	}
}

// SellReceipt reports a completed sale.
type SellReceipt struct {
	UserCardID  string `json:"user_card_id"`
	CardID      string `json:"card_id"`
	ManaAwarded int64  `json:"mana_awarded"`
}

// Sell removes the owned card and credits its mana value. When the caller
// sends an idempotency key, a replay of an already-completed sale returns the
// recorded receipt instead of crediting twice.
func (s *SellService) Sell(ctx context.Context, userID, userCardID, idempotencyKey string) (*SellReceipt, error) {
	if idempotencyKey != "" {
		sale, err := s.sales.GetByIdempotencyKey(ctx, userID, idempotencyKey)
		if err == nil {
			slog.Info("Sell replayed from idempotency key",
				slog.String("user_id", userID),
				slog.String("sale_id", sale.ID))
			return &SellReceipt{
				UserCardID:  sale.UserCardID,
				CardID:      sale.CardID,
				ManaAwarded: sale.ManaValue,
			}, nil
		}
		if !errors.Is(err, repositories.ErrSaleNotFound) {
			return nil, err
		}
	}

	var receipt *SellReceipt
	err := s.txm.WithTransaction(ctx, SerializableTransactionOptions(), func(ctx context.Context, idb bun.IDB) error {
		userCard, err := s.userCards.GetForUpdateTx(ctx, idb, userCardID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserCardNotFound) {
				return ErrCardNotFound
			}
			return err
		}

		if err := s.userCards.DeleteTx(ctx, idb, userCard.ID); err != nil {
			return err
		}

		if err := s.mana.CreditTx(ctx, idb, userID, userCard.ManaValue); err != nil {
			return err
		}

		sale := &models.CardSale{
			UserCardID:     userCard.ID,
			CardID:         userCard.CardID,
			UserID:         userID,
			ManaValue:      userCard.ManaValue,
			Status:         models.SaleStatusCompleted,
			IdempotencyKey: idempotencyKey,
		}
		if err := s.sales.CreateTx(ctx, idb, sale); err != nil {
			return err
		}

		receipt = &SellReceipt{
			UserCardID:  userCard.ID,
			CardID:      userCard.CardID,
			ManaAwarded: userCard.ManaValue,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sell failed: %w", err)
	}

	slog.Info("Card sold",
		slog.String("user_id", userID),
		slog.String("user_card_id", receipt.UserCardID),
		slog.Int64("mana_awarded", receipt.ManaAwarded))

	return receipt, nil
}
