package economy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newzealection/new-zealection/internal/database/models"
)

func newTestSellService() (*SellService, *fakeUserCardRepo, *fakeManaRepo, *fakeSaleRepo) {
	userCards := newFakeUserCardRepo()
	mana := newFakeManaRepo()
	sales := &fakeSaleRepo{}
	s := NewSellService(&fakeTxRunner{}, userCards, mana, sales)
	return s, userCards, mana, sales
}

func ownedCard(userID string, value int64) *models.UserCard {
	return &models.UserCard{
		UserID:       userID,
		CardID:       "card-1",
		UniqueCardID: "MIL-S1-AB12",
		ManaValue:    value,
		CollectedAt:  time.Now(),
	}
}

func TestSellSuccess(t *testing.T) {
	s, userCards, mana, sales := newTestSellService()
	uc := userCards.add(ownedCard("user-1", 300))

	receipt, err := s.Sell(context.Background(), "user-1", uc.ID, "")
	require.NoError(t, err)

	assert.Equal(t, uc.ID, receipt.UserCardID)
	assert.Equal(t, int64(300), receipt.ManaAwarded)

	balance, _ := mana.GetBalance(context.Background(), "user-1")
	assert.Equal(t, int64(300), balance)

	_, err = userCards.GetByID(context.Background(), uc.ID)
	assert.Error(t, err, "sold card should be gone from the collection")

	require.Len(t, sales.sales, 1)
	assert.Equal(t, models.SaleStatusCompleted, sales.sales[0].Status)
	assert.Equal(t, int64(300), sales.sales[0].ManaValue)
}

func TestSellCardNotOwned(t *testing.T) {
	s, userCards, mana, _ := newTestSellService()
	uc := userCards.add(ownedCard("someone-else", 300))

	_, err := s.Sell(context.Background(), "user-1", uc.ID, "")
	assert.ErrorIs(t, err, ErrCardNotFound)

	// Nothing changed for either user.
	balance, _ := mana.GetBalance(context.Background(), "user-1")
	assert.Zero(t, balance)
	_, err = userCards.GetByID(context.Background(), uc.ID)
	assert.NoError(t, err, "the other user's card must survive")
}

func TestSellUnknownCard(t *testing.T) {
	s, _, _, _ := newTestSellService()

	_, err := s.Sell(context.Background(), "user-1", "no-such-card", "")
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestSellCreditsSnapshottedValueNotCurrentRarity(t *testing.T) {
	s, userCards, mana, _ := newTestSellService()
	// The card was rolled when its rarity was worth 400.
	uc := userCards.add(ownedCard("user-1", 400))

	receipt, err := s.Sell(context.Background(), "user-1", uc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(400), receipt.ManaAwarded)

	balance, _ := mana.GetBalance(context.Background(), "user-1")
	assert.Equal(t, int64(400), balance)
}

func TestSellIdempotentReplay(t *testing.T) {
	s, userCards, mana, sales := newTestSellService()
	uc := userCards.add(ownedCard("user-1", 300))

	first, err := s.Sell(context.Background(), "user-1", uc.ID, "key-1")
	require.NoError(t, err)

	// Same key again: the card is already gone, but the recorded receipt is
	// returned and the balance does not move.
	second, err := s.Sell(context.Background(), "user-1", uc.ID, "key-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	balance, _ := mana.GetBalance(context.Background(), "user-1")
	assert.Equal(t, int64(300), balance, "replay must not credit twice")
	assert.Len(t, sales.sales, 1, "replay must not write a second audit row")
}

func TestSellIdempotencyKeyIsPerUser(t *testing.T) {
	s, userCards, mana, _ := newTestSellService()
	a := userCards.add(ownedCard("user-1", 300))
	b := userCards.add(ownedCard("user-2", 100))

	_, err := s.Sell(context.Background(), "user-1", a.ID, "shared-key")
	require.NoError(t, err)

	receipt, err := s.Sell(context.Background(), "user-2", b.ID, "shared-key")
	require.NoError(t, err)
	assert.Equal(t, int64(100), receipt.ManaAwarded, "user-2's sale must not replay user-1's receipt")

	balance, _ := mana.GetBalance(context.Background(), "user-2")
	assert.Equal(t, int64(100), balance)
}

func TestSellRollsBackOnAuditFailure(t *testing.T) {
	userCards := newFakeUserCardRepo()
	mana := newFakeManaRepo()
	sales := &fakeSaleRepo{
		createOn: func(*models.CardSale) error {
			return errors.New("disk full")
		},
	}
	s := NewSellService(&realisticTxRunner{userCards: userCards, mana: mana}, userCards, mana, sales)
	uc := userCards.add(ownedCard("user-1", 300))

	_, err := s.Sell(context.Background(), "user-1", uc.ID, "")
	require.Error(t, err)

	// The runner restored pre-transaction state: card kept, nothing credited.
	_, err = userCards.GetByID(context.Background(), uc.ID)
	assert.NoError(t, err)
	balance, _ := mana.GetBalance(context.Background(), "user-1")
	assert.Zero(t, balance)
}
