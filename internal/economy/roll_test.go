package economy

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/gacha"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testCatalog() []*models.Card {
	return []*models.Card{
		{ID: "card-1", Title: "Milford Sound", Location: "Fiordland", Rarity: gacha.RarityLegendary, CardCode: "MIL", Season: "S1"},
		{ID: "card-2", Title: "Sky Tower", Location: "Auckland", Rarity: gacha.RarityCommon, CardCode: "SKY", Season: "S1"},
		{ID: "card-3", Title: "Hobbiton", Location: "Waikato", Rarity: gacha.RarityRare, CardCode: "HOB", Season: "S1"},
	}
}

func newTestRollService(userCards *fakeUserCardRepo) *RollService {
	s := NewRollService(&fakeTxRunner{}, &fakeCardRepo{cards: testCatalog()}, userCards)
	s.rng = rand.New(rand.NewSource(1))
	s.now = func() time.Time { return testNow }
	return s
}

func TestRollFirstTime(t *testing.T) {
	userCards := newFakeUserCardRepo()
	s := newTestRollService(userCards)

	result, err := s.Roll(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, result.Card)
	require.NotNil(t, result.UserCard)

	assert.Equal(t, "user-1", result.UserCard.UserID)
	assert.Equal(t, result.Card.ID, result.UserCard.CardID)
	assert.Equal(t, result.Card.Rarity.ManaValue(), result.UserCard.ManaValue)
	assert.Equal(t, testNow, result.UserCard.CollectedAt)
	assert.Equal(t, testNow, result.UserCard.LastRollAt)
	assert.Contains(t, result.UserCard.UniqueCardID, result.Card.CardCode)
}

func TestRollOnCooldown(t *testing.T) {
	userCards := newFakeUserCardRepo()
	userCards.add(&models.UserCard{
		UserID:     "user-1",
		CardID:     "card-2",
		LastRollAt: testNow.Add(-time.Hour),
	})
	s := newTestRollService(userCards)

	_, err := s.Roll(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrRollOnCooldown)
	assert.Len(t, userCards.byID, 1, "no card should be created on a cooldown reject")
}

func TestRollAfterCooldownExpires(t *testing.T) {
	userCards := newFakeUserCardRepo()
	userCards.add(&models.UserCard{
		UserID:     "user-1",
		CardID:     "card-2",
		LastRollAt: testNow.Add(-25 * time.Hour),
	})
	s := newTestRollService(userCards)

	result, err := s.Roll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, testNow, result.UserCard.LastRollAt)

	status, err := s.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, status.CanRoll, "a fresh roll should restart the cooldown")
	assert.Equal(t, gacha.RollCooldown, status.Remaining)
}

func TestRollEmptyCatalog(t *testing.T) {
	s := NewRollService(&fakeTxRunner{}, &fakeCardRepo{}, newFakeUserCardRepo())

	_, err := s.Roll(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestRollCooldownIsPerUser(t *testing.T) {
	userCards := newFakeUserCardRepo()
	userCards.add(&models.UserCard{
		UserID:     "user-1",
		CardID:     "card-2",
		LastRollAt: testNow.Add(-time.Hour),
	})
	s := newTestRollService(userCards)

	_, err := s.Roll(context.Background(), "user-2")
	assert.NoError(t, err, "user-1's cooldown must not block user-2")
}

func TestRollDeterministicWithSeededRNG(t *testing.T) {
	first := newTestRollService(newFakeUserCardRepo())
	second := newTestRollService(newFakeUserCardRepo())

	a, err := first.Roll(context.Background(), "user-1")
	require.NoError(t, err)
	b, err := second.Roll(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, a.Card.ID, b.Card.ID)
}

func TestStatusNeverRolled(t *testing.T) {
	s := newTestRollService(newFakeUserCardRepo())

	status, err := s.Status(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, status.CanRoll)
	assert.Zero(t, status.Remaining)
	assert.True(t, status.LastRollAt.IsZero())
}
