package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/newzealection/new-zealection/internal/database/models"
	"github.com/newzealection/new-zealection/internal/database/repositories"
)

// fakeTxRunner runs the callback directly. The fakes below keep their state in
// maps, so there is nothing transactional to manage.
type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.IDB) error) error {
	f.calls++
	return fn(ctx, nil)
}

// realisticTxRunner snapshots the fake stores before the callback and restores
// them when it fails, mimicking a rollback.
type realisticTxRunner struct {
	userCards *fakeUserCardRepo
	mana      *fakeManaRepo
}

func (r *realisticTxRunner) WithTransaction(ctx context.Context, opts *TransactionOptions, fn func(context.Context, bun.IDB) error) error {
	cardsBefore := make(map[string]*models.UserCard, len(r.userCards.byID))
	for k, v := range r.userCards.byID {
		copied := *v
		cardsBefore[k] = &copied
	}
	manaBefore := make(map[string]int64, len(r.mana.balances))
	for k, v := range r.mana.balances {
		manaBefore[k] = v
	}

	if err := fn(ctx, nil); err != nil {
		r.userCards.byID = cardsBefore
		r.mana.balances = manaBefore
		return err
	}
	return nil
}

type fakeCardRepo struct {
	cards []*models.Card
}

func (f *fakeCardRepo) Create(ctx context.Context, card *models.Card) error {
	f.cards = append(f.cards, card)
	return nil
}

func (f *fakeCardRepo) GetByID(ctx context.Context, id string) (*models.Card, error) {
	for _, card := range f.cards {
		if card.ID == id {
			return card, nil
		}
	}
	return nil, fmt.Errorf("card %s not found", id)
}

func (f *fakeCardRepo) GetAll(ctx context.Context) ([]*models.Card, error) {
	return f.cards, nil
}

func (f *fakeCardRepo) GetByIDs(ctx context.Context, ids []string) ([]*models.Card, error) {
	var out []*models.Card
	for _, id := range ids {
		for _, card := range f.cards {
			if card.ID == id {
				out = append(out, card)
			}
		}
	}
	return out, nil
}

func (f *fakeCardRepo) GetCardCount(ctx context.Context) (int64, error) {
	return int64(len(f.cards)), nil
}

func (f *fakeCardRepo) BulkCreate(ctx context.Context, cards []*models.Card) (int, error) {
	f.cards = append(f.cards, cards...)
	return len(cards), nil
}

type fakeUserCardRepo struct {
	seq      int
	byID     map[string]*models.UserCard
	createOn func(*models.UserCard) error
}

func newFakeUserCardRepo() *fakeUserCardRepo {
	return &fakeUserCardRepo{byID: make(map[string]*models.UserCard)}
}

func (f *fakeUserCardRepo) add(uc *models.UserCard) *models.UserCard {
	if uc.ID == "" {
		f.seq++
		uc.ID = fmt.Sprintf("uc-%d", f.seq)
	}
	f.byID[uc.ID] = uc
	return uc
}

func (f *fakeUserCardRepo) CreateTx(ctx context.Context, idb bun.IDB, userCard *models.UserCard) error {
	if f.createOn != nil {
		if err := f.createOn(userCard); err != nil {
			return err
		}
	}
	f.add(userCard)
	return nil
}

func (f *fakeUserCardRepo) GetByID(ctx context.Context, id string) (*models.UserCard, error) {
	uc, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrUserCardNotFound
	}
	return uc, nil
}

func (f *fakeUserCardRepo) GetAllByUserID(ctx context.Context, userID string) ([]*models.UserCard, error) {
	var out []*models.UserCard
	for _, uc := range f.byID {
		if uc.UserID == userID {
			out = append(out, uc)
		}
	}
	return out, nil
}

func (f *fakeUserCardRepo) GetLastRollAt(ctx context.Context, userID string) (time.Time, error) {
	var last time.Time
	for _, uc := range f.byID {
		if uc.UserID == userID && uc.LastRollAt.After(last) {
			last = uc.LastRollAt
		}
	}
	return last, nil
}

func (f *fakeUserCardRepo) GetLastRollAtTx(ctx context.Context, idb bun.IDB, userID string) (time.Time, error) {
	return f.GetLastRollAt(ctx, userID)
}

func (f *fakeUserCardRepo) GetForUpdateTx(ctx context.Context, idb bun.IDB, id, userID string) (*models.UserCard, error) {
	uc, ok := f.byID[id]
	if !ok || uc.UserID != userID {
		return nil, repositories.ErrUserCardNotFound
	}
	return uc, nil
}

func (f *fakeUserCardRepo) DeleteTx(ctx context.Context, idb bun.IDB, id string) error {
	if _, ok := f.byID[id]; !ok {
		return repositories.ErrUserCardNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUserCardRepo) GetRecent(ctx context.Context, limit int) ([]*models.UserCard, error) {
	var out []*models.UserCard
	for _, uc := range f.byID {
		out = append(out, uc)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeManaRepo struct {
	balances map[string]int64
	creditOn func(userID string, amount int64) error
}

func newFakeManaRepo() *fakeManaRepo {
	return &fakeManaRepo{balances: make(map[string]int64)}
}

func (f *fakeManaRepo) GetOrCreate(ctx context.Context, userID string) (*models.UserMana, error) {
	return &models.UserMana{UserID: userID, Mana: f.balances[userID]}, nil
}

func (f *fakeManaRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	return f.balances[userID], nil
}

func (f *fakeManaRepo) CreditTx(ctx context.Context, idb bun.IDB, userID string, amount int64) error {
	if f.creditOn != nil {
		if err := f.creditOn(userID, amount); err != nil {
			return err
		}
	}
	f.balances[userID] += amount
	return nil
}

type fakeSaleRepo struct {
	seq      int
	sales    []*models.CardSale
	createOn func(*models.CardSale) error
}

func (f *fakeSaleRepo) CreateTx(ctx context.Context, idb bun.IDB, sale *models.CardSale) error {
	if f.createOn != nil {
		if err := f.createOn(sale); err != nil {
			return err
		}
	}
	if sale.ID == "" {
		f.seq++
		sale.ID = fmt.Sprintf("sale-%d", f.seq)
	}
	f.sales = append(f.sales, sale)
	return nil
}

func (f *fakeSaleRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*models.CardSale, error) {
	for _, sale := range f.sales {
		if sale.UserID == userID && sale.IdempotencyKey == key {
			return sale, nil
		}
	}
	return nil, repositories.ErrSaleNotFound
}

func (f *fakeSaleRepo) GetByUserID(ctx context.Context, userID string, limit int) ([]*models.CardSale, error) {
	var out []*models.CardSale
	for _, sale := range f.sales {
		if sale.UserID == userID {
			out = append(out, sale)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
