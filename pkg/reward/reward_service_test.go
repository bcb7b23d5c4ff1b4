package reward

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/pkg/ledger"
)

type fakeRewardRepository struct {
	items     map[uuid.UUID]*entities.RewardItem
	purchases map[uuid.UUID]*entities.RewardPurchase

	releaseCalls      int
	releaseFailures   int
	createPurchaseErr error
	markRefundedErr   error
}

func newFakeRewardRepository() *fakeRewardRepository {
	return &fakeRewardRepository{
		items:     make(map[uuid.UUID]*entities.RewardItem),
		purchases: make(map[uuid.UUID]*entities.RewardPurchase),
	}
}

func (f *fakeRewardRepository) CreateRewardItem(_ context.Context, item *entities.RewardItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeRewardRepository) GetRewardItemByID(_ context.Context, id uuid.UUID) (*entities.RewardItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, domain.ErrRewardItemNotFound
	}
	copy := *item
	return &copy, nil
}

func (f *fakeRewardRepository) ListRewardItems(_ context.Context, category string, _, _ int) ([]*entities.RewardItem, int64, error) {
	var items []*entities.RewardItem
	for _, item := range f.items {
		if item.IsActive && (category == "" || item.Category == category) {
			items = append(items, item)
		}
	}
	return items, int64(len(items)), nil
}

func (f *fakeRewardRepository) UpdateRewardItem(_ context.Context, item *entities.RewardItem) error {
	f.items[item.ID] = item
	return nil
}

func (f *fakeRewardRepository) ReserveStock(_ context.Context, itemID uuid.UUID) error {
	item, ok := f.items[itemID]
	if !ok || item.Stock == nil || !item.IsActive || *item.Stock <= 0 {
		return domain.ErrOutOfStock
	}
	*item.Stock--
	return nil
}

func (f *fakeRewardRepository) ReleaseStock(_ context.Context, itemID uuid.UUID) error {
	f.releaseCalls++
	if f.releaseFailures > 0 {
		f.releaseFailures--
		return errors.New("connection reset")
	}
	item, ok := f.items[itemID]
	if !ok || item.Stock == nil {
		return domain.ErrRewardItemNotFound
	}
	*item.Stock++
	return nil
}

func (f *fakeRewardRepository) CreatePurchase(_ context.Context, purchase *entities.RewardPurchase) error {
	if f.createPurchaseErr != nil {
		return f.createPurchaseErr
	}
	f.purchases[purchase.ID] = purchase
	return nil
}

func (f *fakeRewardRepository) GetPurchaseByID(_ context.Context, id uuid.UUID) (*entities.RewardPurchase, error) {
	purchase, ok := f.purchases[id]
	if !ok {
		return nil, domain.ErrPurchaseNotFound
	}
	copy := *purchase
	copy.RewardItem = f.items[purchase.RewardItemID]
	return &copy, nil
}

func (f *fakeRewardRepository) MarkRefunded(_ context.Context, id uuid.UUID) (bool, error) {
	if f.markRefundedErr != nil {
		err := f.markRefundedErr
		f.markRefundedErr = nil
		return false, err
	}
	purchase, ok := f.purchases[id]
	if !ok {
		return false, nil
	}
	if purchase.Status != entities.RewardPurchasePending && purchase.Status != entities.RewardPurchaseFulfilled {
		return false, nil
	}
	purchase.Status = entities.RewardPurchaseRefunded
	return true, nil
}

func (f *fakeRewardRepository) GetUserPurchases(_ context.Context, userID uuid.UUID, _, _ int) ([]*entities.RewardPurchase, int64, error) {
	var matched []*entities.RewardPurchase
	for _, p := range f.purchases {
		if p.UserID == userID {
			matched = append(matched, p)
		}
	}
	return matched, int64(len(matched)), nil
}

// fakeLedger tracks applied amounts per user and honors idempotency keys, so
// rollback and refund paths can be asserted without a database.
type fakeLedger struct {
	balances map[uuid.UUID]int64
	applied  []ledger.ApplyParams
	byKey    map[string]uuid.UUID
	applyErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[uuid.UUID]int64),
		byKey:    make(map[string]uuid.UUID),
	}
}

func (f *fakeLedger) Apply(_ context.Context, params ledger.ApplyParams) (*ledger.ApplyResult, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	if params.IdempotencyKey != "" {
		if id, ok := f.byKey[params.IdempotencyKey]; ok {
			return &ledger.ApplyResult{TransactionID: id, Balance: f.balances[params.UserID], Duplicate: true}, nil
		}
	}
	if f.balances[params.UserID]+params.Amount < 0 {
		return nil, domain.ErrInsufficientFunds
	}
	f.balances[params.UserID] += params.Amount
	f.applied = append(f.applied, params)
	id := uuid.New()
	if params.IdempotencyKey != "" {
		f.byKey[params.IdempotencyKey] = id
	}
	return &ledger.ApplyResult{TransactionID: id, Balance: f.balances[params.UserID]}, nil
}

func (f *fakeLedger) GetWallet(_ context.Context, userID uuid.UUID) (*domain.WalletResponse, error) {
	return &domain.WalletResponse{UserID: userID.String(), Balance: f.balances[userID]}, nil
}

func (f *fakeLedger) GetTransactionHistory(context.Context, uuid.UUID, int, int) ([]*domain.TransactionResponse, int64, error) {
	return nil, 0, nil
}

func (f *fakeLedger) Audit(context.Context, uuid.UUID) error { return nil }
func (f *fakeLedger) AuditAll(context.Context)               {}
func (f *fakeLedger) Events() *ledger.EventBus               { return nil }

func seedItem(repo *fakeRewardRepository, price int64, stock *int) *entities.RewardItem {
	item := &entities.RewardItem{
		ID:       uuid.New(),
		Name:     "Avatar Frame",
		Category: "cosmetic",
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	repo.items[item.ID] = item
	return item
}

func intPtr(v int) *int { return &v }

func TestPurchaseDebitsAndDecrementsStock(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 200
	item := seedItem(repo, 150, intPtr(3))

	purchase, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RewardPurchaseFulfilled, purchase.Status)
	assert.Equal(t, int64(50), ledgerFake.balances[userID])
	assert.Equal(t, 2, *repo.items[item.ID].Stock)
}

func TestPurchaseReturnsUnitWhenDebitFails(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 10
	item := seedItem(repo, 150, intPtr(1))

	_, err := service.Purchase(ctx, userID, item.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 1, *repo.items[item.ID].Stock)

	require.Len(t, repo.purchases, 1)
	for _, purchase := range repo.purchases {
		assert.Equal(t, entities.RewardPurchaseFailed, purchase.Status)
	}
}

func TestRefundRefusesFailedPurchase(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	item := seedItem(repo, 150, nil)
	_, err := service.Purchase(ctx, userID, item.ID)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var failedID uuid.UUID
	for id := range repo.purchases {
		failedID = id
	}

	err = service.Refund(ctx, failedID)
	assert.ErrorIs(t, err, domain.ErrPurchaseNotRefundable)
	assert.Equal(t, int64(0), ledgerFake.balances[userID])
}

func TestPurchaseCompensationRetriesTransientFailure(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	item := seedItem(repo, 150, intPtr(1))
	repo.releaseFailures = 2

	_, err := service.Purchase(ctx, userID, item.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, 3, repo.releaseCalls)
	assert.Equal(t, 1, *repo.items[item.ID].Stock)
}

func TestPurchaseRollsBackDebitWhenRecordFails(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 200
	item := seedItem(repo, 150, intPtr(1))
	repo.createPurchaseErr = errors.New("insert failed")

	_, err := service.Purchase(ctx, userID, item.ID)
	require.Error(t, err)
	assert.Equal(t, int64(200), ledgerFake.balances[userID])
	assert.Equal(t, 1, *repo.items[item.ID].Stock)
}

func TestPurchaseOutOfStock(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 500
	item := seedItem(repo, 150, intPtr(0))

	_, err := service.Purchase(ctx, userID, item.ID)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Equal(t, int64(500), ledgerFake.balances[userID])
}

func TestPurchaseUnlimitedItemSkipsStock(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 200
	item := seedItem(repo, 50, nil)

	_, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, repo.releaseCalls)
	assert.Equal(t, int64(150), ledgerFake.balances[userID])
}

func TestPurchaseInactiveItem(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()

	item := seedItem(repo, 50, nil)
	item.IsActive = false

	_, err := service.Purchase(ctx, uuid.New(), item.ID)
	assert.ErrorIs(t, err, domain.ErrRewardItemInactive)
}

func TestPurchasePendingWhenFulfillmentRequired(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 500
	item := seedItem(repo, 100, nil)
	item.RequiresFulfillment = true

	purchase, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RewardPurchasePending, purchase.Status)
}

func TestPurchaseRecordsCategorySpend(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	var gotCategory string
	var gotAmount int64
	service.SetCategorySpendRecorder(func(_ context.Context, category string, amount int64) {
		gotCategory = category
		gotAmount = amount
	})

	ledgerFake.balances[userID] = 500
	item := seedItem(repo, 100, nil)

	_, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "cosmetic", gotCategory)
	assert.Equal(t, int64(100), gotAmount)
}

func TestRefundRestoresCoinsAndStock(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 200
	item := seedItem(repo, 150, intPtr(2))

	purchase, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	purchaseID := uuid.MustParse(purchase.ID)

	require.NoError(t, service.Refund(ctx, purchaseID))
	assert.Equal(t, int64(200), ledgerFake.balances[userID])
	assert.Equal(t, 2, *repo.items[item.ID].Stock)
	assert.Equal(t, entities.RewardPurchaseRefunded, repo.purchases[purchaseID].Status)

	err = service.Refund(ctx, purchaseID)
	assert.ErrorIs(t, err, domain.ErrPurchaseAlreadyRefunded)
	assert.Equal(t, int64(200), ledgerFake.balances[userID])
}

func TestRefundRetryRestocksOnce(t *testing.T) {
	repo := newFakeRewardRepository()
	ledgerFake := newFakeLedger()
	service := NewRewardService(repo, ledgerFake, nil)
	ctx := context.Background()
	userID := uuid.New()

	ledgerFake.balances[userID] = 200
	item := seedItem(repo, 150, intPtr(5))

	purchase, err := service.Purchase(ctx, userID, item.ID)
	require.NoError(t, err)
	purchaseID := uuid.MustParse(purchase.ID)

	// The status transition fails transiently after the credit landed; the
	// caller retries the whole refund.
	repo.markRefundedErr = errors.New("connection reset")
	require.Error(t, service.Refund(ctx, purchaseID))
	assert.Equal(t, 0, repo.releaseCalls)

	require.NoError(t, service.Refund(ctx, purchaseID))
	assert.Equal(t, int64(200), ledgerFake.balances[userID])
	assert.Equal(t, 5, *repo.items[item.ID].Stock)
	assert.Equal(t, 1, repo.releaseCalls)
	assert.Equal(t, entities.RewardPurchaseRefunded, repo.purchases[purchaseID].Status)
}
