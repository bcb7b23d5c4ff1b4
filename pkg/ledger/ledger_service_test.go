package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
)

type fakeLedgerRepository struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]*entities.Wallet
	byUser  map[uuid.UUID]uuid.UUID
	txs     []*entities.CoinTransaction
	byKey   map[string]*entities.CoinTransaction

	// forceConflicts makes the next n ApplyTransaction calls lose the
	// version check.
	forceConflicts int

	// beforeSum runs just before SumTransactionAmounts reads, to interleave
	// writes with an in-flight audit.
	beforeSum func()
}

func newFakeLedgerRepository() *fakeLedgerRepository {
	return &fakeLedgerRepository{
		wallets: make(map[uuid.UUID]*entities.Wallet),
		byUser:  make(map[uuid.UUID]uuid.UUID),
		byKey:   make(map[string]*entities.CoinTransaction),
	}
}

func (f *fakeLedgerRepository) GetWalletByUserID(_ context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUser[userID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	copy := *f.wallets[id]
	return &copy, nil
}

func (f *fakeLedgerRepository) GetWalletByID(_ context.Context, id uuid.UUID) (*entities.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet, ok := f.wallets[id]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	copy := *wallet
	return &copy, nil
}

func (f *fakeLedgerRepository) CreateWallet(_ context.Context, wallet *entities.Wallet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[wallet.UserID]; ok {
		return errDuplicateKey
	}
	copy := *wallet
	f.wallets[wallet.ID] = &copy
	f.byUser[wallet.UserID] = wallet.ID
	return nil
}

func (f *fakeLedgerRepository) FreezeWallet(_ context.Context, walletID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	wallet, ok := f.wallets[walletID]
	if !ok {
		return domain.ErrWalletNotFound
	}
	wallet.Frozen = true
	return nil
}

func (f *fakeLedgerRepository) ListWalletIDs(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(f.wallets))
	for id := range f.wallets {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeLedgerRepository) ApplyTransaction(_ context.Context, wallet *entities.Wallet, tx *entities.CoinTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forceConflicts > 0 {
		f.forceConflicts--
		return domain.ErrConflict
	}

	stored, ok := f.wallets[wallet.ID]
	if !ok || stored.Version != wallet.Version || stored.Frozen {
		return domain.ErrConflict
	}
	if tx.IdempotencyKey != nil {
		if _, exists := f.byKey[*tx.IdempotencyKey]; exists {
			return errDuplicateKey
		}
	}

	stored.Balance = wallet.Balance
	stored.LifetimeEarned = wallet.LifetimeEarned
	stored.LifetimeSpent = wallet.LifetimeSpent
	stored.Version = wallet.Version + 1

	copy := *tx
	f.txs = append(f.txs, &copy)
	if tx.IdempotencyKey != nil {
		f.byKey[*tx.IdempotencyKey] = &copy
	}
	return nil
}

func (f *fakeLedgerRepository) GetTransactionByIdempotencyKey(_ context.Context, key string) (*entities.CoinTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.byKey[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copy := *tx
	return &copy, nil
}

func (f *fakeLedgerRepository) GetUserTransactions(_ context.Context, userID uuid.UUID, page, limit int) ([]*entities.CoinTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*entities.CoinTransaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			matched = append(matched, tx)
		}
	}
	count := int64(len(matched))
	start := (page - 1) * limit
	if start > len(matched) {
		return nil, count, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], count, nil
}

func (f *fakeLedgerRepository) SumTransactionAmounts(_ context.Context, walletID uuid.UUID) (int64, error) {
	if f.beforeSum != nil {
		hook := f.beforeSum
		f.beforeSum = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int64
	for _, tx := range f.txs {
		if tx.WalletID == walletID {
			sum += tx.Amount
		}
	}
	return sum, nil
}

func newTestLedger() (LedgerService, *fakeLedgerRepository) {
	repo := newFakeLedgerRepository()
	return NewLedgerService(repo, NewEventBus()), repo
}

func TestApplyCreditThenDebit(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	result, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 100,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.Balance)
	assert.False(t, result.Duplicate)

	result, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: -30,
		Type:   entities.TransactionSpend,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(70), result.Balance)

	wallet, err := service.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), wallet.Balance)
	assert.Equal(t, int64(100), wallet.LifetimeEarned)
	assert.Equal(t, int64(30), wallet.LifetimeSpent)

	sum, err := repo.SumTransactionAmounts(ctx, repo.byUser[userID])
	require.NoError(t, err)
	assert.Equal(t, wallet.Balance, sum)
}

func TestApplyRejectsOverdraft(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 50,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)

	_, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: -80,
		Type:   entities.TransactionSpend,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	wallet, err := service.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), wallet.Balance)
	assert.Len(t, repo.txs, 1)
}

func TestApplyIdempotentReplay(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	first, err := service.Apply(ctx, ApplyParams{
		UserID:         userID,
		Amount:         100,
		Type:           entities.TransactionEarn,
		IdempotencyKey: "daily-bonus:2026-08-29",
	})
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := service.Apply(ctx, ApplyParams{
		UserID:         userID,
		Amount:         100,
		Type:           entities.TransactionEarn,
		IdempotencyKey: "daily-bonus:2026-08-29",
	})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.Equal(t, first.Balance, second.Balance)
	assert.Len(t, repo.txs, 1)

	wallet, err := service.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), wallet.Balance)
}

func TestApplyRetriesLostVersionCheck(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	repo.forceConflicts = maxApplyAttempts - 1
	result, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 25,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), result.Balance)

	repo.forceConflicts = maxApplyAttempts
	_, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 25,
		Type:   entities.TransactionEarn,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestApplyRefusesFrozenWallet(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 10,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)

	require.NoError(t, repo.FreezeWallet(ctx, repo.byUser[userID]))

	_, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 10,
		Type:   entities.TransactionEarn,
	})
	assert.ErrorIs(t, err, domain.ErrWalletFrozen)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 70,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, amount := range []int64{-80, -50} {
		wg.Add(1)
		go func(i int, amount int64) {
			defer wg.Done()
			_, results[i] = service.Apply(ctx, ApplyParams{
				UserID: userID,
				Amount: amount,
				Type:   entities.TransactionSpend,
			})
		}(i, amount)
	}
	wg.Wait()

	// 70 covers the 50 but never the 80, regardless of interleaving.
	assert.ErrorIs(t, results[0], domain.ErrInsufficientFunds)
	assert.NoError(t, results[1])

	wallet, err := service.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), wallet.Balance)

	sum, err := repo.SumTransactionAmounts(ctx, repo.byUser[userID])
	require.NoError(t, err)
	assert.Equal(t, wallet.Balance, sum)
}

func TestApplyValidatesAmountSign(t *testing.T) {
	service, _ := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name    string
		amount  int64
		txType  entities.TransactionType
		wantErr error
	}{
		{"positive spend", 10, entities.TransactionSpend, domain.ErrInvalidAmount},
		{"negative earn", -10, entities.TransactionEarn, domain.ErrInvalidAmount},
		{"zero adjustment", 0, entities.TransactionAdjustment, domain.ErrInvalidAmount},
		{"unknown type", 10, entities.TransactionType("transfer"), domain.ErrInvalidTransactionType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Apply(ctx, ApplyParams{
				UserID: userID,
				Amount: tc.amount,
				Type:   tc.txType,
			})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAuditFreezesDriftedWallet(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 100,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)

	walletID := repo.byUser[userID]
	require.NoError(t, service.Audit(ctx, walletID))

	// Corrupt the balance behind the ledger's back.
	repo.mu.Lock()
	repo.wallets[walletID].Balance = 999
	repo.mu.Unlock()

	err = service.Audit(ctx, walletID)
	assert.ErrorIs(t, err, domain.ErrLedgerDrift)
	assert.True(t, repo.wallets[walletID].Frozen)

	_, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 10,
		Type:   entities.TransactionEarn,
	})
	assert.ErrorIs(t, err, domain.ErrWalletFrozen)
}

func TestAuditToleratesConcurrentWrites(t *testing.T) {
	service, repo := newTestLedger()
	ctx := context.Background()
	userID := uuid.New()

	_, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 100,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)

	walletID := repo.byUser[userID]

	// An earn commits between the audit's balance read and its sum read.
	repo.beforeSum = func() {
		_, err := service.Apply(ctx, ApplyParams{
			UserID: userID,
			Amount: 50,
			Type:   entities.TransactionEarn,
		})
		require.NoError(t, err)
	}

	require.NoError(t, service.Audit(ctx, walletID))
	assert.False(t, repo.wallets[walletID].Frozen)

	result, err := service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: 25,
		Type:   entities.TransactionEarn,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(175), result.Balance)
}

func TestApplyPublishesEvents(t *testing.T) {
	repo := newFakeLedgerRepository()
	events := NewEventBus()
	service := NewLedgerService(repo, events)
	ctx := context.Background()
	userID := uuid.New()

	var received []TransactionApplied
	events.Subscribe(func(_ context.Context, event TransactionApplied) {
		received = append(received, event)
	})

	_, err := service.Apply(ctx, ApplyParams{
		UserID:         userID,
		Amount:         40,
		Type:           entities.TransactionEarn,
		IdempotencyKey: "welcome",
	})
	require.NoError(t, err)

	// Replays and rejected debits publish nothing.
	_, err = service.Apply(ctx, ApplyParams{
		UserID:         userID,
		Amount:         40,
		Type:           entities.TransactionEarn,
		IdempotencyKey: "welcome",
	})
	require.NoError(t, err)
	_, err = service.Apply(ctx, ApplyParams{
		UserID: userID,
		Amount: -100,
		Type:   entities.TransactionSpend,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	require.Len(t, received, 1)
	assert.Equal(t, userID, received[0].UserID)
	assert.Equal(t, int64(40), received[0].Amount)
	assert.Equal(t, int64(40), received[0].Balance)
}

func TestGetWalletUnknownUserIsZero(t *testing.T) {
	service, _ := newTestLedger()

	wallet, err := service.GetWallet(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
}
