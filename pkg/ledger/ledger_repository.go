package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
)

type (
	LedgerRepository interface {
		// Wallets
		GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error)
		GetWalletByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error)
		CreateWallet(ctx context.Context, wallet *entities.Wallet) error
		FreezeWallet(ctx context.Context, walletID uuid.UUID) error
		ListWalletIDs(ctx context.Context) ([]uuid.UUID, error)

		// Transactions
		ApplyTransaction(ctx context.Context, wallet *entities.Wallet, tx *entities.CoinTransaction) error
		GetTransactionByIdempotencyKey(ctx context.Context, key string) (*entities.CoinTransaction, error)
		GetUserTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.CoinTransaction, int64, error)
		SumTransactionAmounts(ctx context.Context, walletID uuid.UUID) (int64, error)
	}

	ledgerRepository struct {
		db *gorm.DB
	}
)

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}

func (r *ledgerRepository) GetWalletByUserID(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	var wallet entities.Wallet
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByID(ctx context.Context, id uuid.UUID) (*entities.Wallet, error) {
	var wallet entities.Wallet
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

func (r *ledgerRepository) CreateWallet(ctx context.Context, wallet *entities.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *ledgerRepository) FreezeWallet(ctx context.Context, walletID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.Wallet{}).
		Where("id = ?", walletID).
		Update("frozen", true).Error
}

func (r *ledgerRepository) ListWalletIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&entities.Wallet{}).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ApplyTransaction commits the balance update and the transaction record as a
// single unit. The wallet row is updated through a version check; a stale
// version means a concurrent writer won and the caller must retry with fresh
// state.
func (r *ledgerRepository) ApplyTransaction(ctx context.Context, wallet *entities.Wallet, tx *entities.CoinTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Model(&entities.Wallet{}).
			Where("id = ? AND version = ? AND frozen = false", wallet.ID, wallet.Version).
			Updates(map[string]any{
				"balance":         wallet.Balance,
				"lifetime_earned": wallet.LifetimeEarned,
				"lifetime_spent":  wallet.LifetimeSpent,
				"version":         wallet.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}

		if err := db.Create(tx).Error; err != nil {
			if isUniqueViolation(err) {
				// Idempotency key landed concurrently; the whole unit rolls
				// back and the service returns the existing transaction.
				return errDuplicateKey
			}
			return err
		}
		return nil
	})
}

var errDuplicateKey = errors.New("idempotency key already exists")

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key value")
}

func (r *ledgerRepository) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*entities.CoinTransaction, error) {
	var tx entities.CoinTransaction
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *ledgerRepository) GetUserTransactions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.CoinTransaction, int64, error) {
	var transactions []*entities.CoinTransaction
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.CoinTransaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, 0, err
	}

	return transactions, count, nil
}

func (r *ledgerRepository) SumTransactionAmounts(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var total int64
	query := r.db.WithContext(ctx).
		Model(&entities.CoinTransaction{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(amount), 0) as total")
	if err := query.Row().Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
