package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
)

// maxApplyAttempts bounds the internal retry on a lost version check before
// ErrConflict is surfaced to the caller.
const maxApplyAttempts = 3

// maxAuditAttempts bounds the retry on obtaining a version-stable read of a
// wallet and its transaction sum.
const maxAuditAttempts = 3

type (
	ApplyParams struct {
		UserID         uuid.UUID
		Amount         int64
		Type           entities.TransactionType
		ReferenceType  string
		ReferenceID    *uuid.UUID
		IdempotencyKey string
		Description    string
	}

	ApplyResult struct {
		TransactionID uuid.UUID
		Balance       int64
		// Duplicate reports that the idempotency key was already applied and
		// the prior result is being returned.
		Duplicate bool
	}

	LedgerService interface {
		Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error)
		GetWallet(ctx context.Context, userID uuid.UUID) (*domain.WalletResponse, error)
		GetTransactionHistory(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.TransactionResponse, int64, error)
		Audit(ctx context.Context, walletID uuid.UUID) error
		AuditAll(ctx context.Context)
		Events() *EventBus
	}

	ledgerService struct {
		ledgerRepository LedgerRepository
		events           *EventBus
	}
)

func NewLedgerService(ledgerRepository LedgerRepository, events *EventBus) LedgerService {
	return &ledgerService{
		ledgerRepository: ledgerRepository,
		events:           events,
	}
}

func (s *ledgerService) Events() *EventBus {
	return s.events
}

// Apply validates, persists, and publishes one balance change. The balance
// update and transaction insert commit as a single unit; a debit that would
// take the balance below zero is rejected with the wallet untouched.
func (s *ledgerService) Apply(ctx context.Context, params ApplyParams) (*ApplyResult, error) {
	if err := validateAmount(params.Type, params.Amount); err != nil {
		return nil, err
	}

	if params.IdempotencyKey != "" {
		if result, err := s.findExisting(ctx, params.IdempotencyKey); err == nil {
			return result, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		wallet, err := s.getOrCreateWallet(ctx, params.UserID)
		if err != nil {
			return nil, err
		}
		if wallet.Frozen {
			return nil, domain.ErrWalletFrozen
		}

		newBalance := wallet.Balance + params.Amount
		if newBalance < 0 {
			return nil, domain.ErrInsufficientFunds
		}

		wallet.Balance = newBalance
		if params.Amount > 0 {
			wallet.LifetimeEarned += params.Amount
		} else {
			wallet.LifetimeSpent += -params.Amount
		}

		tx := &entities.CoinTransaction{
			ID:            uuid.New(),
			WalletID:      wallet.ID,
			UserID:        params.UserID,
			Amount:        params.Amount,
			Type:          params.Type,
			ReferenceType: params.ReferenceType,
			ReferenceID:   params.ReferenceID,
			Description:   params.Description,
			Balance:       newBalance,
			Timestamp: entities.Timestamp{
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
		}
		if params.IdempotencyKey != "" {
			key := params.IdempotencyKey
			tx.IdempotencyKey = &key
		}

		err = s.ledgerRepository.ApplyTransaction(ctx, wallet, tx)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if errors.Is(err, errDuplicateKey) {
			// Lost an idempotency race; the other writer's result stands.
			return s.findExisting(ctx, params.IdempotencyKey)
		}
		if err != nil {
			return nil, err
		}

		s.events.Publish(ctx, TransactionApplied{
			TransactionID: tx.ID,
			WalletID:      wallet.ID,
			UserID:        params.UserID,
			Amount:        params.Amount,
			Type:          params.Type,
			Balance:       newBalance,
			OccurredAt:    tx.CreatedAt,
		})

		return &ApplyResult{
			TransactionID: tx.ID,
			Balance:       newBalance,
		}, nil
	}

	return nil, domain.ErrConflict
}

func validateAmount(txType entities.TransactionType, amount int64) error {
	switch txType {
	case entities.TransactionSpend:
		if amount >= 0 {
			return domain.ErrInvalidAmount
		}
	case entities.TransactionEarn, entities.TransactionPurchase,
		entities.TransactionRefund, entities.TransactionAchievement:
		if amount <= 0 {
			return domain.ErrInvalidAmount
		}
	case entities.TransactionAdjustment:
		if amount == 0 {
			return domain.ErrInvalidAmount
		}
	default:
		return domain.ErrInvalidTransactionType
	}
	return nil
}

func (s *ledgerService) findExisting(ctx context.Context, key string) (*ApplyResult, error) {
	existing, err := s.ledgerRepository.GetTransactionByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ApplyResult{
		TransactionID: existing.ID,
		Balance:       existing.Balance,
		Duplicate:     true,
	}, nil
}

func (s *ledgerService) getOrCreateWallet(ctx context.Context, userID uuid.UUID) (*entities.Wallet, error) {
	wallet, err := s.ledgerRepository.GetWalletByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	wallet = &entities.Wallet{
		ID:     uuid.New(),
		UserID: userID,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	if createErr := s.ledgerRepository.CreateWallet(ctx, wallet); createErr != nil {
		// Another request created the wallet first; use theirs.
		if existing, getErr := s.ledgerRepository.GetWalletByUserID(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return wallet, nil
}

func (s *ledgerService) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.WalletResponse, error) {
	wallet, err := s.ledgerRepository.GetWalletByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			// Wallets are created on first transaction; an untouched user
			// simply has a zero balance.
			return &domain.WalletResponse{UserID: userID.String()}, nil
		}
		return nil, err
	}

	return &domain.WalletResponse{
		UserID:         wallet.UserID.String(),
		Balance:        wallet.Balance,
		LifetimeEarned: wallet.LifetimeEarned,
		LifetimeSpent:  wallet.LifetimeSpent,
	}, nil
}

func (s *ledgerService) GetTransactionHistory(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.TransactionResponse, int64, error) {
	transactions, count, err := s.ledgerRepository.GetUserTransactions(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		result = append(result, &domain.TransactionResponse{
			ID:          tx.ID.String(),
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			Description: tx.Description,
			Balance:     tx.Balance,
			CreatedAt:   tx.CreatedAt,
		})
	}

	return result, count, nil
}

// Audit verifies that the wallet balance equals the sum of its transactions.
// A mismatch freezes the wallet: further mutation is refused and the drift is
// left for manual resolution, never corrected silently.
//
// The balance and the sum are separate queries, so the wallet is re-read
// after the sum and the check only counts when the version did not move in
// between. A concurrent writer retries the attempt; a wallet that stays busy
// is skipped until the next sweep rather than risk freezing it on a torn
// read.
func (s *ledgerService) Audit(ctx context.Context, walletID uuid.UUID) error {
	for attempt := 0; attempt < maxAuditAttempts; attempt++ {
		wallet, err := s.ledgerRepository.GetWalletByID(ctx, walletID)
		if err != nil {
			return err
		}

		sum, err := s.ledgerRepository.SumTransactionAmounts(ctx, walletID)
		if err != nil {
			return err
		}

		check, err := s.ledgerRepository.GetWalletByID(ctx, walletID)
		if err != nil {
			return err
		}
		if check.Version != wallet.Version {
			continue
		}

		if sum != check.Balance {
			log.Errorf("ledger drift on wallet %s: balance=%d sum=%d", walletID, check.Balance, sum)
			if err := s.ledgerRepository.FreezeWallet(ctx, walletID); err != nil {
				return err
			}
			return domain.ErrLedgerDrift
		}
		return nil
	}

	log.Warnf("ledger audit skipped busy wallet %s", walletID)
	return nil
}

func (s *ledgerService) AuditAll(ctx context.Context) {
	ids, err := s.ledgerRepository.ListWalletIDs(ctx)
	if err != nil {
		log.Errorf("ledger audit sweep failed to list wallets: %v", err)
		return
	}
	for _, id := range ids {
		if err := s.Audit(ctx, id); err != nil && !errors.Is(err, domain.ErrLedgerDrift) {
			log.Errorf("ledger audit failed for wallet %s: %v", id, err)
		}
	}
}
