package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetWallet         = "wallet retrieved successfully"
	MessageSuccessCreateTransaction = "transaction applied successfully"
	MessageSuccessGetWalletHistory  = "transaction history retrieved successfully"

	MessageFailedGetWallet         = "failed to retrieve wallet"
	MessageFailedCreateTransaction = "failed to apply transaction"
	MessageFailedGetWalletHistory  = "failed to retrieve transaction history"

	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict is surfaced after the bounded internal retry on a
	// version-check loss. Callers may retry the whole operation.
	ErrConflict       = errors.New("concurrent update conflict")
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletFrozen means a ledger audit found the balance out of step with
	// the transaction log. Mutation stays blocked until resolved by hand.
	ErrWalletFrozen           = errors.New("wallet frozen after ledger drift")
	ErrLedgerDrift            = errors.New("wallet balance does not match transaction log")
	ErrInvalidAmount          = errors.New("invalid amount for transaction type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
)

type (
	WalletResponse struct {
		UserID         string `json:"user_id"`
		Balance        int64  `json:"balance"`
		LifetimeEarned int64  `json:"lifetime_earned"`
		LifetimeSpent  int64  `json:"lifetime_spent"`
	}

	CreateTransactionRequest struct {
		UserID      string `json:"user_id" validate:"required,uuid"`
		Amount      int64  `json:"amount" validate:"required"`
		Type        string `json:"type" validate:"required,oneof=Earn Adjustment"`
		Description string `json:"description"`
	}

	TransactionResponse struct {
		ID          string    `json:"id"`
		Amount      int64     `json:"amount"`
		Type        string    `json:"type"`
		Description string    `json:"description"`
		Balance     int64     `json:"balance"`
		CreatedAt   time.Time `json:"created_at"`
	}
)
