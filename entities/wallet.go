package entities

import (
	"github.com/google/uuid"
)

// TransactionType is the closed set of balance-changing operations. Every
// consumer (achievements, analytics) switches exhaustively over these values.
type TransactionType string

const (
	TransactionEarn        TransactionType = "Earn"
	TransactionSpend       TransactionType = "Spend"
	TransactionPurchase    TransactionType = "Purchase"
	TransactionRefund      TransactionType = "Refund"
	TransactionAchievement TransactionType = "Achievement"
	TransactionAdjustment  TransactionType = "Adjustment"
)

// Wallet holds the current coin balance for one user. It is mutated only by
// the ledger service, through a version-checked update.
type Wallet struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID         uuid.UUID `gorm:"uniqueIndex" json:"user_id"`
	Balance        int64     `json:"balance"`
	LifetimeEarned int64     `json:"lifetime_earned"`
	LifetimeSpent  int64     `json:"lifetime_spent"`
	Version        int64     `json:"-"`
	// Frozen is set when a ledger audit detects drift between the balance and
	// the transaction log. A frozen wallet refuses all further mutation.
	Frozen bool `json:"frozen"`

	Timestamp
}

// CoinTransaction is an append-only record of one balance change. Rows are
// never updated or deleted; corrections are made with refund transactions.
type CoinTransaction struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	WalletID       uuid.UUID       `gorm:"index" json:"wallet_id"`
	UserID         uuid.UUID       `gorm:"index" json:"user_id"`
	Amount         int64           `json:"amount"`
	Type           TransactionType `json:"type"`
	ReferenceType  string          `json:"reference_type,omitempty"`
	ReferenceID    *uuid.UUID      `json:"reference_id,omitempty"`
	IdempotencyKey *string         `gorm:"uniqueIndex" json:"-"`
	Description    string          `json:"description"`
	// Balance is the wallet balance after this transaction was applied.
	Balance int64 `json:"balance"`

	Wallet *Wallet `gorm:"foreignKey:WalletID"`
	Timestamp
}
