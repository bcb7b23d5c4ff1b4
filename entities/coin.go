package entities

import (
	"github.com/google/uuid"
)

type CoinPack struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string    `json:"name"`
	Amount      int64     `json:"amount"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsPopular   bool      `json:"is_popular"`
	IsActive    bool      `json:"is_active"`

	Timestamp
}

// CoinPackPurchase tracks one external-payment round trip. PaymentReference
// doubles as the idempotency key for the coin credit, so a re-delivered
// gateway notification can never credit twice.
type CoinPackPurchase struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID           uuid.UUID  `gorm:"index" json:"user_id"`
	CoinPackID       uuid.UUID  `json:"coin_pack_id"`
	PaymentReference string     `gorm:"uniqueIndex" json:"payment_reference"`
	InvoiceURL       string     `json:"invoice_url,omitempty"`
	Email            string     `json:"email"`
	GrossAmount      float64    `json:"gross_amount"`
	Status           string     `json:"status"` // Initiated, Confirmed, Credited, Failed, Cancelled
	CreditedTxID     *uuid.UUID `json:"credited_tx_id,omitempty"`

	CoinPack *CoinPack `gorm:"foreignKey:CoinPackID"`
	Timestamp
}

const (
	CoinPackPurchaseInitiated = "Initiated"
	CoinPackPurchaseConfirmed = "Confirmed"
	CoinPackPurchaseCredited  = "Credited"
	CoinPackPurchaseFailed    = "Failed"
	CoinPackPurchaseCancelled = "Cancelled"
)
