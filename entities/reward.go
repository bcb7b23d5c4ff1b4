package entities

import (
	"github.com/google/uuid"
)

type RewardItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	// Stock is nil for items with unlimited availability.
	Stock   *int  `json:"stock,omitempty"`
	Version int64 `json:"-"`
	// RequiresFulfillment marks items that need an external step (shipping a
	// physical reward) before the purchase is final.
	RequiresFulfillment bool   `json:"requires_fulfillment"`
	IsActive            bool   `json:"is_active"`
	ImageURL            string `json:"image_url,omitempty"`

	Timestamp
}

type RewardPurchase struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID        uuid.UUID `gorm:"index" json:"user_id"`
	RewardItemID  uuid.UUID `json:"reward_item_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"` // Pending, Fulfilled, Refunded, Failed

	RewardItem *RewardItem `gorm:"foreignKey:RewardItemID"`
	Timestamp
}

const (
	RewardPurchasePending   = "Pending"
	RewardPurchaseFulfilled = "Fulfilled"
	RewardPurchaseRefunded  = "Refunded"
	RewardPurchaseFailed    = "Failed"
)
