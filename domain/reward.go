package domain

import (
	"errors"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessGetRewardItems   = "reward items retrieved successfully"
	MessageSuccessCreateRewardItem = "reward item created successfully"
	MessageSuccessUpdateRewardItem = "reward item updated successfully"
	MessageSuccessPurchaseReward   = "reward purchased successfully"
	MessageSuccessRefundPurchase   = "reward purchase refunded successfully"
	MessageSuccessGetUserPurchases = "reward purchases retrieved successfully"

	MessageFailedGetRewardItems   = "failed to retrieve reward items"
	MessageFailedCreateRewardItem = "failed to create reward item"
	MessageFailedUpdateRewardItem = "failed to update reward item"
	MessageFailedPurchaseReward   = "failed to purchase reward"
	MessageFailedRefundPurchase   = "failed to refund reward purchase"
	MessageFailedGetUserPurchases = "failed to retrieve reward purchases"

	ErrRewardItemNotFound      = errors.New("reward item not found")
	ErrRewardItemInactive      = errors.New("reward item is not available")
	ErrOutOfStock              = errors.New("reward item out of stock")
	ErrPurchaseNotFound        = errors.New("reward purchase not found")
	ErrPurchaseAlreadyRefunded = errors.New("reward purchase already refunded")
	ErrPurchaseNotRefundable   = errors.New("reward purchase cannot be refunded")
)

type (
	RewardItemResponse struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Price       int64  `json:"price"`
		Stock       *int   `json:"stock,omitempty"`
		ImageURL    string `json:"image_url,omitempty"`
	}

	CreateRewardItemRequest struct {
		Name                string                `form:"name" validate:"required"`
		Description         string                `form:"description"`
		Category            string                `form:"category" validate:"required"`
		Price               int64                 `form:"price" validate:"required,min=1"`
		Stock               *int                  `form:"stock" validate:"omitempty,min=0"`
		RequiresFulfillment bool                  `form:"requires_fulfillment"`
		Image               *multipart.FileHeader `form:"-"`
	}

	UpdateRewardItemRequest struct {
		Name        string `json:"name" validate:"omitempty"`
		Description string `json:"description" validate:"omitempty"`
		Price       int64  `json:"price" validate:"omitempty,min=1"`
		Stock       *int   `json:"stock" validate:"omitempty,min=0"`
		IsActive    *bool  `json:"is_active" validate:"omitempty"`
	}

	RewardPurchaseResponse struct {
		ID            string    `json:"id"`
		RewardItemID  string    `json:"reward_item_id"`
		TransactionID string    `json:"transaction_id"`
		Status        string    `json:"status"`
		CreatedAt     time.Time `json:"created_at"`
	}
)
