package domain

import (
	"errors"
)

var (
	MessageSuccessGetCoinPacks       = "coin packs retrieved successfully"
	MessageSuccessInitiatePurchase   = "coin pack purchase initiated successfully"
	MessageSuccessCancelPurchase     = "coin pack purchase cancelled successfully"
	MessageSuccessHandleNotification = "payment notification processed"

	MessageFailedGetCoinPacks       = "failed to retrieve coin packs"
	MessageFailedInitiatePurchase   = "failed to initiate coin pack purchase"
	MessageFailedCancelPurchase     = "failed to cancel coin pack purchase"
	MessageFailedHandleNotification = "failed to process payment notification"

	ErrCoinPackNotFound         = errors.New("coin pack not found")
	ErrCoinPackPurchaseNotFound = errors.New("coin pack purchase not found")
	ErrPaymentFailed            = errors.New("payment processing failed")
	ErrInvalidSignature         = errors.New("invalid payment notification signature")
	// ErrPurchaseNotCancelable: a purchase can be cancelled only before the
	// gateway confirms it. A credited purchase is reversed only by refund.
	ErrPurchaseNotCancelable = errors.New("purchase can no longer be cancelled")
)

type (
	CoinPackResponse struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Amount      int64   `json:"amount"`
		Price       float64 `json:"price"`
		Currency    string  `json:"currency"`
		Description string  `json:"description,omitempty"`
		ImageURL    string  `json:"image_url,omitempty"`
		IsPopular   bool    `json:"is_popular"`
	}

	InitiateCoinPackPurchaseRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	InitiateCoinPackPurchaseResponse struct {
		PurchaseID       string `json:"purchase_id"`
		PaymentReference string `json:"payment_reference"`
		InvoiceURL       string `json:"invoice_url"`
	}

	// PaymentNotification is the gateway's confirmation payload. The signature
	// must verify before any field is trusted.
	PaymentNotification struct {
		OrderID           string `json:"order_id"`
		TransactionStatus string `json:"transaction_status"`
		StatusCode        string `json:"status_code"`
		GrossAmount       string `json:"gross_amount"`
		SignatureKey      string `json:"signature_key"`
		FraudStatus       string `json:"fraud_status,omitempty"`
	}
)
