package coinpack

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
)

type (
	CoinPackRepository interface {
		// Packs
		CreatePack(ctx context.Context, pack *entities.CoinPack) error
		GetPacks(ctx context.Context) ([]*entities.CoinPack, error)
		GetPackByID(ctx context.Context, id uuid.UUID) (*entities.CoinPack, error)

		// Purchases
		CreatePurchase(ctx context.Context, purchase *entities.CoinPackPurchase) error
		GetPurchaseByID(ctx context.Context, id uuid.UUID) (*entities.CoinPackPurchase, error)
		GetPurchaseByReference(ctx context.Context, reference string) (*entities.CoinPackPurchase, error)
		UpdatePurchaseStatus(ctx context.Context, id uuid.UUID, status string) error
		UpdateInvoiceURL(ctx context.Context, id uuid.UUID, url string) error
		// TransitionPurchaseStatus updates status only when the row is still
		// in fromStatus; reports whether the transition applied.
		TransitionPurchaseStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error)
		MarkCredited(ctx context.Context, id uuid.UUID, transactionID uuid.UUID) error
		ListPurchasesByStatus(ctx context.Context, status string) ([]*entities.CoinPackPurchase, error)
	}

	coinPackRepository struct {
		db *gorm.DB
	}
)

func NewCoinPackRepository(db *gorm.DB) CoinPackRepository {
	return &coinPackRepository{
		db: db,
	}
}

func (r *coinPackRepository) CreatePack(ctx context.Context, pack *entities.CoinPack) error {
	return r.db.WithContext(ctx).Create(pack).Error
}

func (r *coinPackRepository) GetPacks(ctx context.Context) ([]*entities.CoinPack, error) {
	var packs []*entities.CoinPack
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("amount ASC").
		Find(&packs).Error; err != nil {
		return nil, err
	}
	return packs, nil
}

func (r *coinPackRepository) GetPackByID(ctx context.Context, id uuid.UUID) (*entities.CoinPack, error) {
	var pack entities.CoinPack
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&pack).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCoinPackNotFound
		}
		return nil, err
	}
	return &pack, nil
}

func (r *coinPackRepository) CreatePurchase(ctx context.Context, purchase *entities.CoinPackPurchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *coinPackRepository) GetPurchaseByID(ctx context.Context, id uuid.UUID) (*entities.CoinPackPurchase, error) {
	var purchase entities.CoinPackPurchase
	if err := r.db.WithContext(ctx).
		Preload("CoinPack").
		Where("id = ?", id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCoinPackPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *coinPackRepository) GetPurchaseByReference(ctx context.Context, reference string) (*entities.CoinPackPurchase, error) {
	var purchase entities.CoinPackPurchase
	if err := r.db.WithContext(ctx).
		Preload("CoinPack").
		Where("payment_reference = ?", reference).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCoinPackPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *coinPackRepository) UpdatePurchaseStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&entities.CoinPackPurchase{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *coinPackRepository) UpdateInvoiceURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&entities.CoinPackPurchase{}).
		Where("id = ?", id).
		Update("invoice_url", url).Error
}

func (r *coinPackRepository) TransitionPurchaseStatus(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.CoinPackPurchase{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *coinPackRepository) MarkCredited(ctx context.Context, id uuid.UUID, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.CoinPackPurchase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         entities.CoinPackPurchaseCredited,
			"credited_tx_id": transactionID,
		}).Error
}

func (r *coinPackRepository) ListPurchasesByStatus(ctx context.Context, status string) ([]*entities.CoinPackPurchase, error) {
	var purchases []*entities.CoinPackPurchase
	if err := r.db.WithContext(ctx).
		Preload("CoinPack").
		Where("status = ?", status).
		Find(&purchases).Error; err != nil {
		return nil, err
	}
	return purchases, nil
}
