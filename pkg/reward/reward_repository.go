package reward

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
)

type (
	RewardRepository interface {
		// Catalog
		CreateRewardItem(ctx context.Context, item *entities.RewardItem) error
		GetRewardItemByID(ctx context.Context, id uuid.UUID) (*entities.RewardItem, error)
		ListRewardItems(ctx context.Context, category string, page, limit int) ([]*entities.RewardItem, int64, error)
		UpdateRewardItem(ctx context.Context, item *entities.RewardItem) error

		// Stock reservation. Both operate as conditional single-row updates so
		// concurrent purchases of the last unit cannot both succeed.
		ReserveStock(ctx context.Context, itemID uuid.UUID) error
		ReleaseStock(ctx context.Context, itemID uuid.UUID) error

		// Purchases
		CreatePurchase(ctx context.Context, purchase *entities.RewardPurchase) error
		GetPurchaseByID(ctx context.Context, id uuid.UUID) (*entities.RewardPurchase, error)
		MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
		GetUserPurchases(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.RewardPurchase, int64, error)
	}

	rewardRepository struct {
		db *gorm.DB
	}
)

func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{
		db: db,
	}
}

func (r *rewardRepository) CreateRewardItem(ctx context.Context, item *entities.RewardItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *rewardRepository) GetRewardItemByID(ctx context.Context, id uuid.UUID) (*entities.RewardItem, error) {
	var item entities.RewardItem
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRewardItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *rewardRepository) ListRewardItems(ctx context.Context, category string, page, limit int) ([]*entities.RewardItem, int64, error) {
	var items []*entities.RewardItem
	var count int64
	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Model(&entities.RewardItem{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Order("price ASC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, count, nil
}

func (r *rewardRepository) UpdateRewardItem(ctx context.Context, item *entities.RewardItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// ReserveStock decrements one unit, guarded so the counter can never go below
// zero. Zero rows affected means the item is inactive, unlimited, or sold out;
// the caller distinguishes by re-reading the item.
func (r *rewardRepository) ReserveStock(ctx context.Context, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entities.RewardItem{}).
		Where("id = ? AND is_active = true AND stock IS NOT NULL AND stock > 0", itemID).
		Updates(map[string]any{
			"stock":   gorm.Expr("stock - 1"),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrOutOfStock
	}
	return nil
}

func (r *rewardRepository) ReleaseStock(ctx context.Context, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&entities.RewardItem{}).
		Where("id = ? AND stock IS NOT NULL", itemID).
		Updates(map[string]any{
			"stock":   gorm.Expr("stock + 1"),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRewardItemNotFound
	}
	return nil
}

func (r *rewardRepository) CreatePurchase(ctx context.Context, purchase *entities.RewardPurchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *rewardRepository) GetPurchaseByID(ctx context.Context, id uuid.UUID) (*entities.RewardPurchase, error) {
	var purchase entities.RewardPurchase
	if err := r.db.WithContext(ctx).
		Preload("RewardItem").
		Where("id = ?", id).
		First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

// MarkRefunded transitions a purchase to Refunded only from a state that was
// actually paid for. Reports whether this call performed the transition, so
// the caller restocks at most once per purchase.
func (r *rewardRepository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.RewardPurchase{}).
		Where("id = ? AND status IN ?", id, []string{entities.RewardPurchasePending, entities.RewardPurchaseFulfilled}).
		Update("status", entities.RewardPurchaseRefunded)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *rewardRepository) GetUserPurchases(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.RewardPurchase, int64, error) {
	var purchases []*entities.RewardPurchase
	var count int64
	offset := (page - 1) * limit

	if err := r.db.WithContext(ctx).
		Model(&entities.RewardPurchase{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := r.db.WithContext(ctx).
		Preload("RewardItem").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&purchases).Error; err != nil {
		return nil, 0, err
	}

	return purchases, count, nil
}
