package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/internal/utils/storage"
	"github.com/pocketmint/backend/pkg/ledger"
)

// compensationAttempts bounds the retry on returning a reserved unit after a
// failed debit. Each failure is logged; stock must never leak silently.
const compensationAttempts = 5

type (
	RewardService interface {
		ListItems(ctx context.Context, category string, page, limit int) ([]*domain.RewardItemResponse, int64, error)
		CreateItem(ctx context.Context, req domain.CreateRewardItemRequest) (*domain.RewardItemResponse, error)
		UpdateItem(ctx context.Context, id uuid.UUID, req domain.UpdateRewardItemRequest) error
		Purchase(ctx context.Context, userID, itemID uuid.UUID) (*domain.RewardPurchaseResponse, error)
		Refund(ctx context.Context, purchaseID uuid.UUID) error
		GetUserPurchases(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.RewardPurchaseResponse, int64, error)
		// SetCategorySpendRecorder wires the analytics aggregator so spend can
		// be attributed to a reward category; called once at startup.
		SetCategorySpendRecorder(recorder func(ctx context.Context, category string, amount int64))
	}

	rewardService struct {
		rewardRepository    RewardRepository
		ledgerService       ledger.LedgerService
		s3                  storage.AwsS3
		recordCategorySpend func(ctx context.Context, category string, amount int64)
	}
)

func NewRewardService(rewardRepository RewardRepository, ledgerService ledger.LedgerService, s3 storage.AwsS3) RewardService {
	return &rewardService{
		rewardRepository: rewardRepository,
		ledgerService:    ledgerService,
		s3:               s3,
	}
}

func (s *rewardService) SetCategorySpendRecorder(recorder func(ctx context.Context, category string, amount int64)) {
	s.recordCategorySpend = recorder
}

func (s *rewardService) ListItems(ctx context.Context, category string, page, limit int) ([]*domain.RewardItemResponse, int64, error) {
	items, count, err := s.rewardRepository.ListRewardItems(ctx, category, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.RewardItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, toRewardItemResponse(item))
	}
	return result, count, nil
}

func (s *rewardService) CreateItem(ctx context.Context, req domain.CreateRewardItemRequest) (*domain.RewardItemResponse, error) {
	item := &entities.RewardItem{
		ID:                  uuid.New(),
		Name:                req.Name,
		Description:         req.Description,
		Category:            req.Category,
		Price:               req.Price,
		Stock:               req.Stock,
		RequiresFulfillment: req.RequiresFulfillment,
		IsActive:            true,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}

	if req.Image != nil {
		url, err := s.s3.UploadFile(ctx, "rewards", req.Image)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}

	if err := s.rewardRepository.CreateRewardItem(ctx, item); err != nil {
		return nil, err
	}
	return toRewardItemResponse(item), nil
}

func (s *rewardService) UpdateItem(ctx context.Context, id uuid.UUID, req domain.UpdateRewardItemRequest) error {
	item, err := s.rewardRepository.GetRewardItemByID(ctx, id)
	if err != nil {
		return err
	}

	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Price > 0 {
		item.Price = req.Price
	}
	if req.Stock != nil {
		item.Stock = req.Stock
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	item.UpdatedAt = time.Now()

	return s.rewardRepository.UpdateRewardItem(ctx, item)
}

// Purchase reserves a stock unit, debits the price, and records the purchase.
// Stock decrement and coin debit are coordinated: a failed debit returns the
// reserved unit before the error surfaces.
func (s *rewardService) Purchase(ctx context.Context, userID, itemID uuid.UUID) (*domain.RewardPurchaseResponse, error) {
	item, err := s.rewardRepository.GetRewardItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, domain.ErrRewardItemInactive
	}

	reserved := item.Stock != nil
	if reserved {
		if err := s.rewardRepository.ReserveStock(ctx, itemID); err != nil {
			return nil, err
		}
	}

	purchaseID := uuid.New()
	result, err := s.ledgerService.Apply(ctx, ledger.ApplyParams{
		UserID:        userID,
		Amount:        -item.Price,
		Type:          entities.TransactionSpend,
		ReferenceType: "reward_purchase",
		ReferenceID:   &purchaseID,
		Description:   fmt.Sprintf("Purchased %s for %d coins", item.Name, item.Price),
	})
	if err != nil {
		if reserved {
			s.compensateStock(ctx, itemID)
		}
		s.recordFailedPurchase(ctx, userID, itemID, purchaseID)
		return nil, err
	}

	status := entities.RewardPurchaseFulfilled
	if item.RequiresFulfillment {
		status = entities.RewardPurchasePending
	}

	purchase := &entities.RewardPurchase{
		ID:            purchaseID,
		UserID:        userID,
		RewardItemID:  itemID,
		TransactionID: result.TransactionID,
		Status:        status,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	if err := s.rewardRepository.CreatePurchase(ctx, purchase); err != nil {
		// The debit already committed; reverse it and return the unit before
		// reporting failure.
		s.reverseDebit(ctx, userID, item, purchaseID)
		if reserved {
			s.compensateStock(ctx, itemID)
		}
		return nil, err
	}

	if s.recordCategorySpend != nil {
		s.recordCategorySpend(ctx, item.Category, item.Price)
	}

	return toPurchaseResponse(purchase), nil
}

// compensateStock returns one reserved unit, retrying with backoff. Failures
// are loud: a unit that stays lost here means stock drifts from reality.
func (s *rewardService) compensateStock(ctx context.Context, itemID uuid.UUID) {
	var err error
	for attempt := 1; attempt <= compensationAttempts; attempt++ {
		if err = s.rewardRepository.ReleaseStock(ctx, itemID); err == nil {
			return
		}
		log.Errorf("stock compensation attempt %d failed for item %s: %v", attempt, itemID, err)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	log.Errorf("stock compensation exhausted for item %s, one unit unaccounted: %v", itemID, err)
}

// recordFailedPurchase is written only after the stock compensation has been
// attempted, so the row never masks an outstanding reservation.
func (s *rewardService) recordFailedPurchase(ctx context.Context, userID, itemID, purchaseID uuid.UUID) {
	purchase := &entities.RewardPurchase{
		ID:           purchaseID,
		UserID:       userID,
		RewardItemID: itemID,
		Status:       entities.RewardPurchaseFailed,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	if err := s.rewardRepository.CreatePurchase(ctx, purchase); err != nil {
		log.Errorf("failed to record failed purchase %s: %v", purchaseID, err)
	}
}

func (s *rewardService) reverseDebit(ctx context.Context, userID uuid.UUID, item *entities.RewardItem, purchaseID uuid.UUID) {
	_, err := s.ledgerService.Apply(ctx, ledger.ApplyParams{
		UserID:         userID,
		Amount:         item.Price,
		Type:           entities.TransactionRefund,
		ReferenceType:  "reward_purchase",
		ReferenceID:    &purchaseID,
		IdempotencyKey: fmt.Sprintf("reward-rollback:%s", purchaseID),
		Description:    fmt.Sprintf("Rolled back purchase of %s", item.Name),
	})
	if err != nil {
		log.Errorf("debit rollback failed for purchase %s: %v", purchaseID, err)
	}
}

// Refund reverses a purchase: coins are credited back and, for finite-stock
// items, the unit is restocked. Idempotent per purchase.
func (s *rewardService) Refund(ctx context.Context, purchaseID uuid.UUID) error {
	purchase, err := s.rewardRepository.GetPurchaseByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.Status == entities.RewardPurchaseRefunded {
		return domain.ErrPurchaseAlreadyRefunded
	}
	// Failed purchases never debited the wallet; there is nothing to return.
	if purchase.Status == entities.RewardPurchaseFailed {
		return domain.ErrPurchaseNotRefundable
	}
	if purchase.RewardItem == nil {
		return domain.ErrRewardItemNotFound
	}

	_, err = s.ledgerService.Apply(ctx, ledger.ApplyParams{
		UserID:         purchase.UserID,
		Amount:         purchase.RewardItem.Price,
		Type:           entities.TransactionRefund,
		ReferenceType:  "reward_purchase",
		ReferenceID:    &purchase.ID,
		IdempotencyKey: fmt.Sprintf("refund:%s", purchase.ID),
		Description:    fmt.Sprintf("Refund for %s", purchase.RewardItem.Name),
	})
	if err != nil {
		return err
	}

	// The status transition gates the restock. A retry after a transient
	// failure here re-runs the credit as a duplicate and restocks only if
	// this call is the one that flipped the status.
	applied, err := s.rewardRepository.MarkRefunded(ctx, purchase.ID)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrPurchaseAlreadyRefunded
	}

	if purchase.RewardItem.Stock != nil {
		s.compensateStock(ctx, purchase.RewardItemID)
	}
	return nil
}

func (s *rewardService) GetUserPurchases(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.RewardPurchaseResponse, int64, error) {
	purchases, count, err := s.rewardRepository.GetUserPurchases(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]*domain.RewardPurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		result = append(result, toPurchaseResponse(p))
	}
	return result, count, nil
}

func toRewardItemResponse(item *entities.RewardItem) *domain.RewardItemResponse {
	return &domain.RewardItemResponse{
		ID:          item.ID.String(),
		Name:        item.Name,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Stock:       item.Stock,
		ImageURL:    item.ImageURL,
	}
}

func toPurchaseResponse(p *entities.RewardPurchase) *domain.RewardPurchaseResponse {
	return &domain.RewardPurchaseResponse{
		ID:            p.ID.String(),
		RewardItemID:  p.RewardItemID.String(),
		TransactionID: p.TransactionID.String(),
		Status:        p.Status,
		CreatedAt:     p.CreatedAt,
	}
}
