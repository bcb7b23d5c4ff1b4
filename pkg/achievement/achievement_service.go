package achievement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/pkg/ledger"
)

type (
	AchievementService interface {
		GetAchievements(ctx context.Context) ([]*domain.AchievementResponse, error)
		GetUserProgress(ctx context.Context, userID uuid.UUID) ([]*domain.AchievementProgressResponse, error)
		// OnTransactionApplied advances progress counters and awards the
		// configured reward when a threshold is crossed. Safe to call with a
		// re-delivered event.
		OnTransactionApplied(ctx context.Context, event ledger.TransactionApplied)
	}

	achievementService struct {
		achievementRepository AchievementRepository
		ledgerService         ledger.LedgerService
	}
)

func NewAchievementService(achievementRepository AchievementRepository, ledgerService ledger.LedgerService) AchievementService {
	return &achievementService{
		achievementRepository: achievementRepository,
		ledgerService:         ledgerService,
	}
}

func (s *achievementService) GetAchievements(ctx context.Context) ([]*domain.AchievementResponse, error) {
	achievements, err := s.achievementRepository.ListActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.AchievementResponse, 0, len(achievements))
	for _, a := range achievements {
		result = append(result, toAchievementResponse(a))
	}
	return result, nil
}

func (s *achievementService) GetUserProgress(ctx context.Context, userID uuid.UUID) ([]*domain.AchievementProgressResponse, error) {
	progress, err := s.achievementRepository.GetUserProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.AchievementProgressResponse, 0, len(progress))
	for _, p := range progress {
		if p.Achievement == nil {
			continue
		}
		result = append(result, &domain.AchievementProgressResponse{
			Achievement: *toAchievementResponse(p.Achievement),
			Progress:    p.Progress,
			Completed:   p.Completed,
			CompletedAt: p.CompletedAt,
		})
	}
	return result, nil
}

func (s *achievementService) OnTransactionApplied(ctx context.Context, event ledger.TransactionApplied) {
	achievements, err := s.achievementRepository.ListActiveAchievements(ctx)
	if err != nil {
		log.Errorf("achievement evaluation failed to load catalog: %v", err)
		return
	}

	for _, a := range achievements {
		delta := progressDelta(a.Type, event)
		if delta == 0 {
			continue
		}
		if err := s.advance(ctx, a, event, delta); err != nil {
			log.Errorf("achievement %s evaluation failed for user %s: %v", a.Code, event.UserID, err)
		}
	}
}

// progressDelta maps one committed transaction onto an achievement's counter.
// Award and refund transactions deliberately feed no counter, so an
// achievement reward can never trigger another achievement.
func progressDelta(achievementType entities.AchievementType, event ledger.TransactionApplied) int64 {
	switch event.Type {
	case entities.TransactionEarn, entities.TransactionPurchase:
		if achievementType == entities.AchievementEarnTotal {
			return event.Amount
		}
	case entities.TransactionSpend:
		switch achievementType {
		case entities.AchievementSpendTotal:
			return -event.Amount
		case entities.AchievementPurchaseCount:
			return 1
		}
	case entities.TransactionAchievement, entities.TransactionRefund, entities.TransactionAdjustment:
		return 0
	}
	return 0
}

func (s *achievementService) advance(ctx context.Context, a *entities.Achievement, event ledger.TransactionApplied, delta int64) error {
	progress, err := s.achievementRepository.GetProgress(ctx, event.UserID, a.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = &entities.UserAchievementProgress{
			ID:            uuid.New(),
			UserID:        event.UserID,
			AchievementID: a.ID,
			Timestamp: entities.Timestamp{
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			},
		}
		if createErr := s.achievementRepository.CreateProgress(ctx, progress); createErr != nil {
			// A concurrent event created the row first; adopt it so this
			// event still counts.
			progress, err = s.achievementRepository.GetProgress(ctx, event.UserID, a.ID)
			if err != nil {
				return createErr
			}
		}
	} else if err != nil {
		return err
	}

	// Completed is terminal and a re-delivered event must not count twice.
	if progress.Completed {
		return nil
	}
	if progress.LastEventID != nil && *progress.LastEventID == event.TransactionID {
		return nil
	}

	applied, err := s.achievementRepository.IncrementProgress(ctx, progress.ID, delta, event.TransactionID)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	completed, err := s.achievementRepository.CompleteProgress(ctx, progress.ID, a.Threshold)
	if err != nil {
		return err
	}
	if completed {
		return s.award(ctx, a, event.UserID)
	}
	return nil
}

// award credits the achievement reward. The idempotency key is derived from
// (user, achievement), so a replayed completion can award at most once.
func (s *achievementService) award(ctx context.Context, a *entities.Achievement, userID uuid.UUID) error {
	achievementID := a.ID
	_, err := s.ledgerService.Apply(ctx, ledger.ApplyParams{
		UserID:         userID,
		Amount:         a.RewardAmount,
		Type:           entities.TransactionAchievement,
		ReferenceType:  "achievement",
		ReferenceID:    &achievementID,
		IdempotencyKey: fmt.Sprintf("achievement:%s:%s", userID, a.ID),
		Description:    fmt.Sprintf("Achievement unlocked: %s", a.Name),
	})
	return err
}

func toAchievementResponse(a *entities.Achievement) *domain.AchievementResponse {
	return &domain.AchievementResponse{
		ID:           a.ID.String(),
		Code:         a.Code,
		Name:         a.Name,
		Description:  a.Description,
		Threshold:    a.Threshold,
		RewardAmount: a.RewardAmount,
	}
}
