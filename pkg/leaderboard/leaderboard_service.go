package leaderboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/pkg/ledger"
)

type (
	LeaderboardService interface {
		GetLeaderboard(ctx context.Context, period string, userID uuid.UUID, page, limit int) (*domain.LeaderboardResponse, error)
		GetAnalytics(ctx context.Context) (*domain.AnalyticsResponse, error)
		// OnTransactionApplied incrementally folds one committed transaction
		// into the ranked views and running aggregates.
		OnTransactionApplied(ctx context.Context, event ledger.TransactionApplied)
		RecordCategorySpend(ctx context.Context, category string, amount int64)
		// RebuildAll recomputes the current period views from the transaction
		// log; scheduled as the drift fallback.
		RebuildAll(ctx context.Context)
	}

	leaderboardService struct {
		leaderboardRepository LeaderboardRepository
	}
)

func NewLeaderboardService(leaderboardRepository LeaderboardRepository) LeaderboardService {
	return &leaderboardService{
		leaderboardRepository: leaderboardRepository,
	}
}

// allTimeKey is the period key shared by every all-time row.
const allTimeKey = "all"

func weeklyKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthlyKey(t time.Time) string {
	return t.Format("2006-01")
}

func periodKeyFor(period string, t time.Time) (string, error) {
	switch period {
	case entities.PeriodAllTime:
		return allTimeKey, nil
	case entities.PeriodWeekly:
		return weeklyKey(t), nil
	case entities.PeriodMonthly:
		return monthlyKey(t), nil
	default:
		return "", domain.ErrInvalidPeriod
	}
}

func (s *leaderboardService) OnTransactionApplied(ctx context.Context, event ledger.TransactionApplied) {
	// Scoring is lifetime earned: only credits move the leaderboard.
	if event.Amount > 0 {
		for _, period := range []string{entities.PeriodAllTime, entities.PeriodWeekly, entities.PeriodMonthly} {
			key, _ := periodKeyFor(period, event.OccurredAt)
			if err := s.leaderboardRepository.IncrementScore(ctx, event.UserID, period, key, event.Amount, event.OccurredAt); err != nil {
				log.Errorf("leaderboard update failed for user %s period %s: %v", event.UserID, period, err)
			}
		}
	}

	s.recordAnalytics(ctx, event)
}

func (s *leaderboardService) recordAnalytics(ctx context.Context, event ledger.TransactionApplied) {
	metrics := map[string]int64{
		fmt.Sprintf("tx_count:%s", strings.ToLower(string(event.Type))): 1,
	}
	if event.Amount > 0 {
		metrics["total_earned"] = event.Amount
	} else {
		metrics["total_spent"] = -event.Amount
	}

	for metric, delta := range metrics {
		if err := s.leaderboardRepository.IncrementCounter(ctx, metric, allTimeKey, delta); err != nil {
			log.Errorf("analytics counter %s update failed: %v", metric, err)
		}
	}
}

func (s *leaderboardService) RecordCategorySpend(ctx context.Context, category string, amount int64) {
	metric := fmt.Sprintf("category_spend:%s", strings.ToLower(category))
	if err := s.leaderboardRepository.IncrementCounter(ctx, metric, allTimeKey, amount); err != nil {
		log.Errorf("analytics counter %s update failed: %v", metric, err)
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context, period string, userID uuid.UUID, page, limit int) (*domain.LeaderboardResponse, error) {
	now := time.Now()
	key, err := periodKeyFor(period, now)
	if err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	scores, err := s.leaderboardRepository.TopScores(ctx, period, key, offset, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:   offset + i + 1,
			UserID: score.UserID.String(),
			Score:  score.Score,
		})
	}

	resp := &domain.LeaderboardResponse{
		Period:  period,
		Entries: entries,
	}

	if userID != uuid.Nil {
		rank, score, err := s.leaderboardRepository.UserRank(ctx, userID, period, key)
		if err != nil {
			return nil, err
		}
		if rank > 0 {
			resp.Me = &domain.LeaderboardEntry{
				Rank:   rank,
				UserID: userID.String(),
				Score:  score,
			}
		}
	}

	return resp, nil
}

func (s *leaderboardService) GetAnalytics(ctx context.Context) (*domain.AnalyticsResponse, error) {
	counters, err := s.leaderboardRepository.GetCounters(ctx, allTimeKey)
	if err != nil {
		return nil, err
	}

	resp := &domain.AnalyticsResponse{
		TransactionCount: map[string]int64{},
		CategorySpend:    map[string]int64{},
	}
	for _, counter := range counters {
		switch {
		case counter.Metric == "total_earned":
			resp.TotalEarned = counter.Value
		case counter.Metric == "total_spent":
			resp.TotalSpent = counter.Value
		case strings.HasPrefix(counter.Metric, "tx_count:"):
			resp.TransactionCount[strings.TrimPrefix(counter.Metric, "tx_count:")] = counter.Value
		case strings.HasPrefix(counter.Metric, "category_spend:"):
			resp.CategorySpend[strings.TrimPrefix(counter.Metric, "category_spend:")] = counter.Value
		}
	}
	return resp, nil
}

func (s *leaderboardService) RebuildAll(ctx context.Context) {
	now := time.Now()

	weekStart := now.AddDate(0, 0, -(int(now.Weekday())+6)%7)
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	windows := []struct {
		period string
		key    string
		from   time.Time
		to     time.Time
	}{
		{entities.PeriodAllTime, allTimeKey, time.Time{}, now},
		{entities.PeriodWeekly, weeklyKey(now), weekStart, now},
		{entities.PeriodMonthly, monthlyKey(now), monthStart, now},
	}

	for _, w := range windows {
		if err := s.leaderboardRepository.RebuildScores(ctx, w.period, w.key, w.from, w.to); err != nil {
			log.Errorf("leaderboard rebuild failed for period %s: %v", w.period, err)
		}
	}
}
