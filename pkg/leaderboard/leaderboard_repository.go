package leaderboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/entities"
)

type (
	LeaderboardRepository interface {
		// IncrementScore upserts a running score row; AchievedAt moves only
		// when the score grows, which keeps tie ordering stable.
		IncrementScore(ctx context.Context, userID uuid.UUID, period, periodKey string, delta int64, at time.Time) error
		TopScores(ctx context.Context, period, periodKey string, offset, limit int) ([]*entities.LeaderboardScore, error)
		UserRank(ctx context.Context, userID uuid.UUID, period, periodKey string) (int, int64, error)
		RebuildScores(ctx context.Context, period, periodKey string, from, to time.Time) error

		IncrementCounter(ctx context.Context, metric, periodKey string, delta int64) error
		GetCounters(ctx context.Context, periodKey string) ([]*entities.AnalyticsCounter, error)
	}

	leaderboardRepository struct {
		db *gorm.DB
	}
)

func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{
		db: db,
	}
}

func (r *leaderboardRepository) IncrementScore(ctx context.Context, userID uuid.UUID, period, periodKey string, delta int64, at time.Time) error {
	query := `
		INSERT INTO leaderboard_scores (id, user_id, period, period_key, score, achieved_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (user_id, period, period_key)
		DO UPDATE SET
			score = leaderboard_scores.score + EXCLUDED.score,
			achieved_at = EXCLUDED.achieved_at,
			updated_at = NOW()
	`
	return r.db.WithContext(ctx).
		Exec(query, uuid.New(), userID, period, periodKey, delta, at).Error
}

func (r *leaderboardRepository) TopScores(ctx context.Context, period, periodKey string, offset, limit int) ([]*entities.LeaderboardScore, error) {
	var scores []*entities.LeaderboardScore
	if err := r.db.WithContext(ctx).
		Where("period = ? AND period_key = ?", period, periodKey).
		Order("score DESC, achieved_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

// UserRank counts the rows ranked ahead of the user under the same ordering
// the leaderboard page uses.
func (r *leaderboardRepository) UserRank(ctx context.Context, userID uuid.UUID, period, periodKey string) (int, int64, error) {
	var score entities.LeaderboardScore
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND period = ? AND period_key = ?", userID, period, periodKey).
		First(&score).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	var ahead int64
	if err := r.db.WithContext(ctx).
		Model(&entities.LeaderboardScore{}).
		Where("period = ? AND period_key = ? AND (score > ? OR (score = ? AND achieved_at < ?))",
			period, periodKey, score.Score, score.Score, score.AchievedAt).
		Count(&ahead).Error; err != nil {
		return 0, 0, err
	}

	return int(ahead) + 1, score.Score, nil
}

// RebuildScores recomputes a period from the transaction log, the fallback
// path when the running scores have drifted.
func (r *leaderboardRepository) RebuildScores(ctx context.Context, period, periodKey string, from, to time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Exec(
			`DELETE FROM leaderboard_scores WHERE period = ? AND period_key = ?`,
			period, periodKey,
		).Error; err != nil {
			return err
		}

		query := `
			INSERT INTO leaderboard_scores (id, user_id, period, period_key, score, achieved_at, created_at, updated_at)
			SELECT uuid_generate_v4(), user_id, ?, ?, SUM(amount), MAX(created_at), NOW(), NOW()
			FROM coin_transactions
			WHERE amount > 0 AND created_at >= ? AND created_at < ?
			GROUP BY user_id
		`
		return db.Exec(query, period, periodKey, from, to).Error
	})
}

func (r *leaderboardRepository) IncrementCounter(ctx context.Context, metric, periodKey string, delta int64) error {
	query := `
		INSERT INTO analytics_counters (id, metric, period_key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (metric, period_key)
		DO UPDATE SET
			value = analytics_counters.value + EXCLUDED.value,
			updated_at = NOW()
	`
	return r.db.WithContext(ctx).
		Exec(query, uuid.New(), metric, periodKey, delta).Error
}

func (r *leaderboardRepository) GetCounters(ctx context.Context, periodKey string) ([]*entities.AnalyticsCounter, error) {
	var counters []*entities.AnalyticsCounter
	if err := r.db.WithContext(ctx).
		Where("period_key = ?", periodKey).
		Find(&counters).Error; err != nil {
		return nil, err
	}
	return counters, nil
}
