package leaderboard

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/pkg/ledger"
)

type scoreKey struct {
	userID    uuid.UUID
	period    string
	periodKey string
}

type counterKey struct {
	metric    string
	periodKey string
}

type fakeLeaderboardRepository struct {
	scores   map[scoreKey]*entities.LeaderboardScore
	counters map[counterKey]int64
	rebuilds []string
}

func newFakeLeaderboardRepository() *fakeLeaderboardRepository {
	return &fakeLeaderboardRepository{
		scores:   make(map[scoreKey]*entities.LeaderboardScore),
		counters: make(map[counterKey]int64),
	}
}

func (f *fakeLeaderboardRepository) IncrementScore(_ context.Context, userID uuid.UUID, period, periodKey string, delta int64, at time.Time) error {
	key := scoreKey{userID, period, periodKey}
	score, ok := f.scores[key]
	if !ok {
		f.scores[key] = &entities.LeaderboardScore{
			UserID:     userID,
			Period:     period,
			PeriodKey:  periodKey,
			Score:      delta,
			AchievedAt: at,
		}
		return nil
	}
	score.Score += delta
	score.AchievedAt = at
	return nil
}

func (f *fakeLeaderboardRepository) ranked(period, periodKey string) []*entities.LeaderboardScore {
	var rows []*entities.LeaderboardScore
	for _, score := range f.scores {
		if score.Period == period && score.PeriodKey == periodKey {
			rows = append(rows, score)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].AchievedAt.Before(rows[j].AchievedAt)
	})
	return rows
}

func (f *fakeLeaderboardRepository) TopScores(_ context.Context, period, periodKey string, offset, limit int) ([]*entities.LeaderboardScore, error) {
	rows := f.ranked(period, periodKey)
	if offset > len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (f *fakeLeaderboardRepository) UserRank(_ context.Context, userID uuid.UUID, period, periodKey string) (int, int64, error) {
	for i, score := range f.ranked(period, periodKey) {
		if score.UserID == userID {
			return i + 1, score.Score, nil
		}
	}
	return 0, 0, nil
}

func (f *fakeLeaderboardRepository) RebuildScores(_ context.Context, period, _ string, _, _ time.Time) error {
	f.rebuilds = append(f.rebuilds, period)
	return nil
}

func (f *fakeLeaderboardRepository) IncrementCounter(_ context.Context, metric, periodKey string, delta int64) error {
	f.counters[counterKey{metric, periodKey}] += delta
	return nil
}

func (f *fakeLeaderboardRepository) GetCounters(_ context.Context, periodKey string) ([]*entities.AnalyticsCounter, error) {
	var counters []*entities.AnalyticsCounter
	for key, value := range f.counters {
		if key.periodKey == periodKey {
			counters = append(counters, &entities.AnalyticsCounter{
				Metric:    key.metric,
				PeriodKey: key.periodKey,
				Value:     value,
			})
		}
	}
	return counters, nil
}

func creditEvent(userID uuid.UUID, amount int64, at time.Time) ledger.TransactionApplied {
	return ledger.TransactionApplied{
		TransactionID: uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Type:          entities.TransactionEarn,
		OccurredAt:    at,
	}
}

func TestCreditsBumpAllThreePeriods(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	service.OnTransactionApplied(ctx, creditEvent(userID, 100, now))

	assert.Equal(t, int64(100), repo.scores[scoreKey{userID, entities.PeriodAllTime, allTimeKey}].Score)
	assert.Equal(t, int64(100), repo.scores[scoreKey{userID, entities.PeriodWeekly, weeklyKey(now)}].Score)
	assert.Equal(t, int64(100), repo.scores[scoreKey{userID, entities.PeriodMonthly, monthlyKey(now)}].Score)
}

func TestDebitsMoveAnalyticsOnly(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)
	ctx := context.Background()
	userID := uuid.New()

	service.OnTransactionApplied(ctx, ledger.TransactionApplied{
		TransactionID: uuid.New(),
		UserID:        userID,
		Amount:        -60,
		Type:          entities.TransactionSpend,
		OccurredAt:    time.Now(),
	})

	assert.Empty(t, repo.scores)
	assert.Equal(t, int64(60), repo.counters[counterKey{"total_spent", allTimeKey}])
	assert.Equal(t, int64(1), repo.counters[counterKey{"tx_count:spend", allTimeKey}])
}

func TestLeaderboardRankingAndTieBreak(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)
	ctx := context.Background()
	now := time.Now()

	first := uuid.New()
	second := uuid.New()
	third := uuid.New()

	// second reached 100 before third did; the earlier time wins the tie.
	service.OnTransactionApplied(ctx, creditEvent(first, 300, now))
	service.OnTransactionApplied(ctx, creditEvent(second, 100, now.Add(1*time.Minute)))
	service.OnTransactionApplied(ctx, creditEvent(third, 100, now.Add(2*time.Minute)))

	resp, err := service.GetLeaderboard(ctx, entities.PeriodAllTime, third, 1, 10)
	require.NoError(t, err)
	require.Len(t, resp.Entries, 3)

	assert.Equal(t, first.String(), resp.Entries[0].UserID)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, second.String(), resp.Entries[1].UserID)
	assert.Equal(t, third.String(), resp.Entries[2].UserID)

	require.NotNil(t, resp.Me)
	assert.Equal(t, 3, resp.Me.Rank)
	assert.Equal(t, int64(100), resp.Me.Score)
}

func TestLeaderboardRejectsUnknownPeriod(t *testing.T) {
	service := NewLeaderboardService(newFakeLeaderboardRepository())

	_, err := service.GetLeaderboard(context.Background(), "quarterly", uuid.Nil, 1, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestWeeklyScoresIsolatedByWeek(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)
	ctx := context.Background()
	userID := uuid.New()

	thisWeek := time.Now()
	lastWeek := thisWeek.AddDate(0, 0, -7)

	service.OnTransactionApplied(ctx, creditEvent(userID, 100, lastWeek))
	service.OnTransactionApplied(ctx, creditEvent(userID, 40, thisWeek))

	assert.Equal(t, int64(100), repo.scores[scoreKey{userID, entities.PeriodWeekly, weeklyKey(lastWeek)}].Score)
	assert.Equal(t, int64(40), repo.scores[scoreKey{userID, entities.PeriodWeekly, weeklyKey(thisWeek)}].Score)
	assert.Equal(t, int64(140), repo.scores[scoreKey{userID, entities.PeriodAllTime, allTimeKey}].Score)
}

func TestAnalyticsAggregation(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)
	ctx := context.Background()
	userID := uuid.New()

	service.OnTransactionApplied(ctx, creditEvent(userID, 100, time.Now()))
	service.OnTransactionApplied(ctx, creditEvent(userID, 50, time.Now()))
	service.OnTransactionApplied(ctx, ledger.TransactionApplied{
		TransactionID: uuid.New(),
		UserID:        userID,
		Amount:        -30,
		Type:          entities.TransactionSpend,
		OccurredAt:    time.Now(),
	})
	service.RecordCategorySpend(ctx, "Cosmetic", 30)

	resp, err := service.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(150), resp.TotalEarned)
	assert.Equal(t, int64(30), resp.TotalSpent)
	assert.Equal(t, int64(2), resp.TransactionCount["earn"])
	assert.Equal(t, int64(1), resp.TransactionCount["spend"])
	assert.Equal(t, int64(30), resp.CategorySpend["cosmetic"])
}

func TestRebuildCoversEveryPeriod(t *testing.T) {
	repo := newFakeLeaderboardRepository()
	service := NewLeaderboardService(repo)

	service.RebuildAll(context.Background())
	assert.ElementsMatch(t, []string{
		entities.PeriodAllTime,
		entities.PeriodWeekly,
		entities.PeriodMonthly,
	}, repo.rebuilds)
}
