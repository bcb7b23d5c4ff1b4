package scheduler

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/pocketmint/backend/pkg/coinpack"
	"github.com/pocketmint/backend/pkg/leaderboard"
	"github.com/pocketmint/backend/pkg/ledger"
)

// Scheduler runs the background sweeps: crediting coin pack purchases that
// were confirmed but not yet credited (restart recovery), auditing wallet
// balances against the transaction log, and rebuilding leaderboard views.
type Scheduler struct {
	cron *cron.Cron
}

func New(
	ledgerService ledger.LedgerService,
	coinPackService coinpack.CoinPackService,
	leaderboardService leaderboard.LeaderboardService,
) (*Scheduler, error) {
	c := cron.New()
	ctx := context.Background()

	if _, err := c.AddFunc("@every 5m", func() {
		coinPackService.ResumePendingCredits(ctx)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc("@hourly", func() {
		ledgerService.AuditAll(ctx)
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc("@daily", func() {
		leaderboardService.RebuildAll(ctx)
	}); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	log.Info("starting background scheduler")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
