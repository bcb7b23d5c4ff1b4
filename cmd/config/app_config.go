package config

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"github.com/pocketmint/backend/internal/api/handlers"
	"github.com/pocketmint/backend/internal/api/routes"
	"github.com/pocketmint/backend/internal/middleware"
	"github.com/pocketmint/backend/internal/scheduler"
	"github.com/pocketmint/backend/internal/utils"
	"github.com/pocketmint/backend/internal/utils/storage"
	"github.com/pocketmint/backend/pkg/achievement"
	"github.com/pocketmint/backend/pkg/coinpack"
	"github.com/pocketmint/backend/pkg/jwt"
	"github.com/pocketmint/backend/pkg/leaderboard"
	"github.com/pocketmint/backend/pkg/ledger"
	"github.com/pocketmint/backend/pkg/payment"
	"github.com/pocketmint/backend/pkg/reward"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()
	events := ledger.NewEventBus()

	// Repository
	ledgerRepository := ledger.NewLedgerRepository(db)
	achievementRepository := achievement.NewAchievementRepository(db)
	rewardRepository := reward.NewRewardRepository(db)
	coinPackRepository := coinpack.NewCoinPackRepository(db)
	leaderboardRepository := leaderboard.NewLeaderboardRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	paymentService := payment.NewPaymentService()
	ledgerService := ledger.NewLedgerService(ledgerRepository, events)
	achievementService := achievement.NewAchievementService(achievementRepository, ledgerService)
	rewardService := reward.NewRewardService(rewardRepository, ledgerService, s3)
	coinPackService := coinpack.NewCoinPackService(coinPackRepository, ledgerService, paymentService)
	leaderboardService := leaderboard.NewLeaderboardService(leaderboardRepository)

	// Every committed transaction reaches the evaluator and the aggregator.
	events.Subscribe(achievementService.OnTransactionApplied)
	events.Subscribe(leaderboardService.OnTransactionApplied)
	rewardService.SetCategorySpendRecorder(leaderboardService.RecordCategorySpend)

	// Handler
	walletHandler := handlers.NewWalletHandler(ledgerService, validator)
	achievementHandler := handlers.NewAchievementHandler(achievementService)
	rewardHandler := handlers.NewRewardHandler(rewardService, validator)
	coinPackHandler := handlers.NewCoinPackHandler(coinPackService, validator)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)

	// background sweeps
	sched, err := scheduler.New(ledgerService, coinPackService, leaderboardService)
	if err != nil {
		return nil, err
	}
	sched.Start()

	// routes
	routesConfig := routes.Config{
		App:                app,
		WalletHandler:      walletHandler,
		AchievementHandler: achievementHandler,
		RewardHandler:      rewardHandler,
		CoinPackHandler:    coinPackHandler,
		LeaderboardHandler: leaderboardHandler,
		Middleware:         middlewares,
		JWTService:         jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
