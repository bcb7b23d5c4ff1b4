package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pocketmint/backend/internal/api/handlers"
	"github.com/pocketmint/backend/internal/middleware"
	"github.com/pocketmint/backend/pkg/jwt"
)

type Config struct {
	App                *fiber.App
	WalletHandler      handlers.WalletHandler
	AchievementHandler handlers.AchievementHandler
	RewardHandler      handlers.RewardHandler
	CoinPackHandler    handlers.CoinPackHandler
	LeaderboardHandler handlers.LeaderboardHandler
	Middleware         middleware.Middleware
	JWTService         jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Wallet()
	c.Achievements()
	c.Rewards()
	c.CoinPacks()
	c.Leaderboard()
	c.GuestRoute()
}

func (c *Config) Wallet() {
	wallet := c.App.Group("/api/v1/wallet", c.Middleware.AuthMiddleware(c.JWTService))
	{
		wallet.Get("", c.WalletHandler.GetWallet)
		wallet.Get("/transactions", c.WalletHandler.GetTransactionHistory)
		wallet.Post("/transactions", c.Middleware.AdminOnly(), c.WalletHandler.CreateTransaction)
	}
}

func (c *Config) Achievements() {
	achievements := c.App.Group("/api/v1/achievements", c.Middleware.AuthMiddleware(c.JWTService))
	{
		achievements.Get("", c.AchievementHandler.GetAchievements)
		achievements.Get("/progress", c.AchievementHandler.GetUserProgress)
	}
}

func (c *Config) Rewards() {
	rewards := c.App.Group("/api/v1/rewards", c.Middleware.AuthMiddleware(c.JWTService))
	{
		rewards.Get("", c.RewardHandler.ListItems)
		rewards.Post("", c.Middleware.AdminOnly(), c.RewardHandler.CreateItem)
		rewards.Patch("/:id", c.Middleware.AdminOnly(), c.RewardHandler.UpdateItem)
		rewards.Post("/:id/purchase", c.RewardHandler.Purchase)
		rewards.Get("/purchases", c.RewardHandler.GetUserPurchases)
		rewards.Post("/purchases/:id/refund", c.Middleware.AdminOnly(), c.RewardHandler.Refund)
	}
}

func (c *Config) CoinPacks() {
	coinPacks := c.App.Group("/api/v1/coin-packs", c.Middleware.AuthMiddleware(c.JWTService))
	{
		coinPacks.Get("", c.CoinPackHandler.GetPacks)
		coinPacks.Post("/:id/purchase", c.CoinPackHandler.InitiatePurchase)
		coinPacks.Post("/purchases/:id/cancel", c.CoinPackHandler.CancelPurchase)
	}
}

func (c *Config) Leaderboard() {
	c.App.Get("/api/v1/leaderboard", c.Middleware.AuthMiddleware(c.JWTService), c.LeaderboardHandler.GetLeaderboard)
	c.App.Get("/api/v1/analytics", c.Middleware.AuthMiddleware(c.JWTService), c.Middleware.AdminOnly(), c.LeaderboardHandler.GetAnalytics)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Post("/webhook/payment", c.CoinPackHandler.PaymentWebhook)
}
