package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/pocketmint/backend/entities"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.Wallet{}); err != nil {
		log.Fatalf("Error migrating wallet database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CoinTransaction{}); err != nil {
		log.Fatalf("Error migrating coin transaction database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Achievement{}); err != nil {
		log.Fatalf("Error migrating achievement database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.UserAchievementProgress{}); err != nil {
		log.Fatalf("Error migrating achievement progress database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.RewardItem{}); err != nil {
		log.Fatalf("Error migrating reward item database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.RewardPurchase{}); err != nil {
		log.Fatalf("Error migrating reward purchase database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CoinPack{}); err != nil {
		log.Fatalf("Error migrating coin pack database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.CoinPackPurchase{}); err != nil {
		log.Fatalf("Error migrating coin pack purchase database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.LeaderboardScore{}); err != nil {
		log.Fatalf("Error migrating leaderboard score database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.AnalyticsCounter{}); err != nil {
		log.Fatalf("Error migrating analytics counter database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
