package migration

import (
	"log"

	"gorm.io/gorm"

	"github.com/pocketmint/backend/entities"
)

// Seed inserts the default achievement and coin pack catalogs. Rows are
// matched on their natural keys so re-running is harmless.
func Seed(db *gorm.DB) error {
	achievements := []entities.Achievement{
		{
			Code:         "first-coins",
			Name:         "First Coins",
			Description:  "Earn your first 100 coins",
			Type:         entities.AchievementEarnTotal,
			Threshold:    100,
			RewardAmount: 25,
			IsActive:     true,
		},
		{
			Code:         "coin-collector",
			Name:         "Coin Collector",
			Description:  "Earn 1,000 coins in total",
			Type:         entities.AchievementEarnTotal,
			Threshold:    1000,
			RewardAmount: 100,
			IsActive:     true,
		},
		{
			Code:         "big-spender",
			Name:         "Big Spender",
			Description:  "Spend 500 coins in total",
			Type:         entities.AchievementSpendTotal,
			Threshold:    500,
			RewardAmount: 50,
			IsActive:     true,
		},
		{
			Code:         "frequent-buyer",
			Name:         "Frequent Buyer",
			Description:  "Make 10 reward purchases",
			Type:         entities.AchievementPurchaseCount,
			Threshold:    10,
			RewardAmount: 75,
			IsActive:     true,
		},
	}
	for _, a := range achievements {
		if err := db.Where(entities.Achievement{Code: a.Code}).
			FirstOrCreate(&a).Error; err != nil {
			log.Printf("Error seeding achievement %s: %v", a.Code, err)
			return err
		}
	}

	packs := []entities.CoinPack{
		{
			Name:     "Starter Pack",
			Amount:   500,
			Price:    25000,
			Currency: "IDR",
			IsActive: true,
		},
		{
			Name:      "Value Pack",
			Amount:    1200,
			Price:     50000,
			Currency:  "IDR",
			IsPopular: true,
			IsActive:  true,
		},
		{
			Name:     "Mega Pack",
			Amount:   2600,
			Price:    100000,
			Currency: "IDR",
			IsActive: true,
		},
	}
	for _, p := range packs {
		if err := db.Where(entities.CoinPack{Name: p.Name}).
			FirstOrCreate(&p).Error; err != nil {
			log.Printf("Error seeding coin pack %s: %v", p.Name, err)
			return err
		}
	}

	return nil
}
