package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"neuropay/internal/config"
	"neuropay/internal/models"
)

const (
	freeTariffID    = int64(1)
	premiumTariffID = int64(2)
	promoTariffID   = int64(3)
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One in-memory sqlite DB per connection; keep the pool at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Tariff{},
		&models.Profile{},
		&models.Invoice{},
		&models.RefLink{},
	))

	seedTariffs(t, db)
	return db
}

func seedTariffs(t *testing.T, db *gorm.DB) {
	t.Helper()

	tariffs := []models.Tariff{
		{
			ID: freeTariffID, Name: "Free", Code: models.TariffCodeFree,
			GPT4oMiniDailyLimit: 30,
		},
		{
			ID: premiumTariffID, Name: "Premium", Code: models.TariffCodePremium,
			GPT4oDailyLimit: 100, GPT4oMiniDailyLimit: models.Unlimited,
			MJ60DailyLimit: 20, MJ52DailyLimit: 45,
			Days: 30, PriceRub: 489, PriceStars: 190,
		},
		{
			ID: promoTariffID, Name: "Promo", Code: models.TariffCodePromo,
			GPT4oDailyLimit: 10, GPT4oMiniDailyLimit: models.Unlimited,
			Days: 3, PriceRub: 1, PriceStars: 1,
		},
	}
	for i := range tariffs {
		require.NoError(t, db.Create(&tariffs[i]).Error)
	}
}

func seedProfile(t *testing.T, db *gorm.DB, tgid int64, mutate func(*models.Profile)) *models.Profile {
	t.Helper()

	tid := freeTariffID
	p := models.Profile{
		ID:                  uuid.New(),
		TGID:                tgid,
		TariffID:            &tid,
		GPT4oMiniDailyLimit: 30,
	}
	if mutate != nil {
		mutate(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func seedInvoice(t *testing.T, db *gorm.DB, id int64, profileID uuid.UUID, tariffID int64, mutate func(*models.Invoice)) *models.Invoice {
	t.Helper()

	inv := models.Invoice{
		ID:        id,
		ProfileID: &profileID,
		TariffID:  &tariffID,
		Provider:  models.ProviderRobokassa,
	}
	if mutate != nil {
		mutate(&inv)
	}
	require.NoError(t, db.Create(&inv).Error)
	return &inv
}

func testConfig() *config.Config {
	return &config.Config{
		RecurringDefault:     true,
		RecurringMaxAttempts: 3,
		FreeTariffID:         freeTariffID,
		StoreTimeout:         time.Second,
	}
}

type fakeCache struct {
	puts []models.Profile
	err  error
}

func (f *fakeCache) Put(_ context.Context, p *models.Profile) error {
	if f.err != nil {
		return f.err
	}
	f.puts = append(f.puts, *p)
	return nil
}
