package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"neuropay/internal/config"
	"neuropay/internal/models"
	"neuropay/internal/robokassa"
	"neuropay/internal/services"
)

const testPassword2 = "result-secret"

type nopCache struct{}

func (nopCache) Put(context.Context, *models.Profile) error { return nil }

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Tariff{},
		&models.Profile{},
		&models.Invoice{},
		&models.RefLink{},
	))

	premium := models.Tariff{
		ID: 2, Name: "Premium", Code: models.TariffCodePremium,
		GPT4oDailyLimit: 100, GPT4oMiniDailyLimit: models.Unlimited,
		Days: 30, PriceRub: 489, PriceStars: 190,
	}
	require.NoError(t, db.Create(&premium).Error)

	tid := int64(1)
	profile := models.Profile{ID: uuid.New(), TGID: 777, TariffID: &tid}
	require.NoError(t, db.Create(&profile).Error)
	inv := models.Invoice{ID: 500, ProfileID: &profile.ID, TariffID: &premium.ID, Provider: models.ProviderRobokassa}
	require.NoError(t, db.Create(&inv).Error)

	cfg := &config.Config{
		RecurringDefault: true,
		FreeTariffID:     1,
		StoreTimeout:     time.Second,
	}
	rk := robokassa.New("demo", "link-secret", testPassword2, true)
	paymentService := services.NewPaymentService(db, rk, nopCache{}, cfg)
	h := NewPaymentHandler(paymentService)

	app := fiber.New()
	app.Get("/result", h.Result)
	app.Get("/success", h.Success)
	app.Get("/fail", h.Fail)
	app.Get("/test", h.Test)
	return app, db
}

func resultURL(invID, outSum, signature string) string {
	q := url.Values{}
	q.Set("InvId", invID)
	q.Set("OutSum", outSum)
	q.Set("SignatureValue", signature)
	return "/result?" + q.Encode()
}

func doGet(t *testing.T, app *fiber.App, target string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestResultSuccess(t *testing.T) {
	app, db := setupApp(t)
	sig := robokassa.Signature("489", "500", testPassword2)

	status, body := doGet(t, app, resultURL("500", "489", sig))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK500", body)

	var inv models.Invoice
	require.NoError(t, db.First(&inv, 500).Error)
	assert.True(t, inv.IsPaid)
}

func TestResultBadSignature(t *testing.T) {
	app, db := setupApp(t)

	status, body := doGet(t, app, resultURL("500", "489", "deadbeef"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Check signature ERROR", body)
	assert.False(t, strings.HasPrefix(body, "OK"))

	var inv models.Invoice
	require.NoError(t, db.First(&inv, 500).Error)
	assert.False(t, inv.IsPaid)
}

func TestResultMalformedInvoiceID(t *testing.T) {
	app, _ := setupApp(t)

	for _, invID := range []string{"", "abc", "-1", "12.5"} {
		sig := robokassa.Signature("489", invID, testPassword2)
		status, body := doGet(t, app, resultURL(invID, "489", sig))
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ERROR", body, "InvId=%q", invID)
	}
}

func TestResultUnknownInvoice(t *testing.T) {
	app, db := setupApp(t)
	sig := robokassa.Signature("489", "999", testPassword2)

	status, body := doGet(t, app, resultURL("999", "489", sig))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ERROR", body)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("is_paid = ?", true).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResultRetryReturnsSameAck(t *testing.T) {
	app, _ := setupApp(t)
	sig := robokassa.Signature("489", "500", testPassword2)
	target := resultURL("500", "489", sig)

	_, first := doGet(t, app, target)
	_, second := doGet(t, app, target)
	assert.Equal(t, "OK500", first)
	assert.Equal(t, first, second)
}

func TestLandingPages(t *testing.T) {
	app, _ := setupApp(t)

	status, body := doGet(t, app, "/success")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<html")

	status, body = doGet(t, app, "/fail")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<html")

	status, body = doGet(t, app, "/test")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
}

func TestResultEmailPassthrough(t *testing.T) {
	app, db := setupApp(t)
	sig := robokassa.Signature("489", "500", testPassword2)
	target := resultURL("500", "489", sig) + "&" + fmt.Sprintf("EMail=%s", url.QueryEscape("Buyer@Mail.RU"))

	_, body := doGet(t, app, target)
	assert.Equal(t, "OK500", body)

	var p models.Profile
	require.NoError(t, db.Where("tgid = ?", 777).First(&p).Error)
	require.NotNil(t, p.Email)
	assert.Equal(t, "buyer@mail.ru", *p.Email)
}
