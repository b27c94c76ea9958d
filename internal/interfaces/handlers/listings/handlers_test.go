package listings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	automationsvc "sellerpilot-backend/internal/application/automation"
	listsvc "sellerpilot-backend/internal/application/listings"
	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/infrastructure/database"
	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeMarket answers relists with relistErr, everything else with empty data.
type fakeMarket struct {
	relistErr error
}

func (f *fakeMarket) FetchActiveListings(ctx context.Context) ([]marketplace.ListingSnapshot, error) {
	return nil, nil
}

func (f *fakeMarket) FetchSales(ctx context.Context, since time.Time) ([]marketplace.SaleSnapshot, error) {
	return nil, nil
}

func (f *fakeMarket) RelistItem(ctx context.Context, itemID string) (*marketplace.RelistResult, error) {
	if f.relistErr != nil {
		return nil, f.relistErr
	}
	return &marketplace.RelistResult{NewItemID: itemID}, nil
}

func (f *fakeMarket) SendOffer(ctx context.Context, itemID string, offerPrice float64, message string) error {
	return nil
}

func (f *fakeMarket) RequestFeedback(ctx context.Context, itemID, saleID, buyerID string) error {
	return nil
}

func setupListingsTest(t *testing.T, market *fakeMarket) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	engine := automationsvc.New(db, market, config.AutomationConfig{
		StaleListingDays:    30,
		RelistCooldownDays:  7,
		MinViewsForOffer:    5,
		OfferDiscountPct:    10,
		OfferCooldownDays:   14,
		FeedbackRequestDays: 3,
		SalesLookbackDays:   30,
	})
	h := &Handlers{
		Service: &listsvc.Service{DB: db, StaleAge: 30 * 24 * time.Hour},
		Engine:  engine,
	}
	return h, db
}

func decodeBody(t *testing.T, resp io.Reader) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp).Decode(&out))
	return out
}

func TestGetListings_DefaultsToActive(t *testing.T) {
	h, db := setupListingsTest(t, &fakeMarket{})
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "A", Title: "Item A", Status: models.ListingStatusActive,
		StartTime: time.Now().AddDate(0, 0, -5),
	}).Error)
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "B", Title: "Item B", Status: models.ListingStatusEnded,
		StartTime: time.Now().AddDate(0, 0, -90),
	}).Error)

	app := fiber.New()
	app.Get("/get-listings", h.GetListings)

	req := httptest.NewRequest("GET", "/get-listings", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Listings fetched successfully", out["message"])

	items, _ := out["data"].([]interface{})
	require.Len(t, items, 1)

	meta, _ := out["metadata"].(map[string]interface{})
	require.NotNil(t, meta)
	assert.Equal(t, float64(1), meta["total"])
	assert.Equal(t, float64(20), meta["per_page"])
}

func TestGetListings_UnknownStatus(t *testing.T) {
	h, _ := setupListingsTest(t, &fakeMarket{})
	app := fiber.New()
	app.Get("/get-listings", h.GetListings)

	req := httptest.NewRequest("GET", "/get-listings?status=archived", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	assert.Equal(t, "error", out["status"])
}

func TestRelistItem_NotFound(t *testing.T) {
	h, _ := setupListingsTest(t, &fakeMarket{})
	app := fiber.New()
	app.Post("/relist-item/:item_id", h.RelistItem)

	req := httptest.NewRequest("POST", "/relist-item/missing", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	errObj, _ := out["error"].(map[string]interface{})
	require.NotNil(t, errObj)
	assert.Equal(t, "Listing not found", errObj["message"])
}

func TestRelistItem_Cooldown(t *testing.T) {
	h, db := setupListingsTest(t, &fakeMarket{})
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "A", Title: "Item A", Status: models.ListingStatusActive,
		StartTime: time.Now().AddDate(0, 0, -40),
	}).Error)
	require.NoError(t, db.Create(&models.RelistAction{
		ItemID: "A", Reason: models.RelistReasonManual,
		Outcome: models.RelistOutcomeSuccess, RelistedAt: time.Now().Add(-time.Hour),
	}).Error)

	app := fiber.New()
	app.Post("/relist-item/:item_id", h.RelistItem)

	req := httptest.NewRequest("POST", "/relist-item/A", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	errObj, _ := out["error"].(map[string]interface{})
	require.NotNil(t, errObj)
	assert.Equal(t, "Listing was relisted recently", errObj["message"])
}

func TestRelistItem_MarketplaceRejected(t *testing.T) {
	market := &fakeMarket{relistErr: &marketplace.RejectedError{
		Op: "relist", ItemID: "A", Code: "240", Reason: "not eligible for relist",
	}}
	h, db := setupListingsTest(t, market)
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "A", Title: "Item A", Status: models.ListingStatusActive,
		StartTime: time.Now().AddDate(0, 0, -40),
	}).Error)

	app := fiber.New()
	app.Post("/relist-item/:item_id", h.RelistItem)

	req := httptest.NewRequest("POST", "/relist-item/A", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	errObj, _ := out["error"].(map[string]interface{})
	require.NotNil(t, errObj)
	details, _ := errObj["details"].(map[string]interface{})
	require.NotNil(t, details)
	assert.Contains(t, details["reason"], "not eligible")
}

func TestRelistItem_MarketplaceUnavailable(t *testing.T) {
	market := &fakeMarket{relistErr: &marketplace.TransportError{
		Op: "relist A", Err: errors.New("gateway timeout"),
	}}
	h, db := setupListingsTest(t, market)
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "A", Title: "Item A", Status: models.ListingStatusActive,
		StartTime: time.Now().AddDate(0, 0, -40),
	}).Error)

	app := fiber.New()
	app.Post("/relist-item/:item_id", h.RelistItem)

	req := httptest.NewRequest("POST", "/relist-item/A", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 502, resp.StatusCode)
}

func TestRelistItem_Success(t *testing.T) {
	h, db := setupListingsTest(t, &fakeMarket{})
	require.NoError(t, db.Create(&models.Listing{
		ItemID: "A", Title: "Item A", Status: models.ListingStatusActive,
		StartTime: time.Now().AddDate(0, 0, -40),
	}).Error)

	app := fiber.New()
	app.Post("/relist-item/:item_id", h.RelistItem)

	req := httptest.NewRequest("POST", "/relist-item/A", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	out := decodeBody(t, resp.Body)
	assert.Equal(t, "Item relisted", out["message"])
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Equal(t, "success", data["outcome"])
	assert.Equal(t, "manual", data["reason"])

	var count int64
	require.NoError(t, db.Model(&models.RelistAction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
