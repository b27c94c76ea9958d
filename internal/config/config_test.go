package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env: "development",
		Automation: AutomationConfig{
			StaleListingDays:    30,
			RelistCooldownDays:  7,
			RelistMaxPerRun:     0,
			MinViewsForOffer:    5,
			OfferDiscountPct:    10,
			OfferCooldownDays:   14,
			FeedbackRequestDays: 7,
			SalesLookbackDays:   30,
		},
		Schedules: ScheduleConfig{
			Sync:     "@every 1h",
			Stale:    "0 2 * * *",
			Offer:    "0 10 * * *",
			Feedback: "0 15 * * *",
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Automation.StaleListingDays)
	assert.Equal(t, 7, cfg.Automation.RelistCooldownDays)
	assert.Equal(t, 0, cfg.Automation.RelistMaxPerRun)
	assert.Equal(t, 5, cfg.Automation.MinViewsForOffer)
	assert.Equal(t, float64(10), cfg.Automation.OfferDiscountPct)
	assert.Equal(t, 14, cfg.Automation.OfferCooldownDays)
	assert.Equal(t, 7, cfg.Automation.FeedbackRequestDays)
	assert.Equal(t, 30, cfg.Automation.SalesLookbackDays)

	assert.Equal(t, "@every 1h", cfg.Schedules.Sync)
	assert.Equal(t, "0 2 * * *", cfg.Schedules.Stale)
	assert.Equal(t, "0 10 * * *", cfg.Schedules.Offer)
	assert.Equal(t, "0 15 * * *", cfg.Schedules.Feedback)

	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, "production", cfg.MarketplaceEnv)
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Thresholds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero stale days", func(c *Config) { c.Automation.StaleListingDays = 0 }, "STALE_LISTING_DAYS"},
		{"zero relist cooldown", func(c *Config) { c.Automation.RelistCooldownDays = 0 }, "RELIST_COOLDOWN_DAYS"},
		{"negative relist cap", func(c *Config) { c.Automation.RelistMaxPerRun = -1 }, "RELIST_MAX_PER_RUN"},
		{"negative view floor", func(c *Config) { c.Automation.MinViewsForOffer = -3 }, "MIN_VIEWS_FOR_OFFER"},
		{"zero discount", func(c *Config) { c.Automation.OfferDiscountPct = 0 }, "OFFER_DISCOUNT_PERCENT"},
		{"discount over 100", func(c *Config) { c.Automation.OfferDiscountPct = 100.5 }, "OFFER_DISCOUNT_PERCENT"},
		{"zero offer cooldown", func(c *Config) { c.Automation.OfferCooldownDays = 0 }, "OFFER_COOLDOWN_DAYS"},
		{"zero feedback days", func(c *Config) { c.Automation.FeedbackRequestDays = 0 }, "FEEDBACK_REQUEST_DAYS"},
		{"zero sales lookback", func(c *Config) { c.Automation.SalesLookbackDays = 0 }, "SALES_LOOKBACK_DAYS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Schedules(t *testing.T) {
	cfg := validConfig()
	cfg.Schedules.Offer = "61 * * * *"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OFFER_CHECK_SCHEDULE")

	cfg = validConfig()
	cfg.Schedules.Sync = "@every 5x"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_SCHEDULE")
}

func TestValidate_RequiresMarketplaceOutsideDev(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MARKETPLACE_API_URL")

	cfg.MarketplaceAPIURL = "https://api.example.com"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MARKETPLACE_API_TOKEN")

	cfg.MarketplaceAPIToken = "tok"
	assert.NoError(t, cfg.Validate())
}

func TestDurationHelpers(t *testing.T) {
	a := AutomationConfig{
		StaleListingDays:    30,
		RelistCooldownDays:  7,
		OfferCooldownDays:   14,
		FeedbackRequestDays: 3,
	}
	assert.Equal(t, 30*24*time.Hour, a.StaleAge())
	assert.Equal(t, 7*24*time.Hour, a.RelistCooldown())
	assert.Equal(t, 14*24*time.Hour, a.OfferCooldown())
	assert.Equal(t, 3*24*time.Hour, a.FeedbackDelay())
}
