package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// State store: Postgres DSN wins when set, otherwise a local SQLite file.
	DatabaseURL  string
	DatabasePath string

	RedisURL      string
	StatsCacheTTL time.Duration

	// Marketplace trading API.
	MarketplaceAPIURL   string
	MarketplaceAPIToken string
	MarketplaceEnv      string

	// Dashboard operator login.
	SessionSecret     string
	AdminEmail        string
	AdminPasswordHash string

	FrontendURLEndsWith string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	Automation AutomationConfig
	Schedules  ScheduleConfig
}

// AutomationConfig carries the rule thresholds. Values are read once at
// startup; changing them requires a restart.
type AutomationConfig struct {
	StaleListingDays    int
	RelistCooldownDays  int
	RelistMaxPerRun     int // 0 = uncapped
	MinViewsForOffer    int
	OfferDiscountPct    float64
	OfferCooldownDays   int
	FeedbackRequestDays int
	SalesLookbackDays   int
}

// ScheduleConfig holds one cron or @every expression per rule.
type ScheduleConfig struct {
	Sync     string
	Stale    string
	Offer    string
	Feedback string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}
	logLevel := viper.GetString("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	dbPath := viper.GetString("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/sellerpilot.db"
	}

	cacheTTL := viper.GetDuration("STATS_CACHE_TTL")
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Config{
		Env:      env,
		Port:     port,
		LogLevel: logLevel,

		DatabaseURL:  viper.GetString("DATABASE_URL"),
		DatabasePath: dbPath,

		RedisURL:      viper.GetString("REDIS_URL"),
		StatsCacheTTL: cacheTTL,

		MarketplaceAPIURL:   viper.GetString("MARKETPLACE_API_URL"),
		MarketplaceAPIToken: viper.GetString("MARKETPLACE_API_TOKEN"),
		MarketplaceEnv:      stringDefault("MARKETPLACE_ENV", "production"),

		SessionSecret:     viper.GetString("SESSION_SECRET"),
		AdminEmail:        viper.GetString("ADMIN_EMAIL"),
		AdminPasswordHash: viper.GetString("ADMIN_PASSWORD_HASH"),

		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),

		Automation: AutomationConfig{
			StaleListingDays:    intDefault("STALE_LISTING_DAYS", 30),
			RelistCooldownDays:  intDefault("RELIST_COOLDOWN_DAYS", 7),
			RelistMaxPerRun:     intDefault("RELIST_MAX_PER_RUN", 0),
			MinViewsForOffer:    intDefault("MIN_VIEWS_FOR_OFFER", 5),
			OfferDiscountPct:    floatDefault("OFFER_DISCOUNT_PERCENT", 10),
			OfferCooldownDays:   intDefault("OFFER_COOLDOWN_DAYS", 14),
			FeedbackRequestDays: intDefault("FEEDBACK_REQUEST_DAYS", 7),
			SalesLookbackDays:   intDefault("SALES_LOOKBACK_DAYS", 30),
		},
		Schedules: ScheduleConfig{
			Sync:     stringDefault("SYNC_SCHEDULE", "@every 1h"),
			Stale:    stringDefault("STALE_CHECK_SCHEDULE", "0 2 * * *"),
			Offer:    stringDefault("OFFER_CHECK_SCHEDULE", "0 10 * * *"),
			Feedback: stringDefault("FEEDBACK_CHECK_SCHEDULE", "0 15 * * *"),
		},
	}, nil
}

// Validate checks thresholds and schedule expressions. A violation is fatal at
// startup: the scheduler must never register a rule on top of a broken
// configuration.
func (c *Config) Validate() error {
	a := c.Automation
	if a.StaleListingDays <= 0 {
		return fmt.Errorf("config: STALE_LISTING_DAYS must be positive, got %d", a.StaleListingDays)
	}
	if a.RelistCooldownDays <= 0 {
		return fmt.Errorf("config: RELIST_COOLDOWN_DAYS must be positive, got %d", a.RelistCooldownDays)
	}
	if a.RelistMaxPerRun < 0 {
		return fmt.Errorf("config: RELIST_MAX_PER_RUN must not be negative, got %d", a.RelistMaxPerRun)
	}
	if a.MinViewsForOffer < 0 {
		return fmt.Errorf("config: MIN_VIEWS_FOR_OFFER must not be negative, got %d", a.MinViewsForOffer)
	}
	if a.OfferDiscountPct <= 0 || a.OfferDiscountPct > 100 {
		return fmt.Errorf("config: OFFER_DISCOUNT_PERCENT must be in (0,100], got %v", a.OfferDiscountPct)
	}
	if a.OfferCooldownDays <= 0 {
		return fmt.Errorf("config: OFFER_COOLDOWN_DAYS must be positive, got %d", a.OfferCooldownDays)
	}
	if a.FeedbackRequestDays <= 0 {
		return fmt.Errorf("config: FEEDBACK_REQUEST_DAYS must be positive, got %d", a.FeedbackRequestDays)
	}
	if a.SalesLookbackDays <= 0 {
		return fmt.Errorf("config: SALES_LOOKBACK_DAYS must be positive, got %d", a.SalesLookbackDays)
	}

	for name, expr := range map[string]string{
		"SYNC_SCHEDULE":           c.Schedules.Sync,
		"STALE_CHECK_SCHEDULE":    c.Schedules.Stale,
		"OFFER_CHECK_SCHEDULE":    c.Schedules.Offer,
		"FEEDBACK_CHECK_SCHEDULE": c.Schedules.Feedback,
	} {
		if _, err := cron.ParseStandard(expr); err != nil {
			return fmt.Errorf("config: %s %q is not a valid schedule: %w", name, expr, err)
		}
	}

	if c.Env != "development" {
		if c.MarketplaceAPIURL == "" {
			return fmt.Errorf("config: MARKETPLACE_API_URL is required outside development")
		}
		if c.MarketplaceAPIToken == "" {
			return fmt.Errorf("config: MARKETPLACE_API_TOKEN is required outside development")
		}
	}
	return nil
}

// RelistCooldown returns the relist cooldown as a duration.
func (a AutomationConfig) RelistCooldown() time.Duration {
	return time.Duration(a.RelistCooldownDays) * 24 * time.Hour
}

// OfferCooldown returns the offer cooldown as a duration.
func (a AutomationConfig) OfferCooldown() time.Duration {
	return time.Duration(a.OfferCooldownDays) * 24 * time.Hour
}

// FeedbackDelay returns the post-sale wait before a feedback request.
func (a AutomationConfig) FeedbackDelay() time.Duration {
	return time.Duration(a.FeedbackRequestDays) * 24 * time.Hour
}

// StaleAge returns the minimum listing age before a relist is considered.
func (a AutomationConfig) StaleAge() time.Duration {
	return time.Duration(a.StaleListingDays) * 24 * time.Hour
}

func stringDefault(key, def string) string {
	v := strings.TrimSpace(viper.GetString(key))
	if v == "" {
		return def
	}
	return v
}

func intDefault(key string, def int) int {
	if viper.GetString(key) == "" {
		return def
	}
	return viper.GetInt(key)
}

func floatDefault(key string, def float64) float64 {
	if viper.GetString(key) == "" {
		return def
	}
	return viper.GetFloat64(key)
}
