package router

import (
	authsvc "sellerpilot-backend/internal/application/auth"
	automationsvc "sellerpilot-backend/internal/application/automation"
	listsvc "sellerpilot-backend/internal/application/listings"
	statssvc "sellerpilot-backend/internal/application/stats"
	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/infrastructure/database"
	authhandler "sellerpilot-backend/internal/interfaces/handlers/auth"
	automationhandler "sellerpilot-backend/internal/interfaces/handlers/automation"
	healthhandler "sellerpilot-backend/internal/interfaces/handlers/health"
	listhandler "sellerpilot-backend/internal/interfaces/handlers/listings"
	statshandler "sellerpilot-backend/internal/interfaces/handlers/stats"
	webhookhandler "sellerpilot-backend/internal/interfaces/handlers/webhooks"
	"sellerpilot-backend/internal/marketplace"
	"sellerpilot-backend/internal/middleware"
	"sellerpilot-backend/internal/scheduler"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) Ping() error {
	if g == nil || g.db == nil {
		return nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateApp builds the Fiber app, opens the state store and constructs the
// automation engine and scheduler. The scheduler comes back unstarted; the
// caller owns its lifecycle.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, *scheduler.Scheduler, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
	}))

	db, err := database.Open(cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, nil, nil, nil, err
	}

	// Compliance webhook, mounted before the session middleware: the
	// marketplace calls it without cookies.
	deletionWebhook := &webhookhandler.AccountDeletionHandler{DB: db}
	app.Get("/webhook/marketplace-account-deletion", deletionWebhook.Challenge)
	app.Post("/webhook/marketplace-account-deletion", deletionWebhook.Notify)

	sessionCfg := middleware.SessionConfig{
		Secret:            cfg.SessionSecret,
		RedisURL:          cfg.RedisURL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.Env == "production",
	}
	sessionHandler, rdb, err := middleware.Session(sessionCfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.HealthMarker(rdb))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	hh := &healthhandler.Handlers{
		Rdb:            rdb,
		DB:             &gormDBPinger{db: db},
		MarketplaceURL: cfg.MarketplaceAPIURL,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health", hh.Plain)
	app.Get("/health/json", hh.JSON)

	ah := &authhandler.Handlers{
		Auth: &authsvc.Service{
			AdminEmail:        cfg.AdminEmail,
			AdminPasswordHash: cfg.AdminPasswordHash,
		},
		Rdb:    rdb,
		Config: sessionCfg,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	client := marketplace.NewTradingClient(cfg.MarketplaceAPIURL, cfg.MarketplaceAPIToken)
	engine := automationsvc.New(db, client, cfg.Automation)
	sched, err := scheduler.New(engine, cfg.Schedules)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	statsService := &statssvc.Service{
		DB:       db,
		Redis:    rdb,
		CacheTTL: cfg.StatsCacheTTL,
		StaleAge: cfg.Automation.StaleAge(),
	}
	listingsService := &listsvc.Service{
		DB:       db,
		StaleAge: cfg.Automation.StaleAge(),
	}

	sh := &statshandler.Handlers{Service: statsService}
	app.Get("/api/v1/stats", middleware.RequireAuth(), sh.Overview)

	lh := &listhandler.Handlers{Service: listingsService, Engine: engine, Stats: statsService}
	lg := app.Group("/api/v1/listings", middleware.RequireAuth())
	lg.Get("/get-listings", lh.GetListings)
	lg.Post("/relist-item/:item_id", lh.RelistItem)

	autoh := &automationhandler.Handlers{Engine: engine, Scheduler: sched, Stats: statsService}
	ag := app.Group("/api/v1/automation", middleware.RequireAuth())
	ag.Get("/get-runs", autoh.GetRuns)
	ag.Get("/get-jobs", autoh.GetJobs)
	ag.Post("/run-sync", autoh.RunSync)
	ag.Post("/run-stale-check", autoh.RunStaleCheck)
	ag.Post("/run-offer-check", autoh.RunOfferCheck)
	ag.Post("/run-feedback-check", autoh.RunFeedbackCheck)

	return app, db, rdb, sched, nil
}
