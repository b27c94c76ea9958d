package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sellerpilot-backend/internal/config"
	"sellerpilot-backend/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Config load failed")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Config validation failed")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	app, db, rdb, sched, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("App create failed")
	}

	// Verify connections before going live
	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}

	sched.Start()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("SellerPilot API starting")

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Stop timers first, let in-flight runs finish, then drain HTTP.
	log.Info().Msg("Shutting down")
	sched.Stop()
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	_ = rdb.Close()
}
