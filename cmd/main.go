package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gridmatch-server/api"
	"gridmatch-server/arena"
	"gridmatch-server/config"
	"gridmatch-server/registry"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "source"

func setLogger(level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if lvl > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

func main() {
	log.Info().Msgf("Starting gridmatch-server version: %s", version)

	cfg := config.Load()
	setLogger(cfg.LogLevel)
	log.Info().Interface("config", cfg.Redacted()).Msg("config loaded")

	// Context and shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	devices := registry.New(cfg.DeviceIdleTimeout)
	store := arena.NewStore(devices, cfg.MatchRetention)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}

	// Idle devices are swept on a fixed interval, together with any
	// waiting entries they left behind; devices in an active match are
	// exempt regardless of staleness.
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			store.SweepExpiredDevices(time.Now())
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule registry sweep")
	}

	// Terminal matches stay queryable for the retention period, then go.
	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			store.PruneTerminal(time.Now())
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule match pruning")
	}
	sched.Start()

	router := api.NewRouter(devices, store)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Block until shutdown
	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server graceful shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
