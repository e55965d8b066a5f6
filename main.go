package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/UndrAds/snappy-sub001/internal/adslot"
	"github.com/UndrAds/snappy-sub001/internal/auth"
	"github.com/UndrAds/snappy-sub001/internal/config"
	"github.com/UndrAds/snappy-sub001/internal/database"
	"github.com/UndrAds/snappy-sub001/internal/logger"
	"github.com/UndrAds/snappy-sub001/internal/rss"
	"github.com/UndrAds/snappy-sub001/internal/server"
)

func main() {
	logger.Init()
	log := logger.Log

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	var store database.Store
	switch cfg.DatabaseDriver {
	case "postgres":
		store, err = database.NewPostgres(cfg.DatabaseDSN)
	default:
		store, err = database.New(cfg.DatabaseDSN)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()
	log.WithField("backend", store.DatabaseType()).Info("database ready")

	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.TokenTTL)

	gpt := adslot.NewGPTService(cfg.AdLibraryURL)
	registry := adslot.NewRegistry(gpt, log)

	tracker := rss.NewTracker()
	generator := rss.NewGenerator(store, tracker, cfg.MinRefreshInterval, log)
	scheduler := rss.NewScheduler(store, generator, cfg.SchedulerInterval, log)

	srv := server.New(store, authSvc, registry, gpt, generator, scheduler, log)
	defer srv.Stop()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		srv.Stop()
		store.Close()
		os.Exit(0)
	}()

	if err := srv.Start(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
