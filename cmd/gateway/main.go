package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aman-churiwal/quota-gateway/internal/config"
	"github.com/aman-churiwal/quota-gateway/internal/healthcheck"
	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/aman-churiwal/quota-gateway/internal/repository"
	"github.com/aman-churiwal/quota-gateway/internal/server"
	"github.com/aman-churiwal/quota-gateway/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "quota gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, closeLog := logging.NewLogger(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	rdb, err := storage.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	log.Info("connected to postgres and redis")

	srv := server.New(server.Deps{
		Config:  cfg,
		Logger:  log,
		Plans:   repository.NewPlanRepository(db),
		Keys:    repository.NewAPIKeyRepository(db),
		Counter: rdb.Client,
		Probes: []healthcheck.Dependency{
			{Name: "postgres", Probe: db.Ping},
			{Name: "redis", Probe: rdb.Ping},
		},
		Registry: prometheus.NewRegistry(),
		Clock:    clockwork.NewRealClock(),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(":" + cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", logging.Error(err))
			_ = srv.Shutdown(context.Background())
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logging.Error(err))
		return err
	}

	log.Info("server exited")
	return nil
}
