package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/probegate/probegate/internal/config"
	"github.com/probegate/probegate/internal/httpapi"
	"github.com/probegate/probegate/internal/logging"
	"github.com/probegate/probegate/internal/metrics"
	"github.com/probegate/probegate/internal/notify"
	"github.com/probegate/probegate/internal/probe"
	"github.com/probegate/probegate/internal/repo"
	"github.com/probegate/probegate/internal/repo/memory"
	"github.com/probegate/probegate/internal/repo/postgres"
)

func main() {
	_ = godotenv.Load() // best-effort; real env always wins

	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repo.RunStore
	var closeStore func() error
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect_error", zap.Error(err))
		}
		store = pg
		closeStore = func() error { pg.Close(); return nil }
		logger.Info("store_postgres")
	} else {
		store = memory.New()
		logger.Info("store_memory")
	}

	channels := notify.Multi{notify.NewLog(logger)}
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		channels = append(channels, slack)
	}
	gate := notify.NewGate(channels, notify.GateConfig{
		AlertOnRecovery: true,
		Cooldown:        15 * time.Minute,
	})

	api := httpapi.NewServer(logger, store, probe.NewHTTPProber(logger), metrics.New(), gate, httpapi.Options{
		ProbeGap:       cfg.ProbeGap,
		PublicAPIKeys:  cfg.PublicAPIKeys,
		AdminAPIKeys:   cfg.AdminAPIKeys,
		RatePerMin:     cfg.RatePerMin,
		RateBurst:      cfg.RateBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shctx)
		if closeStore != nil {
			err = multierr.Append(err, closeStore())
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("api_exit_error", zap.Error(err))
	}
	logger.Info("api_stopped")
}
