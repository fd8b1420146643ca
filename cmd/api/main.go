package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bankpay/internal/bank"
	"bankpay/internal/config"
	httpx "bankpay/internal/http"
	"bankpay/internal/payment"
	"bankpay/internal/store/postgres"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()
	repo := postgres.NewRepo(pool)

	// Redis is optional: without it the bank session lives in-process only.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	// Bank session client. A credential rejection at boot is logged once and
	// leaves the service up in degraded mode: bank-backed endpoints return
	// 503 until a human fixes the credentials.
	bc := bank.New(cfg.Bank, rdb)
	go func() {
		if err := bc.Probe(ctx); err != nil {
			if errors.Is(err, bank.ErrAuthFailed) {
				log.Error().Err(err).Msg("bank credentials rejected; running degraded")
				return
			}
			log.Warn().Err(err).Msg("bank unreachable at boot; will retry per request")
		}
	}()

	// Payment pipeline
	sink := payment.LogSink{}
	poller := payment.NewPoller(repo, repo, bc, sink, sink, cfg.Payment.PollInterval)
	dog := payment.NewWatchdog(repo, sink, sink)
	mgr := payment.NewManager(cfg.Payment, cfg.Bank, repo, poller, dog)
	defer mgr.StopAll()

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:  cfg,
		Manager: mgr,
		Bank:    bc,
		Orders:  repo,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("bankpay API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
