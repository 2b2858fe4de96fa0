package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chaseparty/chase-backend/internal/config"
	"github.com/chaseparty/chase-backend/internal/game"
	"github.com/chaseparty/chase-backend/internal/httpapi"
	"github.com/chaseparty/chase-backend/internal/ratelimit"
	"github.com/chaseparty/chase-backend/internal/store"
	"github.com/chaseparty/chase-backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := ws.NewHub(log)

	mgr, err := game.NewManager(game.Config{
		MinPlayers:     cfg.MinPlayers,
		MaxPlayers:     cfg.MaxPlayers,
		Countdown:      cfg.Countdown,
		GameDuration:   cfg.GameDuration,
		WaitingRemoval: cfg.WaitingRemoval,
		PlayingGrace:   cfg.PlayingGrace,
	}, hub, log)
	if err != nil {
		log.Fatal("session manager", zap.Error(err))
	}
	defer mgr.Close()

	limiter := ratelimit.New(time.Minute, 30*time.Second)
	defer limiter.Stop()

	// Persistence is optional and never on the critical path.
	var worker *store.Worker
	if cfg.DatabaseURL != "" {
		st, err := store.Open(cfg.DatabaseURL, log)
		if err != nil {
			log.Warn("snapshot store unavailable, continuing without persistence", zap.Error(err))
		} else {
			defer st.Close()
			if recs, err := st.LoadAll(ctx); err != nil {
				log.Warn("snapshot restore failed", zap.Error(err))
			} else if n := mgr.Restore(recs); n > 0 {
				log.Info("rooms restored", zap.Int("count", n))
			}
			worker = store.NewWorker(mgr, st, cfg.SnapshotInterval, log)
			worker.Start(ctx)
			defer func() {
				worker.Stop()
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				worker.RunOnce(flushCtx)
			}()
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.SetupRoutes(hub, mgr, limiter, log),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.Int("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
}
