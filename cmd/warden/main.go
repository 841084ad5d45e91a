package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	adapthttp "warden/internal/adapter/http"
	"warden/internal/adapter/memory"
	"warden/internal/adapter/postgres"
	"warden/internal/adapter/sqlite"
	"warden/internal/app"
	"warden/internal/config"
	"warden/internal/domain"
	"warden/internal/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("warden error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	limiters := app.Limiters{
		Login:    app.NewRateLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow),
		Register: app.NewRateLimiter(cfg.RegisterMaxAttempts, cfg.RegisterWindow),
	}
	sessions := app.NewSessionService(st, app.WithSessionLogger(log))
	auth := app.NewAuthService(st, sessions, app.NewPasswordHasher(app.DefaultArgon2Params), limiters, log)
	janitor := app.NewJanitor(cfg.CleanupInterval, log, map[string]*app.RateLimiter{
		"login":    limiters.Login,
		"register": limiters.Register,
	})

	srv := adapthttp.New(auth, sessions, metrics.New(), log, adapthttp.Options{
		WebDir:            cfg.WebDir,
		SecureCookies:     cfg.Production(),
		StoreTimeout:      cfg.StoreTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Health:            st,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "env", cfg.AppEnv)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := janitor.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

type store interface {
	domain.UserStore
	domain.SessionStore
	Ping(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	kind, dsn, err := cfg.Store()
	if err != nil {
		return nil, nil, err
	}
	switch kind {
	case config.StorePostgres:
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	}
}
