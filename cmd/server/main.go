package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/app"
	"bookstore/internal/config"
	"bookstore/internal/ratelimit"
	"bookstore/internal/server"
	"bookstore/internal/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCore, err := app.New(ctx, app.Config{
		DatabaseURL:  cfg.DatabaseURL,
		DatabaseName: cfg.DatabaseName,
		JWTSecret:    cfg.JWTSecret,
		JWTIssuer:    cfg.JWTIssuer,
		JWTLeeway:    cfg.JWTLeeway,
		SessionTTL:   cfg.SessionTTL,
	})
	if err != nil {
		logger.Error("failed to init app", "err", err)
		os.Exit(1)
	}

	loginLimiter, err := ratelimit.New(ratelimit.Options{
		Limit:         cfg.LoginRateLimit,
		Window:        time.Minute,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed to init login rate limiter", "err", err)
		os.Exit(1)
	}
	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		logger.Error("invalid trusted proxy list", "err", err)
		os.Exit(1)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		LoginLimiter:   loginLimiter,
		CORS:           util.NewCORSPolicy(cfg.CORSAllowedOrigins),
		TrustedProxies: trustedProxies,
	})
	if err != nil {
		logger.Error("failed to init server", "err", err)
		os.Exit(1)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if err := serve(ctx, srv, appCore.Close); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// serve runs srv until ctx is done or listening fails, then shuts the server
// down and releases the store. It returns the listen error, if any.
func serve(ctx context.Context, srv *http.Server, closeStore func(context.Context) error) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := errors.Join(srv.Shutdown(shutdownCtx), closeStore(shutdownCtx)); err != nil {
		slog.Error("shutdown", "err", err)
	}
	return serveErr
}
