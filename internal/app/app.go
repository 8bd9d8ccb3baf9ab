package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"bookstore/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL  string
	DatabaseName string
	JWTSecret    string
	JWTIssuer    string
	JWTLeeway    time.Duration
	SessionTTL   time.Duration
	Store        store.Store
	Sessions     store.SessionStore
	Now          func() time.Time
}

// App is the application context shared by every request: the store handle,
// the session signer, and the request schema validator.
type App struct {
	store    store.Store
	sessions store.SessionStore
	validate *validator.Validate
	now      func() time.Time
}

// New wires the store selected by DatabaseURL (unless one is injected) and a
// JWT session store keyed by JWTSecret.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sessions := cfg.Sessions
	if sessions == nil {
		jwtStore, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL, store.JWTOptions{
			Issuer: cfg.JWTIssuer,
			Leeway: cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init session store: %w", err)
		}
		sessions = jwtStore
	}

	dataStore := cfg.Store
	if dataStore == nil {
		var err error
		dataStore, err = store.Open(ctx, cfg.DatabaseURL, cfg.DatabaseName)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}

	return &App{
		store:    dataStore,
		sessions: sessions,
		validate: newValidator(),
		now:      cfg.Now,
	}, nil
}

// Ping reports whether the backing store is reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the store connection.
func (a *App) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}

func (a *App) timestamp() time.Time {
	return a.now().UTC()
}
