package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookstore/internal/util"
	"bookstore/pkg/auth"
	"bookstore/pkg/domain"
)

type LoginInput struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// AdminLogin checks credentials and issues a session token carrying the
// user's id, username and role.
func (a *App) AdminLogin(ctx context.Context, in LoginInput) (LoginResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := a.check(in); err != nil {
		return LoginResult{}, err
	}
	user, ok, err := a.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return LoginResult{}, ErrUserNotFound
	}
	if !auth.CheckPassword(in.Password, user.Password) {
		return LoginResult{}, ErrInvalidPassword
	}
	if !auth.IsHashed(user.Password) {
		a.upgradePassword(ctx, user, in.Password)
	}

	token, expiresAt, err := a.sessions.NewSession(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// upgradePassword replaces a legacy plaintext password with its bcrypt hash.
// Failure leaves the login successful.
func (a *App) upgradePassword(ctx context.Context, user domain.User, password string) {
	logger := util.LoggerFromContext(ctx)
	hash, err := auth.HashPassword(password)
	if err != nil {
		logger.Error("password_upgrade_failed", "username", user.Username, "err", err)
		return
	}
	user.Password = hash
	user.UpdatedAt = a.timestamp()
	if _, err := a.store.SaveUser(ctx, user); err != nil {
		logger.Error("password_upgrade_failed", "username", user.Username, "err", err)
		return
	}
	logger.Warn("password_upgraded", "username", user.Username, "reason", "legacy plaintext record")
}

// Authenticate verifies a bearer token. Every failure wraps ErrUnauthorized.
func (a *App) Authenticate(token string) (domain.Principal, error) {
	p, err := a.sessions.ParseSession(token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return p, nil
}

// ProvisionUser creates or replaces a user with a bcrypt-hashed password.
func (a *App) ProvisionUser(ctx context.Context, username, password string, role domain.UserRole) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, &ValidationError{Fields: map[string]string{"username": "is required"}}
	}
	if !role.Valid() {
		return domain.User{}, &ValidationError{Fields: map[string]string{"role": "must be user or admin"}}
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, &ValidationError{Fields: map[string]string{"password": err.Error()}}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := a.timestamp()
	user, err := a.store.SaveUser(ctx, domain.User{
		Username:  username,
		Password:  hash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	slog.Info("user_provisioned", "username", user.Username, "role", user.Role)
	return user, nil
}

func requireAdmin(p domain.Principal) error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrUnauthorized
	}
	if !p.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
