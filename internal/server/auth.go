package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/app"
	"bookstore/pkg/domain"
	"bookstore/pkg/store"
)

type authHandler func(http.ResponseWriter, *http.Request, domain.Principal)

type loginResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      loginUser `json:"user"`
}

type loginUser struct {
	Username string          `json:"username"`
	Role     domain.UserRole `json:"role"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "admin_login", "rate_limited")
		return
	}
	var in app.LoginInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	res, err := s.app.AdminLogin(r.Context(), in)
	if err != nil {
		var verr *app.ValidationError
		if !errors.As(err, &verr) {
			s.audit(r, "admin_login", "rejected", "username", strings.TrimSpace(in.Username), "reason", err.Error())
		}
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin_login", "success", "username", res.User.Username, "role", res.User.Role)
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Authentication successful",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User: loginUser{
			Username: res.User.Username,
			Role:     res.User.Role,
		},
	})
}

// adminOnly verifies the bearer token and requires the admin role before
// calling next. Token failures are 401, a valid non-admin token is 403.
func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			s.audit(r, "auth_gate", "rejected", "reason", "missing_token")
			writeError(w, r, http.StatusUnauthorized, "TOKEN_MISSING", "access denied. no token provided")
			return
		}
		principal, err := s.app.Authenticate(token)
		if err != nil {
			s.audit(r, "auth_gate", "rejected", "reason", err.Error())
			if errors.Is(err, store.ErrTokenExpired) {
				writeError(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
				return
			}
			writeError(w, r, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token")
			return
		}
		if !principal.IsAdmin() {
			s.audit(r, "auth_gate", "forbidden", "username", principal.Username, "role", principal.Role)
			writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin role required")
			return
		}
		next(w, r, principal)
	})
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
