package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookstore/internal/app"
	"bookstore/internal/ratelimit"
	"bookstore/internal/util"
)

// statusClientClosedRequest is the non-standard status access logs use for
// requests the client abandoned.
const statusClientClosedRequest = 499

const (
	defaultServiceName  = "bookstore-api"
	defaultMaxBodyBytes = 1 << 20
	defaultLoginLimit   = 10
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	ServiceName    string
	LoginLimiter   ratelimit.Limiter
	CORS           *util.CORSPolicy
	TrustedProxies *util.TrustedProxies
	MaxBodyBytes   int64
}

// Server exposes the bookstore HTTP API.
type Server struct {
	app          *app.App
	mux          *http.ServeMux
	service      string
	loginLimiter ratelimit.Limiter
	cors         *util.CORSPolicy
	proxies      *util.TrustedProxies
	maxBodyBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("server: app is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.CORS == nil {
		cfg.CORS = util.NewCORSPolicy([]string{"http://localhost:5173"})
	}
	if cfg.LoginLimiter == nil {
		limiter, err := ratelimit.NewTokenBucketLimiter(defaultLoginLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
		cfg.LoginLimiter = limiter
	}
	s := &Server{
		app:          cfg.App,
		mux:          http.NewServeMux(),
		service:      cfg.ServiceName,
		loginLimiter: cfg.LoginLimiter,
		cors:         cfg.CORS,
		proxies:      cfg.TrustedProxies,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(
		util.WithRequestLog(s.service,
			util.WithRecover(
				util.WithSecurityHeaders(
					util.WithCORS(s.cors, s.mux)))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)

	// books
	s.mux.HandleFunc("GET /api/books", s.handleListBooks)
	s.mux.HandleFunc("GET /api/books/{id}", s.handleGetBook)
	s.mux.Handle("POST /api/books/create-book", s.adminOnly(s.handleCreateBook))
	s.mux.Handle("PUT /api/books/edit/{id}", s.adminOnly(s.handleUpdateBook))
	s.mux.Handle("DELETE /api/books/{id}", s.adminOnly(s.handleDeleteBook))

	// orders
	s.mux.HandleFunc("POST /api/orders", s.handleCreateOrder)
	s.mux.HandleFunc("GET /api/orders/email/{email}", s.handleOrdersByEmail)

	// auth & admin
	s.mux.HandleFunc("POST /api/auth/admin", s.handleAdminLogin)
	s.mux.Handle("GET /api/admin", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("GET /api/admin/{$}", s.adminOnly(s.handleAdminStats))

	s.mux.HandleFunc("/", s.handleFallback)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": s.service})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "Book store server is running!")
}

var allowCandidates = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}

// handleFallback answers requests no route matched: 405 when the path exists
// under another method, 404 otherwise.
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	var allowed []string
	for _, m := range allowCandidates {
		if m == r.Method {
			continue
		}
		alt := r.Clone(r.Context())
		alt.Method = m
		if _, pattern := s.mux.Handler(alt); pattern != "/" && pattern != "" {
			allowed = append(allowed, m)
		}
	}
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "not found")
}

type errorResponse struct {
	Message   string            `json:"message"`
	Code      string            `json:"code,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Message:   msg,
		Code:      code,
		RequestID: util.RequestIDFromRequest(r),
	})
}

// writeAppError maps controller errors onto HTTP statuses and stable codes.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message:   "validation failed",
			Code:      "VALIDATION_FAILED",
			RequestID: util.RequestIDFromRequest(r),
			Errors:    verr.Fields,
		})
	case errors.Is(err, app.ErrBookNotFound):
		writeError(w, r, http.StatusNotFound, "BOOK_NOT_FOUND", "book not found")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, r, http.StatusNotFound, "ADMIN_NOT_FOUND", "admin not found")
	case errors.Is(err, app.ErrInvalidPassword):
		writeError(w, r, http.StatusUnauthorized, "INVALID_PASSWORD", "invalid password")
	case errors.Is(err, app.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin role required")
	case errors.Is(err, context.Canceled):
		util.LoggerFromContext(r.Context()).Info("request canceled", "path", r.URL.Path)
		writeError(w, r, statusClientClosedRequest, "CLIENT_CLOSED_REQUEST", "request canceled")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// decodeJSON reads a single JSON object from the size-limited request body.
// It writes the error response itself and returns false on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusBadRequest, "BODY_REQUIRED", "request body required")
		default:
			writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "malformed JSON body")
		}
		return false
	}
	if dec.More() {
		writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "body must contain a single JSON object")
		return false
	}
	return true
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.proxies)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.clientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, msg string) bool {
	key := r.URL.Path + "|" + s.clientIP(r)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limiter.Window().Seconds())))
	writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", msg)
	return false
}
