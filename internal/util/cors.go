package util

import (
	"encoding/json"
	"net/http"
	"strings"
)

// CORSPolicy is an origin allow-list for browser callers.
type CORSPolicy struct {
	origins map[string]struct{}
}

// NewCORSPolicy builds a policy from exact origins such as "http://localhost:5173".
func NewCORSPolicy(origins []string) *CORSPolicy {
	p := &CORSPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.origins[o] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin is on the allow-list.
func (p *CORSPolicy) Allowed(origin string) bool {
	if p == nil {
		return false
	}
	_, ok := p.origins[origin]
	return ok
}

// WithCORS answers allowed origins with credentialed CORS headers and rejects
// any other cross-origin request with 403. Requests without an Origin header
// are not cross-origin and pass through untouched.
func WithCORS(policy *CORSPolicy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")
		if !policy.Allowed(origin) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message":   "origin not allowed",
				"code":      "CORS_ORIGIN_DENIED",
				"requestId": RequestIDFromRequest(r),
			})
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
