package util

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
)

// WithRecover turns a handler panic into a logged 500 response instead of a
// dropped connection.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			LoggerFromContext(r.Context()).Error("handler_panic",
				"panic", rec,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			w.Header().Set("Connection", "close")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message":   "internal server error",
				"code":      "INTERNAL",
				"requestId": RequestIDFromRequest(r),
			})
		}()
		next.ServeHTTP(w, r)
	})
}
