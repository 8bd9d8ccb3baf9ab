package server

import (
	"net/http"

	"bookstore/pkg/domain"
)

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	stats, err := s.app.Stats(r.Context(), p)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
