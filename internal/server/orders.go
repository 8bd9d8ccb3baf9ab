package server

import (
	"net/http"

	"bookstore/internal/app"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in app.CreateOrderInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	order, err := s.app.CreateOrder(r.Context(), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// handleOrdersByEmail matches the path email exactly.
func (s *Server) handleOrdersByEmail(w http.ResponseWriter, r *http.Request) {
	orders, err := s.app.OrdersByEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}
