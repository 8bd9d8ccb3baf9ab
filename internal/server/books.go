package server

import (
	"net/http"
	"strconv"

	"bookstore/internal/app"
	"bookstore/pkg/domain"
)

type deleteBookResponse struct {
	Message string      `json:"message"`
	Book    domain.Book `json:"book"`
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := app.BookQuery{Category: r.URL.Query().Get("category")}
	if raw := r.URL.Query().Get("trending"); raw != "" {
		trending, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", "trending must be true or false")
			return
		}
		q.Trending = &trending
	}
	books, err := s.app.ListBooks(r.Context(), q)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.app.GetBook(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	var in app.CreateBookInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	book, err := s.app.CreateBook(r.Context(), p, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "book_create", "success", "username", p.Username, "bookId", book.ID)
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	var in app.UpdateBookInput
	if !s.decodeJSON(w, r, &in) {
		return
	}
	book, err := s.app.UpdateBook(r.Context(), p, r.PathValue("id"), in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "book_update", "success", "username", p.Username, "bookId", book.ID)
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, p domain.Principal) {
	book, err := s.app.DeleteBook(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "book_delete", "success", "username", p.Username, "bookId", book.ID)
	writeJSON(w, http.StatusOK, deleteBookResponse{Message: "Book deleted successfully", Book: book})
}
