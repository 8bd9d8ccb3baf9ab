package app

import (
	"context"
	"fmt"
	"strings"

	"bookstore/pkg/domain"
	"bookstore/pkg/store"
)

// BookQuery filters ListBooks. Category matching ignores case and padding;
// an empty category or "all" lists everything.
type BookQuery struct {
	Category string
	Trending *bool
}

// CreateBookInput is the create-book request schema.
type CreateBookInput struct {
	Title       string   `json:"title" validate:"required,max=300"`
	Author      string   `json:"author" validate:"required,max=200"`
	Category    string   `json:"category" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=5000"`
	CoverImage  string   `json:"coverImage" validate:"max=1000"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	OldPrice    *float64 `json:"oldPrice" validate:"omitempty,gte=0"`
	Trending    bool     `json:"trending"`
}

// UpdateBookInput is a partial update; absent fields keep their value.
type UpdateBookInput struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=300"`
	Author      *string  `json:"author" validate:"omitempty,min=1,max=200"`
	Category    *string  `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=5000"`
	CoverImage  *string  `json:"coverImage" validate:"omitempty,max=1000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	OldPrice    *float64 `json:"oldPrice" validate:"omitempty,gte=0"`
	Trending    *bool    `json:"trending"`
}

// ListBooks returns every matching book, newest first.
func (a *App) ListBooks(ctx context.Context, q BookQuery) ([]domain.Book, error) {
	books, err := a.store.ListBooks(ctx, store.BookFilter{Category: q.Category, Trending: q.Trending})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books, nil
}

// GetBook returns the book or ErrBookNotFound.
func (a *App) GetBook(ctx context.Context, id string) (domain.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Book{}, ErrBookNotFound
	}
	book, ok, err := a.store.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// CreateBook validates and stores a new book on behalf of an admin.
func (a *App) CreateBook(ctx context.Context, p domain.Principal, in CreateBookInput) (domain.Book, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Book{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Category = strings.TrimSpace(in.Category)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	in.Description = plainText(in.Description)
	if err := a.check(in); err != nil {
		return domain.Book{}, err
	}

	now := a.timestamp()
	book := domain.Book{
		Title:       in.Title,
		Author:      in.Author,
		Category:    in.Category,
		Description: in.Description,
		CoverImage:  in.CoverImage,
		Price:       *in.Price,
		Trending:    in.Trending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.OldPrice != nil {
		book.OldPrice = *in.OldPrice
	}
	created, err := a.store.CreateBook(ctx, book)
	if err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return created, nil
}

// UpdateBook merges the supplied fields into an existing book.
func (a *App) UpdateBook(ctx context.Context, p domain.Principal, id string, in UpdateBookInput) (domain.Book, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Book{}, err
	}
	trimPtr(in.Title)
	trimPtr(in.Author)
	trimPtr(in.Category)
	trimPtr(in.CoverImage)
	if in.Description != nil {
		d := plainText(*in.Description)
		in.Description = &d
	}
	if err := a.check(in); err != nil {
		return domain.Book{}, err
	}

	patch := domain.BookPatch{
		Title:       in.Title,
		Author:      in.Author,
		Category:    in.Category,
		Description: in.Description,
		CoverImage:  in.CoverImage,
		Price:       in.Price,
		OldPrice:    in.OldPrice,
		Trending:    in.Trending,
	}
	if patch.Empty() {
		return a.GetBook(ctx, id)
	}
	book, ok, err := a.store.UpdateBook(ctx, strings.TrimSpace(id), patch, a.timestamp())
	if err != nil {
		return domain.Book{}, fmt.Errorf("update book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// DeleteBook removes a book and returns the removed record.
func (a *App) DeleteBook(ctx context.Context, p domain.Principal, id string) (domain.Book, error) {
	if err := requireAdmin(p); err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.DeleteBook(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Book{}, fmt.Errorf("delete book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}
