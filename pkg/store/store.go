package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookstore/pkg/domain"
)

// BookFilter narrows book listings. Zero value matches every book.
type BookFilter struct {
	Category string
	Trending *bool
}

// normalizedCategory returns the comparable form of the category filter.
// "all" is treated as no filter.
func (f BookFilter) normalizedCategory() string {
	c := NormalizeCategory(f.Category)
	if c == "all" {
		return ""
	}
	return c
}

func (f BookFilter) matches(b domain.Book) bool {
	if c := f.normalizedCategory(); c != "" && NormalizeCategory(b.Category) != c {
		return false
	}
	if f.Trending != nil && b.Trending != *f.Trending {
		return false
	}
	return true
}

// NormalizeCategory trims and lowercases a category for comparison.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// Store defines persistence operations for books, orders, and users.
// Lookups return ok=false when the record does not exist; malformed ids are
// reported the same way.
type Store interface {
	// books
	CreateBook(ctx context.Context, b domain.Book) (domain.Book, error)
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]domain.Book, error)
	UpdateBook(ctx context.Context, id string, patch domain.BookPatch, updatedAt time.Time) (domain.Book, bool, error)
	DeleteBook(ctx context.Context, id string) (domain.Book, bool, error)
	CountBooks(ctx context.Context, filter BookFilter) (int64, error)

	// orders
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	// users
	GetUserByUsername(ctx context.Context, username string) (domain.User, bool, error)
	SaveUser(ctx context.Context, u domain.User) (domain.User, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionStore issues and verifies session tokens.
type SessionStore interface {
	NewSession(u domain.User) (string, time.Time, error)
	ParseSession(token string) (domain.Principal, error)
}

// Open selects a Store implementation from the database URL scheme.
func Open(ctx context.Context, databaseURL, databaseName string) (Store, error) {
	url := strings.TrimSpace(databaseURL)
	switch {
	case url == "":
		return nil, fmt.Errorf("database url is required")
	case strings.HasPrefix(url, "mongodb://"), strings.HasPrefix(url, "mongodb+srv://"):
		return NewMongoStore(ctx, url, databaseName)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewGormStore(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme")
	}
}
