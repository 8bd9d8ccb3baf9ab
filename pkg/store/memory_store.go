package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookstore/pkg/domain"
)

// MemoryStore keeps records in-process. It backs tests and local tooling.
type MemoryStore struct {
	mu        sync.RWMutex
	books     map[string]domain.Book
	bookOrder []string
	orders    []domain.Order
	users     map[string]domain.User // key: username
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books: make(map[string]domain.Book),
		users: make(map[string]domain.User),
	}
}

func (m *MemoryStore) CreateBook(_ context.Context, b domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	m.books[b.ID] = b
	return b, nil
}

func (m *MemoryStore) GetBook(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// ListBooks returns matching books, most recently inserted first.
func (m *MemoryStore) ListBooks(_ context.Context, filter BookFilter) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.bookOrder))
	for i := len(m.bookOrder) - 1; i >= 0; i-- {
		b, ok := m.books[m.bookOrder[i]]
		if ok && filter.matches(b) {
			res = append(res, b)
		}
	}
	return res, nil
}

func (m *MemoryStore) UpdateBook(_ context.Context, id string, patch domain.BookPatch, updatedAt time.Time) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	b = patch.Apply(b)
	b.UpdatedAt = updatedAt
	m.books[id] = b
	return b, true, nil
}

func (m *MemoryStore) DeleteBook(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	delete(m.books, id)
	for i, bid := range m.bookOrder {
		if bid == id {
			m.bookOrder = append(m.bookOrder[:i], m.bookOrder[i+1:]...)
			break
		}
	}
	return b, true, nil
}

func (m *MemoryStore) CountBooks(ctx context.Context, filter BookFilter) (int64, error) {
	books, err := m.ListBooks(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(books)), nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o domain.Order) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.ProductIDs = append([]string(nil), o.ProductIDs...)
	m.orders = append(m.orders, o)
	return o, nil
}

// ListOrdersByEmail matches the email exactly, newest first.
func (m *MemoryStore) ListOrdersByEmail(_ context.Context, email string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, 0)
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].Email == email {
			res = append(res, m.orders[i])
		}
	}
	return res, nil
}

func (m *MemoryStore) ListOrders(_ context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, len(m.orders))
	copy(res, m.orders)
	return res, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[strings.TrimSpace(username)]
	return u, ok, nil
}

// SaveUser inserts or replaces the user keyed by username.
func (m *MemoryStore) SaveUser(_ context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.Username]; ok && u.ID == "" {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.Username] = u
	return u, nil
}

func (m *MemoryStore) Ping(context.Context) error  { return nil }
func (m *MemoryStore) Close(context.Context) error { return nil }
