package bookapi

import (
	"context"
	"net/http"
	"strings"

	"bookstore/pkg/domain"
)

// NewBook is the payload for AddBook.
type NewBook struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	CoverImage  string  `json:"coverImage,omitempty"`
	Price       float64 `json:"price"`
	OldPrice    float64 `json:"oldPrice,omitempty"`
	Trending    bool    `json:"trending"`
}

// BookChanges is the payload for UpdateBook. Nil fields are not sent.
type BookChanges struct {
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Description *string  `json:"description,omitempty"`
	CoverImage  *string  `json:"coverImage,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	OldPrice    *float64 `json:"oldPrice,omitempty"`
	Trending    *bool    `json:"trending,omitempty"`
}

var booksTag = Tag{Type: TagBooks}

// FetchAllBooks subscribes to the full book list, tagged Books.
func (c *Client) FetchAllBooks() *Query[[]domain.Book] {
	return newQuery(c.cache, "fetchAllBooks", []Tag{booksTag}, func(ctx context.Context) ([]domain.Book, error) {
		var books []domain.Book
		if err := c.call(ctx, http.MethodGet, "/api/books", nil, &books); err != nil {
			return nil, err
		}
		return books, nil
	})
}

// FetchBookByID subscribes to one book, tagged Books and Books:id.
func (c *Client) FetchBookByID(id string) *Query[domain.Book] {
	tags := []Tag{booksTag, {Type: TagBooks, ID: id}}
	return newQuery(c.cache, "fetchBookById:"+id, tags, func(ctx context.Context) (domain.Book, error) {
		var book domain.Book
		if err := c.call(ctx, http.MethodGet, "/api/books/"+escape(id), nil, &book); err != nil {
			return domain.Book{}, err
		}
		return book, nil
	})
}

// AddBook creates a book and invalidates Books.
func (c *Client) AddBook(ctx context.Context, in NewBook) (domain.Book, error) {
	var book domain.Book
	if err := c.call(ctx, http.MethodPost, "/api/books/create-book", in, &book); err != nil {
		return domain.Book{}, err
	}
	c.cache.Invalidate(booksTag)
	return book, nil
}

// UpdateBook edits a book and invalidates Books.
func (c *Client) UpdateBook(ctx context.Context, id string, in BookChanges) (domain.Book, error) {
	var book domain.Book
	if err := c.call(ctx, http.MethodPut, "/api/books/edit/"+escape(id), in, &book); err != nil {
		return domain.Book{}, err
	}
	c.cache.Invalidate(booksTag)
	return book, nil
}

// DeleteBook removes a book and invalidates Books.
func (c *Client) DeleteBook(ctx context.Context, id string) (domain.Book, error) {
	var res struct {
		Message string      `json:"message"`
		Book    domain.Book `json:"book"`
	}
	if err := c.call(ctx, http.MethodDelete, "/api/books/"+escape(id), nil, &res); err != nil {
		return domain.Book{}, err
	}
	c.cache.Invalidate(booksTag)
	return res.Book, nil
}

// FilterByCategory keeps books whose category matches ignoring case and
// padding. An empty category or "all" keeps everything.
func FilterByCategory(books []domain.Book, category string) []domain.Book {
	want := strings.ToLower(strings.TrimSpace(category))
	if want == "" || want == "all" {
		return books
	}
	out := make([]domain.Book, 0, len(books))
	for _, b := range books {
		if strings.ToLower(strings.TrimSpace(b.Category)) == want {
			out = append(out, b)
		}
	}
	return out
}
