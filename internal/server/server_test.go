package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookstore/internal/app"
	"bookstore/internal/util"
	"bookstore/pkg/domain"
	"bookstore/pkg/store"
)

const (
	testSecret        = "server-test-secret"
	testAdminPassword = "Adm1n!Password"
	testUserPassword  = "Us3r!Password"
)

type testEnv struct {
	srv   *httptest.Server
	app   *app.App
	store *store.MemoryStore
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	mem := store.NewMemoryStore()
	a, err := app.New(context.Background(), app.Config{JWTSecret: testSecret, Store: mem})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx := context.Background()
	if _, err := a.ProvisionUser(ctx, "admin", testAdminPassword, domain.RoleAdmin); err != nil {
		t.Fatalf("provision admin: %v", err)
	}
	if _, err := a.ProvisionUser(ctx, "reader", testUserPassword, domain.RoleUser); err != nil {
		t.Fatalf("provision reader: %v", err)
	}
	cfg := Config{App: a, CORS: util.NewCORSPolicy([]string{"http://localhost:5173"})}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, app: a, store: mem}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/admin", "", map[string]string{"username": username, "password": password})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", username, resp.StatusCode)
	}
	var out loginResponse
	decodeBody(t, resp, &out)
	if out.Token == "" {
		t.Fatalf("login %s: empty token", username)
	}
	return out.Token
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func TestNewRequiresApp(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without app")
	}
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/health", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var health map[string]any
	decodeBody(t, resp, &health)
	if health["ok"] != true || health["service"] != "bookstore-api" {
		t.Fatalf("unexpected health payload: %v", health)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	root := env.do(t, http.MethodGet, "/", "", nil)
	expectStatus(t, root, http.StatusOK)
	body, _ := io.ReadAll(root.Body)
	if string(body) != "Book store server is running!" {
		t.Fatalf("unexpected root body %q", body)
	}
}

func TestBookCRUDFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "admin", testAdminPassword)

	resp := env.do(t, http.MethodPost, "/api/books/create-book", token, map[string]any{
		"title":    "Dune",
		"author":   "Frank Herbert",
		"category": "Fiction",
		"price":    9.99,
	})
	expectStatus(t, resp, http.StatusCreated)
	var created domain.Book
	decodeBody(t, resp, &created)
	if created.ID == "" || created.Category != "Fiction" || created.Price != 9.99 {
		t.Fatalf("unexpected created book: %+v", created)
	}

	list := env.do(t, http.MethodGet, "/api/books?category=fiction", "", nil)
	expectStatus(t, list, http.StatusOK)
	var books []domain.Book
	decodeBody(t, list, &books)
	if len(books) != 1 || books[0].ID != created.ID {
		t.Fatalf("expected created book in list, got %+v", books)
	}

	edit := env.do(t, http.MethodPut, "/api/books/edit/"+created.ID, token, map[string]any{"trending": true, "price": 7.5})
	expectStatus(t, edit, http.StatusOK)
	var updated domain.Book
	decodeBody(t, edit, &updated)
	if !updated.Trending || updated.Price != 7.5 || updated.Title != "Dune" {
		t.Fatalf("unexpected updated book: %+v", updated)
	}

	get := env.do(t, http.MethodGet, "/api/books/"+created.ID, "", nil)
	expectStatus(t, get, http.StatusOK)

	del := env.do(t, http.MethodDelete, "/api/books/"+created.ID, token, nil)
	expectStatus(t, del, http.StatusOK)
	var deleted deleteBookResponse
	decodeBody(t, del, &deleted)
	if deleted.Message != "Book deleted successfully" || deleted.Book.ID != created.ID {
		t.Fatalf("unexpected delete payload: %+v", deleted)
	}

	gone := env.do(t, http.MethodGet, "/api/books/"+created.ID, "", nil)
	expectStatus(t, gone, http.StatusNotFound)
	var errBody errorResponse
	decodeBody(t, gone, &errBody)
	if errBody.Code != "BOOK_NOT_FOUND" || errBody.RequestID == "" {
		t.Fatalf("unexpected error body: %+v", errBody)
	}
}

func TestListBooksEmptyIsArray(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/books", "", nil)
	expectStatus(t, resp, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}

func TestListBooksRejectsBadTrendingFlag(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/books?trending=maybe", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)
}

func TestCreateBookValidationAndMalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "admin", testAdminPassword)

	resp := env.do(t, http.MethodPost, "/api/books/create-book", token, map[string]any{"title": "No price"})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	var errBody errorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Code != "VALIDATION_FAILED" || errBody.Errors["price"] == "" || errBody.Errors["author"] == "" {
		t.Fatalf("unexpected validation body: %+v", errBody)
	}

	bad := env.do(t, http.MethodPost, "/api/books/create-book", token, `{"title":`)
	expectStatus(t, bad, http.StatusBadRequest)

	trailing := env.do(t, http.MethodPost, "/api/books/create-book", token, `{"title":"a"} {"title":"b"}`)
	expectStatus(t, trailing, http.StatusBadRequest)

	empty := env.do(t, http.MethodPost, "/api/books/create-book", token, "")
	expectStatus(t, empty, http.StatusBadRequest)
}

func TestBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.MaxBodyBytes = 64 })
	token := env.login(t, "admin", testAdminPassword)
	big := `{"title":"` + strings.Repeat("x", 256) + `"}`
	resp := env.do(t, http.MethodPost, "/api/books/create-book", token, big)
	expectStatus(t, resp, http.StatusRequestEntityTooLarge)
}

func TestUnknownBookIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "admin", testAdminPassword)

	expectStatus(t, env.do(t, http.MethodGet, "/api/books/missing", "", nil), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodPut, "/api/books/edit/missing", token, map[string]any{"title": "x"}), http.StatusNotFound)
	expectStatus(t, env.do(t, http.MethodDelete, "/api/books/missing", token, nil), http.StatusNotFound)
}

func TestOrdersCreateAndLookupByExactEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	order := map[string]any{
		"name":       "Ada",
		"email":      "ada@example.com",
		"address":    map[string]string{"city": "London", "country": "UK"},
		"phone":      "0123",
		"productIds": []string{"b-1", "b-2"},
		"totalPrice": 21.5,
	}
	resp := env.do(t, http.MethodPost, "/api/orders", "", order)
	expectStatus(t, resp, http.StatusCreated)
	var created domain.Order
	decodeBody(t, resp, &created)
	if created.ID == "" || len(created.ProductIDs) != 2 || created.Address.City != "London" {
		t.Fatalf("unexpected order: %+v", created)
	}

	order["email"] = "ADA@example.com"
	expectStatus(t, env.do(t, http.MethodPost, "/api/orders", "", order), http.StatusCreated)

	list := env.do(t, http.MethodGet, "/api/orders/email/ada@example.com", "", nil)
	expectStatus(t, list, http.StatusOK)
	var orders []domain.Order
	decodeBody(t, list, &orders)
	if len(orders) != 1 || orders[0].ID != created.ID {
		t.Fatalf("expected exactly one case-sensitive match, got %+v", orders)
	}

	none := env.do(t, http.MethodGet, "/api/orders/email/nobody@example.com", "", nil)
	expectStatus(t, none, http.StatusOK)
	body, _ := io.ReadAll(none.Body)
	if strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty array, got %s", body)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/api/orders", "", map[string]any{
		"name":       "Ada",
		"email":      "not-an-email",
		"productIds": []string{},
		"totalPrice": 3,
	})
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	var errBody errorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Errors["email"] == "" || errBody.Errors["productIds"] == "" {
		t.Fatalf("expected email and productIds failures, got %+v", errBody.Errors)
	}
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t, nil)
	token := env.login(t, "admin", testAdminPassword)
	ctx := context.Background()
	for _, b := range []domain.Book{{Title: "A", Trending: true}, {Title: "B"}} {
		if _, err := env.store.CreateBook(ctx, b); err != nil {
			t.Fatalf("seed book: %v", err)
		}
	}
	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	for _, total := range []float64{10.10, 20.20} {
		if _, err := env.store.CreateOrder(ctx, domain.Order{Email: "a@x.io", TotalPrice: total, CreatedAt: jan}); err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}

	for _, path := range []string{"/api/admin", "/api/admin/"} {
		resp := env.do(t, http.MethodGet, path, token, nil)
		expectStatus(t, resp, http.StatusOK)
		var stats domain.AdminStats
		decodeBody(t, resp, &stats)
		if stats.TotalBooks != 2 || stats.TrendingBooks != 1 || stats.TotalOrders != 2 || stats.TotalSales != 30.3 {
			t.Fatalf("%s: unexpected stats %+v", path, stats)
		}
		if len(stats.MonthlySales) != 1 || stats.MonthlySales[0].Month != "2026-01" {
			t.Fatalf("%s: unexpected monthly sales %+v", path, stats.MonthlySales)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/nope", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
	var errBody errorResponse
	decodeBody(t, resp, &errBody)
	if errBody.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND code, got %+v", errBody)
	}

	patch := env.do(t, http.MethodPatch, "/api/books/abc", "", nil)
	expectStatus(t, patch, http.StatusMethodNotAllowed)
	allow := patch.Header.Get("Allow")
	if !strings.Contains(allow, http.MethodGet) || !strings.Contains(allow, http.MethodDelete) {
		t.Fatalf("unexpected Allow header %q", allow)
	}
}

func TestWriteAppErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{name: "canceled", err: fmt.Errorf("list books: %w", context.Canceled), want: statusClientClosedRequest, code: "CLIENT_CLOSED_REQUEST"},
		{name: "not found", err: app.ErrBookNotFound, want: http.StatusNotFound, code: "BOOK_NOT_FOUND"},
		{name: "validation", err: &app.ValidationError{Fields: map[string]string{"title": "is required"}}, want: http.StatusUnprocessableEntity, code: "VALIDATION_FAILED"},
		{name: "infrastructure", err: errors.New("db down"), want: http.StatusInternalServerError, code: "INTERNAL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeAppError(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil), tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var body errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("code = %q, want %q", body.Code, tc.code)
			}
		})
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	env := newTestEnv(t, nil)

	req, _ := http.NewRequest(http.MethodGet, env.srv.URL+"/api/books", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusForbidden)

	req, _ = http.NewRequest(http.MethodGet, env.srv.URL+"/api/books", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	ok, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer ok.Body.Close()
	expectStatus(t, ok, http.StatusOK)
	if ok.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("missing allow-origin header")
	}
}
