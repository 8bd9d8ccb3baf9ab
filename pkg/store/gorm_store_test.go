package store

import (
	"reflect"
	"testing"
	"time"

	"bookstore/pkg/domain"
)

func TestBookPatchColumnsOnlyUpdatesPatchedColumns(t *testing.T) {
	cover := "https://img.example/c.png"
	oldPrice := 12.0
	trending := true
	tests := []struct {
		name  string
		patch domain.BookPatch
		want  map[string]any
	}{
		{name: "empty", patch: domain.BookPatch{}, want: map[string]any{}},
		{
			name:  "snake case columns",
			patch: domain.BookPatch{CoverImage: &cover, OldPrice: &oldPrice},
			want:  map[string]any{"cover_image": cover, "old_price": 12.0},
		},
		{name: "trending", patch: domain.BookPatch{Trending: &trending}, want: map[string]any{"trending": true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := bookPatchColumns(tc.patch); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("bookPatchColumns = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOrderModelMapping(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := domain.Order{
		ID:         "6c1c4f0e-3a57-4c39-8a5b-111111111111",
		Name:       "Ada",
		Email:      "ada@example.com",
		Address:    domain.Address{City: "London", State: "LDN"},
		ProductIDs: []string{"b1"},
		TotalPrice: 9.5,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	model := orderToModel(o)
	if model.Address.Data().City != "London" || len(model.ProductIDs) != 1 {
		t.Fatalf("unexpected model: %+v", model)
	}
	got := orderFromModel(model)
	if got.Address != o.Address || !reflect.DeepEqual(got.ProductIDs, o.ProductIDs) || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected order: %+v", got)
	}

	if orders := ordersFromModels(nil); orders == nil || len(orders) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", orders)
	}
}

func TestUserFromModelDefaultsRole(t *testing.T) {
	u := userFromModel(UserModel{ID: "u1", Username: "admin"})
	if u.Role != domain.RoleUser {
		t.Fatalf("role = %q, want %q", u.Role, domain.RoleUser)
	}
}
