package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CoverImage  string    `json:"coverImage"`
	Price       float64   `json:"price"`
	OldPrice    float64   `json:"oldPrice,omitempty"`
	Trending    bool      `json:"trending"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BookPatch carries a partial book update. Nil fields are left unchanged.
type BookPatch struct {
	Title       *string
	Author      *string
	Category    *string
	Description *string
	CoverImage  *string
	Price       *float64
	OldPrice    *float64
	Trending    *bool
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Title == nil && p.Author == nil && p.Category == nil &&
		p.Description == nil && p.CoverImage == nil && p.Price == nil &&
		p.OldPrice == nil && p.Trending == nil
}

// Apply merges the patch into b and returns the result.
func (p BookPatch) Apply(b Book) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.CoverImage != nil {
		b.CoverImage = *p.CoverImage
	}
	if p.Price != nil {
		b.Price = *p.Price
	}
	if p.OldPrice != nil {
		b.OldPrice = *p.OldPrice
	}
	if p.Trending != nil {
		b.Trending = *p.Trending
	}
	return b
}

type Address struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	Zipcode string `json:"zipcode,omitempty"`
}

type Order struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Address    Address   `json:"address"`
	Phone      string    `json:"phone,omitempty"`
	ProductIDs []string  `json:"productIds"`
	TotalPrice float64   `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal is the verified identity behind a session token.
type Principal struct {
	UserID    string
	Username  string
	Role      UserRole
	ExpiresAt time.Time
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type MonthlySales struct {
	Month       string  `json:"month"`
	TotalSales  float64 `json:"totalSales"`
	TotalOrders int64   `json:"totalOrders"`
}

type AdminStats struct {
	TotalBooks    int64          `json:"totalBooks"`
	TrendingBooks int64          `json:"trendingBooks"`
	TotalOrders   int64          `json:"totalOrders"`
	TotalSales    float64        `json:"totalSales"`
	MonthlySales  []MonthlySales `json:"monthlySales"`
}
