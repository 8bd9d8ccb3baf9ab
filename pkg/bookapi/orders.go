package bookapi

import (
	"context"
	"net/http"

	"bookstore/pkg/domain"
)

// NewOrder is the checkout payload.
type NewOrder struct {
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Address    domain.Address `json:"address"`
	Phone      string         `json:"phone,omitempty"`
	ProductIDs []string       `json:"productIds"`
	TotalPrice float64        `json:"totalPrice"`
}

// FetchOrdersByEmail subscribes to the orders placed with email, tagged
// Orders and Orders:email.
func (c *Client) FetchOrdersByEmail(email string) *Query[[]domain.Order] {
	tags := []Tag{{Type: TagOrders}, {Type: TagOrders, ID: email}}
	return newQuery(c.cache, "fetchOrdersByEmail:"+email, tags, func(ctx context.Context) ([]domain.Order, error) {
		var orders []domain.Order
		if err := c.call(ctx, http.MethodGet, "/api/orders/email/"+escape(email), nil, &orders); err != nil {
			return nil, err
		}
		return orders, nil
	})
}

// CreateOrder places an order and invalidates the orders of its email.
func (c *Client) CreateOrder(ctx context.Context, in NewOrder) (domain.Order, error) {
	var order domain.Order
	if err := c.call(ctx, http.MethodPost, "/api/orders", in, &order); err != nil {
		return domain.Order{}, err
	}
	c.cache.Invalidate(Tag{Type: TagOrders, ID: in.Email})
	return order, nil
}
