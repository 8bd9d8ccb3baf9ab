package app

import (
	"context"
	"fmt"
	"strings"

	"bookstore/pkg/domain"
)

type AddressInput struct {
	City    string `json:"city" validate:"max=100"`
	Country string `json:"country" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Zipcode string `json:"zipcode" validate:"max=20"`
}

// CreateOrderInput is the checkout request schema. Product ids and the total
// are taken as submitted.
type CreateOrderInput struct {
	Name       string       `json:"name" validate:"required,max=200"`
	Email      string       `json:"email" validate:"required,email,max=254"`
	Address    AddressInput `json:"address"`
	Phone      string       `json:"phone" validate:"max=40"`
	ProductIDs []string     `json:"productIds" validate:"required,min=1,dive,required"`
	TotalPrice *float64     `json:"totalPrice" validate:"required,gte=0"`
}

// CreateOrder validates and persists an order.
func (a *App) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	for i := range in.ProductIDs {
		in.ProductIDs[i] = strings.TrimSpace(in.ProductIDs[i])
	}
	if err := a.check(in); err != nil {
		return domain.Order{}, err
	}

	now := a.timestamp()
	order := domain.Order{
		Name:  in.Name,
		Email: in.Email,
		Address: domain.Address{
			City:    strings.TrimSpace(in.Address.City),
			Country: strings.TrimSpace(in.Address.Country),
			State:   strings.TrimSpace(in.Address.State),
			Zipcode: strings.TrimSpace(in.Address.Zipcode),
		},
		Phone:      in.Phone,
		ProductIDs: in.ProductIDs,
		TotalPrice: *in.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := a.store.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

// OrdersByEmail returns the orders placed with exactly this email, newest first.
// The comparison is case-sensitive.
func (a *App) OrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	orders, err := a.store.ListOrdersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}
