package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bookstore/pkg/domain"
	"bookstore/pkg/store"
)

// Stats computes dashboard totals from current store contents. Nothing is cached.
func (a *App) Stats(ctx context.Context, p domain.Principal) (domain.AdminStats, error) {
	if err := requireAdmin(p); err != nil {
		return domain.AdminStats{}, err
	}

	var (
		totalBooks    int64
		trendingBooks int64
		orders        []domain.Order
		trending      = true
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.store.CountBooks(gctx, store.BookFilter{})
		if err != nil {
			return fmt.Errorf("count books: %w", err)
		}
		totalBooks = n
		return nil
	})
	g.Go(func() error {
		n, err := a.store.CountBooks(gctx, store.BookFilter{Trending: &trending})
		if err != nil {
			return fmt.Errorf("count trending books: %w", err)
		}
		trendingBooks = n
		return nil
	})
	g.Go(func() error {
		list, err := a.store.ListOrders(gctx)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		orders = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.AdminStats{}, err
	}

	total, monthly := summarizeSales(orders)
	return domain.AdminStats{
		TotalBooks:    totalBooks,
		TrendingBooks: trendingBooks,
		TotalOrders:   int64(len(orders)),
		TotalSales:    total,
		MonthlySales:  monthly,
	}, nil
}

// summarizeSales sums order totals exactly and groups them by UTC month.
func summarizeSales(orders []domain.Order) (float64, []domain.MonthlySales) {
	total := decimal.Zero
	type bucket struct {
		sales  decimal.Decimal
		orders int64
	}
	months := make(map[string]*bucket)
	for _, o := range orders {
		amount := decimal.NewFromFloat(o.TotalPrice)
		total = total.Add(amount)
		key := o.CreatedAt.UTC().Format("2006-01")
		b, ok := months[key]
		if !ok {
			b = &bucket{sales: decimal.Zero}
			months[key] = b
		}
		b.sales = b.sales.Add(amount)
		b.orders++
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	monthly := make([]domain.MonthlySales, 0, len(keys))
	for _, k := range keys {
		monthly = append(monthly, domain.MonthlySales{
			Month:       k,
			TotalSales:  months[k].sales.Round(2).InexactFloat64(),
			TotalOrders: months[k].orders,
		})
	}
	return total.Round(2).InexactFloat64(), monthly
}
