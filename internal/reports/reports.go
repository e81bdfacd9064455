// Package reports aggregates a weekly list's orders for the admin dashboard.
package reports

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

type ProductSale struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type OrderTotals struct {
	Count int64           `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Report is what GET /admin/lists/{id}/report returns.
type Report struct {
	ListID       int64         `json:"list_id"`
	ProductSales []ProductSale `json:"product_sales"`
	OrderTotals  OrderTotals   `json:"order_totals"`
}

// Line is a quantity and revenue for one product, either a single item or a pre-summed row.
type Line struct {
	ProductID int64
	Name      string
	Unit      string
	Quantity  decimal.Decimal
	LineTotal decimal.Decimal
}

// SummarizeSales sums lines per product, ordered by quantity descending, then name, then id.
func SummarizeSales(lines []Line) []ProductSale {
	idx := map[int64]int{}
	out := []ProductSale{}
	for _, l := range lines {
		i, ok := idx[l.ProductID]
		if !ok {
			i = len(out)
			idx[l.ProductID] = i
			out = append(out, ProductSale{ProductID: l.ProductID, Name: l.Name, Unit: l.Unit})
		}
		out[i].Quantity = out[i].Quantity.Add(l.Quantity)
		out[i].Revenue = out[i].Revenue.Add(l.LineTotal)
	}
	sortSales(out)
	return out
}

func sortSales(s []ProductSale) {
	sort.SliceStable(s, func(i, j int) bool {
		if c := s[i].Quantity.Cmp(s[j].Quantity); c != 0 {
			return c > 0
		}
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].ProductID < s[j].ProductID
	})
}

// Repo runs the aggregations in Postgres. Both queries are read-only.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ProductSales(ctx context.Context, listID int64) ([]ProductSale, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.unit, SUM(oi.quantity), SUM(oi.line_total)
		FROM order_items oi
		JOIN orders o   ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.weekly_list_id = $1
		GROUP BY p.id, p.name, p.unit`, listID)
	if err != nil {
		return nil, apperr.Storage("product sales", err)
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Unit, &l.Quantity, &l.LineTotal); err != nil {
			return nil, apperr.Storage("scan product sale", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("product sales", err)
	}
	return SummarizeSales(lines), nil
}

// OrderTotals is zero, not absent, for a list without orders.
func (r *Repo) OrderTotals(ctx context.Context, listID int64) (OrderTotals, error) {
	var t OrderTotals
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders WHERE weekly_list_id = $1`, listID).Scan(&t.Count, &t.Total)
	if err != nil {
		return OrderTotals{}, apperr.Storage("order totals", err)
	}
	return t, nil
}

func (r *Repo) Report(ctx context.Context, listID int64) (Report, error) {
	sales, err := r.ProductSales(ctx, listID)
	if err != nil {
		return Report{}, err
	}
	totals, err := r.OrderTotals(ctx, listID)
	if err != nil {
		return Report{}, err
	}
	return Report{ListID: listID, ProductSales: sales, OrderTotals: totals}, nil
}
