package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

type PgStore struct{ DB *pgxpool.Pool }

const orderCols = `o.id, o.customer_name, o.customer_phone, o.delivery_address, o.delivery_fee,
	o.total_amount, o.weekly_list_id, o.created_at`

const itemCols = `oi.id, oi.order_id, oi.product_id, p.name, p.unit, oi.quantity, oi.unit_price, oi.line_total`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerName, &o.CustomerPhone, &o.DeliveryAddress, &o.DeliveryFee,
		&o.TotalAmount, &o.WeeklyListID, &o.CreatedAt)
	return o, err
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Unit, &it.Quantity, &it.UnitPrice, &it.LineTotal)
	return it, err
}

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx})
	})
}

func (s *PgStore) OpenListID(ctx context.Context) (int64, bool, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `SELECT id FROM weekly_lists WHERE is_active AND NOT is_closed`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Storage("get open list", err)
	}
	return id, true, nil
}

func (s *PgStore) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders o WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order", id)
	}
	if err != nil {
		return Order{}, apperr.Storage("get order", err)
	}

	items, err := s.items(ctx, `WHERE oi.order_id=$1`, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []Item{}
	}
	return o, nil
}

func (s *PgStore) ListByList(ctx context.Context, listID int64) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders o
		WHERE o.weekly_list_id=$1
		ORDER BY o.created_at DESC, o.id DESC`, listID)
	if err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, apperr.Storage("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list orders", err)
	}

	items, err := s.items(ctx, `JOIN orders o ON o.id = oi.order_id WHERE o.weekly_list_id=$1`, listID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []Item{}
		}
	}
	return out, nil
}

// items loads order items grouped by order id. where is a fixed clause with one parameter.
func (s *PgStore) items(ctx context.Context, where string, arg int64) (map[int64][]Item, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+itemCols+`
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		`+where+`
		ORDER BY oi.order_id, oi.id`, arg)
	if err != nil {
		return nil, apperr.Storage("list order items", err)
	}
	defer rows.Close()

	out := map[int64][]Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Storage("scan order item", err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list order items", err)
	}
	return out, nil
}

type pgTx struct{ tx pgx.Tx }

// LockOpenList takes a share lock, so Close and Publish wait for in-flight orders.
func (t *pgTx) LockOpenList(ctx context.Context) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM weekly_lists WHERE is_active AND NOT is_closed FOR SHARE`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Storage("lock open list", err)
	}
	return id, true, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(customer_name, customer_phone, delivery_address, delivery_fee, total_amount, weekly_list_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		o.CustomerName, o.CustomerPhone, o.DeliveryAddress, o.DeliveryFee.String(), o.TotalAmount.String(), o.WeeklyListID,
	).Scan(&o.ID, &o.CreatedAt)
	if postgres.IsCheckViolation(err) || postgres.IsNumericOverflow(err) {
		return Order{}, apperr.InvalidOrder("", "order rejected by storage constraints")
	}
	if err != nil {
		return Order{}, apperr.Storage("insert order", err)
	}
	return o, nil
}

func (t *pgTx) InsertItem(ctx context.Context, it Item) (Item, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity.String(), it.UnitPrice.String(), it.LineTotal.String(),
	).Scan(&it.ID)
	switch {
	case postgres.IsForeignKeyViolation(err):
		return Item{}, apperr.UnknownProduct(it.ProductID)
	case postgres.IsCheckViolation(err):
		return Item{}, apperr.InvalidOrder(lineField(it.ProductID, "quantity"), "must be greater than zero")
	case postgres.IsNumericOverflow(err):
		return Item{}, apperr.InvalidOrder(lineField(it.ProductID, ""), "amount too large")
	case err != nil:
		return Item{}, apperr.Storage("insert order item", err)
	}
	return it, nil
}
