// Package orders records customer orders against the open weekly list.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
	"github.com/ariefcatur/go-weekly-orders/internal/metrics"
)

var tolerance = decimal.RequireFromString("0.01")

// Largest values the order columns hold: NUMERIC(12,3) quantities, NUMERIC(12,2) prices and
// fees, NUMERIC(14,2) line and order totals.
var (
	maxQuantity = decimal.RequireFromString("999999999.999")
	maxPrice    = decimal.RequireFromString("9999999999.99")
	maxTotal    = decimal.RequireFromString("999999999999.99")
)

// Recorder validates a submission and writes the order with its items in one transaction.
//
// In lenient mode the client's unit price is stored as sent. In strict mode the live
// catalog price is stored and a claimed price, line total or fee that disagrees is rejected.
// Either way line totals and the order total are computed here, so stored orders reconcile.
type Recorder struct {
	Store   Store
	Catalog ProductLookup
	Fee     decimal.Decimal
	Strict  bool
	Log     logrus.FieldLogger
}

func (r *Recorder) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

func (r *Recorder) Submit(ctx context.Context, sub Submission) (Order, error) {
	o, err := r.submit(ctx, sub)
	metrics.OrderSubmitted(resultOf(err))
	return o, err
}

func (r *Recorder) submit(ctx context.Context, sub Submission) (Order, error) {
	if _, ok, err := r.Store.OpenListID(ctx); err != nil {
		return Order{}, err
	} else if !ok {
		return Order{}, apperr.ErrNoActiveList
	}

	o, err := r.prepare(ctx, sub)
	if err != nil {
		return Order{}, err
	}

	var saved Order
	err = r.Store.InTx(ctx, func(tx Tx) error {
		listID, ok, err := tx.LockOpenList(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrNoActiveList
		}
		o.WeeklyListID = listID

		if saved, err = tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		saved.Items = make([]Item, 0, len(o.Items))
		for _, it := range o.Items {
			it.OrderID = saved.ID
			stored, err := tx.InsertItem(ctx, it)
			if err != nil {
				return err
			}
			saved.Items = append(saved.Items, stored)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	r.log().WithFields(logrus.Fields{
		"order_id": saved.ID,
		"list_id":  saved.WeeklyListID,
		"items":    len(saved.Items),
		"total":    saved.TotalAmount.StringFixed(2),
	}).Info("order recorded")
	return saved, nil
}

// prepare validates the submission and prices every line. Nothing is written.
func (r *Recorder) prepare(ctx context.Context, sub Submission) (Order, error) {
	o := Order{
		CustomerName:    strings.TrimSpace(sub.CustomerName),
		CustomerPhone:   NormalizePhone(sub.CustomerPhone),
		DeliveryAddress: strings.TrimSpace(sub.DeliveryAddress),
		DeliveryFee:     sub.DeliveryFee.Round(2),
	}
	switch {
	case o.CustomerName == "":
		return Order{}, apperr.InvalidOrder("customer_name", "is required")
	case len(sub.Lines) == 0:
		return Order{}, apperr.InvalidOrder("items", "cart is empty")
	case o.DeliveryFee.IsNegative():
		return Order{}, apperr.InvalidOrder("delivery_fee", "must not be negative")
	case o.DeliveryFee.GreaterThan(maxPrice):
		return Order{}, apperr.InvalidOrder("delivery_fee", "is too large")
	case r.Strict && !o.DeliveryFee.Equal(r.Fee.Round(2)):
		return Order{}, apperr.InvalidOrder("delivery_fee", "must be "+r.Fee.StringFixed(2))
	}

	seen := make(map[int64]bool, len(sub.Lines))
	for _, line := range sub.Lines {
		if seen[line.ProductID] {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, ""), "duplicate product")
		}
		seen[line.ProductID] = true
		qty := line.Quantity.Round(3)
		if !qty.IsPositive() {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, "quantity"), "must be greater than zero")
		}
		if qty.GreaterThan(maxQuantity) {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, "quantity"), "is too large")
		}
		if line.Price.IsNegative() {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, "price"), "must not be negative")
		}
		if line.Price.Round(2).GreaterThan(maxPrice) {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, "price"), "is too large")
		}
	}

	total := o.DeliveryFee
	for _, line := range sub.Lines {
		p, err := r.Catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, apperr.ErrNotFound) {
			return Order{}, apperr.UnknownProduct(line.ProductID)
		}
		if err != nil {
			return Order{}, err
		}

		qty := line.Quantity.Round(3)
		unit, err := r.unitPrice(line, qty, p.Price)
		if err != nil {
			return Order{}, err
		}
		lineTotal := qty.Mul(unit).Round(2)
		if lineTotal.GreaterThan(maxTotal) {
			return Order{}, apperr.InvalidOrder(lineField(line.ProductID, "total"), "is too large")
		}
		if !r.Strict && !line.Total.IsZero() && line.Total.Sub(lineTotal).Abs().GreaterThan(tolerance) {
			r.log().WithFields(logrus.Fields{
				"product_id": p.ID,
				"claimed":    line.Total.String(),
				"computed":   lineTotal.String(),
			}).Warn("cart line total disagrees with quantity x price; storing computed total")
		}

		o.Items = append(o.Items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Unit:        p.Unit,
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   lineTotal,
		})
		total = total.Add(lineTotal)
	}
	if total.GreaterThan(maxTotal) {
		return Order{}, apperr.InvalidOrder("items", "order total is too large")
	}
	o.TotalAmount = total
	return o, nil
}

func (r *Recorder) unitPrice(line CartLine, qty, live decimal.Decimal) (decimal.Decimal, error) {
	claimed := line.Price.Round(2)
	if !r.Strict {
		if claimed.IsZero() {
			return live, nil
		}
		if !claimed.Equal(live) {
			r.log().WithFields(logrus.Fields{
				"product_id": line.ProductID,
				"claimed":    claimed.String(),
				"live":       live.String(),
			}).Warn("client price differs from catalog; storing client price")
		}
		return claimed, nil
	}

	if claimed.Sub(live).Abs().GreaterThan(tolerance) {
		return decimal.Zero, apperr.InvalidOrder(lineField(line.ProductID, "price"),
			fmt.Sprintf("price changed to %s", live.StringFixed(2)))
	}
	if !line.Total.IsZero() && line.Total.Sub(qty.Mul(live)).Abs().GreaterThan(tolerance) {
		return decimal.Zero, apperr.InvalidOrder(lineField(line.ProductID, "total"), "does not match quantity x price")
	}
	return live, nil
}

func (r *Recorder) Get(ctx context.Context, id int64) (Order, error) {
	return r.Store.Get(ctx, id)
}

// ForList returns a list's orders newest first.
func (r *Recorder) ForList(ctx context.Context, listID int64) ([]Order, error) {
	return r.Store.ListByList(ctx, listID)
}

func lineField(productID int64, attr string) string {
	f := fmt.Sprintf("items[%d]", productID)
	if attr != "" {
		f += "." + attr
	}
	return f
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNoActiveList):
		return "no_active_list"
	case errors.Is(err, apperr.ErrInvalidOrder), errors.Is(err, apperr.ErrUnknownProduct):
		return "rejected"
	default:
		return "error"
	}
}
