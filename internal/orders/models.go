package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is append-only: written once together with its items and never updated.
type Order struct {
	ID              int64           `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	DeliveryAddress string          `json:"delivery_address"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	WeeklyListID    int64           `json:"weekly_list_id"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []Item          `json:"items"`
}

// Item carries a price snapshot taken when the order was submitted.
type Item struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Subtotal is the sum of line totals, without the delivery fee.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}

// Reconciles reports whether every line total is quantity × unit price in cents and the
// order total is the fee plus those line totals.
func (o Order) Reconciles() bool {
	for _, it := range o.Items {
		if !it.Quantity.Mul(it.UnitPrice).Round(2).Equal(it.LineTotal) {
			return false
		}
	}
	return o.DeliveryFee.Add(o.Subtotal()).Equal(o.TotalAmount)
}

// CartLine is one product as the customer's cart claims it. Price and Total are what the
// client computed.
type CartLine struct {
	ProductID int64
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Total     decimal.Decimal
}

type Submission struct {
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	DeliveryFee     decimal.Decimal
	Lines           []CartLine
}
