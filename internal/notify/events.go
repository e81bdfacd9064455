package notify

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-weekly-orders/internal/kafka"
	"github.com/ariefcatur/go-weekly-orders/internal/orders"
)

const (
	EventOrderPlaced = "OrderPlaced"
	TopicOrderPlaced = "orders.placed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type PlacedItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderPlacedPayload struct {
	OrderID         int64           `json:"order_id"`
	WeeklyListID    int64           `json:"weekly_list_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []PlacedItem    `json:"items"`
}

// PartitionKey keeps every event of one order on one partition.
func PartitionKey(orderID int64) []byte { return []byte(strconv.FormatInt(orderID, 10)) }

func PayloadOf(o orders.Order) OrderPlacedPayload {
	p := OrderPlacedPayload{
		OrderID:         o.ID,
		WeeklyListID:    o.WeeklyListID,
		CustomerName:    o.CustomerName,
		CustomerPhone:   o.CustomerPhone,
		DeliveryAddress: o.DeliveryAddress,
		DeliveryFee:     o.DeliveryFee,
		TotalAmount:     o.TotalAmount,
		CreatedAt:       o.CreatedAt,
		Items:           make([]PlacedItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, PlacedItem{
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return p
}

// NewOrderPlaced wraps a recorded order in an envelope ready for TopicOrderPlaced.
func NewOrderPlaced(o orders.Order, producer, traceID string) ([]byte, error) {
	payload, err := kafka.Marshal(PayloadOf(o))
	if err != nil {
		return nil, err
	}
	return kafka.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(o.ID, 10),
		Payload:       payload,
	})
}
