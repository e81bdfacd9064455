package notify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"22.4":       "R$ 22,40",
		"0":          "R$ 0,00",
		"5":          "R$ 5,00",
		"1234.5":     "R$ 1.234,50",
		"1234567.89": "R$ 1.234.567,89",
		"999.999":    "R$ 1.000,00",
		"-3.1":       "-R$ 3,10",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBRL(d(in)), in)
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "0,5 kg", FormatQuantity(d("0.500"), "kg"))
	assert.Equal(t, "3 un", FormatQuantity(d("3"), "un"))
	assert.Equal(t, "1,25", FormatQuantity(d("1.25"), ""))
}

func TestFormatOrder(t *testing.T) {
	msg := FormatOrder(OrderPlacedPayload{
		OrderID:       12,
		CustomerName:  "Bruno",
		CustomerPhone: "(11) 98765-4321",
		DeliveryFee:   d("10"),
		TotalAmount:   d("31.20"),
		CreatedAt:     time.Now(),
		Items: []PlacedItem{
			{Name: "Tomate", Unit: "kg", Quantity: d("1"), UnitPrice: d("6.20"), LineTotal: d("6.20")},
			{Name: "Alface", Unit: "un", Quantity: d("3"), UnitPrice: d("5"), LineTotal: d("15")},
		},
	})

	assert.Contains(t, msg, "Novo pedido #12")
	assert.Contains(t, msg, "Cliente: Bruno")
	assert.Contains(t, msg, "Telefone: (11) 98765-4321")
	assert.NotContains(t, msg, "Endereço")
	assert.Contains(t, msg, "• 1 kg Tomate: R$ 6,20")
	assert.Contains(t, msg, "• 3 un Alface: R$ 15,00")
	assert.Contains(t, msg, "Subtotal: R$ 21,20")
	assert.Contains(t, msg, "Entrega: R$ 10,00")
	assert.Contains(t, msg, "Total: R$ 31,20")
}
