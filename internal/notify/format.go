package notify

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders an amount the Brazilian way: "R$ 1.234,56".
func FormatBRL(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	s := v.StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	return sign + "R$ " + groupThousands(intPart) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	var b strings.Builder
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatQuantity renders "0,5 kg" or "3 un".
func FormatQuantity(q decimal.Decimal, unit string) string {
	s := strings.Replace(q.String(), ".", ",", 1)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// FormatOrder is the chat message the store staff read to fulfil an order.
func FormatOrder(p OrderPlacedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 Novo pedido #%d\n", p.OrderID)
	fmt.Fprintf(&b, "Cliente: %s\n", p.CustomerName)
	if p.CustomerPhone != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", p.CustomerPhone)
	}
	if p.DeliveryAddress != "" {
		fmt.Fprintf(&b, "Endereço: %s\n", p.DeliveryAddress)
	}
	b.WriteString("\n")

	subtotal := decimal.Zero
	for _, it := range p.Items {
		fmt.Fprintf(&b, "• %s %s: %s\n", FormatQuantity(it.Quantity, it.Unit), it.Name, FormatBRL(it.LineTotal))
		subtotal = subtotal.Add(it.LineTotal)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", FormatBRL(subtotal))
	fmt.Fprintf(&b, "Entrega: %s\n", FormatBRL(p.DeliveryFee))
	fmt.Fprintf(&b, "Total: %s", FormatBRL(p.TotalAmount))
	return b.String()
}
