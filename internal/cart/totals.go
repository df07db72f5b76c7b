package cart

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Pricing holds the shipping rules applied to an order.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricing ships free above 50000 and charges a flat 2500 otherwise.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		ShippingFee:           decimal.NewFromInt(2500),
	}
}

// Totals are derived from the cart on every read and never persisted.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Compute prices lines. Shipping is waived only when the subtotal exceeds
// the threshold, so an empty cart still owes the flat fee.
func (p Pricing) Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

// ParseQuantity reads a requested quantity from user input. Anything that is
// not a positive integer yields 1; positive values too large for an int
// saturate so they can be clamped to stock.
func ParseQuantity(raw string) int {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
		return math.MaxInt
	}
	if err != nil || n < 1 {
		return 1
	}
	return n
}
