package billing

import "github.com/shopspring/decimal"

type DiscountKind string

const (
	DiscountNone    DiscountKind = "none"
	DiscountPercent DiscountKind = "percent"
	DiscountAmount  DiscountKind = "amount"
)

// Discount describes a discount to apply to a base amount. Percent values
// are clamped into [0,100]; amount values are clamped into [0,base] so a
// discount can never push a total below zero.
type Discount struct {
	Kind  DiscountKind    `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

type DiscountResult struct {
	Total  decimal.Decimal `json:"total"`
	Amount decimal.Decimal `json:"amount"`
}

// ApplyDiscount applies d to base and returns the discounted total together
// with the discount amount. Total + Amount always equals Normalize(base).
func ApplyDiscount(base decimal.Decimal, d Discount) DiscountResult {
	base = Normalize(base)

	var amount decimal.Decimal
	switch d.Kind {
	case DiscountPercent:
		p := d.Value
		if p.IsNegative() {
			p = decimal.Zero
		}
		if p.GreaterThan(hundred) {
			p = hundred
		}
		amount = Normalize(base.Mul(p).Div(hundred))
	case DiscountAmount:
		amount = Normalize(d.Value)
	default:
		amount = decimal.Zero
	}

	if amount.GreaterThan(base) {
		amount = base
	}

	return DiscountResult{
		Total:  Normalize(base.Sub(amount)),
		Amount: amount,
	}
}
