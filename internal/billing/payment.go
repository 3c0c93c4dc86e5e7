package billing

import "github.com/shopspring/decimal"

// PaymentResult is the outcome of reconciling cash and e-wallet
// contributions against an amount due. Balance is signed: positive means
// money still owed, negative means change is owed to the customer.
type PaymentResult struct {
	TotalPaid decimal.Decimal `json:"total_paid"`
	Balance   decimal.Decimal `json:"balance"`
	Paid      bool            `json:"paid"`
}

// Reconcile derives the paid state for a due amount from two payment
// contributions. Contributions are clamped to be non-negative but carry no
// upper bound: overpayment is allowed and reported as change.
func Reconcile(due decimal.Decimal, cash decimal.Decimal, ewallet decimal.Decimal) PaymentResult {
	due = SignedNormalize(due)
	cash = Normalize(cash)
	ewallet = Normalize(ewallet)

	totalPaid := Normalize(cash.Add(ewallet))
	balance := SignedNormalize(due.Sub(totalPaid))

	paid := !due.IsPositive() || totalPaid.GreaterThanOrEqual(due)

	return PaymentResult{
		TotalPaid: totalPaid,
		Balance:   balance,
		Paid:      paid,
	}
}
