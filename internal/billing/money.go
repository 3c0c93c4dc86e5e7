// Package billing holds the shared money arithmetic used by every screen
// operation: discount application, cash/e-wallet payment reconciliation and
// receipt grouping. Everything here is pure; malformed numeric input is
// clamped to the nearest valid value instead of rejected, so a bad form
// field degrades to zero rather than an error.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Normalize clamps a monetary amount to be non-negative and rounds it to
// two decimal places (half away from zero).
func Normalize(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

// SignedNormalize rounds to two decimal places without the non-negative
// clamp. Used for balance-or-change values where the sign carries meaning.
func SignedNormalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IdentityKey derives the grouping key for a customer at a seat. Matching is
// exact-string after normalization: lower case, inner whitespace collapsed.
func IdentityKey(customerName string, seat string) string {
	return normalizeToken(customerName) + "|" + normalizeToken(seat)
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
