package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestApplyDiscountPercent(t *testing.T) {
	result := ApplyDiscount(dec("100"), Discount{Kind: DiscountPercent, Value: dec("10")})
	if !result.Total.Equal(dec("90.00")) {
		t.Fatalf("expected total 90.00, got %s", result.Total)
	}
	if !result.Amount.Equal(dec("10.00")) {
		t.Fatalf("expected amount 10.00, got %s", result.Amount)
	}
}

func TestApplyDiscountAmountClampedToBase(t *testing.T) {
	result := ApplyDiscount(dec("100"), Discount{Kind: DiscountAmount, Value: dec("150")})
	if !result.Total.Equal(decimal.Zero) {
		t.Fatalf("expected total 0, got %s", result.Total)
	}
	if !result.Amount.Equal(dec("100.00")) {
		t.Fatalf("expected amount clamped to 100.00, got %s", result.Amount)
	}
}

func TestApplyDiscountNone(t *testing.T) {
	result := ApplyDiscount(dec("42.505"), Discount{Kind: DiscountNone})
	if !result.Total.Equal(dec("42.51")) {
		t.Fatalf("expected normalized total 42.51, got %s", result.Total)
	}
	if !result.Amount.IsZero() {
		t.Fatalf("expected zero discount amount, got %s", result.Amount)
	}
}

func TestApplyDiscountPercentOutOfBoundsBehavesClamped(t *testing.T) {
	cases := []struct {
		raw     string
		clamped string
	}{
		{"-25", "0"},
		{"150", "100"},
	}
	for _, tc := range cases {
		raw := ApplyDiscount(dec("80"), Discount{Kind: DiscountPercent, Value: dec(tc.raw)})
		clamped := ApplyDiscount(dec("80"), Discount{Kind: DiscountPercent, Value: dec(tc.clamped)})
		if !raw.Total.Equal(clamped.Total) || !raw.Amount.Equal(clamped.Amount) {
			t.Fatalf("percent %s: expected same result as clamped %s, got total=%s amount=%s",
				tc.raw, tc.clamped, raw.Total, raw.Amount)
		}
	}
}

func TestApplyDiscountNegativeBaseTreatedAsZero(t *testing.T) {
	result := ApplyDiscount(dec("-50"), Discount{Kind: DiscountPercent, Value: dec("10")})
	if !result.Total.IsZero() || !result.Amount.IsZero() {
		t.Fatalf("expected zero total and amount, got total=%s amount=%s", result.Total, result.Amount)
	}
}

func TestApplyDiscountAdditivity(t *testing.T) {
	bases := []string{"0", "0.01", "19.99", "100", "12345.67"}
	discounts := []Discount{
		{Kind: DiscountNone},
		{Kind: DiscountPercent, Value: dec("7")},
		{Kind: DiscountPercent, Value: dec("33.33")},
		{Kind: DiscountPercent, Value: dec("100")},
		{Kind: DiscountAmount, Value: dec("5")},
		{Kind: DiscountAmount, Value: dec("99999")},
	}
	for _, b := range bases {
		base := dec(b)
		for _, d := range discounts {
			result := ApplyDiscount(base, d)
			if result.Total.IsNegative() {
				t.Fatalf("base=%s kind=%s: negative total %s", b, d.Kind, result.Total)
			}
			if result.Amount.GreaterThan(Normalize(base)) {
				t.Fatalf("base=%s kind=%s: amount %s exceeds base", b, d.Kind, result.Amount)
			}
			sum := result.Total.Add(result.Amount)
			if !sum.Equal(Normalize(base)) {
				t.Fatalf("base=%s kind=%s: total+amount=%s, want %s", b, d.Kind, sum, Normalize(base))
			}
		}
	}
}

func TestIdentityKeyNormalization(t *testing.T) {
	a := IdentityKey("  Maria   Santos ", "A-3")
	b := IdentityKey("maria santos", "a-3")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
	c := IdentityKey("maria santos", "a-4")
	if a == c {
		t.Fatalf("expected different keys for different seats")
	}
}
