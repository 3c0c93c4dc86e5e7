package billing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestReconcileOverpaymentReportsChange(t *testing.T) {
	result := Reconcile(dec("80"), dec("50"), dec("50"))
	if !result.TotalPaid.Equal(dec("100.00")) {
		t.Fatalf("expected total paid 100.00, got %s", result.TotalPaid)
	}
	if !result.Balance.Equal(dec("-20.00")) {
		t.Fatalf("expected balance -20.00 (change), got %s", result.Balance)
	}
	if !result.Paid {
		t.Fatalf("expected paid")
	}
}

func TestReconcilePartialPaymentLeavesBalance(t *testing.T) {
	result := Reconcile(dec("120"), dec("40"), dec("30.50"))
	if !result.TotalPaid.Equal(dec("70.50")) {
		t.Fatalf("expected total paid 70.50, got %s", result.TotalPaid)
	}
	if !result.Balance.Equal(dec("49.50")) {
		t.Fatalf("expected balance 49.50, got %s", result.Balance)
	}
	if result.Paid {
		t.Fatalf("expected unpaid")
	}
}

func TestReconcileZeroDueAlwaysPaid(t *testing.T) {
	for _, pair := range [][2]string{{"0", "0"}, {"10", "0"}, {"0", "999"}} {
		result := Reconcile(decimal.Zero, dec(pair[0]), dec(pair[1]))
		if !result.Paid {
			t.Fatalf("cash=%s ewallet=%s: expected paid for zero due", pair[0], pair[1])
		}
	}
	if !Reconcile(dec("-5"), decimal.Zero, decimal.Zero).Paid {
		t.Fatalf("expected paid for negative due")
	}
}

func TestReconcileNegativeContributionsClamped(t *testing.T) {
	result := Reconcile(dec("50"), dec("-10"), dec("-10"))
	if !result.TotalPaid.IsZero() {
		t.Fatalf("expected total paid 0, got %s", result.TotalPaid)
	}
	if !result.Balance.Equal(dec("50.00")) {
		t.Fatalf("expected balance 50.00, got %s", result.Balance)
	}
	if result.Paid {
		t.Fatalf("expected unpaid")
	}
}

func TestReconcileMonotonicInContributions(t *testing.T) {
	due := dec("100")
	steps := []string{"0", "25", "50", "75", "100", "140"}
	last := decimal.NewFromInt(-1)
	for _, s := range steps {
		result := Reconcile(due, dec(s), decimal.Zero)
		if result.TotalPaid.LessThan(last) {
			t.Fatalf("total paid decreased: %s after %s", result.TotalPaid, last)
		}
		if result.TotalPaid.GreaterThanOrEqual(due) && !result.Paid {
			t.Fatalf("cash=%s: expected paid once total paid >= due", s)
		}
		last = result.TotalPaid
	}
}
