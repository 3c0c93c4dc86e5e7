package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func item(customer string, seat string, at time.Time, total string) LineItem {
	return LineItem{
		CustomerName: customer,
		Seat:         seat,
		At:           at,
		Total:        dec(total),
	}
}

func TestGroupItemsWindowBoundary(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	items := []LineItem{
		item("Dana", "B-2", base, "10.00"),
		item("Dana", "B-2", base.Add(3*time.Second), "5.00"),
		item("Dana", "B-2", base.Add(9*time.Second), "2.50"),
		item("Dana", "B-2", base.Add(25*time.Second), "7.00"),
	}

	groups := GroupItems(items, 10*time.Second)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	// Most recent group first.
	if len(groups[0].Items) != 1 || !groups[0].Total.Equal(dec("7.00")) {
		t.Fatalf("expected newest group with single 7.00 item, got %d items total=%s",
			len(groups[0].Items), groups[0].Total)
	}
	if len(groups[1].Items) != 3 || !groups[1].Total.Equal(dec("17.50")) {
		t.Fatalf("expected older group with 3 items totalling 17.50, got %d items total=%s",
			len(groups[1].Items), groups[1].Total)
	}
	if !groups[1].At.Equal(base) {
		t.Fatalf("expected representative timestamp of first item")
	}
}

func TestGroupItemsSplitsOnIdentityChange(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	items := []LineItem{
		item("Dana", "B-2", base, "10.00"),
		item("Rafael", "B-2", base.Add(time.Second), "4.00"),
		item("Dana", "B-2", base.Add(2*time.Second), "6.00"),
	}

	groups := GroupItems(items, 10*time.Second)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups on alternating identities, got %d", len(groups))
	}
}

func TestGroupItemsSortsAscendingInternally(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	// Supplied in descending display order; grouping must still cluster them.
	items := []LineItem{
		item("Dana", "B-2", base.Add(6*time.Second), "1.00"),
		item("Dana", "B-2", base.Add(3*time.Second), "1.00"),
		item("Dana", "B-2", base, "1.00"),
	}

	groups := GroupItems(items, 10*time.Second)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !groups[0].Total.Equal(dec("3.00")) {
		t.Fatalf("expected total 3.00, got %s", groups[0].Total)
	}
}

func TestGroupItemsEmptyInput(t *testing.T) {
	groups := GroupItems(nil, DefaultGroupWindow)
	if len(groups) != 0 {
		t.Fatalf("expected empty output, got %d groups", len(groups))
	}
}

func TestGroupItemsPaymentAggregation(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	paidAt := base.Add(time.Minute)
	items := []LineItem{
		{CustomerName: "Dana", Seat: "B-2", At: base, Total: dec("10.00"), CashPaid: dec("10.00")},
		{CustomerName: "Dana", Seat: "B-2", At: base.Add(2 * time.Second), Total: dec("5.00"),
			EwalletPaid: dec("5.00"), Paid: true, PaidAt: &paidAt},
	}

	groups := GroupItems(items, DefaultGroupWindow)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if !g.CashPaid.Equal(dec("10.00")) || !g.EwalletPaid.Equal(dec("5.00")) {
		t.Fatalf("unexpected payment sums: cash=%s ewallet=%s", g.CashPaid, g.EwalletPaid)
	}
	if !g.Paid {
		t.Fatalf("expected group paid when any member is paid")
	}
	if g.PaidAt == nil || !g.PaidAt.Equal(paidAt) {
		t.Fatalf("expected first non-nil paid timestamp to propagate")
	}
}

func TestGroupItemsTotalPreservation(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	items := []LineItem{
		item("a", "1", base, "1.11"),
		item("a", "1", base.Add(4*time.Second), "2.22"),
		item("b", "2", base.Add(5*time.Second), "3.33"),
		item("b", "2", base.Add(40*time.Second), "4.44"),
		item("c", "3", base.Add(41*time.Second), "5.55"),
	}

	want := decimal.Zero
	for _, it := range items {
		want = want.Add(it.Total)
	}

	got := decimal.Zero
	for _, g := range GroupItems(items, 10*time.Second) {
		got = got.Add(g.Total)
	}
	if !got.Equal(want) {
		t.Fatalf("group totals %s do not preserve item totals %s", got, want)
	}
}

func TestGroupItemsIdempotentOnRegroupedOutput(t *testing.T) {
	base := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	items := []LineItem{
		item("a", "1", base, "1.00"),
		item("a", "1", base.Add(3*time.Second), "2.00"),
		item("b", "2", base.Add(4*time.Second), "3.00"),
		item("a", "1", base.Add(30*time.Second), "4.00"),
	}

	first := GroupItems(items, 10*time.Second)

	flattened := make([]LineItem, 0, len(items))
	for _, g := range first {
		flattened = append(flattened, g.Items...)
	}
	second := GroupItems(flattened, 10*time.Second)

	if len(first) != len(second) {
		t.Fatalf("regrouping changed group count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key || !first[i].Total.Equal(second[i].Total) ||
			len(first[i].Items) != len(second[i].Items) {
			t.Fatalf("group %d differs after regrouping", i)
		}
	}
}
