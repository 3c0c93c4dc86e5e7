package billing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultGroupWindow is the maximum gap between consecutive same-identity
// line items that still belong to one receipt.
const DefaultGroupWindow = 10 * time.Second

// LineItem is one sold line (an add-on or a consignment sale) carrying the
// customer identity it was sold to and its payment state.
type LineItem struct {
	Ref          string
	CustomerName string
	Seat         string
	At           time.Time
	Total        decimal.Decimal
	CashPaid     decimal.Decimal
	EwalletPaid  decimal.Decimal
	Paid         bool
	PaidAt       *time.Time
}

// Key returns the normalized identity key of the line item.
func (li LineItem) Key() string {
	return IdentityKey(li.CustomerName, li.Seat)
}

// Group is one logical customer transaction: consecutive line items sharing
// an identity key within the time window, with aggregated totals.
type Group struct {
	Key         string
	At          time.Time
	Items       []LineItem
	Total       decimal.Decimal
	CashPaid    decimal.Decimal
	EwalletPaid decimal.Decimal
	Paid        bool
	PaidAt      *time.Time
}

// GroupItems partitions line items into receipt groups. Items are scanned in
// ascending timestamp order; a new group starts when the identity key
// changes or the gap to the previous item exceeds window. The returned
// groups are ordered by descending representative timestamp (most recent
// first). Totals are rounded after each accumulation step, so the sum over
// all groups equals the sum over all items.
func GroupItems(items []LineItem, window time.Duration) []Group {
	if window <= 0 {
		window = DefaultGroupWindow
	}
	if len(items) == 0 {
		return []Group{}
	}

	ordered := make([]LineItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})

	groups := make([]Group, 0, len(ordered))
	var prev *LineItem
	for i := range ordered {
		item := ordered[i]
		startNew := prev == nil ||
			item.Key() != prev.Key() ||
			absGap(item.At, prev.At) > window
		if startNew {
			groups = append(groups, Group{Key: item.Key(), At: item.At})
		}

		g := &groups[len(groups)-1]
		g.Items = append(g.Items, item)
		g.Total = Normalize(g.Total.Add(item.Total))
		g.CashPaid = Normalize(g.CashPaid.Add(item.CashPaid))
		g.EwalletPaid = Normalize(g.EwalletPaid.Add(item.EwalletPaid))
		if item.Paid {
			g.Paid = true
		}
		if g.PaidAt == nil && item.PaidAt != nil {
			g.PaidAt = item.PaidAt
		}

		prev = &ordered[i]
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].At.After(groups[j].At)
	})

	return groups
}

func absGap(a time.Time, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
