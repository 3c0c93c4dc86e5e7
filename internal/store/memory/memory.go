// Package memory provides an in-memory Repository used by tests and by the
// server when no database is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"metyme/backend/internal/domain"
	"metyme/backend/internal/store"
)

type Store struct {
	mu sync.RWMutex

	sessions         map[string]domain.Session
	addOnSales       map[string]domain.AddOnSale
	consignmentItems map[string]domain.ConsignmentItem
	consignmentSales map[string]domain.ConsignmentSale
	bookings         map[string]domain.PromoBooking
	expenses         map[string]domain.Expense
	users            map[string]domain.UserAccount
	audits           []domain.AuditLog
}

func New() *Store {
	return &Store{
		sessions:         make(map[string]domain.Session),
		addOnSales:       make(map[string]domain.AddOnSale),
		consignmentItems: make(map[string]domain.ConsignmentItem),
		consignmentSales: make(map[string]domain.ConsignmentSale),
		bookings:         make(map[string]domain.PromoBooking),
		expenses:         make(map[string]domain.Expense),
		users:            make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with a couple of consignment items so a
// fresh install has something to sell.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.ConsignmentItem{
		{
			ID:           "citem-croffle",
			SupplierName: "Dapur Rina",
			ItemName:     "Croffle Original",
			Price:        decimal.NewFromInt(15000),
			FeeRate:      decimal.NewFromFloat(0.2),
			Stock:        20,
			Active:       true,
			CreatedAt:    now,
		},
		{
			ID:           "citem-kopi-botol",
			SupplierName: "Kopi Tetangga",
			ItemName:     "Kopi Susu Botol 250ml",
			Price:        decimal.NewFromInt(18000),
			FeeRate:      decimal.NewFromFloat(0.15),
			Stock:        12,
			Active:       true,
			CreatedAt:    now,
		},
	}
	for _, it := range seed {
		s.consignmentItems[it.ID] = it
	}
	return s
}

func sameDay(t time.Time, day time.Time) bool {
	t = t.In(day.Location())
	return t.Year() == day.Year() && t.YearDay() == day.YearDay()
}

func (s *Store) CreateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return store.ErrConflict
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return store.ErrNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) ListSessions(_ context.Context, branchID string, day time.Time, status string) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Session, 0)
	for _, sess := range s.sessions {
		if branchID != "" && sess.BranchID != branchID {
			continue
		}
		if !day.IsZero() && !sameDay(sess.StartedAt, day) {
			continue
		}
		if status != "" && sess.Status != status {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *Store) CreateAddOnSale(_ context.Context, sale domain.AddOnSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addOnSales[sale.ID]; ok {
		return store.ErrConflict
	}
	s.addOnSales[sale.ID] = sale
	return nil
}

func (s *Store) GetAddOnSale(_ context.Context, id string) (domain.AddOnSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.addOnSales[id]
	if !ok {
		return domain.AddOnSale{}, store.ErrNotFound
	}
	return sale, nil
}

func (s *Store) UpdateAddOnSale(_ context.Context, sale domain.AddOnSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addOnSales[sale.ID]; !ok {
		return store.ErrNotFound
	}
	s.addOnSales[sale.ID] = sale
	return nil
}

func (s *Store) ListAddOnSales(_ context.Context, branchID string, day time.Time) ([]domain.AddOnSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AddOnSale, 0)
	for _, sale := range s.addOnSales {
		if branchID != "" && sale.BranchID != branchID {
			continue
		}
		if !day.IsZero() && !sameDay(sale.SoldAt, day) {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	return out, nil
}

func (s *Store) CreateConsignmentItem(_ context.Context, it domain.ConsignmentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consignmentItems[it.ID]; ok {
		return store.ErrConflict
	}
	s.consignmentItems[it.ID] = it
	return nil
}

func (s *Store) GetConsignmentItem(_ context.Context, id string) (domain.ConsignmentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.consignmentItems[id]
	if !ok {
		return domain.ConsignmentItem{}, store.ErrNotFound
	}
	return it, nil
}

func (s *Store) UpdateConsignmentItem(_ context.Context, it domain.ConsignmentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consignmentItems[it.ID]; !ok {
		return store.ErrNotFound
	}
	s.consignmentItems[it.ID] = it
	return nil
}

func (s *Store) ListConsignmentItems(_ context.Context, activeOnly bool) ([]domain.ConsignmentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConsignmentItem, 0, len(s.consignmentItems))
	for _, it := range s.consignmentItems {
		if activeOnly && !it.Active {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SupplierName != out[j].SupplierName {
			return out[i].SupplierName < out[j].SupplierName
		}
		return out[i].ItemName < out[j].ItemName
	})
	return out, nil
}

func (s *Store) AdjustConsignmentStock(_ context.Context, id string, delta int) (domain.ConsignmentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.consignmentItems[id]
	if !ok {
		return domain.ConsignmentItem{}, store.ErrNotFound
	}
	next := it.Stock + delta
	if next < 0 {
		return domain.ConsignmentItem{}, store.ErrInsufficientStock
	}
	it.Stock = next
	s.consignmentItems[id] = it
	return it, nil
}

func (s *Store) CreateConsignmentSale(_ context.Context, sale domain.ConsignmentSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consignmentSales[sale.ID]; ok {
		return store.ErrConflict
	}
	s.consignmentSales[sale.ID] = sale
	return nil
}

func (s *Store) GetConsignmentSale(_ context.Context, id string) (domain.ConsignmentSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.consignmentSales[id]
	if !ok {
		return domain.ConsignmentSale{}, store.ErrNotFound
	}
	return sale, nil
}

func (s *Store) UpdateConsignmentSale(_ context.Context, sale domain.ConsignmentSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consignmentSales[sale.ID]; !ok {
		return store.ErrNotFound
	}
	s.consignmentSales[sale.ID] = sale
	return nil
}

func (s *Store) ListConsignmentSales(_ context.Context, branchID string, from time.Time, to time.Time) ([]domain.ConsignmentSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConsignmentSale, 0)
	for _, sale := range s.consignmentSales {
		if branchID != "" && sale.BranchID != branchID {
			continue
		}
		if !from.IsZero() && sale.SoldAt.Before(from) {
			continue
		}
		if !to.IsZero() && !sale.SoldAt.Before(to) {
			continue
		}
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	return out, nil
}

func (s *Store) CreateBooking(_ context.Context, b domain.PromoBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return store.ErrConflict
	}
	for _, other := range s.bookings {
		if strings.EqualFold(other.Reference, b.Reference) {
			return store.ErrConflict
		}
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) GetBooking(_ context.Context, id string) (domain.PromoBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.PromoBooking{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetBookingByReference(_ context.Context, ref string) (domain.PromoBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if strings.EqualFold(b.Reference, ref) {
			return b, nil
		}
	}
	return domain.PromoBooking{}, store.ErrNotFound
}

func (s *Store) UpdateBooking(_ context.Context, b domain.PromoBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return store.ErrNotFound
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) ListBookings(_ context.Context) ([]domain.PromoBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PromoBooking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, e domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[e.ID]; ok {
		return store.ErrConflict
	}
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) ListExpenses(_ context.Context, day time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Expense, 0)
	for _, e := range s.expenses {
		if !day.IsZero() && !sameDay(e.SpentAt, day) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpentAt.After(out[j].SpentAt) })
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, u domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, ok := s.users[key]; ok {
		return store.ErrConflict
	}
	s.users[key] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(username)]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) AppendAudit(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

// Audits returns a copy of the recorded audit trail, oldest first.
func (s *Store) Audits() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

func (s *Store) Close() error { return nil }
