// Package service holds the business rules of the lounge backend: seat
// sessions, add-on and consignment sales, promo bookings, expenses and the
// daily report. Handlers stay thin; everything that must be true about money
// and state transitions lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"metyme/backend/internal/billing"
	"metyme/backend/internal/domain"
	"metyme/backend/internal/store"
	"metyme/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo            store.Repository
	defaultBranchID string
	groupWindow     time.Duration
	now             func() time.Time
}

func New(repo store.Repository, defaultBranchID string, groupWindow time.Duration) *Service {
	if defaultBranchID == "" {
		defaultBranchID = "main-lounge"
	}
	if groupWindow <= 0 {
		groupWindow = billing.DefaultGroupWindow
	}

	return &Service{
		repo:            repo,
		defaultBranchID: defaultBranchID,
		groupWindow:     groupWindow,
		now:             time.Now,
	}
}

const dayLayout = "2006-01-02"

func parseDay(raw string) (time.Time, error) {
	day, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
	}
	return day, nil
}

var two = decimal.NewFromInt(2)

// timeCharge bills in half-hour blocks, rounded up, with a half-hour minimum.
func timeCharge(rate decimal.Decimal, started time.Time, ended time.Time) decimal.Decimal {
	minutes := int64(ended.Sub(started).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	halfHours := (minutes + 29) / 30
	if halfHours < 1 {
		halfHours = 1
	}
	charge := rate.Mul(decimal.NewFromInt(halfHours)).Div(two)
	return billing.Normalize(charge)
}

func (s *Service) OpenSession(ctx context.Context, req domain.SessionOpenRequest) (domain.Session, error) {
	if req.BranchID == "" {
		req.BranchID = s.defaultBranchID
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Seat = strings.TrimSpace(req.Seat)

	if req.CustomerName == "" || req.Seat == "" {
		return domain.Session{}, store.ErrInvalidInput
	}
	if req.Category != domain.SessionCategoryWalkIn && req.Category != domain.SessionCategoryReservation {
		return domain.Session{}, store.ErrInvalidInput
	}
	if !req.RatePerHour.IsPositive() {
		return domain.Session{}, store.ErrInvalidInput
	}
	if req.Category == domain.SessionCategoryWalkIn && req.DownPayment.IsPositive() {
		return domain.Session{}, fmt.Errorf("%w: down payment only applies to reservations", store.ErrInvalidInput)
	}

	sess := domain.Session{
		ID:           xid.New("sess"),
		BranchID:     req.BranchID,
		CustomerName: req.CustomerName,
		Seat:         req.Seat,
		Category:     req.Category,
		RatePerHour:  billing.Normalize(req.RatePerHour),
		DownPayment:  billing.Normalize(req.DownPayment),
		Discount:     billing.Discount{Kind: billing.DiscountNone, Value: decimal.Zero},
		TimeCharge:   decimal.Zero,
		Total:        decimal.Zero,
		CashPaid:     decimal.Zero,
		EwalletPaid:  decimal.Zero,
		Status:       domain.SessionStatusOpen,
		Notes:        strings.TrimSpace(req.Notes),
		StartedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	s.logAudit(ctx, sess.BranchID, "session_open", "session", sess.ID,
		fmt.Sprintf("customer=%s,seat=%s,category=%s", sess.CustomerName, sess.Seat, sess.Category))
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return s.repo.GetSession(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, branchID string, date string, status string) ([]domain.Session, error) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}
	var day time.Time
	if date != "" {
		parsed, err := parseDay(date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	return s.repo.ListSessions(ctx, branchID, day, status)
}

func (s *Service) CloseSession(ctx context.Context, id string) (domain.Session, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status != domain.SessionStatusOpen {
		return domain.Session{}, fmt.Errorf("%w: session is %s", store.ErrConflict, sess.Status)
	}

	ended := s.now().UTC()
	sess.EndedAt = &ended
	sess.TimeCharge = timeCharge(sess.RatePerHour, sess.StartedAt, ended)
	sess.Total = sess.TimeCharge
	sess.Status = domain.SessionStatusClosed

	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	s.logAudit(ctx, sess.BranchID, "session_close", "session", sess.ID,
		fmt.Sprintf("time_charge=%s", sess.TimeCharge))
	return sess, nil
}

func (s *Service) PaySession(ctx context.Context, id string, req domain.SessionPayRequest) (domain.SessionPayResponse, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return domain.SessionPayResponse{}, err
	}
	if sess.Status != domain.SessionStatusClosed {
		return domain.SessionPayResponse{}, fmt.Errorf("%w: session must be closed before payment", store.ErrConflict)
	}

	// Installment calls may omit the discount descriptor; the stored
	// discount only changes when the request carries one.
	if req.Discount.Kind != "" {
		sess.Discount = req.Discount
	}
	discounted := billing.ApplyDiscount(sess.TimeCharge, sess.Discount)
	sess.Total = discounted.Total

	// The down payment was collected up front, so only the remainder is due.
	due := billing.SignedNormalize(sess.Total.Sub(sess.DownPayment))

	cash := billing.Normalize(sess.CashPaid.Add(req.Cash))
	ewallet := billing.Normalize(sess.EwalletPaid.Add(req.Ewallet))
	result := billing.Reconcile(due, cash, ewallet)

	sess.CashPaid = cash
	sess.EwalletPaid = ewallet
	sess.Paid = result.Paid
	if result.Paid && sess.PaidAt == nil {
		paidAt := s.now().UTC()
		sess.PaidAt = &paidAt
	}

	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return domain.SessionPayResponse{}, err
	}

	change := decimal.Zero
	if result.Balance.IsNegative() {
		change = result.Balance.Neg()
	}

	s.logAudit(ctx, sess.BranchID, "session_pay", "session", sess.ID,
		fmt.Sprintf("total=%s,paid=%t,balance=%s", sess.Total, result.Paid, result.Balance))

	return domain.SessionPayResponse{
		Session:   sess,
		TotalPaid: result.TotalPaid,
		Balance:   result.Balance,
		Change:    change,
	}, nil
}

func (s *Service) VoidSession(ctx context.Context, id string, reason string) (domain.Session, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Session{}, fmt.Errorf("%w: void reason is required", store.ErrInvalidInput)
	}

	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Status == domain.SessionStatusVoided {
		return domain.Session{}, fmt.Errorf("%w: session already voided", store.ErrConflict)
	}

	sess.Status = domain.SessionStatusVoided
	sess.VoidReason = reason
	if sess.EndedAt == nil {
		ended := s.now().UTC()
		sess.EndedAt = &ended
	}

	if err := s.repo.UpdateSession(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	s.logAudit(ctx, sess.BranchID, "session_void", "session", sess.ID, reason)
	return sess, nil
}

func (s *Service) CreateAddOnSale(ctx context.Context, req domain.AddOnSaleCreateRequest) (domain.AddOnSaleResponse, error) {
	if req.BranchID == "" {
		req.BranchID = s.defaultBranchID
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Seat = strings.TrimSpace(req.Seat)
	req.ItemName = strings.TrimSpace(req.ItemName)

	if req.CustomerName == "" || req.Seat == "" || req.ItemName == "" {
		return domain.AddOnSaleResponse{}, store.ErrInvalidInput
	}
	if req.Qty < 1 || !req.UnitPrice.IsPositive() {
		return domain.AddOnSaleResponse{}, store.ErrInvalidInput
	}

	unit := billing.Normalize(req.UnitPrice)
	gross := billing.Normalize(unit.Mul(decimal.NewFromInt(int64(req.Qty))))
	discounted := billing.ApplyDiscount(gross, req.Discount)
	result := billing.Reconcile(discounted.Total, req.Cash, req.Ewallet)

	now := s.now().UTC()
	sale := domain.AddOnSale{
		ID:           xid.New("addon"),
		BranchID:     req.BranchID,
		CustomerName: req.CustomerName,
		Seat:         req.Seat,
		ItemName:     req.ItemName,
		Qty:          req.Qty,
		UnitPrice:    unit,
		Total:        discounted.Total,
		CashPaid:     billing.Normalize(req.Cash),
		EwalletPaid:  billing.Normalize(req.Ewallet),
		Paid:         result.Paid,
		Status:       domain.SaleStatusRecorded,
		SoldAt:       now,
	}
	if result.Paid {
		sale.PaidAt = &now
	}

	if err := s.repo.CreateAddOnSale(ctx, sale); err != nil {
		return domain.AddOnSaleResponse{}, err
	}

	s.logAudit(ctx, sale.BranchID, "addon_create", "addon_sale", sale.ID,
		fmt.Sprintf("item=%s,qty=%d,total=%s,paid=%t", sale.ItemName, sale.Qty, sale.Total, sale.Paid))
	return domain.AddOnSaleResponse{Sale: sale}, nil
}

func (s *Service) PayAddOnSale(ctx context.Context, id string, req domain.SalePayRequest) (domain.AddOnSaleResponse, error) {
	sale, err := s.repo.GetAddOnSale(ctx, id)
	if err != nil {
		return domain.AddOnSaleResponse{}, err
	}
	if sale.Status != domain.SaleStatusRecorded {
		return domain.AddOnSaleResponse{}, fmt.Errorf("%w: sale is %s", store.ErrConflict, sale.Status)
	}

	cash := billing.Normalize(sale.CashPaid.Add(req.Cash))
	ewallet := billing.Normalize(sale.EwalletPaid.Add(req.Ewallet))
	result := billing.Reconcile(sale.Total, cash, ewallet)

	sale.CashPaid = cash
	sale.EwalletPaid = ewallet
	sale.Paid = result.Paid
	if result.Paid && sale.PaidAt == nil {
		paidAt := s.now().UTC()
		sale.PaidAt = &paidAt
	}

	if err := s.repo.UpdateAddOnSale(ctx, sale); err != nil {
		return domain.AddOnSaleResponse{}, err
	}

	s.logAudit(ctx, sale.BranchID, "addon_pay", "addon_sale", sale.ID,
		fmt.Sprintf("paid=%t,balance=%s", result.Paid, result.Balance))
	return domain.AddOnSaleResponse{Sale: sale}, nil
}

func (s *Service) VoidAddOnSale(ctx context.Context, id string, reason string) (domain.AddOnSaleResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.AddOnSaleResponse{}, fmt.Errorf("%w: void reason is required", store.ErrInvalidInput)
	}

	sale, err := s.repo.GetAddOnSale(ctx, id)
	if err != nil {
		return domain.AddOnSaleResponse{}, err
	}
	if sale.Status == domain.SaleStatusVoided {
		return domain.AddOnSaleResponse{}, fmt.Errorf("%w: sale already voided", store.ErrConflict)
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason

	if err := s.repo.UpdateAddOnSale(ctx, sale); err != nil {
		return domain.AddOnSaleResponse{}, err
	}

	s.logAudit(ctx, sale.BranchID, "addon_void", "addon_sale", sale.ID, reason)
	return domain.AddOnSaleResponse{Sale: sale}, nil
}

func (s *Service) ListAddOnSales(ctx context.Context, branchID string, date string) ([]domain.AddOnSale, error) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}
	var day time.Time
	if date != "" {
		parsed, err := parseDay(date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	return s.repo.ListAddOnSales(ctx, branchID, day)
}

var one = decimal.NewFromInt(1)

func (s *Service) CreateConsignmentItem(ctx context.Context, req domain.ConsignmentItemCreateRequest) (domain.ConsignmentItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ConsignmentItem{}, fmt.Errorf("admin role required")
	}

	req.SupplierName = strings.TrimSpace(req.SupplierName)
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.SupplierName == "" || req.ItemName == "" {
		return domain.ConsignmentItem{}, store.ErrInvalidInput
	}
	if !req.Price.IsPositive() || req.InitialStock < 0 {
		return domain.ConsignmentItem{}, store.ErrInvalidInput
	}
	if req.FeeRate.IsNegative() || req.FeeRate.GreaterThan(one) {
		return domain.ConsignmentItem{}, fmt.Errorf("%w: fee rate must be within [0,1]", store.ErrInvalidInput)
	}

	item := domain.ConsignmentItem{
		ID:           xid.New("citem"),
		SupplierName: req.SupplierName,
		ItemName:     req.ItemName,
		Price:        billing.Normalize(req.Price),
		FeeRate:      req.FeeRate,
		Stock:        req.InitialStock,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateConsignmentItem(ctx, item); err != nil {
		return domain.ConsignmentItem{}, err
	}

	s.logAudit(ctx, s.defaultBranchID, "consignment_item_create", "consignment_item", item.ID,
		fmt.Sprintf("supplier=%s,item=%s,stock=%d", item.SupplierName, item.ItemName, item.Stock))
	return item, nil
}

func (s *Service) UpdateConsignmentItem(ctx context.Context, id string, req domain.ConsignmentItemUpdateRequest) (domain.ConsignmentItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ConsignmentItem{}, fmt.Errorf("admin role required")
	}

	item, err := s.repo.GetConsignmentItem(ctx, id)
	if err != nil {
		return domain.ConsignmentItem{}, err
	}

	if req.ItemName != nil {
		name := strings.TrimSpace(*req.ItemName)
		if name == "" {
			return domain.ConsignmentItem{}, store.ErrInvalidInput
		}
		item.ItemName = name
	}
	if req.Price != nil {
		if !req.Price.IsPositive() {
			return domain.ConsignmentItem{}, store.ErrInvalidInput
		}
		item.Price = billing.Normalize(*req.Price)
	}
	if req.FeeRate != nil {
		if req.FeeRate.IsNegative() || req.FeeRate.GreaterThan(one) {
			return domain.ConsignmentItem{}, store.ErrInvalidInput
		}
		item.FeeRate = *req.FeeRate
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.ConsignmentItem{}, store.ErrInvalidInput
		}
		item.Stock = *req.Stock
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.UpdateConsignmentItem(ctx, item); err != nil {
		return domain.ConsignmentItem{}, err
	}

	s.logAudit(ctx, s.defaultBranchID, "consignment_item_update", "consignment_item", item.ID,
		fmt.Sprintf("active=%t,price=%s,stock=%d", item.Active, item.Price, item.Stock))
	return item, nil
}

func (s *Service) ListConsignmentItems(ctx context.Context, activeOnly bool) ([]domain.ConsignmentItem, error) {
	return s.repo.ListConsignmentItems(ctx, activeOnly)
}

func (s *Service) CreateConsignmentSale(ctx context.Context, req domain.ConsignmentSaleCreateRequest) (domain.ConsignmentSaleResponse, error) {
	if req.BranchID == "" {
		req.BranchID = s.defaultBranchID
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Seat = strings.TrimSpace(req.Seat)

	if req.ItemID == "" || req.CustomerName == "" || req.Seat == "" || req.Qty < 1 {
		return domain.ConsignmentSaleResponse{}, store.ErrInvalidInput
	}

	item, err := s.repo.GetConsignmentItem(ctx, req.ItemID)
	if err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}
	if !item.Active {
		return domain.ConsignmentSaleResponse{}, fmt.Errorf("%w: item is inactive", store.ErrInvalidInput)
	}

	if _, err := s.repo.AdjustConsignmentStock(ctx, item.ID, -req.Qty); err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}

	qty := decimal.NewFromInt(int64(req.Qty))
	total := billing.Normalize(item.Price.Mul(qty))
	fee := billing.Normalize(total.Mul(item.FeeRate))
	result := billing.Reconcile(total, req.Cash, req.Ewallet)

	now := s.now().UTC()
	sale := domain.ConsignmentSale{
		ID:           xid.New("csale"),
		BranchID:     req.BranchID,
		ItemID:       item.ID,
		ItemName:     item.ItemName,
		SupplierName: item.SupplierName,
		CustomerName: req.CustomerName,
		Seat:         req.Seat,
		Qty:          req.Qty,
		UnitPrice:    item.Price,
		Total:        total,
		FeeAmount:    fee,
		CashPaid:     billing.Normalize(req.Cash),
		EwalletPaid:  billing.Normalize(req.Ewallet),
		Paid:         result.Paid,
		Status:       domain.SaleStatusRecorded,
		SoldAt:       now,
	}
	if result.Paid {
		sale.PaidAt = &now
	}

	if err := s.repo.CreateConsignmentSale(ctx, sale); err != nil {
		// Put the units back so a failed insert does not leak stock.
		if _, restoreErr := s.repo.AdjustConsignmentStock(ctx, item.ID, req.Qty); restoreErr != nil {
			log.Warn().Err(restoreErr).Str("item_id", item.ID).Msg("failed to restore stock after create failure")
		}
		return domain.ConsignmentSaleResponse{}, err
	}

	s.logAudit(ctx, sale.BranchID, "consignment_sale_create", "consignment_sale", sale.ID,
		fmt.Sprintf("item=%s,qty=%d,total=%s,fee=%s", sale.ItemName, sale.Qty, sale.Total, sale.FeeAmount))
	return domain.ConsignmentSaleResponse{Sale: sale}, nil
}

func (s *Service) PayConsignmentSale(ctx context.Context, id string, req domain.SalePayRequest) (domain.ConsignmentSaleResponse, error) {
	sale, err := s.repo.GetConsignmentSale(ctx, id)
	if err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}
	if sale.Status != domain.SaleStatusRecorded {
		return domain.ConsignmentSaleResponse{}, fmt.Errorf("%w: sale is %s", store.ErrConflict, sale.Status)
	}

	cash := billing.Normalize(sale.CashPaid.Add(req.Cash))
	ewallet := billing.Normalize(sale.EwalletPaid.Add(req.Ewallet))
	result := billing.Reconcile(sale.Total, cash, ewallet)

	sale.CashPaid = cash
	sale.EwalletPaid = ewallet
	sale.Paid = result.Paid
	if result.Paid && sale.PaidAt == nil {
		paidAt := s.now().UTC()
		sale.PaidAt = &paidAt
	}

	if err := s.repo.UpdateConsignmentSale(ctx, sale); err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}

	s.logAudit(ctx, sale.BranchID, "consignment_sale_pay", "consignment_sale", sale.ID,
		fmt.Sprintf("paid=%t,balance=%s", result.Paid, result.Balance))
	return domain.ConsignmentSaleResponse{Sale: sale}, nil
}

func (s *Service) VoidConsignmentSale(ctx context.Context, id string, reason string) (domain.ConsignmentSaleResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.ConsignmentSaleResponse{}, fmt.Errorf("%w: void reason is required", store.ErrInvalidInput)
	}

	sale, err := s.repo.GetConsignmentSale(ctx, id)
	if err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}
	if sale.Status == domain.SaleStatusVoided {
		return domain.ConsignmentSaleResponse{}, fmt.Errorf("%w: sale already voided", store.ErrConflict)
	}

	sale.Status = domain.SaleStatusVoided
	sale.VoidReason = reason

	if err := s.repo.UpdateConsignmentSale(ctx, sale); err != nil {
		return domain.ConsignmentSaleResponse{}, err
	}
	if _, err := s.repo.AdjustConsignmentStock(ctx, sale.ItemID, sale.Qty); err != nil {
		log.Warn().Err(err).Str("item_id", sale.ItemID).Msg("failed to restore stock on void")
	}

	s.logAudit(ctx, sale.BranchID, "consignment_sale_void", "consignment_sale", sale.ID, reason)
	return domain.ConsignmentSaleResponse{Sale: sale}, nil
}

func (s *Service) ListConsignmentSales(ctx context.Context, branchID string, date string) ([]domain.ConsignmentSale, error) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}
	var from, to time.Time
	if date != "" {
		day, err := parseDay(date)
		if err != nil {
			return nil, err
		}
		from = day
		to = day.AddDate(0, 0, 1)
	}
	return s.repo.ListConsignmentSales(ctx, branchID, from, to)
}

// SupplierPayouts aggregates recorded consignment sales by supplier over
// [from, to] inclusive of both days.
func (s *Service) SupplierPayouts(ctx context.Context, fromDate string, toDate string) (domain.SupplierPayoutResponse, error) {
	from, err := parseDay(fromDate)
	if err != nil {
		return domain.SupplierPayoutResponse{}, err
	}
	to, err := parseDay(toDate)
	if err != nil {
		return domain.SupplierPayoutResponse{}, err
	}
	if to.Before(from) {
		return domain.SupplierPayoutResponse{}, fmt.Errorf("%w: to precedes from", store.ErrInvalidInput)
	}

	sales, err := s.repo.ListConsignmentSales(ctx, "", from, to.AddDate(0, 0, 1))
	if err != nil {
		return domain.SupplierPayoutResponse{}, err
	}

	bySupplier := make(map[string]*domain.SupplierPayout)
	order := make([]string, 0)
	for _, sale := range sales {
		if sale.Status != domain.SaleStatusRecorded {
			continue
		}
		p, ok := bySupplier[sale.SupplierName]
		if !ok {
			p = &domain.SupplierPayout{SupplierName: sale.SupplierName}
			bySupplier[sale.SupplierName] = p
			order = append(order, sale.SupplierName)
		}
		p.UnitsSold += sale.Qty
		p.GrossSales = billing.Normalize(p.GrossSales.Add(sale.Total))
		p.VenueFee = billing.Normalize(p.VenueFee.Add(sale.FeeAmount))
		p.SupplierShare = billing.Normalize(p.GrossSales.Sub(p.VenueFee))
	}

	out := domain.SupplierPayoutResponse{
		From:    fromDate,
		To:      toDate,
		Payouts: make([]domain.SupplierPayout, 0, len(order)),
	}
	for _, name := range order {
		out.Payouts = append(out.Payouts, *bySupplier[name])
	}
	return out, nil
}

func newBookingReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "MTL-" + raw[:8]
}

func (s *Service) CreateBooking(ctx context.Context, req domain.BookingCreateRequest) (domain.BookingResponse, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.PackageName = strings.TrimSpace(req.PackageName)

	if req.CustomerName == "" || req.PackageName == "" || req.TotalAttempts < 1 {
		return domain.BookingResponse{}, store.ErrInvalidInput
	}
	if !req.Price.IsPositive() {
		return domain.BookingResponse{}, store.ErrInvalidInput
	}

	from, err := parseDay(req.ValidFrom)
	if err != nil {
		return domain.BookingResponse{}, err
	}
	until, err := parseDay(req.ValidUntil)
	if err != nil {
		return domain.BookingResponse{}, err
	}
	// The until day is inclusive.
	until = until.AddDate(0, 0, 1).Add(-time.Second)
	if until.Before(from) {
		return domain.BookingResponse{}, fmt.Errorf("%w: valid_until precedes valid_from", store.ErrInvalidInput)
	}

	discounted := billing.ApplyDiscount(req.Price, req.Discount)

	down := billing.Normalize(req.DownPayment)
	if down.GreaterThan(discounted.Total) {
		down = discounted.Total
	}

	now := s.now().UTC()
	booking := domain.PromoBooking{
		ID:            xid.New("book"),
		Reference:     newBookingReference(),
		CustomerName:  req.CustomerName,
		PackageName:   req.PackageName,
		TotalAttempts: req.TotalAttempts,
		ValidFrom:     from,
		ValidUntil:    until,
		Price:         billing.Normalize(req.Price),
		DownPayment:   down,
		Discount:      req.Discount,
		Total:         discounted.Total,
		CashPaid:      decimal.Zero,
		EwalletPaid:   decimal.Zero,
		CreatedAt:     now,
	}
	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		return domain.BookingResponse{}, err
	}

	s.logAudit(ctx, s.defaultBranchID, "booking_create", "booking", booking.ID,
		fmt.Sprintf("ref=%s,package=%s,attempts=%d", booking.Reference, booking.PackageName, booking.TotalAttempts))
	return domain.BookingResponse{Booking: booking, Status: booking.EffectiveStatus(now)}, nil
}

func (s *Service) GetBooking(ctx context.Context, idOrRef string) (domain.BookingResponse, error) {
	booking, err := s.repo.GetBooking(ctx, idOrRef)
	if errors.Is(err, store.ErrNotFound) {
		booking, err = s.repo.GetBookingByReference(ctx, idOrRef)
	}
	if err != nil {
		return domain.BookingResponse{}, err
	}
	return domain.BookingResponse{Booking: booking, Status: booking.EffectiveStatus(s.now().UTC())}, nil
}

func (s *Service) ListBookings(ctx context.Context) ([]domain.BookingResponse, error) {
	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	out := make([]domain.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, domain.BookingResponse{Booking: b, Status: b.EffectiveStatus(now)})
	}
	return out, nil
}

func (s *Service) RedeemBooking(ctx context.Context, idOrRef string, req domain.BookingRedeemRequest) (domain.BookingResponse, error) {
	resp, err := s.GetBooking(ctx, idOrRef)
	if err != nil {
		return domain.BookingResponse{}, err
	}
	booking := resp.Booking

	now := s.now().UTC()
	if now.Before(booking.ValidFrom) {
		return domain.BookingResponse{}, fmt.Errorf("%w: booking is not yet valid", store.ErrConflict)
	}
	switch booking.EffectiveStatus(now) {
	case domain.BookingStatusExpired:
		return domain.BookingResponse{}, fmt.Errorf("%w: booking expired", store.ErrConflict)
	case domain.BookingStatusExhausted:
		return domain.BookingResponse{}, fmt.Errorf("%w: no attempts remaining", store.ErrConflict)
	}

	booking.UsedAttempts++
	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return domain.BookingResponse{}, err
	}

	detail := fmt.Sprintf("ref=%s,used=%d/%d", booking.Reference, booking.UsedAttempts, booking.TotalAttempts)
	if seat := strings.TrimSpace(req.Seat); seat != "" {
		detail += ",seat=" + seat
	}
	s.logAudit(ctx, s.defaultBranchID, "booking_redeem", "booking", booking.ID, detail)
	return domain.BookingResponse{Booking: booking, Status: booking.EffectiveStatus(now)}, nil
}

func (s *Service) PayBooking(ctx context.Context, idOrRef string, req domain.BookingPayRequest) (domain.BookingResponse, error) {
	resp, err := s.GetBooking(ctx, idOrRef)
	if err != nil {
		return domain.BookingResponse{}, err
	}
	booking := resp.Booking

	due := billing.SignedNormalize(booking.Total.Sub(booking.DownPayment))

	cash := billing.Normalize(booking.CashPaid.Add(req.Cash))
	ewallet := billing.Normalize(booking.EwalletPaid.Add(req.Ewallet))
	result := billing.Reconcile(due, cash, ewallet)

	booking.CashPaid = cash
	booking.EwalletPaid = ewallet
	booking.Paid = result.Paid
	if result.Paid && booking.PaidAt == nil {
		paidAt := s.now().UTC()
		booking.PaidAt = &paidAt
	}

	if err := s.repo.UpdateBooking(ctx, booking); err != nil {
		return domain.BookingResponse{}, err
	}

	s.logAudit(ctx, s.defaultBranchID, "booking_pay", "booking", booking.ID,
		fmt.Sprintf("ref=%s,paid=%t,balance=%s", booking.Reference, result.Paid, result.Balance))
	return domain.BookingResponse{Booking: booking, Status: booking.EffectiveStatus(s.now().UTC())}, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	req.StaffName = strings.TrimSpace(req.StaffName)
	req.Category = strings.TrimSpace(req.Category)

	if req.StaffName == "" || req.Category == "" || !req.Amount.IsPositive() {
		return domain.Expense{}, store.ErrInvalidInput
	}

	spentAt := s.now().UTC()
	if req.SpentAt != "" {
		day, err := parseDay(req.SpentAt)
		if err != nil {
			return domain.Expense{}, err
		}
		spentAt = day
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		StaffName:   req.StaffName,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Amount:      billing.Normalize(req.Amount),
		RecordedBy:  actor.Username,
		SpentAt:     spentAt,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return domain.Expense{}, err
	}

	s.logAudit(ctx, s.defaultBranchID, "expense_create", "expense", expense.ID,
		fmt.Sprintf("category=%s,amount=%s", expense.Category, expense.Amount))
	return expense, nil
}

func (s *Service) ListExpenses(ctx context.Context, date string) ([]domain.Expense, error) {
	var day time.Time
	if date != "" {
		parsed, err := parseDay(date)
		if err != nil {
			return nil, err
		}
		day = parsed
	}
	return s.repo.ListExpenses(ctx, day)
}

// GroupedReceipts folds a day's sale lines from one stream into logical
// per-customer receipts.
func (s *Service) GroupedReceipts(ctx context.Context, branchID string, stream string, date string) (domain.GroupedReceiptResponse, error) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}
	if date == "" {
		date = s.now().UTC().Format(dayLayout)
	}

	type lineDetail struct {
		itemName  string
		qty       int
		unitPrice decimal.Decimal
	}

	items := make([]billing.LineItem, 0)
	details := make(map[string]lineDetail)

	switch stream {
	case domain.StreamAddOns:
		sales, err := s.ListAddOnSales(ctx, branchID, date)
		if err != nil {
			return domain.GroupedReceiptResponse{}, err
		}
		for _, sale := range sales {
			if sale.Status == domain.SaleStatusVoided {
				continue
			}
			items = append(items, billing.LineItem{
				Ref:          sale.ID,
				CustomerName: sale.CustomerName,
				Seat:         sale.Seat,
				At:           sale.SoldAt,
				Total:        sale.Total,
				CashPaid:     sale.CashPaid,
				EwalletPaid:  sale.EwalletPaid,
				Paid:         sale.Paid,
				PaidAt:       sale.PaidAt,
			})
			details[sale.ID] = lineDetail{sale.ItemName, sale.Qty, sale.UnitPrice}
		}
	case domain.StreamConsignment:
		sales, err := s.ListConsignmentSales(ctx, branchID, date)
		if err != nil {
			return domain.GroupedReceiptResponse{}, err
		}
		for _, sale := range sales {
			if sale.Status == domain.SaleStatusVoided {
				continue
			}
			items = append(items, billing.LineItem{
				Ref:          sale.ID,
				CustomerName: sale.CustomerName,
				Seat:         sale.Seat,
				At:           sale.SoldAt,
				Total:        sale.Total,
				CashPaid:     sale.CashPaid,
				EwalletPaid:  sale.EwalletPaid,
				Paid:         sale.Paid,
				PaidAt:       sale.PaidAt,
			})
			details[sale.ID] = lineDetail{sale.ItemName, sale.Qty, sale.UnitPrice}
		}
	default:
		return domain.GroupedReceiptResponse{}, fmt.Errorf("%w: unknown stream %q", store.ErrInvalidInput, stream)
	}

	groups := billing.GroupItems(items, s.groupWindow)

	receipts := make([]domain.GroupedReceipt, 0, len(groups))
	for _, g := range groups {
		first := g.Items[0]
		receipt := domain.GroupedReceipt{
			Key:          g.Key,
			CustomerName: first.CustomerName,
			Seat:         first.Seat,
			At:           g.At,
			Total:        g.Total,
			CashPaid:     g.CashPaid,
			EwalletPaid:  g.EwalletPaid,
			Paid:         g.Paid,
			PaidAt:       g.PaidAt,
		}
		for _, it := range g.Items {
			d := details[it.Ref]
			receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
				Ref:       it.Ref,
				ItemName:  d.itemName,
				Qty:       d.qty,
				UnitPrice: d.unitPrice,
				Total:     it.Total,
				SoldAt:    it.At,
			})
		}
		receipts = append(receipts, receipt)
	}

	return domain.GroupedReceiptResponse{
		Stream:   stream,
		Date:     date,
		WindowMS: s.groupWindow.Milliseconds(),
		Receipts: receipts,
	}, nil
}

// DailyReport totals one day of business for a branch. Voided records are
// excluded everywhere; consignment revenue is split into the venue fee and
// the supplier share.
func (s *Service) DailyReport(ctx context.Context, branchID string, date string) (domain.DailySalesReport, error) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}
	if date == "" {
		date = s.now().UTC().Format(dayLayout)
	}
	if _, err := parseDay(date); err != nil {
		return domain.DailySalesReport{}, err
	}

	report := domain.DailySalesReport{BranchID: branchID, Date: date}

	sessions, err := s.ListSessions(ctx, branchID, date, "")
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	for _, sess := range sessions {
		if sess.Status != domain.SessionStatusClosed || !sess.Paid {
			continue
		}
		report.SessionCount++
		report.SessionRevenue = billing.Normalize(report.SessionRevenue.Add(sess.Total))
		report.CashCollected = billing.Normalize(report.CashCollected.Add(sess.CashPaid))
		report.EwalletCollected = billing.Normalize(report.EwalletCollected.Add(sess.EwalletPaid))
	}

	addons, err := s.ListAddOnSales(ctx, branchID, date)
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	for _, sale := range addons {
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		report.AddOnCount++
		report.AddOnRevenue = billing.Normalize(report.AddOnRevenue.Add(sale.Total))
		report.CashCollected = billing.Normalize(report.CashCollected.Add(sale.CashPaid))
		report.EwalletCollected = billing.Normalize(report.EwalletCollected.Add(sale.EwalletPaid))
	}

	consignments, err := s.ListConsignmentSales(ctx, branchID, date)
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	for _, sale := range consignments {
		if sale.Status == domain.SaleStatusVoided {
			continue
		}
		report.ConsignmentCount++
		report.ConsignmentGross = billing.Normalize(report.ConsignmentGross.Add(sale.Total))
		report.VenueFee = billing.Normalize(report.VenueFee.Add(sale.FeeAmount))
		report.CashCollected = billing.Normalize(report.CashCollected.Add(sale.CashPaid))
		report.EwalletCollected = billing.Normalize(report.EwalletCollected.Add(sale.EwalletPaid))
	}
	report.SupplierShare = billing.Normalize(report.ConsignmentGross.Sub(report.VenueFee))

	bookings, err := s.repo.ListBookings(ctx)
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	for _, b := range bookings {
		if b.PaidAt == nil || b.PaidAt.UTC().Format(dayLayout) != date {
			continue
		}
		report.BookingCount++
		report.BookingRevenue = billing.Normalize(report.BookingRevenue.Add(b.Total))
		report.CashCollected = billing.Normalize(report.CashCollected.Add(b.CashPaid))
		report.EwalletCollected = billing.Normalize(report.EwalletCollected.Add(b.EwalletPaid))
	}

	expenses, err := s.ListExpenses(ctx, date)
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	for _, e := range expenses {
		report.ExpenseTotal = billing.Normalize(report.ExpenseTotal.Add(e.Amount))
	}

	gross := report.SessionRevenue.
		Add(report.AddOnRevenue).
		Add(report.VenueFee).
		Add(report.BookingRevenue)
	report.GrossRevenue = billing.Normalize(gross)
	report.NetRevenue = billing.SignedNormalize(report.GrossRevenue.Sub(report.ExpenseTotal))

	return report, nil
}

func (s *Service) logAudit(ctx context.Context, branchID string, action string, entityType string, entityID string, detail string) {
	if branchID == "" {
		branchID = s.defaultBranchID
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.AppendAudit(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		BranchID:      branchID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Warn().Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}
