package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"metyme/backend/internal/billing"
)

const (
	SessionCategoryWalkIn      = "walk_in"
	SessionCategoryReservation = "reservation"
)

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
	SessionStatusVoided = "voided"
)

const (
	SaleStatusRecorded = "recorded"
	SaleStatusVoided   = "voided"
)

const (
	StreamAddOns      = "addons"
	StreamConsignment = "consignment"
)

type Session struct {
	ID           string           `json:"id"`
	BranchID     string           `json:"branch_id"`
	CustomerName string           `json:"customer_name"`
	Seat         string           `json:"seat"`
	Category     string           `json:"category"`
	RatePerHour  decimal.Decimal  `json:"rate_per_hour"`
	DownPayment  decimal.Decimal  `json:"down_payment"`
	Discount     billing.Discount `json:"discount"`
	TimeCharge   decimal.Decimal  `json:"time_charge"`
	Total        decimal.Decimal  `json:"total"`
	CashPaid     decimal.Decimal  `json:"cash_paid"`
	EwalletPaid  decimal.Decimal  `json:"ewallet_paid"`
	Paid         bool             `json:"paid"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`
	Status       string           `json:"status"`
	VoidReason   string           `json:"void_reason,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
}

type SessionOpenRequest struct {
	BranchID     string          `json:"branch_id"`
	CustomerName string          `json:"customer_name"`
	Seat         string          `json:"seat"`
	Category     string          `json:"category"`
	RatePerHour  decimal.Decimal `json:"rate_per_hour"`
	DownPayment  decimal.Decimal `json:"down_payment"`
	Notes        string          `json:"notes"`
}

type SessionPayRequest struct {
	Discount billing.Discount `json:"discount"`
	Cash     decimal.Decimal  `json:"cash"`
	Ewallet  decimal.Decimal  `json:"ewallet"`
}

type SessionVoidRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type SessionResponse struct {
	Session Session `json:"session"`
}

type SessionPayResponse struct {
	Session   Session         `json:"session"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Balance   decimal.Decimal `json:"balance"`
	Change    decimal.Decimal `json:"change"`
}

type SessionListResponse struct {
	Sessions []Session `json:"sessions"`
}

type AddOnSale struct {
	ID           string          `json:"id"`
	BranchID     string          `json:"branch_id"`
	CustomerName string          `json:"customer_name"`
	Seat         string          `json:"seat"`
	ItemName     string          `json:"item_name"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	EwalletPaid  decimal.Decimal `json:"ewallet_paid"`
	Paid         bool            `json:"paid"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	Status       string          `json:"status"`
	VoidReason   string          `json:"void_reason,omitempty"`
	SoldAt       time.Time       `json:"sold_at"`
}

type AddOnSaleCreateRequest struct {
	BranchID     string           `json:"branch_id"`
	CustomerName string           `json:"customer_name"`
	Seat         string           `json:"seat"`
	ItemName     string           `json:"item_name"`
	Qty          int              `json:"qty"`
	UnitPrice    decimal.Decimal  `json:"unit_price"`
	Discount     billing.Discount `json:"discount"`
	Cash         decimal.Decimal  `json:"cash"`
	Ewallet      decimal.Decimal  `json:"ewallet"`
}

type SalePayRequest struct {
	Cash    decimal.Decimal `json:"cash"`
	Ewallet decimal.Decimal `json:"ewallet"`
}

type SaleVoidRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin"`
}

type AddOnSaleResponse struct {
	Sale AddOnSale `json:"sale"`
}

type AddOnSaleListResponse struct {
	Sales []AddOnSale `json:"sales"`
}

type ConsignmentItem struct {
	ID           string          `json:"id"`
	SupplierName string          `json:"supplier_name"`
	ItemName     string          `json:"item_name"`
	Price        decimal.Decimal `json:"price"`
	FeeRate      decimal.Decimal `json:"fee_rate"`
	Stock        int             `json:"stock"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ConsignmentItemCreateRequest struct {
	SupplierName string          `json:"supplier_name"`
	ItemName     string          `json:"item_name"`
	Price        decimal.Decimal `json:"price"`
	FeeRate      decimal.Decimal `json:"fee_rate"`
	InitialStock int             `json:"initial_stock"`
}

type ConsignmentItemUpdateRequest struct {
	ItemName *string          `json:"item_name,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	FeeRate  *decimal.Decimal `json:"fee_rate,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
	Active   *bool            `json:"active,omitempty"`
}

type ConsignmentItemListResponse struct {
	Items []ConsignmentItem `json:"items"`
}

type ConsignmentSale struct {
	ID           string          `json:"id"`
	BranchID     string          `json:"branch_id"`
	ItemID       string          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	SupplierName string          `json:"supplier_name"`
	CustomerName string          `json:"customer_name"`
	Seat         string          `json:"seat"`
	Qty          int             `json:"qty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Total        decimal.Decimal `json:"total"`
	FeeAmount    decimal.Decimal `json:"fee_amount"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	EwalletPaid  decimal.Decimal `json:"ewallet_paid"`
	Paid         bool            `json:"paid"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
	Status       string          `json:"status"`
	VoidReason   string          `json:"void_reason,omitempty"`
	SoldAt       time.Time       `json:"sold_at"`
}

type ConsignmentSaleCreateRequest struct {
	BranchID     string          `json:"branch_id"`
	ItemID       string          `json:"item_id"`
	CustomerName string          `json:"customer_name"`
	Seat         string          `json:"seat"`
	Qty          int             `json:"qty"`
	Cash         decimal.Decimal `json:"cash"`
	Ewallet      decimal.Decimal `json:"ewallet"`
}

type ConsignmentSaleResponse struct {
	Sale ConsignmentSale `json:"sale"`
}

type ConsignmentSaleListResponse struct {
	Sales []ConsignmentSale `json:"sales"`
}

// SupplierPayout summarizes the revenue split owed to one consignment
// supplier over a date range.
type SupplierPayout struct {
	SupplierName  string          `json:"supplier_name"`
	UnitsSold     int             `json:"units_sold"`
	GrossSales    decimal.Decimal `json:"gross_sales"`
	VenueFee      decimal.Decimal `json:"venue_fee"`
	SupplierShare decimal.Decimal `json:"supplier_share"`
}

type SupplierPayoutResponse struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Payouts []SupplierPayout `json:"payouts"`
}

const (
	BookingStatusActive    = "active"
	BookingStatusExhausted = "exhausted"
	BookingStatusExpired   = "expired"
)

type PromoBooking struct {
	ID            string           `json:"id"`
	Reference     string           `json:"reference"`
	CustomerName  string           `json:"customer_name"`
	PackageName   string           `json:"package_name"`
	TotalAttempts int              `json:"total_attempts"`
	UsedAttempts  int              `json:"used_attempts"`
	ValidFrom     time.Time        `json:"valid_from"`
	ValidUntil    time.Time        `json:"valid_until"`
	Price         decimal.Decimal  `json:"price"`
	DownPayment   decimal.Decimal  `json:"down_payment"`
	Discount      billing.Discount `json:"discount"`
	Total         decimal.Decimal  `json:"total"`
	CashPaid      decimal.Decimal  `json:"cash_paid"`
	EwalletPaid   decimal.Decimal  `json:"ewallet_paid"`
	Paid          bool             `json:"paid"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// EffectiveStatus derives the booking state at a point in time. Expiry wins
// over exhaustion.
func (b PromoBooking) EffectiveStatus(now time.Time) string {
	if now.After(b.ValidUntil) {
		return BookingStatusExpired
	}
	if b.UsedAttempts >= b.TotalAttempts {
		return BookingStatusExhausted
	}
	return BookingStatusActive
}

type BookingCreateRequest struct {
	CustomerName  string           `json:"customer_name"`
	PackageName   string           `json:"package_name"`
	TotalAttempts int              `json:"total_attempts"`
	ValidFrom     string           `json:"valid_from"`
	ValidUntil    string           `json:"valid_until"`
	Price         decimal.Decimal  `json:"price"`
	DownPayment   decimal.Decimal  `json:"down_payment"`
	Discount      billing.Discount `json:"discount"`
}

type BookingRedeemRequest struct {
	Seat string `json:"seat"`
	Note string `json:"note"`
}

type BookingPayRequest struct {
	Cash    decimal.Decimal `json:"cash"`
	Ewallet decimal.Decimal `json:"ewallet"`
}

type BookingResponse struct {
	Booking PromoBooking `json:"booking"`
	Status  string       `json:"status"`
}

type BookingListResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

type Expense struct {
	ID          string          `json:"id"`
	StaffName   string          `json:"staff_name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	RecordedBy  string          `json:"recorded_by"`
	SpentAt     time.Time       `json:"spent_at"`
}

type ExpenseCreateRequest struct {
	StaffName   string          `json:"staff_name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	SpentAt     string          `json:"spent_at"`
}

type ExpenseListResponse struct {
	Expenses []Expense `json:"expenses"`
}

type ReceiptLine struct {
	Ref       string          `json:"ref"`
	ItemName  string          `json:"item_name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	SoldAt    time.Time       `json:"sold_at"`
}

// GroupedReceipt is one logical customer transaction assembled from
// consecutive same-identity sale lines.
type GroupedReceipt struct {
	Key          string          `json:"key"`
	CustomerName string          `json:"customer_name"`
	Seat         string          `json:"seat"`
	At           time.Time       `json:"at"`
	Lines        []ReceiptLine   `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	CashPaid     decimal.Decimal `json:"cash_paid"`
	EwalletPaid  decimal.Decimal `json:"ewallet_paid"`
	Paid         bool            `json:"paid"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

type GroupedReceiptResponse struct {
	Stream   string           `json:"stream"`
	Date     string           `json:"date"`
	WindowMS int64            `json:"window_ms"`
	Receipts []GroupedReceipt `json:"receipts"`
}

type DailySalesReport struct {
	BranchID         string          `json:"branch_id"`
	Date             string          `json:"date"`
	SessionCount     int64           `json:"session_count"`
	SessionRevenue   decimal.Decimal `json:"session_revenue"`
	AddOnCount       int64           `json:"addon_count"`
	AddOnRevenue     decimal.Decimal `json:"addon_revenue"`
	ConsignmentCount int64           `json:"consignment_count"`
	ConsignmentGross decimal.Decimal `json:"consignment_gross"`
	VenueFee         decimal.Decimal `json:"venue_fee"`
	SupplierShare    decimal.Decimal `json:"supplier_share"`
	BookingCount     int64           `json:"booking_count"`
	BookingRevenue   decimal.Decimal `json:"booking_revenue"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue"`
	CashCollected    decimal.Decimal `json:"cash_collected"`
	EwalletCollected decimal.Decimal `json:"ewallet_collected"`
	ExpenseTotal     decimal.Decimal `json:"expense_total"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
}

// DisplayState mirrors the receipt selected in the admin onto the
// customer-facing screen. A single well-known record, replaced atomically.
type DisplayState struct {
	Stream     string    `json:"stream"`
	ReceiptKey string    `json:"receipt_key"`
	UpdatedBy  string    `json:"updated_by"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type DisplaySetRequest struct {
	Stream     string `json:"stream"`
	ReceiptKey string `json:"receipt_key"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	BranchID      string    `json:"branch_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the persistence model for auth credentials. Password holds
// the bcrypt hash.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
