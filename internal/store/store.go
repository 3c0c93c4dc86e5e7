package store

import (
	"context"
	"errors"
	"time"

	"metyme/backend/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned when a request fails business validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientStock is returned when a consignment sale asks for more
	// units than the item has on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict is returned when a record already exists or a state
	// transition is not allowed from the record's current state.
	ErrConflict = errors.New("conflict")
)

// Repository is the persistence boundary for the lounge backend. Both the
// in-memory store and the postgres store implement it.
type Repository interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)
	UpdateSession(ctx context.Context, s domain.Session) error
	ListSessions(ctx context.Context, branchID string, day time.Time, status string) ([]domain.Session, error)

	CreateAddOnSale(ctx context.Context, s domain.AddOnSale) error
	GetAddOnSale(ctx context.Context, id string) (domain.AddOnSale, error)
	UpdateAddOnSale(ctx context.Context, s domain.AddOnSale) error
	ListAddOnSales(ctx context.Context, branchID string, day time.Time) ([]domain.AddOnSale, error)

	CreateConsignmentItem(ctx context.Context, it domain.ConsignmentItem) error
	GetConsignmentItem(ctx context.Context, id string) (domain.ConsignmentItem, error)
	UpdateConsignmentItem(ctx context.Context, it domain.ConsignmentItem) error
	ListConsignmentItems(ctx context.Context, activeOnly bool) ([]domain.ConsignmentItem, error)
	// AdjustConsignmentStock atomically applies delta to the item's stock.
	// A negative delta that would take stock below zero fails with
	// ErrInsufficientStock and leaves the record untouched.
	AdjustConsignmentStock(ctx context.Context, id string, delta int) (domain.ConsignmentItem, error)

	CreateConsignmentSale(ctx context.Context, s domain.ConsignmentSale) error
	GetConsignmentSale(ctx context.Context, id string) (domain.ConsignmentSale, error)
	UpdateConsignmentSale(ctx context.Context, s domain.ConsignmentSale) error
	ListConsignmentSales(ctx context.Context, branchID string, from time.Time, to time.Time) ([]domain.ConsignmentSale, error)

	CreateBooking(ctx context.Context, b domain.PromoBooking) error
	GetBooking(ctx context.Context, id string) (domain.PromoBooking, error)
	GetBookingByReference(ctx context.Context, ref string) (domain.PromoBooking, error)
	UpdateBooking(ctx context.Context, b domain.PromoBooking) error
	ListBookings(ctx context.Context) ([]domain.PromoBooking, error)

	CreateExpense(ctx context.Context, e domain.Expense) error
	ListExpenses(ctx context.Context, day time.Time) ([]domain.Expense, error)

	CreateUser(ctx context.Context, u domain.UserAccount) error
	GetUser(ctx context.Context, username string) (domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)

	AppendAudit(ctx context.Context, entry domain.AuditLog) error

	Close() error
}
