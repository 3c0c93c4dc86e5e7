package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"metyme/backend/internal/domain"
	"metyme/backend/internal/store"
)

// Requires a reachable database; set TEST_DATABASE_URL to run.
func TestAdjustConsignmentStockNeverGoesNegative(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	item := domain.ConsignmentItem{
		ID:           "itest-" + time.Now().Format("150405.000000000"),
		SupplierName: "Integration Supplier",
		ItemName:     "Integration Snack",
		Price:        decimal.NewFromInt(10000),
		FeeRate:      decimal.NewFromFloat(0.2),
		Stock:        1,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateConsignmentItem(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}

	if _, err := s.AdjustConsignmentStock(ctx, item.ID, -1); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if _, err := s.AdjustConsignmentStock(ctx, item.ID, -1); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got, err := s.GetConsignmentItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("expected stock 0 after failed decrement, got %d", got.Stock)
	}
}
