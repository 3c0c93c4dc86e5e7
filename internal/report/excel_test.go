package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"metyme/backend/internal/domain"
)

func TestWriteDailyXLSXRoundTrips(t *testing.T) {
	rep := domain.DailySalesReport{
		BranchID:       "test-lounge",
		Date:           "2026-08-24",
		SessionCount:   3,
		SessionRevenue: decimal.RequireFromString("60000.00"),
		GrossRevenue:   decimal.RequireFromString("60000.00"),
		NetRevenue:     decimal.RequireFromString("55000.00"),
	}

	var buf bytes.Buffer
	if err := WriteDailyXLSX(&buf, rep); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	branch, err := f.GetCellValue(sheetName, "B2")
	if err != nil {
		t.Fatalf("read branch cell: %v", err)
	}
	if branch != "test-lounge" {
		t.Fatalf("expected branch test-lounge, got %q", branch)
	}

	date, _ := f.GetCellValue(sheetName, "B3")
	if date != "2026-08-24" {
		t.Fatalf("expected date 2026-08-24, got %q", date)
	}

	revenue, _ := f.GetCellValue(sheetName, "B7")
	if revenue != "60000.00" {
		t.Fatalf("expected session revenue 60000.00, got %q", revenue)
	}
}
