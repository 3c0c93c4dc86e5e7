// Package report renders the daily sales report into downloadable formats
// beyond plain JSON.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"metyme/backend/internal/domain"
)

const sheetName = "Daily Report"

// WriteDailyXLSX renders the report as a one-sheet workbook and writes it to w.
func WriteDailyXLSX(w io.Writer, rep domain.DailySalesReport) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	rows := [][]any{
		{"Me Tyme Lounge Daily Report", ""},
		{"Branch", rep.BranchID},
		{"Date", rep.Date},
		{"", ""},
		{"Section", "Value"},
		{"Sessions", rep.SessionCount},
		{"Session revenue", rep.SessionRevenue.StringFixed(2)},
		{"Add-on sales", rep.AddOnCount},
		{"Add-on revenue", rep.AddOnRevenue.StringFixed(2)},
		{"Consignment sales", rep.ConsignmentCount},
		{"Consignment gross", rep.ConsignmentGross.StringFixed(2)},
		{"Venue fee", rep.VenueFee.StringFixed(2)},
		{"Supplier share", rep.SupplierShare.StringFixed(2)},
		{"Bookings paid", rep.BookingCount},
		{"Booking revenue", rep.BookingRevenue.StringFixed(2)},
		{"", ""},
		{"Gross revenue", rep.GrossRevenue.StringFixed(2)},
		{"Cash collected", rep.CashCollected.StringFixed(2)},
		{"E-wallet collected", rep.EwalletCollected.StringFixed(2)},
		{"Expenses", rep.ExpenseTotal.StringFixed(2)},
		{"Net revenue", rep.NetRevenue.StringFixed(2)},
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 18); err != nil {
		return err
	}

	return f.Write(w)
}
