package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"contractor/internal/application/projections"
)

// SheetName is the worksheet holding the payroll table.
const SheetName = "Payroll"

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Header is the first row of the payroll sheet.
var Header = []any{"Name", "Role", "Daily Rate", "Status", "Present", "Absent", "Total Days", "Amount Owed"}

// numFmtFixed2 is the built-in "0.00" number format.
const numFmtFixed2 = 2

// Filename returns the download name for a board date.
func Filename(date string) string {
	return "payroll-" + date + ".xlsx"
}

// WritePayroll writes the board as an xlsx workbook: a header, one row per worker and a totals row.
// PRE: board rows and summary come from the same query
// POST: w holds a complete workbook or an error is returned
func WritePayroll(w io.Writer, board projections.GetBoardResult) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtFixed2})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "H1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	rowNum := 2
	for _, r := range board.Rows {
		status := string(r.Status)
		if status == "" {
			status = "-"
		}
		values := []any{r.Name, r.Role, r.DailyRate.InexactFloat64(), status, r.Present, r.Absent, r.Total, r.Amount.InexactFloat64()}
		if err := writeRow(f, rowNum, values); err != nil {
			return err
		}
		rowNum++
	}

	totals := []any{"Total", fmt.Sprintf("%d workers", board.Summary.TotalWorkers), nil,
		fmt.Sprintf("%d present on %s", board.Summary.PresentOnDate, board.Date), nil, nil, nil,
		board.Summary.TotalOwed.InexactFloat64()}
	if err := writeRow(f, rowNum, totals); err != nil {
		return err
	}
	totalsStart, _ := excelize.CoordinatesToCellName(1, rowNum)
	totalsEnd, _ := excelize.CoordinatesToCellName(len(Header), rowNum)
	if err := f.SetCellStyle(SheetName, totalsStart, totalsEnd, bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if err := styleMoneyColumns(f, money, rowNum); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "B", 22); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

// styleMoneyColumns formats Daily Rate (C) and Amount Owed (H) on the worker rows.
func styleMoneyColumns(f *excelize.File, style, lastRow int) error {
	if lastRow < 3 {
		return nil
	}
	for _, col := range []string{"C", "H"} {
		if err := f.SetCellStyle(SheetName, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, lastRow-1), style); err != nil {
			return fmt.Errorf("failed to style column %s: %w", col, err)
		}
	}
	return nil
}
