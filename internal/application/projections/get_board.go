package projections

import (
	"context"

	"github.com/shopspring/decimal"

	"contractor/internal/application/listutil"
	"contractor/internal/domain/attendance"
	"contractor/internal/domain/worker"
)

// Board sort columns.
const (
	SortName   = "name"
	SortRole   = "role"
	SortRate   = "rate"
	SortAmount = "amount"
)

// BoardSortColumns lists the columns the board can be sorted by.
var BoardSortColumns = []string{SortName, SortRole, SortRate, SortAmount}

// GetBoardQuery carries query parameters.
type GetBoardQuery struct {
	Date string // empty selects the store's selected date
	listutil.ListParams
}

// BoardRow is one worker's line on the board.
type BoardRow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	DailyRate decimal.Decimal   `json:"dailyRate"`
	Status    attendance.Status `json:"status,omitempty"` // empty when unmarked on the date
	Present   int               `json:"present"`
	Absent    int               `json:"absent"`
	Total     int               `json:"total"`
	Amount    decimal.Decimal   `json:"amount"`
}

// Marked reports whether the worker has a record on the board date.
func (r BoardRow) Marked() bool {
	return r.Status != ""
}

// BoardSummary is the summary card.
type BoardSummary struct {
	TotalWorkers  int             `json:"totalWorkers"`
	PresentOnDate int             `json:"presentOnDate"`
	AbsentOnDate  int             `json:"absentOnDate"`
	TotalOwed     decimal.Decimal `json:"totalOwed"`
}

// GetBoardResult carries the query result.
type GetBoardResult struct {
	Date    string       `json:"date"`
	Rows    []BoardRow   `json:"rows"`
	Summary BoardSummary `json:"summary"`
}

// GetBoardDeps holds dependencies for GetBoard.
type GetBoardDeps struct {
	Roster RosterReader
}

var boardComparators = map[string]func(a, b BoardRow) int{
	SortName:   func(a, b BoardRow) int { return listutil.CompareFold(a.Name, b.Name) },
	SortRole:   func(a, b BoardRow) int { return listutil.CompareFold(a.Role, b.Role) },
	SortRate:   func(a, b BoardRow) int { return a.DailyRate.Cmp(b.DailyRate) },
	SortAmount: func(a, b BoardRow) int { return a.Amount.Cmp(b.Amount) },
}

// QueryGetBoard builds the roster table and summary card for one date.
// PRE: query.Date is empty or YYYY-MM-DD
// POST: Rows are filtered by Search and ordered by Sort; Summary covers every worker
// INVARIANT: Amount == DailyRate * Present; Total == Present + Absent
func QueryGetBoard(ctx context.Context, query GetBoardQuery, deps GetBoardDeps) (GetBoardResult, error) {
	date := query.Date
	if date == "" {
		date = deps.Roster.SelectedDate()
	}
	if err := attendance.ValidateDate(date); err != nil {
		return GetBoardResult{}, err
	}

	workers := deps.Roster.Snapshot().Workers()
	result := GetBoardResult{
		Date: date,
		Rows: make([]BoardRow, 0, len(workers)),
		Summary: BoardSummary{
			TotalWorkers: len(workers),
			TotalOwed:    decimal.Zero,
		},
	}

	for _, w := range workers {
		row := newBoardRow(w, date)
		switch row.Status {
		case attendance.StatusPresent:
			result.Summary.PresentOnDate++
		case attendance.StatusAbsent:
			result.Summary.AbsentOnDate++
		}
		result.Summary.TotalOwed = result.Summary.TotalOwed.Add(row.Amount)

		if listutil.Matches(query.Search, w.Name, w.Role) {
			result.Rows = append(result.Rows, row)
		}
	}

	listutil.SortStable(result.Rows, query.SortParams, boardComparators)
	return result, nil
}

func newBoardRow(w worker.Worker, date string) BoardRow {
	stats := w.Stats()
	row := BoardRow{
		ID:        w.ID,
		Name:      w.Name,
		Role:      w.Role,
		DailyRate: w.DailyRate,
		Present:   stats.Present,
		Absent:    stats.Absent,
		Total:     stats.Total,
		Amount:    w.TotalAmount(),
	}
	if rec, ok := w.AttendanceFor(date); ok {
		row.Status = rec.Status
	}
	return row
}
