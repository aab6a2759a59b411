package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	emailAdapter "contractor/internal/adapters/email"
	"contractor/internal/application/projections"
)

// ErrNoSummaryRecipients is returned when a summary is requested without recipients.
var ErrNoSummaryRecipients = errors.New("payroll summary needs at least one recipient")

// summaryRenderer drops raw HTML from worker names (WithUnsafe is not set).
var summaryRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// SendPayrollSummaryInput carries input for SendPayrollSummary.
type SendPayrollSummaryInput struct {
	Date string // empty uses the selected date
	To   []string
}

// SendPayrollSummaryDeps holds dependencies for SendPayrollSummary.
type SendPayrollSummaryDeps struct {
	Roster      projections.RosterReader
	EmailSender emailAdapter.Sender
	FromAddress string
}

// ExecuteSendPayrollSummary emails the board for a date as an HTML table.
// PRE: input.To is non-empty
// POST: One message is handed to the sender; returns its receipt
func ExecuteSendPayrollSummary(ctx context.Context, input SendPayrollSummaryInput, deps SendPayrollSummaryDeps) (emailAdapter.Receipt, error) {
	if len(input.To) == 0 {
		return emailAdapter.Receipt{}, ErrNoSummaryRecipients
	}

	board, err := projections.QueryGetBoard(ctx, projections.GetBoardQuery{Date: input.Date}, projections.GetBoardDeps{Roster: deps.Roster})
	if err != nil {
		return emailAdapter.Receipt{}, err
	}

	md := RenderPayrollMarkdown(board)
	var html bytes.Buffer
	if err := summaryRenderer.Convert([]byte(md), &html); err != nil {
		return emailAdapter.Receipt{}, fmt.Errorf("failed to render summary: %w", err)
	}

	receipt, err := deps.EmailSender.Send(ctx, emailAdapter.Message{
		To:      input.To,
		From:    deps.FromAddress,
		Subject: "Payroll summary " + board.Date,
		HTML:    html.String(),
		Text:    md,
	})
	if err != nil {
		return emailAdapter.Receipt{}, err
	}

	slog.Info("email_event", "event", "payroll_summary_sent", "date", board.Date, "workers", board.Summary.TotalWorkers,
		"message_id", receipt.MessageID)
	return receipt, nil
}

// RenderPayrollMarkdown formats the board as a markdown document with a summary and a table.
func RenderPayrollMarkdown(board projections.GetBoardResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Payroll summary for %s\n\n", board.Date)
	fmt.Fprintf(&b, "- Total workers: %d\n", board.Summary.TotalWorkers)
	fmt.Fprintf(&b, "- Present on %s: %d\n", board.Date, board.Summary.PresentOnDate)
	fmt.Fprintf(&b, "- Total amount owed: %s\n\n", board.Summary.TotalOwed.StringFixed(2))

	if len(board.Rows) == 0 {
		b.WriteString("No workers registered.\n")
		return b.String()
	}

	b.WriteString("| Name | Role | Daily rate | Today | Present | Absent | Amount owed |\n")
	b.WriteString("|---|---|---:|---|---:|---:|---:|\n")
	for _, r := range board.Rows {
		status := string(r.Status)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %d | %s |\n",
			escapeCell(r.Name), escapeCell(r.Role), r.DailyRate.StringFixed(2), status, r.Present, r.Absent, r.Amount.StringFixed(2))
	}
	return b.String()
}

// escapeCell keeps user text from breaking the table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
