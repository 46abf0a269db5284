package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetly/internal/analyzer"
	applog "budgetly/internal/log"
	"budgetly/internal/sheets"
	"budgetly/internal/store"
)

// MonthAnalyzer is the part of the analysis service the exporter needs.
type MonthAnalyzer interface {
	AnalyzeMonth(ctx context.Context, userID int64, year, month int) (analyzer.Report, error)
}

// ReportExporter appends one spreadsheet row per budgeted user for a month.
type ReportExporter struct {
	users    store.BudgetLister
	analysis MonthAnalyzer
	writer   sheets.ReportWriter
}

func NewReportExporter(users store.BudgetLister, analysis MonthAnalyzer, writer sheets.ReportWriter) *ReportExporter {
	return &ReportExporter{users: users, analysis: analysis, writer: writer}
}

// ExportResult counts what an export run did.
type ExportResult struct {
	Exported int
	Failed   int
}

// Export analyzes and writes every budgeted user. A failure for one user is
// logged and counted; the run continues with the next. Users without
// expenses are exported with zero spend.
func (e *ReportExporter) Export(ctx context.Context, year int, month time.Month) (ExportResult, error) {
	users, err := e.users.ListBudgetedUsers(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("list budgeted users: %w", err)
	}

	slog.InfoContext(ctx, "Exporting monthly reports",
		applog.FieldComponent, applog.ComponentReportExport,
		"year", year,
		"month", int(month),
		"users", len(users))

	var res ExportResult
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		report, err := e.analysis.AnalyzeMonth(ctx, u.ID, year, int(month))
		if err != nil {
			slog.ErrorContext(ctx, "Failed to analyze user", applog.FieldComponent, applog.ComponentReportExport, "user_id", u.ID, "error", err)
			res.Failed++
			continue
		}

		row := sheets.ReportRow{
			Year:            year,
			Month:           month,
			UserID:          u.ID,
			Email:           u.Email,
			MonthlyBudget:   report.RemainingBudget.Add(report.TotalSpent).Cents,
			TotalSpent:      report.TotalSpent.Cents,
			RemainingBudget: report.RemainingBudget.Cents,
			Advice:          report.Advice,
		}
		if err := e.writer.AppendReport(ctx, row); err != nil {
			slog.ErrorContext(ctx, "Failed to append report", applog.FieldComponent, applog.ComponentReportExport, "user_id", u.ID, "error", err)
			res.Failed++
			continue
		}
		res.Exported++
	}

	slog.InfoContext(ctx, "Monthly report export finished",
		applog.FieldComponent, applog.ComponentReportExport,
		"exported", res.Exported,
		"failed", res.Failed)
	return res, nil
}
