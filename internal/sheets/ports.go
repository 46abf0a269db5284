// Package sheets declares the spreadsheet ports used by the report exporter.
package sheets

import (
	"context"
	"time"
)

// ReportRow is one user's monthly analysis as exported to a spreadsheet.
// Amounts are minor currency units.
type ReportRow struct {
	Year            int
	Month           time.Month
	UserID          int64
	Email           string
	MonthlyBudget   int64
	TotalSpent      int64
	RemainingBudget int64
	Advice          []string
}

// ReportWriter appends report rows to a spreadsheet.
type ReportWriter interface {
	AppendReport(ctx context.Context, row ReportRow) error
}
