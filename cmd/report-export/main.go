// Command report-export appends one row per budgeted user to the monthly
// report spreadsheet. It runs once and exits, so it suits a cron job.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"budgetly/internal/analyzer"
	"budgetly/internal/cli"
	"budgetly/internal/config"
	"budgetly/internal/services"
	gsheet "budgetly/internal/sheets/google"
	"budgetly/internal/worker"
)

func main() {
	monthFlag := flag.String("month", "", "month to export as YYYY-MM (default: current month)")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateExport)

	year, month, err := exportMonth(*monthFlag, time.Now().In(cfg.Location()))
	if err != nil {
		logger.Error("Invalid -month flag", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	be := cli.MustInitBackend(ctx, logger, cfg)
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", "error", err)
			}
		}()
	}

	sheet, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to prepare report sheet", "error", err, "sheet", cfg.GoogleSheetName)
		os.Exit(1)
	}

	analysis := services.NewAnalysisService(be.Store, analyzer.New(cfg.Ratio()), cfg.Location(), nil)
	exporter := worker.NewReportExporter(be.Store, analysis, sheet)

	result, err := exporter.Export(ctx, year, month)
	if err != nil {
		logger.Error("Report export failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Report export finished",
		"month", fmt.Sprintf("%04d-%02d", year, month),
		"exported", result.Exported,
		"failed", result.Failed)
	if result.Failed > 0 {
		os.Exit(1)
	}
}

// exportMonth parses a YYYY-MM flag value; empty selects now's month.
func exportMonth(value string, now time.Time) (int, time.Month, error) {
	if value == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("month %q must be YYYY-MM", value)
	}
	return t.Year(), t.Month(), nil
}
