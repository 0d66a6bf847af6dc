// Command export renders a dashboard selection straight to a CSV or
// xlsx file without starting the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"enrolcli/internal/config"
	"enrolcli/internal/dataset"
	"enrolcli/internal/exporter"
	"enrolcli/internal/infrastructure"
	"enrolcli/internal/services"
)

func main() {
	dataDir := flag.String("dir", "", "directory containing enrolment extracts (defaults to configured data dir)")
	level := flag.String("level", "national", "selection level: national | state | district")
	state := flag.String("state", "", "state name (required for state and district levels)")
	district := flag.String("district", "", "district name (required for district level)")
	format := flag.String("format", "csv", "output format: csv | xlsx")
	out := flag.String("out", "", "output file path (defaults to dashboard.<format> in the exports dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *dataDir == "" {
		*dataDir = cfg.Paths.DataDir
	}
	if *out == "" {
		*out = "dashboard." + *format
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	if err := run(*dataDir, *level, *state, *district, *format, *out, cfg.Paths.ExportsDir, logger); err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(dataDir, levelArg, state, district, format, out, exportsDir string, logger *slog.Logger) error {
	level, err := dataset.ParseLevel(levelArg)
	if err != nil {
		return err
	}

	store := dataset.NewStore(dataset.NewLoader(dataDir, logger), logger)
	svc := services.NewDashboardService(store, logger)

	// Tag the whole run with one trace ID so its log lines correlate.
	ctx := infrastructure.EnsureTraceID(context.Background())
	data, err := svc.Render(ctx, services.Selection{Level: level, State: state, District: district})
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}

	for _, warning := range store.Warnings() {
		logger.Warn("Extract skipped during load",
			slog.String("file", warning.File),
			slog.String("error", warning.Err.Error()))
	}

	sheets := exporter.BuildSheets(data)

	logger.Info("Writing export",
		slog.String("format", format),
		slog.String("output", out),
		slog.Int("sheet_count", len(sheets)))

	switch format {
	case "xlsx":
		return exporter.NewExcelWriter(exportsDir).SaveDashboard(out, sheets)
	case "csv":
		return exporter.NewCSVWriter(exportsDir).SaveDashboard(out, sheets)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
