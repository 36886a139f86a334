// Command importer runs catalog imports from the command line.
//
//	importer -url <listing url> -category <id>            import one listing
//	importer -url <listing url> -category <id> -preview   dry run, nothing is stored
//	importer -file listings.csv [-category <id>]          import every row of a CSV or XLSX sheet
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/importer"
	"github.com/storefront/backend/internal/bootstrap"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/sheet"
)

func main() {
	var (
		listingURL string
		categoryID string
		file       string
		preview    bool
		envFile    string
	)
	flag.StringVar(&listingURL, "url", "", "Marketplace listing URL")
	flag.StringVar(&categoryID, "category", "", "Storefront category ID (default category for sheet rows)")
	flag.StringVar(&file, "file", "", "CSV or XLSX sheet of listings to import")
	flag.BoolVar(&preview, "preview", false, "Run the pipeline without storing anything")
	flag.StringVar(&envFile, "env", ".env", "Path to a .env file")
	flag.Parse()

	if (listingURL == "") == (file == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -url or -file is required")
		flag.Usage()
		os.Exit(2)
	}
	if file != "" && preview {
		fmt.Fprintln(os.Stderr, "-preview is only supported with -url")
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnvFile(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the JSON result
	log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, log, listingURL, categoryID, file, preview)
	stop()
	_ = log.Sync()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, listingURL, categoryID, file string, preview bool) int {
	tel, bridged, err := bootstrap.SetupTelemetry(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize telemetry", zap.Error(err))
		return 1
	}
	log = bridged
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	app, err := bootstrap.New(ctx, cfg, log, tel)
	if err != nil {
		log.Error("Failed to initialize import pipeline", zap.Error(err))
		return 1
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Error("Error closing connections", zap.Error(err))
		}
	}()

	if file != "" {
		return runBulk(ctx, app, log, file, categoryID)
	}

	req := importer.Request{URL: listingURL, CategoryID: categoryID}
	if preview {
		p, err := app.Orchestrator.Preview(ctx, req)
		if err != nil {
			log.Error("Preview failed", zap.Error(err), zap.String("kind", string(importer.KindOf(err))))
			return 1
		}
		return printJSON(log, p)
	}

	result, err := app.Orchestrator.Import(ctx, req)
	if result == nil {
		log.Error("Import failed", zap.Error(err))
		return 1
	}
	if code := printJSON(log, result); code != 0 {
		return code
	}
	if !result.Success {
		return 1
	}
	return 0
}

func runBulk(ctx context.Context, app *bootstrap.App, log *zap.Logger, file, categoryID string) int {
	f, err := os.Open(file)
	if err != nil {
		log.Error("Failed to open sheet", zap.Error(err))
		return 1
	}
	defer f.Close()

	parsed, err := sheet.NewReader(sheet.WithDefaultCategory(categoryID)).Read(filepath.Base(file), f)
	if err != nil {
		log.Error("Failed to read sheet", zap.Error(err))
		return 1
	}
	for _, rowErr := range parsed.Errors {
		log.Warn("Row skipped",
			zap.Int("row", rowErr.Row),
			zap.String("column", rowErr.Column),
			zap.String("code", rowErr.Code),
			zap.String("message", rowErr.Message),
		)
	}
	if len(parsed.Rows) == 0 {
		log.Error("The sheet has no importable rows", zap.Int("rejected_rows", parsed.TotalErrors))
		return 1
	}

	summary, err := app.Bulk.Run(ctx, parsed.Rows)
	if err != nil {
		log.Error("Bulk import failed", zap.Error(err))
		return 1
	}
	if code := printJSON(log, summary); code != 0 {
		return code
	}
	if summary.Failed > 0 || summary.Skipped > 0 {
		return 1
	}
	return 0
}

func printJSON(log *zap.Logger, v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error("Failed to write result", zap.Error(err))
		return 1
	}
	return 0
}
