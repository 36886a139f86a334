package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultBulkParallelism is the number of imports a bulk run executes at once
const DefaultBulkParallelism = 4

// Importer imports a single listing
type Importer interface {
	Import(ctx context.Context, req Request) (*Result, error)
}

var _ Importer = (*Orchestrator)(nil)

// BulkRow is one listing to import, with the sheet line it came from
type BulkRow struct {
	Line       int    `json:"line"`
	URL        string `json:"url"`
	CategoryID string `json:"category_id"`
}

// BulkRowResult pairs a row with its import outcome
type BulkRowResult struct {
	BulkRow
	Result *Result `json:"result"`
}

// BulkSummary is the outcome of a bulk import
type BulkSummary struct {
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Rows      []BulkRowResult `json:"rows"`
}

// BulkImporter imports many listings with bounded parallelism.
// A failing row never stops the others; only cancellation of ctx does.
type BulkImporter struct {
	importer    Importer
	parallelism int
	logger      *zap.Logger
}

// NewBulkImporter creates a BulkImporter. A non-positive parallelism uses the default.
func NewBulkImporter(importer Importer, parallelism int, logger *zap.Logger) *BulkImporter {
	if parallelism <= 0 {
		parallelism = DefaultBulkParallelism
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkImporter{importer: importer, parallelism: parallelism, logger: logger}
}

// Run imports every row and returns per-row results in input order.
// Rows not started before ctx ends are reported as skipped.
func (b *BulkImporter) Run(ctx context.Context, rows []BulkRow) (*BulkSummary, error) {
	results := make([]BulkRowResult, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for i, row := range rows {
		results[i] = BulkRowResult{BulkRow: row}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := b.importer.Import(gctx, Request{URL: row.URL, CategoryID: row.CategoryID})
			if res == nil {
				res = &Result{State: StateFailed, Warnings: []Warning{}}
				if err != nil {
					res.Error = err.Error()
					res.ErrorKind = KindOf(err)
				}
			}
			results[i].Result = res
			if err != nil {
				b.logger.Warn("Bulk row failed", zap.Int("line", row.Line), zap.String("url", row.URL), zap.Error(err))
			}
			return nil
		})
	}
	waitErr := g.Wait()

	summary := &BulkSummary{Total: len(rows), Rows: results}
	for _, r := range results {
		switch {
		case r.Result == nil:
			summary.Skipped++
		case r.Result.Success:
			summary.Succeeded++
		default:
			summary.Failed++
		}
	}
	b.logger.Info("Bulk import finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))

	if waitErr != nil {
		return summary, fmt.Errorf("bulk import interrupted: %w", waitErr)
	}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("bulk import interrupted: %w", err)
	}
	return summary, nil
}
