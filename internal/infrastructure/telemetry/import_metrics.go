package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ImportMetrics records import pipeline outcomes.
type ImportMetrics struct {
	imports  *Counter
	duration *Histogram
	images   *Counter
}

// NewImportMetrics creates the import instruments on meter.
func NewImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	imports, err := NewCounter(meter, "storefront_imports_total", "Number of finished imports", "{import}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "storefront_import_duration_seconds",
		Description: "Import wall time",
		Unit:        "s",
		Boundaries:  ImportDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	images, err := NewCounter(meter, "storefront_import_images_total", "Number of images processed during imports", "{image}")
	if err != nil {
		return nil, fmt.Errorf("import metrics: %w", err)
	}
	return &ImportMetrics{imports: imports, duration: duration, images: images}, nil
}

// RecordImport records one finished import. kind is empty on success.
func (m *ImportMetrics) RecordImport(ctx context.Context, state, kind string, d time.Duration) {
	attrs := AttrImportState.String(state)
	if kind == "" {
		m.imports.Inc(ctx, attrs)
		m.duration.RecordDuration(ctx, d, attrs)
		return
	}
	m.imports.Inc(ctx, attrs, AttrErrorKind.String(kind))
	m.duration.RecordDuration(ctx, d, attrs)
}

// RecordImages records image outcomes of one batch.
func (m *ImportMetrics) RecordImages(ctx context.Context, processed, failed int) {
	if processed > 0 {
		m.images.Add(ctx, int64(processed), AttrImageResult.String("processed"))
	}
	if failed > 0 {
		m.images.Add(ctx, int64(failed), AttrImageResult.String("failed"))
	}
}
