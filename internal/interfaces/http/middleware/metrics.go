package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// uploadSizeBuckets covers JSON import bodies up to bulk sheets near the upload cap
var uploadSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1 << 20, 4 << 20, 10 << 20}

type httpMetrics struct {
	requests    *telemetry.Counter
	duration    *telemetry.Histogram
	requestSize *telemetry.Histogram
	inFlight    metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requests, err := telemetry.NewCounter(meter,
		"storefront_http_requests_total", "HTTP requests by route and status class", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "storefront_http_request_duration_seconds",
		Description: "HTTP request latency; imports include fetch and image processing",
		Unit:        "s",
		Boundaries:  append(append([]float64{}, telemetry.HTTPDurationBuckets...), 30, 60),
	})
	if err != nil {
		return nil, err
	}
	requestSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "storefront_http_request_size_bytes",
		Description: "Declared request body size, dominated by bulk sheet uploads",
		Unit:        "By",
		Boundaries:  uploadSizeBuckets,
	})
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("storefront_http_requests_in_flight",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requests: requests, duration: duration, requestSize: requestSize, inFlight: inFlight}, nil
}

// HTTPMetrics records request counts, latency, upload sizes and in-flight
// requests per route pattern. A nil meter or an instrument error yields a
// pass-through middleware.
func HTTPMetrics(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	passThrough := func(c *gin.Context) { c.Next() }
	if meter == nil {
		return passThrough
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusClass.String(statusClass(c.Writer.Status())))...)
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
		if c.Request.ContentLength > 0 {
			m.requestSize.Record(ctx, float64(c.Request.ContentLength), attrs...)
		}
	}
}

// statusClass folds a status code into 2xx, 4xx, 5xx and so on
func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
