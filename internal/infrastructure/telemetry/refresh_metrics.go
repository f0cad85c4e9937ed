package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	MetricItemsRefreshed = "listsync_items_refreshed_total"
	MetricItemsFailed    = "listsync_items_failed_total"
	MetricSweeps         = "listsync_sweeps_total"
)

// RefreshMetrics counts per-item refresh outcomes and finished sweeps
type RefreshMetrics struct {
	refreshed metric.Int64Counter
	failed    metric.Int64Counter
	sweeps    metric.Int64Counter
}

// NewRefreshMetrics registers the refresh instruments on meter
func NewRefreshMetrics(meter metric.Meter) (*RefreshMetrics, error) {
	refreshed, err := meter.Int64Counter(MetricItemsRefreshed,
		metric.WithDescription("List items refreshed from the legacy source"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(MetricItemsFailed,
		metric.WithDescription("List items whose refresh failed"),
		metric.WithUnit("{item}"))
	if err != nil {
		return nil, err
	}
	sweeps, err := meter.Int64Counter(MetricSweeps,
		metric.WithDescription("Finished refresh sweeps by status"),
		metric.WithUnit("{sweep}"))
	if err != nil {
		return nil, err
	}
	return &RefreshMetrics{refreshed: refreshed, failed: failed, sweeps: sweeps}, nil
}

// ItemRefreshed records one successfully refreshed item
func (m *RefreshMetrics) ItemRefreshed(ctx context.Context, changed bool) {
	m.refreshed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("changed", changed)))
}

// ItemFailed records one failed item with its error code
func (m *RefreshMetrics) ItemFailed(ctx context.Context, code string) {
	m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// SweepFinished records a finished sweep
func (m *RefreshMetrics) SweepFinished(ctx context.Context, status, trigger string) {
	m.sweeps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("trigger", trigger),
	))
}
