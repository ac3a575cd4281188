package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// AssetMetrics records remote asset store traffic. A nil *AssetMetrics is
// valid and records nothing.
type AssetMetrics struct {
	uploads   *prometheus.CounterVec
	deletes   *prometheus.CounterVec
	reconcile *prometheus.HistogramVec
}

// NewAssetMetrics registers the asset metrics on the provided registerer.
func NewAssetMetrics(reg prometheus.Registerer) *AssetMetrics {
	if reg == nil {
		return &AssetMetrics{}
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_asset_uploads_total",
		Help: "Asset uploads to the remote store by kind and outcome.",
	}, []string{"kind", "outcome"})
	deletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_asset_deletes_total",
		Help: "Asset deletes on the remote store by outcome.",
	}, []string{"outcome"})
	reconcile := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_asset_reconcile_seconds",
		Help:    "Duration of gallery reconciliations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(uploads, deletes, reconcile)
	return &AssetMetrics{
		uploads:   uploads,
		deletes:   deletes,
		reconcile: reconcile,
	}
}

func (m *AssetMetrics) ObserveUpload(kind, outcome string) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *AssetMetrics) ObserveDelete(outcome string) {
	if m == nil || m.deletes == nil {
		return
	}
	m.deletes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *AssetMetrics) ObserveReconcile(outcome string, d time.Duration) {
	if m == nil || m.reconcile == nil {
		return
	}
	m.reconcile.WithLabelValues(normalizeLabel(outcome)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
