package service

import (
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metric names.
const (
	RecordsMetricName        = "simdup_records_total"
	ItemsMetricName          = "simdup_items_total"
	FailuresMetricName       = "simdup_record_failures_total"
	EmptyItemsMetricName     = "simdup_empty_items_total"
	CandidatePairsMetricName = "simdup_candidate_pairs_total"
	BucketsMetricName        = "simdup_buckets"
	BucketSizeMetricName     = "simdup_max_bucket_size"
	SignDurationMetricName   = "simdup_sign_duration_seconds"
	SearchDurationMetricName = "simdup_param_search_duration_seconds"
	CacheHitsMetricName      = "simdup_param_cache_hits_total"
	CacheMissesMetricName    = "simdup_param_cache_misses_total"
)

// Metrics records per-run counters in an isolated VictoriaMetrics set.
type Metrics struct {
	set *metrics.Set
}

// NewMetrics creates an empty metric set.
func NewMetrics() *Metrics {
	return &Metrics{set: metrics.NewSet()}
}

// ObserveIngest counts decoded records.
func (m *Metrics) ObserveIngest(records, items, failures, empty int) {
	m.set.GetOrCreateCounter(RecordsMetricName).Add(records)
	m.set.GetOrCreateCounter(ItemsMetricName).Add(items)
	m.set.GetOrCreateCounter(FailuresMetricName).Add(failures)
	m.set.GetOrCreateCounter(EmptyItemsMetricName).Add(empty)
}

// ObserveIndex records the shape of a built index.
func (m *Metrics) ObserveIndex(buckets, maxBucket, candidates int) {
	m.set.GetOrCreateCounter(BucketsMetricName).Set(uint64(buckets))
	m.set.GetOrCreateCounter(BucketSizeMetricName).Set(uint64(maxBucket))
	m.set.GetOrCreateCounter(CandidatePairsMetricName).Add(candidates)
}

// ObserveParams counts cache hits and misses and times searches.
func (m *Metrics) ObserveParams(cached bool, started time.Time) {
	if cached {
		m.set.GetOrCreateCounter(CacheHitsMetricName).Inc()
		return
	}
	m.set.GetOrCreateCounter(CacheMissesMetricName).Inc()
	m.set.GetOrCreateHistogram(SearchDurationMetricName).UpdateDuration(started)
}

// ObserveSigning times signature construction.
func (m *Metrics) ObserveSigning(started time.Time) {
	m.set.GetOrCreateHistogram(SignDurationMetricName).UpdateDuration(started)
}

// WritePrometheus writes every metric in Prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
