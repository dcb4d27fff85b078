package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricScoringPasses          = "boligscore_scoring_passes_total"
	MetricScoringDuration        = "boligscore_scoring_duration_seconds"
	MetricScoreCacheHits         = "boligscore_score_cache_hits_total"
	MetricScoreCacheMisses       = "boligscore_score_cache_misses_total"
	MetricWeightRenormalizations = "boligscore_weight_renormalizations_total"
	MetricMissingScoreColumns    = "boligscore_missing_score_columns_total"
	MetricTopScorerEmpty         = "boligscore_topscorer_empty_categories_total"
	MetricLastScoredListings     = "boligscore_last_scored_listings"
)

// Metrics holds the Prometheus collectors of the scoring engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	passes             prometheus.Counter
	duration           prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	renormalizations   prometheus.Counter
	missingColumns     prometheus.Counter
	emptyCategories    prometheus.Counter
	lastScoredListings prometheus.Gauge
}

// NewMetrics creates unregistered collectors; call Register to expose them.
func NewMetrics() *Metrics {
	return &Metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoringPasses,
			Help: "Total number of full scoring passes",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricScoringDuration,
			Help:    "Duration of a full scoring pass in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreCacheHits,
			Help: "Aggregations served from the score cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricScoreCacheMisses,
			Help: "Aggregations that had to be computed",
		}),
		renormalizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricWeightRenormalizations,
			Help: "Weight vectors that were renormalized before aggregation",
		}),
		missingColumns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricMissingScoreColumns,
			Help: "Component score columns substituted with 0 during aggregation",
		}),
		emptyCategories: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricTopScorerEmpty,
			Help: "Topscorer categories that produced no winner",
		}),
		lastScoredListings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastScoredListings,
			Help: "Number of listings in the most recent scoring pass",
		}),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.passes,
		m.duration,
		m.cacheHits,
		m.cacheMisses,
		m.renormalizations,
		m.missingColumns,
		m.emptyCategories,
		m.lastScoredListings,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observePass(listings int, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.duration.Observe(d.Seconds())
	m.lastScoredListings.Set(float64(listings))
}

func (m *Metrics) incCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) incCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) incRenormalization() {
	if m != nil {
		m.renormalizations.Inc()
	}
}

func (m *Metrics) addMissingColumns(n int) {
	if m != nil && n > 0 {
		m.missingColumns.Add(float64(n))
	}
}

func (m *Metrics) incEmptyCategory() {
	if m != nil {
		m.emptyCategories.Inc()
	}
}
