package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"boligscore/models"
	"boligscore/utils"
)

const tracerName = "boligscore/services"

// EngineOptions configures an Engine. Zero values select the defaults.
type EngineOptions struct {
	Logger        *utils.Logger
	Metrics       *Metrics
	TransitStops  []TransitStop
	MaxDistanceKm float64
	CacheSize     int
	Profiles      []Profile
}

// Engine is the listing scoring service: normalization, cohort ranking,
// weighted aggregation and topscorer selection. Each Engine owns its caches,
// so independent instances never share state.
type Engine struct {
	logger     *utils.Logger
	metrics    *Metrics
	tracer     trace.Tracer
	normalizer *Normalizer
	ranker     *Ranker
	aggregator *Aggregator
	selector   *TopScorerSelector
}

// NewEngine wires an Engine. Extra profiles must be valid weight vectors.
func NewEngine(opts EngineOptions) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewLogger()
	}

	e := &Engine{
		logger:     logger,
		metrics:    opts.Metrics,
		tracer:     otel.Tracer(tracerName),
		normalizer: NewNormalizer(opts.TransitStops, opts.MaxDistanceKm),
		ranker:     NewRanker(logger),
		aggregator: NewAggregator(logger, opts.Metrics, NewScoreCache(opts.CacheSize)),
		selector:   NewTopScorerSelector(logger, opts.Metrics),
	}

	for _, p := range opts.Profiles {
		if err := e.aggregator.AddProfile(p); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	return e, nil
}

// Normalizer exposes the absolute-score normalizer.
func (e *Engine) Normalizer() *Normalizer { return e.normalizer }

// Components computes the eight component scores for every listing. The
// returned rows carry the canonical energy label and no aggregate yet.
func (e *Engine) Components(listings []models.Listing) []models.ScoredListing {
	relative := e.ranker.Rank(listings)

	out := make([]models.ScoredListing, len(listings))
	for i, l := range listings {
		scores := relative[i]
		scores[models.ComponentEnergy] = EnergyScore(l.EnergyLabel)
		scores[models.ComponentTransitDistance] = e.normalizer.TransitScore(l.Latitude, l.Longitude)

		l.EnergyLabel = CanonicalEnergyLabel(l.EnergyLabel)
		out[i] = models.ScoredListing{Listing: l, Scores: scores}
	}
	return out
}

// Score runs a full pass and returns a fresh scored table in input order.
// The generation token identifies the dataset snapshot for caching.
func (e *Engine) Score(ctx context.Context, listings []models.Listing, weights models.Weights, generation string) []models.ScoredListing {
	_, span := e.tracer.Start(ctx, "engine.Score")
	defer span.End()
	span.SetAttributes(
		attribute.Int("listings.count", len(listings)),
		attribute.String("dataset.generation", generation),
	)

	start := time.Now()
	table := e.Components(listings)

	rows := make([]models.ComponentScores, len(table))
	for i := range table {
		rows[i] = table[i].Scores
	}
	aggregates := e.aggregator.Aggregate(rows, weights, generation)
	for i := range table {
		table[i].Aggregate = aggregates[i]
	}

	e.metrics.observePass(len(table), time.Since(start))
	e.logger.Info("[engine] Scored %d listings in %v", len(table), time.Since(start).Round(time.Microsecond))
	return table
}

// TopScorers selects the category winners of a scored table. The cache key
// combines the weights and generation so a change to either recomputes.
func (e *Engine) TopScorers(ctx context.Context, table []models.ScoredListing, weights models.Weights, generation string) []models.TopScorer {
	_, span := e.tracer.Start(ctx, "engine.TopScorers")
	defer span.End()

	key := ""
	if generation != "" {
		if ValidateWeights(weights) != nil {
			weights = NormalizeWeights(weights)
		}
		key = WeightSignature(weights, len(table), len(models.Components), generation)
	}
	winners := e.selector.Select(table, key)
	span.SetAttributes(attribute.Int("topscorers.count", len(winners)))
	return e.selector.Ordered(winners)
}

// Validate reports whether weights can be used as-is.
func (e *Engine) Validate(weights models.Weights) error {
	return e.aggregator.Validate(weights)
}

// ProfileNames lists the preset weight profiles.
func (e *Engine) ProfileNames() []string {
	return e.aggregator.ProfileNames()
}

// ProfileWeights returns the weights of a preset, or the default vector.
func (e *Engine) ProfileWeights(name string) (models.Weights, bool) {
	return e.aggregator.ProfileWeights(name)
}

// ClearCache drops cached aggregates and topscorers. Call it when the
// underlying listings change without a new generation token.
func (e *Engine) ClearCache() {
	e.aggregator.ClearCache()
	e.selector.ClearCache()
}
