package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"boligscore/models"
	"boligscore/utils"
)

// WeightTolerance is the allowed distance of a weight total from 100.
const WeightTolerance = 0.1

// Weight validation errors.
var (
	ErrMissingComponents = errors.New("missing weight components")
	ErrUnknownComponent  = errors.New("unknown weight component")
	ErrNegativeWeight    = errors.New("negative weight")
	ErrWeightTotal       = errors.New("weights must sum to 100")
)

// ValidateWeights reports why w is not a usable weight vector, or nil.
func ValidateWeights(w models.Weights) error {
	var missing []string
	for _, c := range models.Components {
		if _, ok := w[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingComponents, strings.Join(missing, ", "))
	}

	var unknown, negative []string
	for _, c := range w.SortedKeys() {
		if !c.Valid() {
			unknown = append(unknown, string(c))
		}
		if w[c] < 0 || math.IsNaN(w[c]) {
			negative = append(negative, string(c))
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownComponent, strings.Join(unknown, ", "))
	}
	if len(negative) > 0 {
		return fmt.Errorf("%w: %s", ErrNegativeWeight, strings.Join(negative, ", "))
	}

	if total := w.Sum(); math.Abs(total-100) > WeightTolerance {
		return fmt.Errorf("%w: got %.1f", ErrWeightTotal, total)
	}
	return nil
}

// NormalizeWeights returns a complete vector that sums to 100 and keeps the
// ratio between the original non-negative weights. Unknown keys are dropped,
// missing and negative entries count as 0. A zero total yields DefaultWeights.
func NormalizeWeights(w models.Weights) models.Weights {
	out := make(models.Weights, len(models.Components))
	var total float64
	for _, c := range models.Components {
		v := w[c]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[c] = v
		total += v
	}
	if total == 0 {
		return DefaultWeights()
	}
	for c, v := range out {
		out[c] = v / total * 100
	}
	return out
}

// WeightSignature identifies an aggregation: the sorted weight pairs, the
// shape of the score table and the caller's dataset generation token.
func WeightSignature(w models.Weights, rows, cols int, generation string) string {
	var b strings.Builder
	for i, c := range w.SortedKeys() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%.6f", c, w[c])
	}
	fmt.Fprintf(&b, "|rows:%d,cols:%d|gen:%s", rows, cols, generation)
	return b.String()
}

// Aggregator combines component scores into a 0-100 aggregate.
type Aggregator struct {
	logger   *utils.Logger
	metrics  *Metrics
	cache    *ScoreCache
	profiles []Profile
}

// NewAggregator creates an Aggregator seeded with the built-in profiles.
func NewAggregator(logger *utils.Logger, metrics *Metrics, cache *ScoreCache) *Aggregator {
	if cache == nil {
		cache = NewScoreCache(DefaultCacheSize)
	}
	return &Aggregator{
		logger:   logger,
		metrics:  metrics,
		cache:    cache,
		profiles: DefaultProfiles(),
	}
}

// Validate is the only entry point that reports an unusable weight vector.
func (a *Aggregator) Validate(w models.Weights) error {
	return ValidateWeights(w)
}

// EffectiveWeights returns w when valid, otherwise its normalized form.
func (a *Aggregator) EffectiveWeights(w models.Weights) models.Weights {
	if err := ValidateWeights(w); err != nil {
		normalized := NormalizeWeights(w)
		a.logger.Warn("[aggregator] Weights rejected (%v), using normalized vector", err)
		a.metrics.incRenormalization()
		return normalized
	}
	return w.Clone()
}

// Aggregate returns one aggregate score per row, rounded to one decimal.
// Invalid weights are normalized, never rejected. A component that is absent
// from every row is treated as 0 with a warning. Results are cached by
// WeightSignature; pass a new generation token whenever the table content
// changes, or call ClearCache.
func (a *Aggregator) Aggregate(rows []models.ComponentScores, w models.Weights, generation string) []float64 {
	if len(rows) == 0 {
		return []float64{}
	}

	weights := a.EffectiveWeights(w)

	present := 0
	for _, c := range models.Components {
		if columnPresent(rows, c) {
			present++
			continue
		}
		a.logger.Warn("[aggregator] Missing score column %s, filled with 0", c)
		a.metrics.addMissingColumns(1)
	}

	key := WeightSignature(weights, len(rows), present, generation)
	if cached, ok := a.cache.Get(key); ok {
		a.metrics.incCacheHit()
		a.logger.Debug("[aggregator] Using cached scores for %d listings", len(rows))
		return cached
	}
	a.metrics.incCacheMiss()

	scores := weightedSum(rows, weights)
	a.cache.Put(key, scores)
	a.logger.Debug("[aggregator] Calculated and cached scores for %d listings", len(rows))
	return scores
}

// weightedSum computes the n x 8 score matrix times the weight fractions in a
// single matrix-vector product, then scales to 0-100.
func weightedSum(rows []models.ComponentScores, w models.Weights) []float64 {
	cols := len(models.Components)
	data := make([]float64, len(rows)*cols)
	for i, row := range rows {
		for j, c := range models.Components {
			v, ok := row[c]
			if !ok || math.IsNaN(v) {
				v = 0
			}
			data[i*cols+j] = v
		}
	}

	fractions := make([]float64, cols)
	for j, c := range models.Components {
		fractions[j] = w[c] / 100
	}

	scores := mat.NewDense(len(rows), cols, data)
	var out mat.VecDense
	out.MulVec(scores, mat.NewVecDense(cols, fractions))

	result := make([]float64, len(rows))
	for i := range result {
		result[i] = roundTo(out.AtVec(i)*10, 1)
	}
	return result
}

func columnPresent(rows []models.ComponentScores, c models.Component) bool {
	for _, row := range rows {
		if _, ok := row[c]; ok {
			return true
		}
	}
	return false
}

// ClearCache drops every cached aggregate.
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
	a.logger.Info("[aggregator] Score cache cleared")
}

// ProfileNames lists the preset names in registration order.
func (a *Aggregator) ProfileNames() []string {
	names := make([]string, len(a.profiles))
	for i, p := range a.profiles {
		names[i] = p.Name
	}
	return names
}

// ProfileWeights returns a copy of the named preset. Unknown names yield the
// equal-weight default and false.
func (a *Aggregator) ProfileWeights(name string) (models.Weights, bool) {
	for _, p := range a.profiles {
		if p.Name == name {
			return p.Weights.Clone(), true
		}
	}
	return DefaultWeights(), false
}

// AddProfile registers p, replacing any preset with the same name.
// Only valid weight vectors are accepted.
func (a *Aggregator) AddProfile(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("aggregator: profile name is empty")
	}
	if err := ValidateWeights(p.Weights); err != nil {
		return fmt.Errorf("aggregator: profile %q: %w", p.Name, err)
	}
	p.Weights = p.Weights.Clone()
	for i := range a.profiles {
		if a.profiles[i].Name == p.Name {
			a.profiles[i] = p
			return nil
		}
	}
	a.profiles = append(a.profiles, p)
	return nil
}
