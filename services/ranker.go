package services

import (
	"math"
	"sort"

	"boligscore/models"
	"boligscore/utils"
)

// cohortMetric describes one metric ranked against postal-code peers.
type cohortMetric struct {
	component models.Component
	value     func(l *models.Listing) float64
	// ascending is true when a lower value is better.
	ascending bool
}

var cohortMetrics = []cohortMetric{
	{models.ComponentLotSize, func(l *models.Listing) float64 { return l.LotSize }, false},
	{models.ComponentHouseSize, func(l *models.Listing) float64 { return l.LivingArea }, false},
	{models.ComponentPriceEfficiency, pricePerArea, true},
	{models.ComponentBuildYear, func(l *models.Listing) float64 { return float64(l.BuildYear) }, false},
	{models.ComponentBasementSize, func(l *models.Listing) float64 { return l.BasementSize }, false},
	{models.ComponentDaysOnMarket, func(l *models.Listing) float64 { return float64(l.DaysOnMarket) }, true},
}

// pricePerArea prefers the derived column and falls back to price / area.
// Non-positive results are reported as NaN so they are never ranked best.
func pricePerArea(l *models.Listing) float64 {
	if l.PricePerArea > 0 {
		return l.PricePerArea
	}
	if l.LivingArea > 0 && l.Price > 0 {
		return l.Price / l.LivingArea
	}
	return math.NaN()
}

// Ranker scores metrics relative to the other listings of the same postal code.
type Ranker struct {
	logger *utils.Logger
}

// NewRanker creates a Ranker with the given logger.
func NewRanker(logger *utils.Logger) *Ranker {
	return &Ranker{logger: logger}
}

// Rank returns, for every listing in input order, the six cohort-relative
// component scores. Nothing is cached: cohorts are rebuilt on every call.
func (r *Ranker) Rank(listings []models.Listing) []models.ComponentScores {
	out := make([]models.ComponentScores, len(listings))
	for i := range out {
		out[i] = make(models.ComponentScores, len(cohortMetrics))
	}

	cohorts := make(map[string][]int)
	order := make([]string, 0)
	for i := range listings {
		code := listings[i].PostalCode
		if _, seen := cohorts[code]; !seen {
			order = append(order, code)
		}
		cohorts[code] = append(cohorts[code], i)
	}

	for _, code := range order {
		members := cohorts[code]
		for _, m := range cohortMetrics {
			values := make([]float64, len(members))
			for j, idx := range members {
				values[j] = m.value(&listings[idx])
			}
			for j, score := range cohortScores(values, m.ascending) {
				out[members[j]][m.component] = score
			}
		}
	}

	r.logger.Debug("[ranker] Ranked %d listings across %d postal-code cohorts", len(listings), len(order))
	return out
}

// cohortScores converts metric values of one cohort into 0-10 scores using a
// dense rank. A lone member scores 10, as does every member of an all-tied
// cohort. NaN and infinite values are not ranked and score 0.
func cohortScores(values []float64, ascending bool) []float64 {
	scores := make([]float64, len(values))
	if len(values) == 1 {
		scores[0] = 10
		return scores
	}

	ranks := denseRank(values, ascending)
	maxRank := 0
	for _, rk := range ranks {
		if rk > maxRank {
			maxRank = rk
		}
	}

	for i, rk := range ranks {
		switch {
		case rk == 0:
			scores[i] = 0
		case maxRank == 1:
			scores[i] = 10
		default:
			scores[i] = roundTo(10*float64(maxRank-rk)/float64(maxRank-1), 2)
		}
	}
	return scores
}

// denseRank assigns 1 to the best distinct value, 2 to the next, and so on.
// Ties share a rank. Values that cannot be ranked get 0.
func denseRank(values []float64, ascending bool) []int {
	distinct := make([]float64, 0, len(values))
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if !rankable(v) {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct = append(distinct, v)
		}
	}

	if ascending {
		sort.Float64s(distinct)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))
	}

	rankOf := make(map[float64]int, len(distinct))
	for i, v := range distinct {
		rankOf[v] = i + 1
	}

	ranks := make([]int, len(values))
	for i, v := range values {
		if rankable(v) {
			ranks[i] = rankOf[v]
		}
	}
	return ranks
}

func rankable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
