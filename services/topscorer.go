package services

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"

	"boligscore/models"
	"boligscore/utils"
)

// Topscorer categories.
const (
	CategoryBestOverall     models.CategoryID = "best_overall"
	CategoryCheapestPerArea models.CategoryID = "cheapest_per_area"
	CategoryLargestHouse    models.CategoryID = "largest_house"
	CategoryNewestBuild     models.CategoryID = "newest_build"
	CategoryBestEnergy      models.CategoryID = "best_energy"
	CategoryLargestLot      models.CategoryID = "largest_lot"
	CategoryClosestTransit  models.CategoryID = "closest_transit"
	CategoryFastestSale     models.CategoryID = "fastest_sale"
)

// CategoryInfo describes a topscorer category for display.
type CategoryInfo struct {
	ID          models.CategoryID
	Name        string
	Icon        string
	Description string
}

type category struct {
	CategoryInfo
	// value returns the sort key and whether the row takes part.
	value     func(l *models.ScoredListing) (float64, bool)
	ascending bool
	format    func(l *models.ScoredListing) string
}

// A is best, G worst. UNKNOWN and anything else is excluded.
var energyRank = map[string]float64{
	"A": 1, "B": 2, "C": 3, "D": 4, "E": 5, "F": 6, "G": 7,
}

var categories = []category{
	{
		CategoryInfo: CategoryInfo{CategoryBestOverall, "Best overall score", "🏆", "Highest weighted aggregate score"},
		value:        func(l *models.ScoredListing) (float64, bool) { return l.Aggregate, finite(l.Aggregate) },
		format:       func(l *models.ScoredListing) string { return fmt.Sprintf("%.1f/100", l.Aggregate) },
	},
	{
		CategoryInfo: CategoryInfo{CategoryCheapestPerArea, "Cheapest per m²", "💰", "Lowest price per square metre"},
		value: func(l *models.ScoredListing) (float64, bool) {
			return l.PricePerArea, finite(l.PricePerArea) && l.PricePerArea > 0
		},
		ascending: true,
		format:    func(l *models.ScoredListing) string { return formatAmount(l.PricePerArea) + " kr/m²" },
	},
	{
		CategoryInfo: CategoryInfo{CategoryLargestHouse, "Largest house", "🏠", "Largest living area"},
		value: func(l *models.ScoredListing) (float64, bool) {
			return l.LivingArea, finite(l.LivingArea) && l.LivingArea > 0
		},
		format: func(l *models.ScoredListing) string { return formatAmount(l.LivingArea) + " m²" },
	},
	{
		CategoryInfo: CategoryInfo{CategoryNewestBuild, "Newest build", "🆕", "Most recent construction year"},
		value: func(l *models.ScoredListing) (float64, bool) {
			return float64(l.BuildYear), l.BuildYear > 0
		},
		format: func(l *models.ScoredListing) string { return strconv.Itoa(l.BuildYear) },
	},
	{
		CategoryInfo: CategoryInfo{CategoryBestEnergy, "Best energy label", "⚡", "Best energy label"},
		value: func(l *models.ScoredListing) (float64, bool) {
			rank, ok := energyRank[l.EnergyLabel]
			return rank, ok
		},
		ascending: true,
		format:    func(l *models.ScoredListing) string { return l.EnergyLabel },
	},
	{
		CategoryInfo: CategoryInfo{CategoryLargestLot, "Largest lot", "🌳", "Largest plot size"},
		value: func(l *models.ScoredListing) (float64, bool) {
			return l.LotSize, finite(l.LotSize) && l.LotSize >= 0
		},
		format: func(l *models.ScoredListing) string { return formatAmount(l.LotSize) + " m²" },
	},
	{
		CategoryInfo: CategoryInfo{CategoryClosestTransit, "Closest to transit", "🚆", "Nearest train or light-rail stop"},
		value: func(l *models.ScoredListing) (float64, bool) {
			s, ok := l.Scores[models.ComponentTransitDistance]
			return s, ok && finite(s)
		},
		format: func(l *models.ScoredListing) string {
			return fmt.Sprintf("%.1f/10", l.Scores[models.ComponentTransitDistance])
		},
	},
	{
		CategoryInfo: CategoryInfo{CategoryFastestSale, "Fastest sale", "⏱", "Fewest days on the market"},
		value: func(l *models.ScoredListing) (float64, bool) {
			return float64(l.DaysOnMarket), l.DaysOnMarket >= 0
		},
		ascending: true,
		format:    func(l *models.ScoredListing) string { return fmt.Sprintf("%d days", l.DaysOnMarket) },
	},
}

// Categories lists the topscorer categories in display order.
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	for i, c := range categories {
		out[i] = c.CategoryInfo
	}
	return out
}

// TopScorerSelector picks the single best listing per category.
type TopScorerSelector struct {
	logger  *utils.Logger
	metrics *Metrics

	mu      sync.Mutex
	lastKey string
	last    map[models.CategoryID]models.TopScorer
}

// NewTopScorerSelector creates a selector with an empty cache.
func NewTopScorerSelector(logger *utils.Logger, metrics *Metrics) *TopScorerSelector {
	return &TopScorerSelector{logger: logger, metrics: metrics}
}

// Category returns the display info of id.
func (s *TopScorerSelector) Category(id models.CategoryID) (CategoryInfo, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c.CategoryInfo, true
		}
	}
	return CategoryInfo{}, false
}

// Select returns one winner per category. Categories without a valid row are
// omitted. Ties go to the earliest row. The result for the most recent
// non-empty key is cached; callers must pass a new key whenever the weights or
// the filtered table change.
func (s *TopScorerSelector) Select(table []models.ScoredListing, key string) map[models.CategoryID]models.TopScorer {
	if len(table) == 0 {
		return map[models.CategoryID]models.TopScorer{}
	}

	s.mu.Lock()
	if key != "" && key == s.lastKey && s.last != nil {
		cached := copyWinners(s.last)
		s.mu.Unlock()
		s.logger.Debug("[topscorer] Using cached topscorers")
		return cached
	}
	s.mu.Unlock()

	winners := make(map[models.CategoryID]models.TopScorer, len(categories))
	for _, c := range categories {
		idx := bestIndex(table, c)
		if idx < 0 {
			s.logger.Warn("[topscorer] No valid listing for category %s", c.ID)
			s.metrics.incEmptyCategory()
			continue
		}
		winner := snapshot(table[idx])
		winners[c.ID] = models.TopScorer{
			Category:     c.ID,
			Name:         c.Name,
			Icon:         c.Icon,
			Description:  c.Description,
			Listing:      winner,
			WinningValue: c.format(&winner),
		}
	}

	if key != "" {
		s.mu.Lock()
		s.lastKey = key
		s.last = copyWinners(winners)
		s.mu.Unlock()
	}
	return winners
}

// Ordered returns the winners in category display order.
func (s *TopScorerSelector) Ordered(winners map[models.CategoryID]models.TopScorer) []models.TopScorer {
	out := make([]models.TopScorer, 0, len(winners))
	for _, c := range categories {
		if w, ok := winners[c.ID]; ok {
			out = append(out, w)
		}
	}
	return out
}

// ClearCache forgets the last selection.
func (s *TopScorerSelector) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastKey = ""
	s.last = nil
}

// bestIndex returns the first row with the best valid value, or -1.
func bestIndex(table []models.ScoredListing, c category) int {
	best := -1
	var bestVal float64
	for i := range table {
		v, ok := c.value(&table[i])
		if !ok {
			continue
		}
		if best < 0 || (c.ascending && v < bestVal) || (!c.ascending && v > bestVal) {
			best, bestVal = i, v
		}
	}
	return best
}

func snapshot(l models.ScoredListing) models.ScoredListing {
	l.Scores = l.Scores.Clone()
	return l
}

func copyWinners(in map[models.CategoryID]models.TopScorer) map[models.CategoryID]models.TopScorer {
	out := make(map[models.CategoryID]models.TopScorer, len(in))
	for k, v := range in {
		v.Listing = snapshot(v.Listing)
		out[k] = v
	}
	return out
}

func formatAmount(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
