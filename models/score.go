package models

import "sort"

// Component names one of the eight per-listing sub-scores.
type Component string

const (
	ComponentEnergy          Component = "energy"
	ComponentTransitDistance Component = "transit_distance"
	ComponentLotSize         Component = "lot_size"
	ComponentHouseSize       Component = "house_size"
	ComponentPriceEfficiency Component = "price_efficiency"
	ComponentBuildYear       Component = "build_year"
	ComponentBasementSize    Component = "basement_size"
	ComponentDaysOnMarket    Component = "days_on_market"
)

// Components lists every component in its canonical column order.
var Components = []Component{
	ComponentEnergy,
	ComponentTransitDistance,
	ComponentLotSize,
	ComponentHouseSize,
	ComponentPriceEfficiency,
	ComponentBuildYear,
	ComponentBasementSize,
	ComponentDaysOnMarket,
}

var componentDisplayNames = map[Component]string{
	ComponentEnergy:          "Energy label",
	ComponentTransitDistance: "Transit distance",
	ComponentLotSize:         "Lot size",
	ComponentHouseSize:       "House size",
	ComponentPriceEfficiency: "Price efficiency",
	ComponentBuildYear:       "Build year",
	ComponentBasementSize:    "Basement size",
	ComponentDaysOnMarket:    "Days on market",
}

// DisplayName returns a human readable label, or the raw key when unknown.
func (c Component) DisplayName() string {
	if name, ok := componentDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid reports whether c is one of the eight known components.
func (c Component) Valid() bool {
	_, ok := componentDisplayNames[c]
	return ok
}

// ComponentScores maps a component to its score in [0, 10].
type ComponentScores map[Component]float64

// Clone returns an independent copy.
func (s ComponentScores) Clone() ComponentScores {
	out := make(ComponentScores, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Weights maps a component to its percentage weight. A valid vector holds all
// eight components, no negative entries, and sums to 100.
type Weights map[Component]float64

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// SortedKeys returns the weight keys in lexical order.
func (w Weights) SortedKeys() []Component {
	keys := make([]Component, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// WeightsFromMap converts loosely typed config values into Weights.
func WeightsFromMap(m map[string]float64) Weights {
	w := make(Weights, len(m))
	for k, v := range m {
		w[Component(k)] = v
	}
	return w
}

// CategoryID identifies a topscorer category.
type CategoryID string

// TopScorer is the single winning listing of one category.
type TopScorer struct {
	Category     CategoryID
	Name         string
	Icon         string
	Description  string
	Listing      ScoredListing
	WinningValue string
}
