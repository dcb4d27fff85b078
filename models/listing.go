package models

import "strings"

// RawListing holds one unprocessed row as delivered by the extraction layer.
// Every field is kept as text so the cleaner can decide how to recover
// malformed values instead of failing the whole batch.
type RawListing struct {
	ID                 string
	Street             string
	HouseNumber        string
	City               string
	PostalCode         string
	Price              string
	LivingArea         string
	LotSize            string
	BasementSize       string
	Rooms              string
	BuildYear          string
	EnergyLabel        string
	Latitude           string
	Longitude          string
	DaysOnMarket       string
	PricePerArea       string
	PriceChangePercent string
	Foreclosure        string
}

// Listing is one cleaned real-estate unit, ready for scoring.
// Latitude/Longitude of 0 mean "unknown".
type Listing struct {
	ID                 int64   `db:"id"`
	Street             string  `db:"street"`
	HouseNumber        string  `db:"house_number"`
	City               string  `db:"city"`
	PostalCode         string  `db:"postal_code"`
	Price              float64 `db:"price"`
	LivingArea         float64 `db:"living_area"`
	LotSize            float64 `db:"lot_size"`
	BasementSize       float64 `db:"basement_size"`
	Rooms              float64 `db:"rooms"`
	BuildYear          int     `db:"build_year"`
	EnergyLabel        string  `db:"energy_label"`
	Latitude           float64 `db:"latitude"`
	Longitude          float64 `db:"longitude"`
	DaysOnMarket       int     `db:"days_on_market"`
	PricePerArea       float64 `db:"price_per_area"`
	PriceChangePercent float64 `db:"price_change_percent"`
	Foreclosure        bool    `db:"foreclosure"`
	InPostalCity       bool    `db:"in_postal_city"`
}

// FullAddress joins street, house number and city, skipping empty parts.
func (l *Listing) FullAddress() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.Street, l.HouseNumber, l.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ScoredListing is a Listing plus its component scores and the weighted
// aggregate on a 0-100 scale. A new table is produced for every scoring pass.
type ScoredListing struct {
	Listing
	Scores    ComponentScores
	Aggregate float64
}

// InsightReport summarises one scoring run.
type InsightReport struct {
	TotalListings        int
	Profile              string
	AveragePrice         float64
	MinPrice             float64
	MaxPrice             float64
	AverageAggregate     float64
	TopScored            []ScoredListing
	ListingsByPostalCode map[string]int
	TopScorers           []TopScorer
}
