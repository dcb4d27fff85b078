package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"boligscore/models"
	"boligscore/utils"
)

func sampleEngineListings() []models.Listing {
	return []models.Listing{
		{ID: 1, PostalCode: "8370", Price: 2500000, LivingArea: 150, PricePerArea: 16667, LotSize: 1000,
			BasementSize: 0, BuildYear: 1975, EnergyLabel: "c", Latitude: 56.30, Longitude: 10.02, DaysOnMarket: 20},
		{ID: 2, PostalCode: "8370", Price: 2000000, LivingArea: 180, PricePerArea: 11111, LotSize: 500,
			BasementSize: 40, BuildYear: 2005, EnergyLabel: "h", Latitude: 56.35, Longitude: 10.1, DaysOnMarket: 90},
		{ID: 3, PostalCode: "8370", Price: 3100000, LivingArea: 120, PricePerArea: 25833, LotSize: 1500,
			BasementSize: 20, BuildYear: 1990, EnergyLabel: "", DaysOnMarket: 5},
		{ID: 4, PostalCode: "8000", Price: 4000000, LivingArea: 110, PricePerArea: 36364, LotSize: 0,
			BuildYear: 1930, EnergyLabel: "D", Latitude: 56.1496, Longitude: 10.2045, DaysOnMarket: 200},
	}
}

func newTestEngine(t *testing.T, metrics *Metrics) *Engine {
	t.Helper()
	e, err := NewEngine(EngineOptions{Logger: utils.Discard(), Metrics: metrics})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineComponents(t *testing.T) {
	e := newTestEngine(t, nil)
	table := e.Components(sampleEngineListings())

	if len(table) != 4 {
		t.Fatalf("rows = %d; want 4", len(table))
	}
	for _, row := range table {
		if len(row.Scores) != len(models.Components) {
			t.Errorf("listing %d has %d scores; want %d", row.ID, len(row.Scores), len(models.Components))
		}
		for c, s := range row.Scores {
			if s < 0 || s > 10 {
				t.Errorf("listing %d %s = %.2f out of [0,10]", row.ID, c, s)
			}
		}
	}

	if table[0].EnergyLabel != "C" || table[1].EnergyLabel != "A" || table[2].EnergyLabel != EnergyUnknown {
		t.Errorf("canonical labels = %q %q %q", table[0].EnergyLabel, table[1].EnergyLabel, table[2].EnergyLabel)
	}
	if got := table[1].Scores[models.ComponentEnergy]; got != 10 {
		t.Errorf("aliased label energy score = %.1f; want 10", got)
	}
	if got := table[2].Scores[models.ComponentTransitDistance]; got != 0 {
		t.Errorf("no-coordinate transit score = %.2f; want 0", got)
	}
	if got := table[3].Scores[models.ComponentTransitDistance]; got != 10 {
		t.Errorf("transit score at Aarhus H = %.2f; want 10", got)
	}
	// Lone member of postal code 8000.
	if got := table[3].Scores[models.ComponentDaysOnMarket]; got != 10 {
		t.Errorf("single cohort days score = %.2f; want 10", got)
	}
	if got := table[2].Scores[models.ComponentLotSize]; got != 10 {
		t.Errorf("largest lot in cohort = %.2f; want 10", got)
	}
}

func TestEngineScore(t *testing.T) {
	metrics := NewMetrics()
	e := newTestEngine(t, metrics)
	listings := sampleEngineListings()
	w, _ := e.ProfileWeights("Family")

	table := e.Score(context.Background(), listings, w, "gen-1")
	if len(table) != len(listings) {
		t.Fatalf("rows = %d; want %d", len(table), len(listings))
	}
	for i, row := range table {
		if row.ID != listings[i].ID {
			t.Errorf("row %d id = %d; want %d (input order)", i, row.ID, listings[i].ID)
		}
		if row.Aggregate < 0 || row.Aggregate > 100 {
			t.Errorf("listing %d aggregate %.1f out of [0,100]", row.ID, row.Aggregate)
		}
		var want float64
		for c, s := range row.Scores {
			want += s * w[c] / 100
		}
		if diff := row.Aggregate - want*10; diff > 0.051 || diff < -0.051 {
			t.Errorf("listing %d aggregate %.1f; want ~%.2f", row.ID, row.Aggregate, want*10)
		}
	}

	again := e.Score(context.Background(), listings, w, "gen-1")
	for i := range table {
		if again[i].Aggregate != table[i].Aggregate {
			t.Errorf("listing %d: second pass %.1f != first %.1f", table[i].ID, again[i].Aggregate, table[i].Aggregate)
		}
	}
	if n := testutil.ToFloat64(metrics.passes); n != 2 {
		t.Errorf("passes = %.0f; want 2", n)
	}
	if n := testutil.ToFloat64(metrics.cacheHits); n != 1 {
		t.Errorf("cache hits = %.0f; want 1", n)
	}
}

func TestEngineScoreDoesNotMutateInput(t *testing.T) {
	e := newTestEngine(t, nil)
	listings := sampleEngineListings()
	e.Score(context.Background(), listings, DefaultWeights(), "")
	if listings[0].EnergyLabel != "c" {
		t.Errorf("input energy label mutated to %q", listings[0].EnergyLabel)
	}
}

func TestEngineTopScorers(t *testing.T) {
	e := newTestEngine(t, nil)
	w := DefaultWeights()
	table := e.Score(context.Background(), sampleEngineListings(), w, "gen-1")

	winners := e.TopScorers(context.Background(), table, w, "gen-1")
	byID := make(map[models.CategoryID]models.TopScorer)
	for _, ws := range winners {
		byID[ws.Category] = ws
	}

	if got := byID[CategoryCheapestPerArea].Listing.ID; got != 2 {
		t.Errorf("cheapest per area id = %d; want 2", got)
	}
	if got := byID[CategoryBestEnergy].Listing.ID; got != 2 {
		t.Errorf("best energy id = %d; want 2", got)
	}
	if got := byID[CategoryFastestSale].Listing.ID; got != 3 {
		t.Errorf("fastest sale id = %d; want 3", got)
	}
	if got := byID[CategoryClosestTransit].Listing.ID; got != 4 {
		t.Errorf("closest transit id = %d; want 4", got)
	}
}

func TestEngineRejectsInvalidExtraProfile(t *testing.T) {
	_, err := NewEngine(EngineOptions{
		Logger:   utils.Discard(),
		Profiles: []Profile{{Name: "half", Weights: onlyEnergy(50)}},
	})
	if err == nil {
		t.Error("NewEngine accepted an invalid profile")
	}
}

func TestEnginesAreIsolated(t *testing.T) {
	a := newTestEngine(t, nil)
	b := newTestEngine(t, nil)
	w := DefaultWeights()

	a.Score(context.Background(), sampleEngineListings(), w, "shared")
	if a.aggregator.cache.Len() != 1 || b.aggregator.cache.Len() != 0 {
		t.Errorf("cache sizes a=%d b=%d; want 1 and 0", a.aggregator.cache.Len(), b.aggregator.cache.Len())
	}

	a.ClearCache()
	if a.aggregator.cache.Len() != 0 {
		t.Errorf("cache size after ClearCache = %d; want 0", a.aggregator.cache.Len())
	}
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("second Register should fail with duplicate collectors")
	}
}
