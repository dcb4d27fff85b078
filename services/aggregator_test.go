package services

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"boligscore/models"
	"boligscore/utils"
)

func uniformRows(n int, score float64) []models.ComponentScores {
	rows := make([]models.ComponentScores, n)
	for i := range rows {
		rows[i] = make(models.ComponentScores, len(models.Components))
		for _, c := range models.Components {
			rows[i][c] = score
		}
	}
	return rows
}

func onlyEnergy(energy float64) models.Weights {
	w := make(models.Weights, len(models.Components))
	for _, c := range models.Components {
		w[c] = 0
	}
	w[models.ComponentEnergy] = energy
	return w
}

func TestValidateWeights(t *testing.T) {
	missing := DefaultWeights()
	delete(missing, models.ComponentBasementSize)

	negative := DefaultWeights()
	negative[models.ComponentEnergy] = -12.5
	negative[models.ComponentLotSize] = 37.5

	unknown := DefaultWeights()
	unknown["view"] = 0

	nearly := DefaultWeights()
	nearly[models.ComponentEnergy] += 0.05

	tests := []struct {
		name string
		w    models.Weights
		want error
	}{
		{"default", DefaultWeights(), nil},
		{"within tolerance", nearly, nil},
		{"missing key", missing, ErrMissingComponents},
		{"negative", negative, ErrNegativeWeight},
		{"unknown key", unknown, ErrUnknownComponent},
		{"wrong total", onlyEnergy(50), ErrWeightTotal},
	}

	for _, tt := range tests {
		err := ValidateWeights(tt.w)
		if tt.want == nil && err != nil {
			t.Errorf("%s: ValidateWeights = %v; want nil", tt.name, err)
		}
		if tt.want != nil && !errors.Is(err, tt.want) {
			t.Errorf("%s: ValidateWeights = %v; want %v", tt.name, err, tt.want)
		}
	}
}

func TestPresetProfilesAreValid(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	names := agg.ProfileNames()
	if len(names) != 6 {
		t.Fatalf("ProfileNames: got %d profiles, want 6", len(names))
	}
	if names[0] != ProfileStandard {
		t.Errorf("first profile = %q; want %q", names[0], ProfileStandard)
	}
	for _, name := range names {
		w, ok := agg.ProfileWeights(name)
		if !ok {
			t.Errorf("ProfileWeights(%q) not found", name)
		}
		if err := ValidateWeights(w); err != nil {
			t.Errorf("profile %q invalid: %v", name, err)
		}
	}
}

func TestProfileWeightsUnknownFallsBack(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	w, ok := agg.ProfileWeights("nope")
	if ok {
		t.Error("ProfileWeights(nope) reported found")
	}
	if w[models.ComponentEnergy] != 12.5 {
		t.Errorf("fallback energy weight = %.2f; want 12.5", w[models.ComponentEnergy])
	}
}

func TestProfileWeightsReturnsCopy(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	w, _ := agg.ProfileWeights("Family")
	w[models.ComponentEnergy] = 99

	again, _ := agg.ProfileWeights("Family")
	if again[models.ComponentEnergy] != 15 {
		t.Errorf("preset mutated through returned map: energy = %.1f", again[models.ComponentEnergy])
	}
}

func TestAddProfile(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)

	if err := agg.AddProfile(Profile{Name: "Broken", Weights: onlyEnergy(50)}); !errors.Is(err, ErrWeightTotal) {
		t.Errorf("AddProfile(invalid) = %v; want ErrWeightTotal", err)
	}
	if err := agg.AddProfile(Profile{Name: "Energy only", Weights: onlyEnergy(100)}); err != nil {
		t.Fatalf("AddProfile: %v", err)
	}
	if err := agg.AddProfile(Profile{Name: "Family", Weights: onlyEnergy(100)}); err != nil {
		t.Fatalf("AddProfile(replace): %v", err)
	}

	names := agg.ProfileNames()
	if len(names) != 7 || names[6] != "Energy only" {
		t.Errorf("ProfileNames = %v; want 7 with Energy only last", names)
	}
	fam, _ := agg.ProfileWeights("Family")
	if fam[models.ComponentEnergy] != 100 {
		t.Errorf("replaced Family energy = %.1f; want 100", fam[models.ComponentEnergy])
	}
}

func TestNormalizeWeights(t *testing.T) {
	got := NormalizeWeights(onlyEnergy(50))
	if got[models.ComponentEnergy] != 100 {
		t.Errorf("energy = %.2f; want 100", got[models.ComponentEnergy])
	}
	for _, c := range models.Components[1:] {
		if got[c] != 0 {
			t.Errorf("%s = %.2f; want 0", c, got[c])
		}
	}

	w := models.Weights{
		models.ComponentEnergy:    30,
		models.ComponentLotSize:   10,
		models.ComponentHouseSize: 20,
	}
	got = NormalizeWeights(w)
	if math.Abs(got.Sum()-100) > 1e-9 {
		t.Errorf("normalized sum = %.12f; want 100", got.Sum())
	}
	if r := got[models.ComponentEnergy] / got[models.ComponentLotSize]; math.Abs(r-3) > 1e-9 {
		t.Errorf("energy/lot ratio = %.6f; want 3", r)
	}
	if len(got) != len(models.Components) {
		t.Errorf("normalized vector has %d keys; want %d", len(got), len(models.Components))
	}
}

func TestNormalizeWeightsZeroTotal(t *testing.T) {
	got := NormalizeWeights(onlyEnergy(0))
	for _, c := range models.Components {
		if got[c] != 12.5 {
			t.Errorf("%s = %.2f; want 12.5", c, got[c])
		}
	}
}

func TestAggregateUniformFives(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	rows := uniformRows(4, 5)
	for _, name := range agg.ProfileNames() {
		w, _ := agg.ProfileWeights(name)
		for i, got := range agg.Aggregate(rows, w, name) {
			if got != 50 {
				t.Errorf("%s row %d aggregate = %.1f; want 50", name, i, got)
			}
		}
	}
}

func TestAggregateFormula(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	row := models.ComponentScores{
		models.ComponentEnergy:          10,
		models.ComponentTransitDistance: 8,
		models.ComponentLotSize:         6,
		models.ComponentHouseSize:       4,
		models.ComponentPriceEfficiency: 2,
		models.ComponentBuildYear:       0,
		models.ComponentBasementSize:    3.33,
		models.ComponentDaysOnMarket:    6.67,
	}
	w, _ := agg.ProfileWeights("Family")

	var want float64
	for c, s := range row {
		want += s * w[c] / 100
	}
	want = math.Round(want*10*10) / 10

	got := agg.Aggregate([]models.ComponentScores{row}, w, "formula")
	if got[0] != want {
		t.Errorf("aggregate = %.1f; want %.1f", got[0], want)
	}
}

func TestAggregateRenormalizesInvalidWeights(t *testing.T) {
	metrics := NewMetrics()
	agg := NewAggregator(utils.Discard(), metrics, nil)
	row := models.ComponentScores{}
	for _, c := range models.Components {
		row[c] = 0
	}
	row[models.ComponentEnergy] = 8

	got := agg.Aggregate([]models.ComponentScores{row}, onlyEnergy(50), "g1")
	// Normalized to energy:100, so 8 * 100/100 * 10 = 80.
	if got[0] != 80 {
		t.Errorf("aggregate = %.1f; want 80", got[0])
	}
	if n := testutil.ToFloat64(metrics.renormalizations); n != 1 {
		t.Errorf("renormalizations = %.0f; want 1", n)
	}
}

func TestAggregateMissingColumnIsZero(t *testing.T) {
	metrics := NewMetrics()
	agg := NewAggregator(utils.Discard(), metrics, nil)
	rows := uniformRows(2, 10)
	for _, r := range rows {
		delete(r, models.ComponentBasementSize)
	}

	got := agg.Aggregate(rows, DefaultWeights(), "g1")
	// 7 of 8 columns at 10 with 12.5% each gives 87.5.
	for i, s := range got {
		if s != 87.5 {
			t.Errorf("row %d aggregate = %.1f; want 87.5", i, s)
		}
	}
	if n := testutil.ToFloat64(metrics.missingColumns); n != 1 {
		t.Errorf("missing columns = %.0f; want 1", n)
	}
}

func TestAggregateCacheHitMatchesMiss(t *testing.T) {
	metrics := NewMetrics()
	agg := NewAggregator(utils.Discard(), metrics, nil)
	rows := []models.ComponentScores{uniformRows(1, 3)[0], uniformRows(1, 7.77)[0]}
	w, _ := agg.ProfileWeights("Investment")

	first := agg.Aggregate(rows, w, "g1")
	second := agg.Aggregate(rows, w, "g1")

	for i := range first {
		if math.Float64bits(first[i]) != math.Float64bits(second[i]) {
			t.Errorf("row %d: miss %v, hit %v", i, first[i], second[i])
		}
	}
	if hits := testutil.ToFloat64(metrics.cacheHits); hits != 1 {
		t.Errorf("cache hits = %.0f; want 1", hits)
	}

	// Mutating the returned slice must not leak into the cache.
	second[0] = -1
	third := agg.Aggregate(rows, w, "g1")
	if third[0] != first[0] {
		t.Errorf("cached value mutated: got %v, want %v", third[0], first[0])
	}
}

func TestAggregateGenerationAndClearCache(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	w := DefaultWeights()

	before := agg.Aggregate(uniformRows(2, 5), w, "g1")
	// Same shape, new content: a stale hit unless the token changes.
	stale := agg.Aggregate(uniformRows(2, 9), w, "g1")
	if stale[0] != before[0] {
		t.Fatalf("expected stale cache hit for same signature, got %v", stale[0])
	}

	fresh := agg.Aggregate(uniformRows(2, 9), w, "g2")
	if fresh[0] != 90 {
		t.Errorf("new generation aggregate = %.1f; want 90", fresh[0])
	}

	agg.ClearCache()
	cleared := agg.Aggregate(uniformRows(2, 1), w, "g1")
	if cleared[0] != 10 {
		t.Errorf("after ClearCache aggregate = %.1f; want 10", cleared[0])
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	agg := NewAggregator(utils.Discard(), nil, nil)
	if got := agg.Aggregate(nil, DefaultWeights(), ""); len(got) != 0 {
		t.Errorf("Aggregate(nil) = %v; want empty", got)
	}
}

func TestScoreCacheEvictsOldest(t *testing.T) {
	c := NewScoreCache(2)
	c.Put("a", []float64{1})
	c.Put("b", []float64{2})
	c.Put("c", []float64{3})

	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry a should have been evicted")
	}
	if v, ok := c.Get("c"); !ok || v[0] != 3 {
		t.Errorf("Get(c) = %v, %v; want [3], true", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d; want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d; want 0", c.Len())
	}
}

func TestScoreCacheDefaultCapacity(t *testing.T) {
	c := NewScoreCache(0)
	for i := 0; i < DefaultCacheSize+5; i++ {
		c.Put(string(rune('a'+i)), []float64{float64(i)})
	}
	if c.Len() != DefaultCacheSize {
		t.Errorf("Len = %d; want %d", c.Len(), DefaultCacheSize)
	}
}
