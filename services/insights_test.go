package services

import (
	"bytes"
	"strings"
	"testing"

	"boligscore/models"
)

func sampleScoredTable() []models.ScoredListing {
	return []models.ScoredListing{
		{Listing: models.Listing{ID: 1, Street: "Vestergade", HouseNumber: "3", City: "Hadsten", PostalCode: "8370", Price: 2000000}, Aggregate: 60},
		{Listing: models.Listing{ID: 2, Street: "Nørregade", HouseNumber: "8", City: "Hadsten", PostalCode: "8370", Price: 3000000}, Aggregate: 75},
		{Listing: models.Listing{ID: 3, Street: "Banegårdsgade", HouseNumber: "1", City: "Århus C", PostalCode: "8000", Price: 5500000}, Aggregate: 40.0},
		{Listing: models.Listing{ID: 4, Street: "Skovvej", HouseNumber: "22", City: "Hinnerup", PostalCode: "8382", Price: 0}, Aggregate: 55.0},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleScoredTable(), nil, "Family", 3)
	if r.TotalListings != 4 {
		t.Errorf("TotalListings: got %d, want 4", r.TotalListings)
	}
	if r.Profile != "Family" {
		t.Errorf("Profile: got %q, want Family", r.Profile)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleScoredTable(), nil, ProfileStandard, 3)
	if r.AveragePrice != 3500000 {
		t.Errorf("AveragePrice: got %.2f, want 3500000", r.AveragePrice)
	}
	if r.MinPrice != 2000000 {
		t.Errorf("MinPrice: got %.2f, want 2000000", r.MinPrice)
	}
	if r.MaxPrice != 5500000 {
		t.Errorf("MaxPrice: got %.2f, want 5500000", r.MaxPrice)
	}
	if r.AverageAggregate != 57.5 {
		t.Errorf("AverageAggregate: got %.2f, want 57.5", r.AverageAggregate)
	}
}

func TestInsightTopScored(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	table := sampleScoredTable()
	r := svc.Generate(table, nil, ProfileStandard, 3)
	if len(r.TopScored) != 3 {
		t.Fatalf("TopScored len: got %d, want 3", len(r.TopScored))
	}
	wantIDs := []int64{2, 1, 4}
	for i, id := range wantIDs {
		if r.TopScored[i].ID != id {
			t.Errorf("TopScored[%d]: got id %d, want %d", i, r.TopScored[i].ID, id)
		}
	}
	if table[0].ID != 1 {
		t.Error("Generate reordered the input table")
	}
}

func TestInsightDefaultTopN(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleScoredTable(), nil, ProfileStandard, 0)
	if len(r.TopScored) != 4 {
		t.Errorf("TopScored len with default N: got %d, want 4", len(r.TopScored))
	}
}

func TestInsightPostalGrouping(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleScoredTable(), nil, ProfileStandard, 3)
	if r.ListingsByPostalCode["8370"] != 2 {
		t.Errorf("8370 count: got %d, want 2", r.ListingsByPostalCode["8370"])
	}
	if r.ListingsByPostalCode["8000"] != 1 {
		t.Errorf("8000 count: got %d, want 1", r.ListingsByPostalCode["8000"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil, nil, ProfileStandard, 3)
	if r.TotalListings != 0 || len(r.TopScored) != 0 {
		t.Errorf("expected empty report for empty input, got %+v", r)
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	table := sampleScoredTable()
	winners := NewTopScorerSelector(newTestLogger(), nil).Select(table, "")
	r := svc.Generate(table, NewTopScorerSelector(newTestLogger(), nil).Ordered(winners), "Family", 2)

	var buf bytes.Buffer
	svc.Print(&buf, r)
	out := buf.String()

	for _, want := range []string{"Family", "3,500,000 kr", "Nørregade 8 Hadsten", "Best overall", "8370"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q", want)
		}
	}
}
