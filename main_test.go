package main

import (
	"context"
	"path/filepath"
	"testing"

	"boligscore/models"
	"boligscore/storage"
	"boligscore/utils"
)

func newTestStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	retry := utils.RetryConfig{MaxAttempts: 1, Logger: utils.Discard()}
	s, err := storage.NewSQLStore(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "listings.db"), retry)
	if err != nil {
		t.Fatalf("NewSQLStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func storedTable(t *testing.T, s *storage.SQLStore, generation string) []models.ScoredListing {
	t.Helper()
	table := []models.ScoredListing{
		{Listing: models.Listing{ID: 10, City: "Aarhus", Price: 2500000}, Scores: models.ComponentScores{models.ComponentEnergy: 8}, Aggregate: 80},
		{Listing: models.Listing{ID: 20, City: "Hadsten", Price: 1800000}, Scores: models.ComponentScores{models.ComponentEnergy: 6}, Aggregate: 60},
		{Listing: models.Listing{ID: 30, City: "Lystrup", Price: 3100000}, Scores: models.ComponentScores{models.ComponentEnergy: 4}, Aggregate: 40},
	}
	var listings []models.Listing
	for _, row := range table {
		listings = append(listings, row.Listing)
	}
	ctx := context.Background()
	if err := s.WriteListings(ctx, listings); err != nil {
		t.Fatalf("WriteListings: %v", err)
	}
	if err := s.WriteScored(ctx, generation, table); err != nil {
		t.Fatalf("WriteScored: %v", err)
	}
	return table
}

func TestLoadScoredReplaysGeneration(t *testing.T) {
	s := newTestStore(t)
	want := storedTable(t, s, "gen-a")

	got, err := loadScored(context.Background(), s, "gen-a")
	if err != nil {
		t.Fatalf("loadScored: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("rows = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Aggregate != want[i].Aggregate {
			t.Errorf("row %d = id %d agg %v; want id %d agg %v",
				i, got[i].ID, got[i].Aggregate, want[i].ID, want[i].Aggregate)
		}
	}
}

func TestLoadScoredUnknownGeneration(t *testing.T) {
	s := newTestStore(t)
	storedTable(t, s, "gen-a")

	if _, err := loadScored(context.Background(), s, "gen-missing"); err == nil {
		t.Error("expected error for a generation that was never stored")
	}
}

func TestHideSeen(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	table := storedTable(t, s, "gen-a")

	if err := s.MarkSeen(ctx, 30); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	tests := []struct {
		name     string
		markSeen []int64
		showSeen bool
		wantIDs  []int64
	}{
		{"stored seen hidden", nil, false, []int64{10, 20}},
		{"newly marked hidden", []int64{10}, false, []int64{20}},
		{"show seen keeps all", nil, true, []int64{10, 20, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hideSeen(ctx, s, table, tt.markSeen, tt.showSeen, utils.Discard())
			if err != nil {
				t.Fatalf("hideSeen: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("visible = %d rows; want %v", len(got), tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("row %d id = %d; want %d", i, got[i].ID, id)
				}
			}
		})
	}
}
