package storage

import (
	"context"

	"boligscore/models"
)

// RawListingSource yields unprocessed listing rows.
type RawListingSource interface {
	ReadRaw() ([]*models.RawListing, error)
}

// ListingStore persists cleaned listings.
type ListingStore interface {
	WriteListings(ctx context.Context, listings []models.Listing) error
	FetchListings(ctx context.Context) ([]models.Listing, error)
	Close() error
}

// ScoredListingWriter is the interface any scored-table sink must satisfy.
// generation identifies the dataset snapshot the table was computed from.
type ScoredListingWriter interface {
	WriteScored(ctx context.Context, generation string, table []models.ScoredListing) error
	Close() error
}

// ScoredListingSource reads back a scored table stored under a generation.
type ScoredListingSource interface {
	FetchScored(ctx context.Context, generation string) ([]models.ScoredListing, error)
}

// SeenListingStore tracks listings the user has already looked at.
type SeenListingStore interface {
	MarkSeen(ctx context.Context, ids ...int64) error
	SeenIDs(ctx context.Context) (map[int64]struct{}, error)
}
