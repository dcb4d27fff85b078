package services

import "boligscore/models"

// ExcludeListings returns the rows whose id is not in ids, keeping order.
// Scores are left untouched, so cohort ranks still reflect the full table.
func ExcludeListings(table []models.ScoredListing, ids map[int64]struct{}) []models.ScoredListing {
	if len(ids) == 0 {
		return table
	}
	out := make([]models.ScoredListing, 0, len(table))
	for _, row := range table {
		if _, skip := ids[row.ID]; skip {
			continue
		}
		out = append(out, row)
	}
	return out
}
