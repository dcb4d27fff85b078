package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"boligscore/models"
	"boligscore/utils"
)

// DefaultTopN is the number of listings shown in the top-scored section.
const DefaultTopN = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a scored table. The table is not modified.
func (s *InsightService) Generate(table []models.ScoredListing, topScorers []models.TopScorer, profile string, topN int) *models.InsightReport {
	report := &models.InsightReport{
		Profile:              profile,
		ListingsByPostalCode: make(map[string]int),
		TopScorers:           topScorers,
	}

	if len(table) == 0 {
		return report
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	report.TotalListings = len(table)

	var (
		priced         int
		totalPrice     float64
		totalAggregate float64
	)
	for _, l := range table {
		totalAggregate += l.Aggregate
		if l.PostalCode != "" {
			report.ListingsByPostalCode[l.PostalCode]++
		}
		if l.Price <= 0 {
			continue
		}
		if priced == 0 || l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if l.Price > report.MaxPrice {
			report.MaxPrice = l.Price
		}
		totalPrice += l.Price
		priced++
	}

	if priced > 0 {
		report.AveragePrice = round2(totalPrice / float64(priced))
	}
	report.AverageAggregate = roundTo(totalAggregate/float64(len(table)), 1)

	ranked := make([]models.ScoredListing, len(table))
	copy(ranked, table)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Aggregate > ranked[j].Aggregate
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	report.TopScored = ranked

	s.logger.Debug("[insights] Report for %d listings, profile %q", report.TotalListings, profile)
	return report
}

// Print renders the report to w.
func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 LISTING SCORE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings scored   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Weight profile    : \033[1m%s\033[0m\n", r.Profile)
	fmt.Fprintf(w, "  Average aggregate : \033[1m%.1f/100\033[0m\n", r.AverageAggregate)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s kr\033[0m\n", formatAmount(r.AveragePrice))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s kr\033[0m\n", formatAmount(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s kr\033[0m\n", formatAmount(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Top %d Scored Listings\033[0m\n", len(r.TopScored))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopScored) == 0 {
		fmt.Fprintf(w, "  No scored listings\n")
	} else {
		for i, l := range r.TopScored {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%5.1f\033[0m\n",
				i+1, truncate(l.FullAddress(), 38), l.Aggregate)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Topscorers\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopScorers) == 0 {
		fmt.Fprintf(w, "  No topscorers\n")
	}
	for _, ts := range r.TopScorers {
		fmt.Fprintf(w, "  %s %-20s %-30s \033[1m%s\033[0m\n",
			ts.Icon, ts.Name, truncate(ts.Listing.FullAddress(), 28), ts.WinningValue)
	}
	fmt.Fprintln(w)

	// Listings by postal code
	fmt.Fprintf(w, "\033[1;33m  Listings by Postal Code\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByPostalCode) == 0 {
		fmt.Fprintf(w, "  No postal code data\n")
	} else {
		type postalCount struct {
			code  string
			count int
		}
		var codes []postalCount
		for code, cnt := range r.ListingsByPostalCode {
			codes = append(codes, postalCount{code, cnt})
		}
		sort.Slice(codes, func(i, j int) bool {
			if codes[i].count != codes[j].count {
				return codes[i].count > codes[j].count
			}
			return codes[i].code < codes[j].code
		})
		for _, pc := range codes {
			bar := strings.Repeat("█", pc.count)
			fmt.Fprintf(w, "  %-6s %s (%s)\n", pc.code, bar, humanize.Comma(int64(pc.count)))
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
