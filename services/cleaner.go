package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"boligscore/models"
	"boligscore/utils"
)

var (
	// numberRegexp captures the first signed number, with any separators
	numberRegexp = regexp.MustCompile(`-?\d[\d.,]*`)
	// thousandsDotRegexp matches Danish grouping such as 3.495.000
	thousandsDotRegexp = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+$`)
	// thousandsCommaRegexp matches English grouping such as 3,495,000
	thousandsCommaRegexp = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+$`)
)

// DefaultPostalCities maps the covered postal codes to their city names.
var DefaultPostalCities = map[string]string{
	"8000": "Århus C", "8200": "Århus N", "8210": "Århus V", "8220": "Brabrand",
	"8230": "Åbyhøj", "8240": "Risskov", "8250": "Egå", "8260": "Viby J",
	"8270": "Højbjerg", "8300": "Odder", "8310": "Tranbjerg J", "8320": "Mårslet",
	"8330": "Beder", "8340": "Malling", "8350": "Hundslund", "8355": "Solbjerg",
	"8361": "Hasselager", "8362": "Hørning", "8370": "Hadsten", "8380": "Trige",
	"8381": "Tilst", "8382": "Hinnerup", "8400": "Ebeltoft", "8410": "Rønde",
	"8420": "Knebel", "8444": "Balle", "8450": "Hammel", "8462": "Harlev J",
	"8464": "Galten", "8471": "Sabro", "8520": "Lystrup", "8530": "Hjortshøj",
	"8541": "Skødstrup", "8543": "Hornslet", "8550": "Ryomgård", "8600": "Silkeborg",
	"8660": "Skanderborg", "8680": "Ry", "8850": "Bjerringbro", "8870": "Langå",
	"8900": "Randers",
}

// Cleaner transforms RawListings into clean, typed Listings.
type Cleaner struct {
	logger       *utils.Logger
	postalCities map[string]string
}

// NewCleaner creates a Cleaner using DefaultPostalCities.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger, postalCities: DefaultPostalCities}
}

// Clean converts raw rows. Rows without a valid identifier are dropped, as
// are repeated identifiers (first one wins). Malformed numeric fields degrade
// to 0 rather than dropping the row.
func (c *Cleaner) Clean(raw []*models.RawListing) []models.Listing {
	seen := make(map[int64]struct{})
	result := make([]models.Listing, 0, len(raw))

	for _, r := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
		if err != nil || id <= 0 {
			c.logger.Warn("[cleaner] Dropping listing with invalid id %q: %s %s", r.ID, r.Street, r.HouseNumber)
			continue
		}
		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate id skipped: %d", id)
			continue
		}
		seen[id] = struct{}{}

		l := models.Listing{
			ID:                 id,
			Street:             normaliseText(r.Street),
			HouseNumber:        normaliseText(r.HouseNumber),
			City:               normaliseText(r.City),
			PostalCode:         strings.TrimSpace(r.PostalCode),
			Price:              c.nonNegative(id, "price", parseAmount(r.Price)),
			LivingArea:         c.nonNegative(id, "living area", parseAmount(r.LivingArea)),
			LotSize:            c.nonNegative(id, "lot size", parseAmount(r.LotSize)),
			BasementSize:       c.nonNegative(id, "basement size", parseAmount(r.BasementSize)),
			Rooms:              c.nonNegative(id, "rooms", parseDecimal(r.Rooms)),
			BuildYear:          int(parseAmount(r.BuildYear)),
			EnergyLabel:        strings.TrimSpace(r.EnergyLabel),
			Latitude:           parseDecimal(r.Latitude),
			Longitude:          parseDecimal(r.Longitude),
			DaysOnMarket:       int(c.nonNegative(id, "days on market", parseAmount(r.DaysOnMarket))),
			PricePerArea:       c.nonNegative(id, "price per area", parseAmount(r.PricePerArea)),
			PriceChangePercent: parseDecimal(r.PriceChangePercent),
			Foreclosure:        parseBool(r.Foreclosure),
		}
		if l.PricePerArea == 0 && l.LivingArea > 0 {
			l.PricePerArea = round2(l.Price / l.LivingArea)
		}
		l.InPostalCity = c.inPostalCity(l.PostalCode, l.City)

		result = append(result, l)
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		len(raw), len(result), len(raw)-len(result))
	return result
}

func (c *Cleaner) nonNegative(id int64, field string, v float64) float64 {
	if v < 0 {
		c.logger.Warn("[cleaner] Listing %d has negative %s %.2f, using 0", id, field, v)
		return 0
	}
	return v
}

func (c *Cleaner) inPostalCity(postal, city string) bool {
	want, ok := c.postalCities[postal]
	return ok && strings.EqualFold(want, city)
}

// parseAmount reads a number that may use either "." or "," as a thousands
// separator, e.g. "3.495.000 kr", "1,200.50" or "152 m²".
func parseAmount(raw string) float64 {
	match := numberRegexp.FindString(strings.ReplaceAll(raw, " ", ""))
	if match == "" {
		return 0
	}

	switch {
	case thousandsDotRegexp.MatchString(match):
		match = strings.ReplaceAll(match, ".", "")
	case thousandsCommaRegexp.MatchString(match):
		match = strings.ReplaceAll(match, ",", "")
	case strings.Contains(match, ".") && strings.Contains(match, ","):
		// The separator that comes last is the decimal mark.
		if strings.LastIndex(match, ",") > strings.LastIndex(match, ".") {
			match = strings.ReplaceAll(match, ".", "")
			match = strings.ReplaceAll(match, ",", ".")
		} else {
			match = strings.ReplaceAll(match, ",", "")
		}
	default:
		match = strings.ReplaceAll(match, ",", ".")
	}

	v, err := strconv.ParseFloat(strings.TrimRight(match, "."), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDecimal reads a plain decimal number where "," may be the decimal mark.
func parseDecimal(raw string) float64 {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "ja", "y":
		return true
	}
	return false
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

func round2(f float64) float64 {
	return roundTo(f, 2)
}
