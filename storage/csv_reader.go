package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"boligscore/models"
)

// columnSetters maps every accepted header name to the RawListing field it
// fills. Several export formats name the same column differently.
var columnSetters = map[string]func(r *models.RawListing, v string){
	"id":                   func(r *models.RawListing, v string) { r.ID = v },
	"ouid":                 func(r *models.RawListing, v string) { r.ID = v },
	"street":               func(r *models.RawListing, v string) { r.Street = v },
	"address_text":         func(r *models.RawListing, v string) { r.Street = v },
	"house_number":         func(r *models.RawListing, v string) { r.HouseNumber = v },
	"city":                 func(r *models.RawListing, v string) { r.City = v },
	"postal_code":          func(r *models.RawListing, v string) { r.PostalCode = v },
	"zip_code":             func(r *models.RawListing, v string) { r.PostalCode = v },
	"price":                func(r *models.RawListing, v string) { r.Price = v },
	"living_area":          func(r *models.RawListing, v string) { r.LivingArea = v },
	"m2":                   func(r *models.RawListing, v string) { r.LivingArea = v },
	"lot_size":             func(r *models.RawListing, v string) { r.LotSize = v },
	"basement_size":        func(r *models.RawListing, v string) { r.BasementSize = v },
	"rooms":                func(r *models.RawListing, v string) { r.Rooms = v },
	"build_year":           func(r *models.RawListing, v string) { r.BuildYear = v },
	"built":                func(r *models.RawListing, v string) { r.BuildYear = v },
	"energy_label":         func(r *models.RawListing, v string) { r.EnergyLabel = v },
	"energy_class":         func(r *models.RawListing, v string) { r.EnergyLabel = v },
	"latitude":             func(r *models.RawListing, v string) { r.Latitude = v },
	"longitude":            func(r *models.RawListing, v string) { r.Longitude = v },
	"days_on_market":       func(r *models.RawListing, v string) { r.DaysOnMarket = v },
	"price_per_area":       func(r *models.RawListing, v string) { r.PricePerArea = v },
	"m2_price":             func(r *models.RawListing, v string) { r.PricePerArea = v },
	"price_per_m2":         func(r *models.RawListing, v string) { r.PricePerArea = v },
	"price_change_percent": func(r *models.RawListing, v string) { r.PriceChangePercent = v },
	"foreclosure":          func(r *models.RawListing, v string) { r.Foreclosure = v },
	"is_foreclosure":       func(r *models.RawListing, v string) { r.Foreclosure = v },
}

var idColumns = map[string]struct{}{"id": {}, "ouid": {}}

// CSVReader reads raw listings from a CSV export with a header row.
// Unknown columns are ignored; missing columns leave fields empty.
type CSVReader struct {
	path string
}

func NewCSVReader(path string) *CSVReader {
	return &CSVReader{path: path}
}

// ReadRaw opens the file and parses every data row.
func (c *CSVReader) ReadRaw() ([]*models.RawListing, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()

	return ParseRaw(f)
}

// ParseRaw parses CSV content from r. A header without an id column is an
// error, since rows could not be told apart.
func ParseRaw(r io.Reader) ([]*models.RawListing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	setters := make([]func(*models.RawListing, string), len(header))
	hasID := false
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		setters[i] = columnSetters[key]
		if _, ok := idColumns[key]; ok {
			hasID = true
		}
	}
	if !hasID {
		return nil, fmt.Errorf("csv: header has no id column")
	}

	var listings []*models.RawListing
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: read line %d: %w", line, err)
		}

		raw := &models.RawListing{}
		for i, v := range record {
			if i < len(setters) && setters[i] != nil {
				setters[i](raw, v)
			}
		}
		listings = append(listings, raw)
	}
	return listings, nil
}
