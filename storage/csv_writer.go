package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"boligscore/models"
)

// CSVWriter writes scored listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	header := []string{"generation", "id", "address", "postal_code", "price", "price_per_area", "energy_label"}
	for _, c := range models.Components {
		header = append(header, "score_"+string(c))
	}
	header = append(header, "aggregate")

	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteScored appends one row per listing. A component missing from a row
// is written as an empty cell.
func (c *CSVWriter) WriteScored(_ context.Context, generation string, table []models.ScoredListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range table {
		row := []string{
			generation,
			strconv.FormatInt(l.ID, 10),
			l.FullAddress(),
			l.PostalCode,
			formatFloat(l.Price),
			formatFloat(l.PricePerArea),
			l.EnergyLabel,
		}
		for _, comp := range models.Components {
			if s, ok := l.Scores[comp]; ok {
				row = append(row, formatFloat(s))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, formatFloat(l.Aggregate))

		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
