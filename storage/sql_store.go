package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"boligscore/models"
	"boligscore/utils"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const batchSize = 50

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// The column types are understood by both PostgreSQL and SQLite.
const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id                   BIGINT PRIMARY KEY,
	street               TEXT             NOT NULL DEFAULT '',
	house_number         TEXT             NOT NULL DEFAULT '',
	city                 TEXT             NOT NULL DEFAULT '',
	postal_code          TEXT             NOT NULL DEFAULT '',
	price                DOUBLE PRECISION NOT NULL DEFAULT 0,
	living_area          DOUBLE PRECISION NOT NULL DEFAULT 0,
	lot_size             DOUBLE PRECISION NOT NULL DEFAULT 0,
	basement_size        DOUBLE PRECISION NOT NULL DEFAULT 0,
	rooms                DOUBLE PRECISION NOT NULL DEFAULT 0,
	build_year           INTEGER          NOT NULL DEFAULT 0,
	energy_label         TEXT             NOT NULL DEFAULT '',
	latitude             DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude            DOUBLE PRECISION NOT NULL DEFAULT 0,
	days_on_market       INTEGER          NOT NULL DEFAULT 0,
	price_per_area       DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_change_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	foreclosure          BOOLEAN          NOT NULL DEFAULT FALSE,
	in_postal_city       BOOLEAN          NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_listings_postal_code ON listings(postal_code);
CREATE INDEX IF NOT EXISTS idx_listings_price       ON listings(price);

CREATE TABLE IF NOT EXISTS listings_scored (
	generation             TEXT    NOT NULL,
	position               INTEGER NOT NULL,
	listing_id             BIGINT  NOT NULL,
	score_energy           DOUBLE PRECISION,
	score_transit_distance DOUBLE PRECISION,
	score_lot_size         DOUBLE PRECISION,
	score_house_size       DOUBLE PRECISION,
	score_price_efficiency DOUBLE PRECISION,
	score_build_year       DOUBLE PRECISION,
	score_basement_size    DOUBLE PRECISION,
	score_days_on_market   DOUBLE PRECISION,
	aggregate              DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (generation, position)
);

CREATE INDEX IF NOT EXISTS idx_listings_scored_aggregate ON listings_scored(generation, aggregate);

CREATE TABLE IF NOT EXISTS seen_listings (
	listing_id BIGINT PRIMARY KEY,
	seen_at    TEXT   NOT NULL
);
`

var listingColumns = []string{
	"id", "street", "house_number", "city", "postal_code", "price", "living_area",
	"lot_size", "basement_size", "rooms", "build_year", "energy_label", "latitude",
	"longitude", "days_on_market", "price_per_area", "price_change_percent",
	"foreclosure", "in_postal_city",
}

// scoredRecord is the flat row shape of listings_scored joined to listings.
// A NULL score means the component was absent from the scored row.
type scoredRecord struct {
	models.Listing
	Generation           string          `db:"generation"`
	Position             int             `db:"position"`
	ScoreEnergy          sql.NullFloat64 `db:"score_energy"`
	ScoreTransitDistance sql.NullFloat64 `db:"score_transit_distance"`
	ScoreLotSize         sql.NullFloat64 `db:"score_lot_size"`
	ScoreHouseSize       sql.NullFloat64 `db:"score_house_size"`
	ScorePriceEfficiency sql.NullFloat64 `db:"score_price_efficiency"`
	ScoreBuildYear       sql.NullFloat64 `db:"score_build_year"`
	ScoreBasementSize    sql.NullFloat64 `db:"score_basement_size"`
	ScoreDaysOnMarket    sql.NullFloat64 `db:"score_days_on_market"`
	Aggregate            float64         `db:"aggregate"`
}

func (r *scoredRecord) fields() map[models.Component]*sql.NullFloat64 {
	return map[models.Component]*sql.NullFloat64{
		models.ComponentEnergy:          &r.ScoreEnergy,
		models.ComponentTransitDistance: &r.ScoreTransitDistance,
		models.ComponentLotSize:         &r.ScoreLotSize,
		models.ComponentHouseSize:       &r.ScoreHouseSize,
		models.ComponentPriceEfficiency: &r.ScorePriceEfficiency,
		models.ComponentBuildYear:       &r.ScoreBuildYear,
		models.ComponentBasementSize:    &r.ScoreBasementSize,
		models.ComponentDaysOnMarket:    &r.ScoreDaysOnMarket,
	}
}

func toRecord(generation string, position int, l models.ScoredListing) scoredRecord {
	rec := scoredRecord{Listing: l.Listing, Generation: generation, Position: position, Aggregate: l.Aggregate}
	for c, f := range rec.fields() {
		if s, ok := l.Scores[c]; ok {
			*f = sql.NullFloat64{Float64: s, Valid: true}
		}
	}
	return rec
}

func (r *scoredRecord) toScored() models.ScoredListing {
	scores := make(models.ComponentScores, len(models.Components))
	for c, f := range r.fields() {
		if f.Valid {
			scores[c] = f.Float64
		}
	}
	return models.ScoredListing{Listing: r.Listing, Scores: scores, Aggregate: r.Aggregate}
}

// SQLStore persists cleaned listings and scored tables to PostgreSQL or SQLite.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// NewSQLStore opens the database, waits for it to answer (retrying with
// back-off) and runs schema migrations. For SQLite, dsn is a file path.
func NewSQLStore(ctx context.Context, driver, dsn string, retry utils.RetryConfig) (*SQLStore, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch driver {
	case DriverPostgres:
		db, err = sqlx.Open(DriverPostgres, dsn)
	case DriverSQLite:
		db, err = sqlx.Open(DriverSQLite, dsn+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
		if err == nil {
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("sql: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}

	if err := retry.Do(ctx, driver+" ping", func() error { return db.PingContext(ctx) }); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", driver, err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// WriteListings replaces the stored listings with the given set.
func (s *SQLStore) WriteListings(ctx context.Context, listings []models.Listing) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("%s: clear listings: %w", s.driver, err)
	}

	query := fmt.Sprintf(`INSERT INTO listings (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING`,
		strings.Join(listingColumns, ", "), namedParams(listingColumns))

	for i := 0; i < len(listings); i += batchSize {
		end := min(i+batchSize, len(listings))
		if _, err := tx.NamedExecContext(ctx, query, listings[i:end]); err != nil {
			return fmt.Errorf("%s: insert listings: %w", s.driver, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return nil
}

// FetchListings returns every stored listing ordered by id.
func (s *SQLStore) FetchListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	query := fmt.Sprintf("SELECT %s FROM listings ORDER BY id", strings.Join(listingColumns, ", "))
	if err := s.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("%s: fetch listings: %w", s.driver, err)
	}
	return listings, nil
}

// WriteScored stores a scored table under its generation, replacing any
// earlier table with the same generation. Row order is kept.
func (s *SQLStore) WriteScored(ctx context.Context, generation string, table []models.ScoredListing) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM listings_scored WHERE generation = ?"), generation); err != nil {
		return fmt.Errorf("%s: clear scored: %w", s.driver, err)
	}

	cols := []string{"generation", "position", "listing_id"}
	params := []string{":generation", ":position", ":id"}
	for _, c := range models.Components {
		cols = append(cols, "score_"+string(c))
		params = append(params, ":score_"+string(c))
	}
	cols = append(cols, "aggregate")
	params = append(params, ":aggregate")
	query := fmt.Sprintf("INSERT INTO listings_scored (%s) VALUES (%s)",
		strings.Join(cols, ", "), strings.Join(params, ", "))

	for i := 0; i < len(table); i += batchSize {
		end := min(i+batchSize, len(table))
		batch := make([]scoredRecord, 0, end-i)
		for j := i; j < end; j++ {
			batch = append(batch, toRecord(generation, j, table[j]))
		}
		if _, err := tx.NamedExecContext(ctx, query, batch); err != nil {
			return fmt.Errorf("%s: insert scored: %w", s.driver, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return nil
}

// FetchScored loads the scored table of a generation in its original order.
// Listings that were removed since scoring are skipped.
func (s *SQLStore) FetchScored(ctx context.Context, generation string) ([]models.ScoredListing, error) {
	cols := make([]string, 0, len(listingColumns)+len(models.Components)+3)
	for _, c := range listingColumns {
		cols = append(cols, "l."+c)
	}
	cols = append(cols, "s.generation", "s.position")
	for _, c := range models.Components {
		cols = append(cols, "s.score_"+string(c))
	}
	cols = append(cols, "s.aggregate")

	query := s.db.Rebind(fmt.Sprintf(`
		SELECT %s
		FROM listings_scored s
		JOIN listings l ON l.id = s.listing_id
		WHERE s.generation = ?
		ORDER BY s.position`, strings.Join(cols, ", ")))

	var records []scoredRecord
	if err := s.db.SelectContext(ctx, &records, query, generation); err != nil {
		return nil, fmt.Errorf("%s: fetch scored: %w", s.driver, err)
	}

	table := make([]models.ScoredListing, len(records))
	for i := range records {
		table[i] = records[i].toScored()
	}
	return table, nil
}

// MarkSeen records listings the user has already looked at. Marking a
// listing twice keeps the first timestamp.
func (s *SQLStore) MarkSeen(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	query := s.db.Rebind("INSERT INTO seen_listings (listing_id, seen_at) VALUES (?, ?) ON CONFLICT (listing_id) DO NOTHING")

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, id, now); err != nil {
			return fmt.Errorf("%s: mark seen %d: %w", s.driver, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return nil
}

// SeenIDs returns the ids of every listing marked as seen.
func (s *SQLStore) SeenIDs(ctx context.Context) (map[int64]struct{}, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, "SELECT listing_id FROM seen_listings"); err != nil {
		return nil, fmt.Errorf("%s: fetch seen: %w", s.driver, err)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func namedParams(cols []string) string {
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = ":" + c
	}
	return strings.Join(params, ", ")
}
