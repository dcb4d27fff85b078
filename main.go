package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boligscore/config"
	"boligscore/models"
	"boligscore/services"
	"boligscore/storage"
	"boligscore/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerTo(os.Stderr, cfg.LogLevel)

	logger.Info("=== Listing Scoring Engine starting ===")
	logger.Info("Config: profile %q | db %s | input %s | top %d",
		cfg.WeightProfile, cfg.DBDriver, cfg.InputCSVPath, cfg.TopN)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	scoring, err := config.LoadScoring(cfg.ScoringConfigFile)
	if err != nil {
		return err
	}

	metrics := services.NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, logger.WithPrefix("metrics"))
		defer srv.Close()
	}

	engine, err := services.NewEngine(services.EngineOptions{
		Logger:        logger,
		Metrics:       metrics,
		TransitStops:  scoring.TransitStops,
		MaxDistanceKm: scoring.MaxDistanceKm(cfg.MaxTransitDistanceKm),
		CacheSize:     cfg.ScoreCacheSize,
		Profiles:      scoring.EngineProfiles(),
	})
	if err != nil {
		return err
	}

	var (
		store   storage.ListingStore
		scored  storage.ScoredListingSource
		seen    storage.SeenListingStore
		writers []storage.ScoredListingWriter
	)
	if cfg.DBDriver != config.DBDriverNone {
		sqlStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.DBDriver, err)
		}
		defer sqlStore.Close()
		store, scored, seen = sqlStore, sqlStore, sqlStore
		writers = append(writers, sqlStore)
	}

	weights, ok := engine.ProfileWeights(cfg.WeightProfile)
	if !ok {
		logger.Warn("Unknown weight profile %q, using %q", cfg.WeightProfile, services.ProfileStandard)
		cfg.WeightProfile = services.ProfileStandard
	}

	var (
		table      []models.ScoredListing
		generation string
	)
	if cfg.ReportGeneration != "" {
		if scored == nil {
			return errors.New("REPORT_GENERATION needs a database (DB_DRIVER is none)")
		}
		generation = cfg.ReportGeneration
		if table, err = loadScored(ctx, scored, generation); err != nil {
			return err
		}
		logger.Info("Replaying %d scored listings from generation %s", len(table), generation)
	} else {
		source := storage.NewCSVReader(cfg.InputCSVPath)
		listings, err := loadListings(ctx, cfg, source, store, logger)
		if err != nil {
			return err
		}
		if len(listings) == 0 {
			return errors.New("no listings to score")
		}

		// Every load is a new dataset snapshot.
		generation = uuid.NewString()
		table = engine.Score(ctx, listings, weights, generation)

		csvWriter, err := storage.NewCSVWriter(cfg.OutputCSVPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else {
			writers = append(writers, csvWriter)
			defer csvWriter.Close()
		}
		for _, w := range writers {
			if err := w.WriteScored(ctx, generation, table); err != nil {
				logger.Error("Scored write failed: %v", err)
			}
		}
	}

	visible := table
	if seen != nil {
		visible, err = hideSeen(ctx, seen, table, cfg.MarkSeen, cfg.ShowSeen, logger)
		if err != nil {
			logger.Error("Seen listings unavailable, showing all: %v", err)
			visible = table
		}
	}

	topScorers := engine.TopScorers(ctx, visible, weights, generation)

	insightSvc := services.NewInsightService(logger)
	report := insightSvc.Generate(visible, topScorers, cfg.WeightProfile, cfg.TopN)
	insightSvc.Print(os.Stdout, report)

	fmt.Printf("  Done. Generation %s | Scored CSV → %s\n\n", generation, cfg.OutputCSVPath)
	return nil
}

// loadScored reads back a stored generation. An empty result means the
// generation was never written.
func loadScored(ctx context.Context, src storage.ScoredListingSource, generation string) ([]models.ScoredListing, error) {
	table, err := src.FetchScored(ctx, generation)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no stored scores for generation %q", generation)
	}
	return table, nil
}

// hideSeen records newly seen listings and, unless showSeen is set, drops
// every seen listing from the table used for topscorers and the report.
func hideSeen(ctx context.Context, seen storage.SeenListingStore, table []models.ScoredListing, markSeen []int64, showSeen bool, logger *utils.Logger) ([]models.ScoredListing, error) {
	if err := seen.MarkSeen(ctx, markSeen...); err != nil {
		return nil, err
	}
	if showSeen {
		return table, nil
	}
	ids, err := seen.SeenIDs(ctx)
	if err != nil {
		return nil, err
	}
	visible := services.ExcludeListings(table, ids)
	if hidden := len(table) - len(visible); hidden > 0 {
		logger.Info("Hiding %d already seen listings", hidden)
	}
	return visible, nil
}

// loadListings prefers the CSV input and stores the cleaned set. Without a
// readable CSV it falls back to listings already in the database.
func loadListings(ctx context.Context, cfg *config.Config, source storage.RawListingSource, store storage.ListingStore, logger *utils.Logger) ([]models.Listing, error) {
	raw, err := source.ReadRaw()
	if err != nil {
		if store == nil {
			return nil, err
		}
		logger.Warn("CSV input unavailable (%v), reading listings from %s", err, cfg.DBDriver)
		listings, err := store.FetchListings(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded %d listings from %s", len(listings), cfg.DBDriver)
		return listings, nil
	}

	logger.Info("Read %d raw listings from %s", len(raw), cfg.InputCSVPath)
	listings := services.NewCleaner(logger).Clean(raw)

	if store != nil && len(listings) > 0 {
		if err := store.WriteListings(ctx, listings); err != nil {
			logger.Error("Listing write failed: %v", err)
		} else {
			logger.Info("Clean listings stored in %s (table: listings)", cfg.DBDriver)
		}
	}
	return listings, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.SQLStore, error) {
	if cfg.DBDriver == config.DBDriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, err
		}
	}
	retry := utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Logger:      logger,
	}
	return storage.NewSQLStore(ctx, cfg.DBDriver, cfg.DSN(), retry)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *utils.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Metrics listening on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server: %v", err)
		}
	}()
	return srv
}
