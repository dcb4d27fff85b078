package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"boligscore/services"
)

// Database drivers accepted by DB_DRIVER. "none" skips persistence.
const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DBDriverNone     = "none"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	SQLitePath       string

	InputCSVPath      string
	OutputCSVPath     string
	WeightProfile     string
	ScoringConfigFile string
	// ReportGeneration replays a stored scored table instead of scoring anew.
	ReportGeneration  string

	MarkSeen []int64
	ShowSeen bool

	MaxTransitDistanceKm float64
	ScoreCacheSize       int
	TopN                 int

	LogLevel    string
	MaxRetries  int
	MetricsAddr string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DBDriver:         getEnv("DB_DRIVER", DBDriverSQLite),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "boligscore"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "boligscore"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:       getEnv("SQLITE_PATH", "./output/listings.db"),

		InputCSVPath:      getEnv("INPUT_CSV_PATH", "./data/listings.csv"),
		OutputCSVPath:     getEnv("OUTPUT_CSV_PATH", "./output/scored_listings.csv"),
		WeightProfile:     getEnv("WEIGHT_PROFILE", services.ProfileStandard),
		ScoringConfigFile: getEnv("SCORING_CONFIG_FILE", ""),
		ReportGeneration:  getEnv("REPORT_GENERATION", ""),

		MarkSeen: getEnvIDs("MARK_SEEN"),
		ShowSeen: getEnvBool("SHOW_SEEN", false),

		MaxTransitDistanceKm: getEnvFloat("MAX_TRANSIT_DISTANCE_KM", 0),
		ScoreCacheSize:       getEnvInt("SCORE_CACHE_SIZE", 10),
		TopN:                 getEnvInt("TOP_N", 5),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MaxRetries:  getEnvInt("MAX_RETRIES", 5),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DBDriverSQLite {
		return c.SQLitePath
	}
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvIDs reads a comma-separated list of listing ids, skipping bad entries.
func getEnvIDs(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
