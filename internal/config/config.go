// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

// Config holds all configuration values for the server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	Store StoreConfig
	Map   MapConfig
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is one of sqlite, postgres, s3 or memory. Defaults to sqlite.
	Driver string

	// Key is the storage key holding the record collection.
	Key string

	SQLitePath string

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string

	// S3Bucket is required for s3.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string
	S3PathStyle bool
}

// MapConfig configures the tile layer and the map-library load retry.
type MapConfig struct {
	TileURL     string
	Attribution string
	CheckTiles  bool

	MaxAttempts int
	Interval    time.Duration

	CenterLat float64
	CenterLng float64
	Zoom      int
}

// Load reads configuration from environment variables and returns a Config.
// Returns one error listing every required variable that is not set and
// every value that does not parse.
func Load() (Config, error) {
	p := parser{}
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		MaxBodyBytes: p.int64("MAX_BODY_BYTES", 1<<20),
		Store: StoreConfig{
			Driver:      strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
			Key:         getEnv("STORAGE_KEY", "travel-records"),
			SQLitePath:  getEnv("SQLITE_PATH", "travel-journal.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3Prefix:    getEnv("S3_PREFIX", "travel-journal/"),
			S3PathStyle: p.bool("S3_PATH_STYLE", false),
		},
		Map: MapConfig{
			TileURL:     os.Getenv("MAP_TILE_URL"),
			Attribution: os.Getenv("MAP_ATTRIBUTION"),
			CheckTiles:  p.bool("MAP_CHECK_TILES", false),
			MaxAttempts: p.int("MAP_LOAD_MAX_ATTEMPTS", 20),
			Interval:    p.duration("MAP_LOAD_INTERVAL", 200*time.Millisecond),
			CenterLat:   p.float("MAP_CENTER_LAT", 20),
			CenterLng:   p.float("MAP_CENTER_LNG", 100),
			Zoom:        p.int("MAP_ZOOM", 3),
		},
	}

	var missing []string
	switch cfg.Store.Driver {
	case DriverPostgres:
		if cfg.Store.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverS3:
		if cfg.Store.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
	case DriverSQLite, DriverMemory:
	default:
		p.invalid = append(p.invalid, "STORE_DRIVER")
	}
	if cfg.MaxBodyBytes <= 0 {
		p.invalid = append(p.invalid, "MAX_BODY_BYTES")
	}
	if cfg.Map.MaxAttempts < 1 {
		p.invalid = append(p.invalid, "MAP_LOAD_MAX_ATTEMPTS")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(p.invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("config.Load: %s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed variables and collects the names of those that fail to
// parse, so Load can report them together.
type parser struct {
	invalid []string
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) int64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}
