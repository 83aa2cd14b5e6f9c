// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and STREAMSCOUT_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const weightTolerance = 1e-9

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// Refresh coordinator.
	RefreshInterval   time.Duration `koanf:"refresh_interval"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout"`
	WarmupDelay       time.Duration `koanf:"warmup_delay"`
	StaleRefreshAfter time.Duration `koanf:"stale_refresh_after"`

	// Collector.
	CatalogPath       string        `koanf:"catalog_path"`
	MaxCandidates     int           `koanf:"max_candidates"`
	ValidateChunkSize int           `koanf:"validate_chunk_size"`
	ChunkDelay        time.Duration `koanf:"chunk_delay"`
	FetchBatchSize    int           `koanf:"fetch_batch_size"`
	BatchDelay        time.Duration `koanf:"batch_delay"`
	BroadcastPageSize int           `koanf:"broadcast_page_size"`
	FallbackTopCount  int           `koanf:"fallback_top_count"`

	// Shared state.
	StoreBackend string `koanf:"store_backend"`
	StateDir     string `koanf:"state_dir"`
	PostgresDSN  string `koanf:"postgres_dsn"`

	// Read surface.
	DefaultLimit int    `koanf:"default_limit"`
	MaxLimit     int    `koanf:"max_limit"`
	CORSOrigin   string `koanf:"cors_origin"`

	// Upstream.
	TwitchClientID     string        `koanf:"twitch_client_id"`
	TwitchClientSecret string        `koanf:"twitch_client_secret"`
	HelixBaseURL       string        `koanf:"helix_base_url"`
	AuthURL            string        `koanf:"auth_url"`
	UpstreamTimeout    time.Duration `koanf:"upstream_timeout"`
	UpstreamRetryMax   int           `koanf:"upstream_retry_max"`

	// Scoring.
	WeightDiscoverability float64 `koanf:"weight_discoverability"`
	WeightViability       float64 `koanf:"weight_viability"`
	WeightEngagement      float64 `koanf:"weight_engagement"`
	MaxViewers            int     `koanf:"max_viewers"`
	MaxDominance          float64 `koanf:"max_dominance"`
	BoxArtWidth           int     `koanf:"box_art_width"`
	BoxArtHeight          int     `koanf:"box_art_height"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":5000",

		RefreshInterval:   10 * time.Minute,
		HandshakeTimeout:  10 * time.Second,
		WarmupDelay:       2 * time.Second,
		StaleRefreshAfter: 30 * time.Minute,

		CatalogPath:       "top_games.json",
		MaxCandidates:     500,
		ValidateChunkSize: 100,
		ChunkDelay:        time.Second,
		FetchBatchSize:    10,
		BatchDelay:        250 * time.Millisecond,
		BroadcastPageSize: 100,
		FallbackTopCount:  100,

		StoreBackend: BackendFile,
		StateDir:     "/tmp/streamscout",

		DefaultLimit: 100,
		MaxLimit:     200,
		CORSOrigin:   "*",

		HelixBaseURL:     "https://api.twitch.tv/helix",
		AuthURL:          "https://id.twitch.tv/oauth2/token",
		UpstreamTimeout:  30 * time.Second,
		UpstreamRetryMax: 3,

		WeightDiscoverability: 0.45,
		WeightViability:       0.35,
		WeightEngagement:      0.20,
		MaxViewers:            15000,
		MaxDominance:          0.70,
		BoxArtWidth:           285,
		BoxArtHeight:          380,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RefreshInterval <= 0:
		return fmt.Errorf("%w: refresh_interval must be positive", ErrInvalidConfig)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: handshake_timeout must be positive", ErrInvalidConfig)
	case c.WarmupDelay < 0 || c.ChunkDelay < 0 || c.BatchDelay < 0:
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	case c.MaxCandidates <= 0, c.ValidateChunkSize <= 0, c.FetchBatchSize <= 0,
		c.BroadcastPageSize <= 0, c.FallbackTopCount <= 0:
		return fmt.Errorf("%w: collector sizes must be positive", ErrInvalidConfig)
	case c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit:
		return fmt.Errorf("%w: need 0 < default_limit <= max_limit", ErrInvalidConfig)
	case c.MaxViewers <= 0:
		return fmt.Errorf("%w: max_viewers must be positive", ErrInvalidConfig)
	case c.MaxDominance <= 0 || c.MaxDominance > 1:
		return fmt.Errorf("%w: max_dominance must be in (0,1]", ErrInvalidConfig)
	}

	sum := c.WeightDiscoverability + c.WeightViability + c.WeightEngagement
	if c.WeightDiscoverability < 0 || c.WeightViability < 0 || c.WeightEngagement < 0 ||
		math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: scoring weights must be non-negative and sum to 1.0 (got %.6f)", ErrInvalidConfig, sum)
	}

	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}

// HasCredentials reports whether both upstream credentials are set.
func (c *Config) HasCredentials() bool {
	return strings.TrimSpace(c.TwitchClientID) != "" && strings.TrimSpace(c.TwitchClientSecret) != ""
}
