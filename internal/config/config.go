// Package config loads service configuration from HCL files and environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
)

// Config holds every tunable of the service.
type Config struct {
	ListenAddr string `hcl:"listen_addr" env:"LISTEN_ADDR" default:":8080"`

	DatabaseDriver string `hcl:"database_driver" env:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseDSN    string `hcl:"database_dsn" env:"DATABASE_DSN" default:"snappy.db"`

	JWTSecret string        `hcl:"jwt_secret" env:"JWT_SECRET" default:"snappy-dev-secret"`
	TokenTTL  time.Duration `hcl:"token_ttl" env:"TOKEN_TTL" default:"24h"`

	// MinRefreshInterval is the floor for a story's RSS refresh interval.
	MinRefreshInterval int           `hcl:"min_refresh_interval" env:"MIN_REFRESH_INTERVAL" default:"15"`
	SchedulerInterval  time.Duration `hcl:"scheduler_interval" env:"SCHEDULER_INTERVAL" default:"1m"`

	AdLibraryURL string `hcl:"ad_library_url" env:"AD_LIBRARY_URL" default:"https://securepubads.g.doubleclick.net/tag/js/gpt.js"`
}

// Load reads config.hcl (plus local override) and the SNAPPY_* environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{"./config.hcl", "./config.local.hcl"}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          "SNAPPY",
		SkipFlags:          true,
		AllowUnknownFields: true,
		Files:              files,
		FailOnFileNotFound: false,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the rest of the service cannot work with.
func (c *Config) Validate() error {
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must not be empty")
	}
	if c.MinRefreshInterval < 1 {
		return errors.New("min_refresh_interval must be at least 1 minute")
	}
	if _, err := url.ParseRequestURI(c.AdLibraryURL); err != nil {
		return fmt.Errorf("invalid ad_library_url: %w", err)
	}
	return nil
}
