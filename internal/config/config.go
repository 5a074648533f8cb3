// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lildude/clubtime/internal/strava"
)

const defaultCacheTTL = 15 * time.Minute

// Config holds everything the app needs from the environment.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	StravaClientID     string
	StravaClientSecret string
	StravaBaseURL      string
	ClubID             int64
	StateToken         string
	CacheTTL           time.Duration
}

// Load reads the configuration from environment variables. A .env file, if
// present, is expected to have been loaded already (see cmd/clubtime).
func Load() (*Config, error) {
	cfg := &Config{
		Port:               os.Getenv("PORT"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaBaseURL:      os.Getenv("STRAVA_BASE_URL"),
		StateToken:         os.Getenv("STATE_TOKEN"),
		CacheTTL:           defaultCacheTTL,
	}

	for name, val := range map[string]string{
		"DATABASE_URL":         cfg.DatabaseURL,
		"REDIS_URL":            cfg.RedisURL,
		"STRAVA_CLIENT_ID":     cfg.StravaClientID,
		"STRAVA_CLIENT_SECRET": cfg.StravaClientSecret,
		"STATE_TOKEN":          cfg.StateToken,
	} {
		if val == "" {
			return nil, fmt.Errorf("%s environment variable is not set", name)
		}
	}

	clubID, err := strconv.ParseInt(os.Getenv("STRAVA_CLUB_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing STRAVA_CLUB_ID: %w", err)
	}
	cfg.ClubID = clubID

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.StravaBaseURL == "" {
		cfg.StravaBaseURL = strava.BaseURL
	}
	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parsing CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}

	return cfg, nil
}
