// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/server"
)

// Config is the process configuration, read from the environment.
type Config struct {
	GeoapifyKey   string
	FoursquareKey string
	Radius        int
	Category      string
	MinRating     float64
	Workers       int
	RatingsRPS    float64
	GeoIPDB       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	CacheCapacity int
	Dedupe        bool
	BindAddr      string
	LogLevel      string
	LogFormat     string
}

// LoadConfig reads .env, when present, and then the environment. Variables
// already set take precedence over the file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	c := &Config{
		GeoapifyKey:   strings.TrimSpace(os.Getenv("GEOAPIFY_API_KEY")),
		FoursquareKey: strings.TrimSpace(os.Getenv("FOURSQUARE_API_KEY")),
		Radius:        getInt("CERCA_RADIUS", discovery.DefaultRadius),
		Category:      getEnv("CERCA_CATEGORY", "restaurant"),
		MinRating:     getFloat("CERCA_MIN_RATING", discovery.DefaultMinRating),
		Workers:       getInt("CERCA_WORKERS", discovery.DefaultWorkers),
		RatingsRPS:    getFloat("CERCA_RATINGS_RPS", 5),
		GeoIPDB:       os.Getenv("GEOIP_DB"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		RedisDB:       getInt("REDIS_DB", 0),
		CacheTTL:      getDuration("CERCA_CACHE_TTL", discovery.DefaultCacheTTL.String()),
		CacheCapacity: getInt("CERCA_CACHE_CAPACITY", 256),
		Dedupe:        getBool("CERCA_DEDUPE", false),
		BindAddr:      getEnv("CERCA_BIND_ADDR", server.DefaultAddr),
		LogLevel:      strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogFormat:     strings.ToLower(os.Getenv("LOG_FORMAT")),
	}

	if c.Radius <= 0 {
		return nil, fmt.Errorf("CERCA_RADIUS must be positive")
	}

	if c.MinRating < 0 || c.MinRating > 5 {
		return nil, fmt.Errorf("CERCA_MIN_RATING must be between 0 and 5")
	}

	if c.Workers <= 0 {
		return nil, fmt.Errorf("CERCA_WORKERS must be positive")
	}

	if c.RatingsRPS <= 0 {
		return nil, fmt.Errorf("CERCA_RATINGS_RPS must be positive")
	}

	return c, nil
}

// ValidateGeoapifyKey checks the key looks like a Geoapify key.
func ValidateGeoapifyKey(key string) error {
	if key == "" {
		return errors.New("GEOAPIFY_API_KEY is not set")
	}

	if n := len(key); n != 32 && n != 48 {
		return fmt.Errorf("GEOAPIFY_API_KEY has %d characters, expected 32 or 48", n)
	}

	for _, r := range key {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return errors.New("GEOAPIFY_API_KEY must be alphanumeric")
		}
	}

	return nil
}

// ValidateFoursquareKey checks a ratings key is present.
func ValidateFoursquareKey(key string) error {
	if key == "" {
		return errors.New("FOURSQUARE_API_KEY is not set, it is required to rate businesses")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return fallback
}

func getInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}

	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return fallback
}

func getDuration(key, fallback string) time.Duration {
	value := getEnv(key, fallback)

	d, err := time.ParseDuration(value)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}

	return d
}
