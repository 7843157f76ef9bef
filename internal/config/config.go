package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Geocoder struct {
		BaseURL         string  `yaml:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"geocoder"`

	Booking struct {
		MinAdvanceMinutes int    `yaml:"min_advance_minutes"`
		MaxAdvanceMonths  int    `yaml:"max_advance_months"`
		Timezone          string `yaml:"timezone"`
	} `yaml:"booking"`

	Search struct {
		MaxResults      int     `yaml:"max_results"`
		DefaultRadiusKm float64 `yaml:"default_radius_km"`
	} `yaml:"search"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/kerbside.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) BookingMinAdvance() time.Duration {
	if c.Booking.MinAdvanceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

// BookingMaxAdvanceMonths returns the booking horizon, default six months.
func (c *Config) BookingMaxAdvanceMonths() int {
	if c.Booking.MaxAdvanceMonths <= 0 {
		return 6
	}
	return c.Booking.MaxAdvanceMonths
}

// BookingLocation returns the canonical timezone for all date and weekday
// resolution. Every path uses this location; server-local time is never
// consulted.
func (c *Config) BookingLocation() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Booking.Timezone)
}

func (c *Config) GeocoderTimeout() time.Duration {
	if c.Geocoder.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Geocoder.TimeoutSeconds) * time.Second
}

func (c *Config) GeocoderCacheTTL() time.Duration {
	if c.Geocoder.CacheTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Geocoder.CacheTTLSeconds) * time.Second
}

func (c *Config) SearchMaxResults() int {
	if c.Search.MaxResults <= 0 {
		return 20
	}
	return c.Search.MaxResults
}

// SearchDefaultRadiusKm is the radius applied when a search omits one.
func (c *Config) SearchDefaultRadiusKm() float64 {
	if c.Search.DefaultRadiusKm <= 0 {
		return 5
	}
	return c.Search.DefaultRadiusKm
}
