package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
http:
  port: 8081
  api_key: secret
database:
  path: `+filepath.Join(dir, "data", "test.db")+`
booking:
  min_advance_minutes: 30
  max_advance_months: 3
  timezone: Europe/Berlin
geocoder:
  base_url: https://nominatim.example.org
  timeout_seconds: 2
  rate_per_second: 1
  burst: 2
search:
  max_results: 10
  default_radius_km: 2.5
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, "secret", cfg.HTTP.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.BookingMinAdvance())
	assert.Equal(t, 3, cfg.BookingMaxAdvanceMonths())
	assert.Equal(t, 2*time.Second, cfg.GeocoderTimeout())
	assert.Equal(t, 10, cfg.SearchMaxResults())
	assert.Equal(t, 2.5, cfg.SearchDefaultRadiusKm())

	loc, err := cfg.BookingLocation()
	assert.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	// The database directory is created on load.
	_, err = os.Stat(filepath.Join(dir, "data"))
	assert.NoError(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "kerbside.db")
	path := writeConfig(t, "database:\n  path: "+dbPath+"\n")

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.BookingMinAdvance())
	assert.Equal(t, 6, cfg.BookingMaxAdvanceMonths())
	assert.Equal(t, 5*time.Second, cfg.GeocoderTimeout())
	assert.Equal(t, 24*time.Hour, cfg.GeocoderCacheTTL())
	assert.Equal(t, 20, cfg.SearchMaxResults())
	assert.Equal(t, 5.0, cfg.SearchDefaultRadiusKm())

	loc, err := cfg.BookingLocation()
	assert.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("KERBSIDE_TEST_API_KEY", "from-env")
	dbPath := filepath.Join(t.TempDir(), "kerbside.db")
	path := writeConfig(t, `
http:
  api_key: ${KERBSIDE_TEST_API_KEY}
database:
  path: `+dbPath+`
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "from-env", cfg.HTTP.APIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBookingLocation_Invalid(t *testing.T) {
	var cfg Config
	cfg.Booking.Timezone = "Not/AZone"
	_, err := cfg.BookingLocation()
	assert.Error(t, err)
}
