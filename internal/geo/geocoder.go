// Package geo resolves addresses to coordinates and computes geodesic
// distances for search ranking.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"kerbside/internal/metrics"
	"kerbside/internal/models"
)

// ErrNoResult means the provider returned nothing for the address.
var ErrNoResult = errors.New("no geocoding result for address")

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (models.Coordinates, error)
}

// Client calls a Nominatim-format geocoding provider. Lookups are rate
// limited outbound and optionally cached read-through in Redis, so repeated
// lookups for the same address are cheap. The provider is treated as
// unreliable; callers degrade rather than fail on error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

// NewClient constructs a geocoding client with a bounded request timeout and
// an outbound token bucket of ratePerSec/burst.
func NewClient(baseURL string, timeout time.Duration, ratePerSec float64, burst int) *Client {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// UseRedisCache configures optional Redis caching of resolved coordinates.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// Geocode resolves an address, cache-first.
func (c *Client) Geocode(ctx context.Context, address string) (models.Coordinates, error) {
	cacheKey := "geocode:" + normalizeAddress(address)

	var coords models.Coordinates
	if c.readCache(ctx, cacheKey, &coords) {
		metrics.IncGeocode("cache_hit")
		return coords, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return models.Coordinates{}, err
	}

	endpoint := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return models.Coordinates{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncGeocode("error")
		return models.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.IncGeocode("error")
		return models.Coordinates{}, fmt.Errorf("geocoder http %d", resp.StatusCode)
	}

	// Nominatim serializes coordinates as strings.
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		metrics.IncGeocode("error")
		return models.Coordinates{}, err
	}
	if len(results) == 0 {
		metrics.IncGeocode("error")
		return models.Coordinates{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lat: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("parse lon: %w", err)
	}

	coords = models.Coordinates{Lat: lat, Lng: lng}
	c.writeCache(ctx, cacheKey, coords)
	metrics.IncGeocode("cache_miss")
	return coords, nil
}

func (c *Client) readCache(ctx context.Context, key string, out *models.Coordinates) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val models.Coordinates) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
