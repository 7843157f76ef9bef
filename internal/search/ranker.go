// Package search filters and orders bookable spaces by geodesic distance
// from a requester's location, independent of the booking write path.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"kerbside/internal/availability"
	"kerbside/internal/booking"
	"kerbside/internal/geo"
	"kerbside/internal/metrics"
	"kerbside/internal/models"
)

// Repository provides the space candidates and the conflict check.
type Repository interface {
	ListBookableSpaces(ctx context.Context) ([]models.Space, error)
	UpdateSpaceCoords(ctx context.Context, id int64, coords models.Coordinates) error
	HasConflict(ctx context.Context, spaceID int64, start, end time.Time) (bool, error)
}

// Window narrows search results to spaces actually bookable for the span.
type Window struct {
	Start time.Time
	End   time.Time
}

// Result is a ranked space with its distance from the search origin.
type Result struct {
	Space      models.Space `json:"space"`
	DistanceKm float64      `json:"distance_km"`
}

// Ranker performs radius search over bookable spaces.
type Ranker struct {
	repo       Repository
	geocoder   geo.Geocoder
	resolver   *availability.Resolver
	maxResults int
	now        func() time.Time
	logger     *zerolog.Logger
}

func NewRanker(repo Repository, geocoder geo.Geocoder, resolver *availability.Resolver,
	maxResults int, logger *zerolog.Logger) *Ranker {
	if maxResults <= 0 {
		maxResults = 20
	}
	return &Ranker{
		repo:       repo,
		geocoder:   geocoder,
		resolver:   resolver,
		maxResults: maxResults,
		now:        time.Now,
		logger:     logger,
	}
}

// Search returns active, available spaces within radiusKm of origin, nearest
// first (ties broken by space id). With a window, spaces must also resolve
// availability and be conflict-free — actually bookable, not merely listed.
// A geocoding failure skips that one space; it never fails the search.
func (rk *Ranker) Search(ctx context.Context, origin models.Coordinates, radiusKm float64, window *Window) ([]Result, error) {
	metrics.IncSearch()

	var date time.Time
	var startClock, endClock string
	if window != nil {
		var ok bool
		date, startClock, endClock, ok = rk.resolver.SplitWindow(window.Start, window.End)
		if !ok {
			return nil, booking.ErrInvalidWindow
		}
	}

	spaces, err := rk.repo.ListBookableSpaces(ctx)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i := range spaces {
		space := &spaces[i]

		coords, ok := rk.coordinates(ctx, space)
		if !ok {
			continue
		}

		distance := geo.HaversineKm(origin, coords)
		if distance > radiusKm {
			continue
		}

		if window != nil {
			if _, ok := rk.resolver.Resolve(space, date, startClock, endClock); !ok {
				continue
			}
			conflict, err := rk.repo.HasConflict(ctx, space.ID, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			if conflict {
				continue
			}
		}

		results = append(results, Result{Space: *space, DistanceKm: distance})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Space.ID < results[j].Space.ID
	})

	if len(results) > rk.maxResults {
		results = results[:rk.maxResults]
	}
	return results, nil
}

// BookNow synthesizes a [now, now+duration] window in the canonical timezone
// and delegates to Search; it carries no matching logic of its own.
func (rk *Ranker) BookNow(ctx context.Context, origin models.Coordinates, radiusKm float64, duration time.Duration) ([]Result, error) {
	now := rk.now().In(rk.resolver.Location())
	window := &Window{Start: now, End: now.Add(duration)}
	return rk.Search(ctx, origin, radiusKm, window)
}

// coordinates returns the space's cached coordinates or geocodes and caches
// them. false means the space has no resolvable location this request.
func (rk *Ranker) coordinates(ctx context.Context, space *models.Space) (models.Coordinates, bool) {
	if space.Coords != nil {
		return *space.Coords, true
	}
	if rk.geocoder == nil {
		return models.Coordinates{}, false
	}

	coords, err := rk.geocoder.Geocode(ctx, space.Address)
	if err != nil {
		rk.logger.Debug().Err(err).Int64("space_id", space.ID).Msg("geocode failed, space skipped")
		return models.Coordinates{}, false
	}

	if err := rk.repo.UpdateSpaceCoords(ctx, space.ID, coords); err != nil {
		rk.logger.Error().Err(err).Int64("space_id", space.ID).Msg("failed to cache coordinates")
	}
	space.Coords = &coords
	return coords, true
}
