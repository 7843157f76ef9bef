// Package availability answers whether a requested window fits a space's
// bookable hours and at what hourly rate.
package availability

import (
	"time"

	"kerbside/internal/models"
)

const dateLayout = "2006-01-02"

// Match is a successful resolution. Rate is the effective hourly rate and is
// captured by the caller at booking time; later rule edits do not change
// existing reservations.
type Match struct {
	Rate float64
	Rule models.AvailabilityRule
}

// Resolver resolves windows against availability rules. All date and weekday
// computation happens in a single canonical location.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the canonical timezone.
func (rv *Resolver) Location() *time.Location {
	return rv.loc
}

// Resolve checks [startClock, endClock) on the given date against the space's
// rules. A date override for that exact calendar date wins entirely over any
// recurring rule; there is no merging. Returns the match and true, or zero
// and false when the space is not bookable for the window.
func (rv *Resolver) Resolve(space *models.Space, date time.Time, startClock, endClock string) (Match, bool) {
	if startClock >= endClock {
		return Match{}, false
	}

	local := date.In(rv.loc)
	dateKey := local.Format(dateLayout)

	for _, r := range space.Rules {
		if r.Kind != models.RuleDateOverride {
			continue
		}
		if r.Date.Format(dateLayout) != dateKey {
			continue
		}
		if startClock >= r.StartTime && endClock <= r.EndTime {
			return Match{Rate: r.HourlyRate, Rule: r}, true
		}
		// Override exists but window is outside it: the recurring
		// schedule does not apply on this date.
		return Match{}, false
	}

	weekday := local.Weekday()
	for _, r := range space.Rules {
		if r.Kind != models.RuleRecurring || !r.Enabled || r.Weekday != weekday {
			continue
		}
		if startClock >= r.StartTime && endClock <= r.EndTime {
			return Match{Rate: space.HourlyRate, Rule: r}, true
		}
	}

	return Match{}, false
}

// SplitWindow converts a concrete [start, end) window to the canonical-zone
// date and clock strings Resolve expects. ok is false when the window is
// inverted, zero-length, or spans midnight (a window must resolve to a single
// calendar date).
func (rv *Resolver) SplitWindow(start, end time.Time) (date time.Time, startClock, endClock string, ok bool) {
	if !start.Before(end) {
		return time.Time{}, "", "", false
	}
	localStart := start.In(rv.loc)
	localEnd := end.In(rv.loc)
	if localStart.Format(dateLayout) != localEnd.Format(dateLayout) {
		return time.Time{}, "", "", false
	}
	return localStart, localStart.Format("15:04"), localEnd.Format("15:04"), true
}
