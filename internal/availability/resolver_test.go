package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kerbside/internal/models"
)

// 2026-09-07 is a Monday.
func monday(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2026-09-07")
	assert.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())
	return d
}

func spaceWithRules(rules ...models.AvailabilityRule) *models.Space {
	return &models.Space{
		ID:          1,
		OwnerID:     10,
		IsActive:    true,
		IsAvailable: true,
		HourlyRate:  5,
		Rules:       rules,
	}
}

func TestResolver_Resolve(t *testing.T) {
	rv := NewResolver(time.UTC)
	recurringMonday := models.AvailabilityRule{
		Kind: models.RuleRecurring, Weekday: time.Monday,
		StartTime: "08:00", EndTime: "18:00", Enabled: true,
	}

	t.Run("window inside recurring rule", func(t *testing.T) {
		space := spaceWithRules(recurringMonday)
		match, ok := rv.Resolve(space, monday(t), "10:00", "12:00")
		assert.True(t, ok)
		assert.Equal(t, 5.0, match.Rate)
	})

	t.Run("window at rule boundaries", func(t *testing.T) {
		space := spaceWithRules(recurringMonday)
		_, ok := rv.Resolve(space, monday(t), "08:00", "18:00")
		assert.True(t, ok)
	})

	t.Run("window outside recurring rule", func(t *testing.T) {
		space := spaceWithRules(recurringMonday)
		_, ok := rv.Resolve(space, monday(t), "07:00", "09:00")
		assert.False(t, ok)

		_, ok = rv.Resolve(space, monday(t), "17:00", "19:00")
		assert.False(t, ok)
	})

	t.Run("wrong weekday", func(t *testing.T) {
		space := spaceWithRules(recurringMonday)
		tuesday := monday(t).AddDate(0, 0, 1)
		_, ok := rv.Resolve(space, tuesday, "10:00", "12:00")
		assert.False(t, ok)
	})

	t.Run("disabled recurring rule", func(t *testing.T) {
		disabled := recurringMonday
		disabled.Enabled = false
		space := spaceWithRules(disabled)
		_, ok := rv.Resolve(space, monday(t), "10:00", "12:00")
		assert.False(t, ok)
	})

	t.Run("override wins entirely over recurring", func(t *testing.T) {
		override := models.AvailabilityRule{
			Kind: models.RuleDateOverride, Date: monday(t),
			StartTime: "12:00", EndTime: "14:00", HourlyRate: 9,
		}
		space := spaceWithRules(recurringMonday, override)

		// Inside the override: matches at the override rate.
		match, ok := rv.Resolve(space, monday(t), "12:00", "14:00")
		assert.True(t, ok)
		assert.Equal(t, 9.0, match.Rate)

		// Inside the recurring rule but outside the override: the
		// recurring schedule does not apply on the override date.
		_, ok = rv.Resolve(space, monday(t), "09:00", "11:00")
		assert.False(t, ok)

		// The recurring rule still works on other weeks.
		nextMonday := monday(t).AddDate(0, 0, 7)
		match, ok = rv.Resolve(space, nextMonday, "09:00", "11:00")
		assert.True(t, ok)
		assert.Equal(t, 5.0, match.Rate)
	})

	t.Run("inverted window", func(t *testing.T) {
		space := spaceWithRules(recurringMonday)
		_, ok := rv.Resolve(space, monday(t), "12:00", "10:00")
		assert.False(t, ok)

		_, ok = rv.Resolve(space, monday(t), "12:00", "12:00")
		assert.False(t, ok)
	})

	t.Run("no rules", func(t *testing.T) {
		space := spaceWithRules()
		_, ok := rv.Resolve(space, monday(t), "10:00", "12:00")
		assert.False(t, ok)
	})
}

func TestResolver_ResolveTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	assert.NoError(t, err)
	rv := NewResolver(loc)

	// 23:30 UTC on Sunday is already Monday in Berlin (CEST, UTC+2).
	sundayLateUTC := time.Date(2026, 9, 6, 23, 30, 0, 0, time.UTC)
	space := spaceWithRules(models.AvailabilityRule{
		Kind: models.RuleRecurring, Weekday: time.Monday,
		StartTime: "00:00", EndTime: "06:00", Enabled: true,
	})

	_, ok := rv.Resolve(space, sundayLateUTC, "01:00", "02:00")
	assert.True(t, ok, "weekday must be computed in the canonical timezone")
}

func TestResolver_SplitWindow(t *testing.T) {
	rv := NewResolver(time.UTC)
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	t.Run("same-day window", func(t *testing.T) {
		date, startClock, endClock, ok := rv.SplitWindow(
			day.Add(10*time.Hour), day.Add(12*time.Hour+30*time.Minute))
		assert.True(t, ok)
		assert.Equal(t, "2026-09-07", date.Format("2006-01-02"))
		assert.Equal(t, "10:00", startClock)
		assert.Equal(t, "12:30", endClock)
	})

	t.Run("inverted or empty", func(t *testing.T) {
		_, _, _, ok := rv.SplitWindow(day.Add(12*time.Hour), day.Add(10*time.Hour))
		assert.False(t, ok)

		_, _, _, ok = rv.SplitWindow(day.Add(10*time.Hour), day.Add(10*time.Hour))
		assert.False(t, ok)
	})

	t.Run("spans midnight", func(t *testing.T) {
		_, _, _, ok := rv.SplitWindow(day.Add(22*time.Hour), day.Add(26*time.Hour))
		assert.False(t, ok)
	})

	t.Run("date is canonical-zone local", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		assert.NoError(t, err)
		rvNY := NewResolver(loc)

		// 02:00-03:00 UTC on the 8th is still the evening of the 7th
		// in New York.
		start := time.Date(2026, 9, 8, 2, 0, 0, 0, time.UTC)
		date, startClock, _, ok := rvNY.SplitWindow(start, start.Add(time.Hour))
		assert.True(t, ok)
		assert.Equal(t, "2026-09-07", date.Format("2006-01-02"))
		assert.Equal(t, "22:00", startClock)
	})
}
