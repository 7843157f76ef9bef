package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, value)
	assert.NoError(t, err)
	return tm
}

func TestOverlaps(t *testing.T) {
	base := mustTime(t, "2026-09-01T10:00:00Z")

	tests := []struct {
		name     string
		s1, e1   time.Time
		s2, e2   time.Time
		expected bool
	}{
		{
			name: "identical windows",
			s1:   base, e1: base.Add(2 * time.Hour),
			s2: base, e2: base.Add(2 * time.Hour),
			expected: true,
		},
		{
			name: "partial overlap",
			s1:   base, e1: base.Add(2 * time.Hour),
			s2: base.Add(time.Hour), e2: base.Add(3 * time.Hour),
			expected: true,
		},
		{
			name: "containment",
			s1:   base, e1: base.Add(4 * time.Hour),
			s2: base.Add(time.Hour), e2: base.Add(2 * time.Hour),
			expected: true,
		},
		{
			name: "touching endpoints do not conflict",
			s1:   base, e1: base.Add(2 * time.Hour),
			s2: base.Add(2 * time.Hour), e2: base.Add(4 * time.Hour),
			expected: false,
		},
		{
			name: "touching endpoints reversed",
			s1:   base.Add(2 * time.Hour), e1: base.Add(4 * time.Hour),
			s2: base, e2: base.Add(2 * time.Hour),
			expected: false,
		},
		{
			name: "disjoint",
			s1:   base, e1: base.Add(time.Hour),
			s2: base.Add(3 * time.Hour), e2: base.Add(4 * time.Hour),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.s1, tt.e1, tt.s2, tt.e2))

			r1 := &Reservation{StartTime: tt.s1, EndTime: tt.e1}
			r2 := &Reservation{StartTime: tt.s2, EndTime: tt.e2}
			assert.Equal(t, tt.expected, r1.OverlapsWith(r2))
			assert.Equal(t, tt.expected, r2.OverlapsWith(r1))
		})
	}
}

func TestSpace_Bookable(t *testing.T) {
	tests := []struct {
		name      string
		active    bool
		available bool
		expected  bool
	}{
		{"active and available", true, true, true},
		{"owner toggled off", true, false, false},
		{"deactivated", false, true, false},
		{"deactivated and off", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Space{IsActive: tt.active, IsAvailable: tt.available}
			assert.Equal(t, tt.expected, s.Bookable())
		})
	}
}

func TestAvailabilityRule_Validate(t *testing.T) {
	date := mustTime(t, "2026-09-15T00:00:00Z")

	t.Run("valid recurring", func(t *testing.T) {
		r := AvailabilityRule{Kind: RuleRecurring, Weekday: time.Monday, StartTime: "08:00", EndTime: "18:00", Enabled: true}
		assert.NoError(t, r.Validate())
	})

	t.Run("valid override", func(t *testing.T) {
		r := AvailabilityRule{Kind: RuleDateOverride, Date: date, StartTime: "10:00", EndTime: "14:00", HourlyRate: 7.5}
		assert.NoError(t, r.Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		r := AvailabilityRule{Kind: "monthly", StartTime: "08:00", EndTime: "18:00"}
		assert.Error(t, r.Validate())
	})

	t.Run("override without date", func(t *testing.T) {
		r := AvailabilityRule{Kind: RuleDateOverride, StartTime: "08:00", EndTime: "18:00"}
		assert.Error(t, r.Validate())
	})

	t.Run("negative override rate", func(t *testing.T) {
		r := AvailabilityRule{Kind: RuleDateOverride, Date: date, StartTime: "08:00", EndTime: "18:00", HourlyRate: -1}
		assert.Error(t, r.Validate())
	})

	t.Run("malformed clock", func(t *testing.T) {
		for _, clock := range []string{"8:00", "08.00", "24:00", "08:60", "0800", "ab:cd"} {
			r := AvailabilityRule{Kind: RuleRecurring, Weekday: time.Monday, StartTime: clock, EndTime: "23:59"}
			assert.Error(t, r.Validate(), "clock %q should be rejected", clock)
		}
	})

	t.Run("start not before end", func(t *testing.T) {
		r := AvailabilityRule{Kind: RuleRecurring, Weekday: time.Monday, StartTime: "18:00", EndTime: "08:00"}
		assert.Error(t, r.Validate())

		r = AvailabilityRule{Kind: RuleRecurring, Weekday: time.Monday, StartTime: "08:00", EndTime: "08:00"}
		assert.Error(t, r.Validate())
	})
}

func TestReservationStatus(t *testing.T) {
	t.Run("terminal", func(t *testing.T) {
		assert.False(t, StatusPending.Terminal())
		assert.False(t, StatusConfirmed.Terminal())
		assert.True(t, StatusRejected.Terminal())
		assert.True(t, StatusCancelled.Terminal())
		assert.True(t, StatusCompleted.Terminal())
	})

	t.Run("blocking", func(t *testing.T) {
		assert.True(t, StatusPending.Blocking())
		assert.True(t, StatusConfirmed.Blocking())
		assert.False(t, StatusRejected.Blocking())
		assert.False(t, StatusCancelled.Blocking())
		assert.False(t, StatusCompleted.Blocking())
	})
}

func TestReservation_Elapsed(t *testing.T) {
	end := mustTime(t, "2026-09-01T12:00:00Z")
	r := &Reservation{EndTime: end}

	assert.False(t, r.Elapsed(end.Add(-time.Minute)))
	assert.True(t, r.Elapsed(end))
	assert.True(t, r.Elapsed(end.Add(time.Minute)))
}
