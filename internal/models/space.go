package models

import (
	"fmt"
	"time"
)

// Coordinates is a geographic point in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Space represents a driveway listed for hourly parking.
type Space struct {
	ID          int64              `json:"id"`
	OwnerID     int64              `json:"owner_id"`
	Address     string             `json:"address"`
	Coords      *Coordinates       `json:"coords,omitempty"` // nil until geocoded
	IsActive    bool               `json:"is_active"`        // soft-delete flag
	IsAvailable bool               `json:"is_available"`     // owner toggle
	HourlyRate  float64            `json:"hourly_rate"`
	Rules       []AvailabilityRule `json:"rules,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Bookable reports whether the space may appear in search and accept bookings.
// An inactive space is invisible regardless of the availability toggle.
func (s *Space) Bookable() bool {
	return s.IsActive && s.IsAvailable
}

// RuleKind discriminates the two availability rule variants.
type RuleKind string

const (
	RuleRecurring    RuleKind = "recurring"
	RuleDateOverride RuleKind = "date_override"
)

// AvailabilityRule states when a space is bookable and at what rate.
// Recurring rules repeat weekly; date overrides apply to a single calendar
// date and take precedence over any recurring rule for that date.
type AvailabilityRule struct {
	ID         int64        `json:"id"`
	SpaceID    int64        `json:"space_id"`
	Kind       RuleKind     `json:"kind"`
	Weekday    time.Weekday `json:"weekday,omitempty"`     // recurring only
	Date       time.Time    `json:"date,omitempty"`        // override only, midnight in the booking timezone
	StartTime  string       `json:"start_time"`            // "08:00"
	EndTime    string       `json:"end_time"`              // "18:00"
	Enabled    bool         `json:"enabled"`               // recurring only
	HourlyRate float64      `json:"hourly_rate,omitempty"` // override only
}

// Validate checks rule shape. Times are HH:MM and compare lexicographically,
// so start < end also means the window does not span midnight.
func (r *AvailabilityRule) Validate() error {
	switch r.Kind {
	case RuleRecurring:
		if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
			return fmt.Errorf("invalid weekday %d", r.Weekday)
		}
	case RuleDateOverride:
		if r.Date.IsZero() {
			return fmt.Errorf("date override requires a date")
		}
		if r.HourlyRate < 0 {
			return fmt.Errorf("negative hourly rate")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	if !validClock(r.StartTime) || !validClock(r.EndTime) {
		return fmt.Errorf("times must be HH:MM, got %q-%q", r.StartTime, r.EndTime)
	}
	if r.StartTime >= r.EndTime {
		return fmt.Errorf("start time %s must be before end time %s", r.StartTime, r.EndTime)
	}
	return nil
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hh := int(s[0]-'0')*10 + int(s[1]-'0')
	mm := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	return hh < 24 && mm < 60
}
