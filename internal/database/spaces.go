package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kerbside/internal/models"
)

const overrideDateLayout = "2006-01-02"

// CreateSpace inserts a space and its availability rules.
func (db *DB) CreateSpace(ctx context.Context, s *models.Space) error {
	now := time.Now()
	var lat, lng any
	if s.Coords != nil {
		lat, lng = s.Coords.Lat, s.Coords.Lng
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO spaces (owner_id, address, lat, lng, is_active, is_available, hourly_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.OwnerID, s.Address, lat, lng, s.IsActive, s.IsAvailable, s.HourlyRate, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert space: %w", err)
	}

	s.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	s.CreatedAt, s.UpdatedAt = now, now

	if len(s.Rules) > 0 {
		if err := db.ReplaceRules(ctx, s.ID, s.Rules); err != nil {
			return err
		}
	}
	return nil
}

// GetSpace returns a space with its rules loaded.
func (db *DB) GetSpace(ctx context.Context, id int64) (*models.Space, error) {
	s, err := db.scanSpace(db.QueryRowContext(ctx, `
		SELECT id, owner_id, address, lat, lng, is_active, is_available, hourly_rate, created_at, updated_at
		FROM spaces WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	s.Rules, err = db.ListRules(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListBookableSpaces returns active, available spaces with rules loaded.
func (db *DB) ListBookableSpaces(ctx context.Context) ([]models.Space, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, owner_id, address, lat, lng, is_active, is_available, hourly_rate, created_at, updated_at
		FROM spaces WHERE is_active = 1 AND is_available = 1
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spaces []models.Space
	for rows.Next() {
		s, err := db.scanSpace(rows)
		if err != nil {
			return nil, err
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range spaces {
		spaces[i].Rules, err = db.ListRules(ctx, spaces[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return spaces, nil
}

// UpdateSpaceRate changes the base hourly rate. Existing reservations keep
// the amount captured at creation.
func (db *DB) UpdateSpaceRate(ctx context.Context, id int64, rate float64) error {
	return db.execOne(ctx, `UPDATE spaces SET hourly_rate = ?, updated_at = ? WHERE id = ?`,
		rate, time.Now(), id)
}

// SetSpaceAvailable flips the owner availability toggle.
func (db *DB) SetSpaceAvailable(ctx context.Context, id int64, available bool) error {
	return db.execOne(ctx, `UPDATE spaces SET is_available = ?, updated_at = ? WHERE id = ?`,
		available, time.Now(), id)
}

// DeactivateSpace soft-deletes a space; it becomes invisible to search and
// booking but its reservation history remains.
func (db *DB) DeactivateSpace(ctx context.Context, id int64) error {
	return db.execOne(ctx, `UPDATE spaces SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now(), id)
}

// UpdateSpaceCoords caches geocoded coordinates for a space.
func (db *DB) UpdateSpaceCoords(ctx context.Context, id int64, coords models.Coordinates) error {
	return db.execOne(ctx, `UPDATE spaces SET lat = ?, lng = ?, updated_at = ? WHERE id = ?`,
		coords.Lat, coords.Lng, time.Now(), id)
}

// ReplaceRules atomically replaces a space's availability rules.
func (db *DB) ReplaceRules(ctx context.Context, spaceID int64, rules []models.AvailabilityRule) error {
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE space_id = ?`, spaceID); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}

	for i := range rules {
		r := &rules[i]
		var date any
		if r.Kind == models.RuleDateOverride {
			date = r.Date.Format(overrideDateLayout)
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO availability_rules (space_id, kind, weekday, date, start_time, end_time, enabled, hourly_rate)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			spaceID, r.Kind, int(r.Weekday), date, r.StartTime, r.EndTime, r.Enabled, r.HourlyRate,
		)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
		r.ID, _ = result.LastInsertId()
		r.SpaceID = spaceID
	}

	return tx.Commit()
}

// ListRules returns a space's rules in insertion order.
func (db *DB) ListRules(ctx context.Context, spaceID int64) ([]models.AvailabilityRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, space_id, kind, weekday, date, start_time, end_time, enabled, hourly_rate
		FROM availability_rules WHERE space_id = ? ORDER BY id`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.AvailabilityRule
	for rows.Next() {
		var r models.AvailabilityRule
		var weekday sql.NullInt64
		var date sql.NullString
		if err := rows.Scan(&r.ID, &r.SpaceID, &r.Kind, &weekday, &date,
			&r.StartTime, &r.EndTime, &r.Enabled, &r.HourlyRate); err != nil {
			return nil, err
		}
		if weekday.Valid {
			r.Weekday = time.Weekday(weekday.Int64)
		}
		if date.Valid && date.String != "" {
			r.Date, err = time.Parse(overrideDateLayout, date.String)
			if err != nil {
				return nil, fmt.Errorf("parse rule date %q: %w", date.String, err)
			}
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanSpace(row rowScanner) (*models.Space, error) {
	var s models.Space
	var lat, lng sql.NullFloat64
	err := row.Scan(&s.ID, &s.OwnerID, &s.Address, &lat, &lng,
		&s.IsActive, &s.IsAvailable, &s.HourlyRate, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		s.Coords = &models.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &s, nil
}

func (db *DB) execOne(ctx context.Context, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
