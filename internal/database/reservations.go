package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"kerbside/internal/models"
)

const reservationColumns = `id, uuid, space_id, requester_id, start_time, end_time,
	status, payment_status, total_amount, created_at, updated_at, cancelled_at, completed_at, version`

// HasConflict reports whether any pending or confirmed reservation for the
// space overlaps [start, end). Half-open semantics: touching endpoints do not
// conflict. Window bounds are normalized to UTC before binding; the driver
// serializes time.Time in the value's own offset and the window comparison is
// textual, so mixed offsets would misorder.
func (db *DB) HasConflict(ctx context.Context, spaceID int64, start, end time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE space_id = ?
		AND status IN ('pending', 'confirmed')
		AND start_time < ? AND end_time > ?`,
		spaceID, end.UTC(), start.UTC(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateReservationWithGuard runs the conflict check and the insert in a
// single write transaction. The connection opens write transactions with
// _txlock=immediate, so two racing creates for the same window serialize and
// the loser observes the winner's row.
func (db *DB) CreateReservationWithGuard(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Same UTC normalization as HasConflict.
	start, end := r.StartTime.UTC(), r.EndTime.UTC()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE space_id = ?
		AND status IN ('pending', 'confirmed')
		AND start_time < ? AND end_time > ?`,
		r.SpaceID, end, start,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("check conflict: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			uuid, space_id, requester_id, start_time, end_time,
			status, payment_status, total_amount, created_at, updated_at, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.UUID, r.SpaceID, r.RequesterID, start, end,
		r.Status, r.PaymentStatus, r.TotalAmount, now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	r.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.CreatedAt, r.UpdatedAt = now, now
	r.Version = 1
	return nil
}

// GetReservation returns a reservation by internal id.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return db.scanReservation(db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
}

// GetReservationByUUID returns a reservation by its public identifier.
func (db *DB) GetReservationByUUID(ctx context.Context, uuid string) (*models.Reservation, error) {
	return db.scanReservation(db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE uuid = ?`, uuid))
}

// UpdateReservationStatusWithVersion applies a transition only if the row
// still has the expected source status and version. Zero rows affected means
// a concurrent transition won.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, upd models.StatusUpdate) error {
	var payment any
	if upd.Payment != nil {
		payment = string(*upd.Payment)
	}

	result, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?,
		    payment_status = COALESCE(?, payment_status),
		    cancelled_at = COALESCE(?, cancelled_at),
		    completed_at = COALESCE(?, completed_at),
		    updated_at = ?,
		    version = version + 1
		WHERE id = ? AND status = ? AND version = ?`,
		upd.To, payment, upd.CancelledAt, upd.CompletedAt, time.Now(),
		id, upd.From, version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdatePaymentStatus records a payment signal without a status transition
// (e.g. a failed charge leaves the reservation pending).
func (db *DB) UpdatePaymentStatus(ctx context.Context, id int64, payment models.PaymentStatus) error {
	return db.execOne(ctx, `
		UPDATE reservations SET payment_status = ?, updated_at = ? WHERE id = ?`,
		payment, time.Now(), id)
}

// ListReservationsBySpace returns the full reservation history for a space.
func (db *DB) ListReservationsBySpace(ctx context.Context, spaceID int64) ([]models.Reservation, error) {
	return db.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE space_id = ? ORDER BY start_time`, spaceID)
}

// ListElapsedConfirmed returns confirmed reservations whose window has fully
// passed, for the completion sweep.
func (db *DB) ListElapsedConfirmed(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	return db.listReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = 'confirmed' AND end_time <= ?`, now.UTC())
}

func (db *DB) listReservations(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		r, err := db.scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func (db *DB) scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var cancelledAt, completedAt sql.NullTime
	err := row.Scan(&r.ID, &r.UUID, &r.SpaceID, &r.RequesterID, &r.StartTime, &r.EndTime,
		&r.Status, &r.PaymentStatus, &r.TotalAmount, &r.CreatedAt, &r.UpdatedAt,
		&cancelledAt, &completedAt, &r.Version)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		r.CancelledAt = &cancelledAt.Time
	}
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}
	return &r, nil
}
