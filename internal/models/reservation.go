package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusRejected  ReservationStatus = "rejected"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Terminal reports whether no further transition is possible from the status.
func (s ReservationStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusCompleted
}

// Blocking reports whether a reservation in this status occupies its window
// for conflict purposes.
func (s ReservationStatus) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

// PaymentStatus tracks the payment collaborator's signal for a reservation.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Reservation is a requester's claim on a space for a time window.
// Rows are never deleted; cancellation and rejection are terminal statuses.
type Reservation struct {
	ID            int64             `json:"id"`
	UUID          string            `json:"uuid"`
	SpaceID       int64             `json:"space_id"`
	RequesterID   int64             `json:"requester_id"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	Status        ReservationStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	TotalAmount   float64           `json:"total_amount"` // rate captured at creation, never re-derived
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	Version       int64             `json:"version"`
}

// StatusUpdate describes a guarded status transition write. From and the
// row version act as the optimistic check; the nullable fields are applied
// only when set.
type StatusUpdate struct {
	From        ReservationStatus
	To          ReservationStatus
	Payment     *PaymentStatus
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// Overlaps reports whether two half-open windows [s1,e1) and [s2,e2) overlap.
// Touching endpoints do not conflict: a booking ending at 14:00 does not
// overlap one starting at 14:00.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// OverlapsWith checks this reservation's window against another's.
func (r *Reservation) OverlapsWith(other *Reservation) bool {
	return Overlaps(r.StartTime, r.EndTime, other.StartTime, other.EndTime)
}

// Elapsed reports whether the reservation window has fully passed.
func (r *Reservation) Elapsed(now time.Time) bool {
	return !now.Before(r.EndTime)
}
