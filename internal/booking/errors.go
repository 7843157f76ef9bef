package booking

import "errors"

// Business-rule outcomes. These are expected results, not failures; callers
// branch on them and surface them verbatim.
var (
	ErrInvalidWindow     = errors.New("invalid reservation window")
	ErrSelfBooking       = errors.New("owner cannot book own space")
	ErrNotAvailable      = errors.New("space not available for requested window")
	ErrSlotTaken         = errors.New("window conflicts with an existing reservation")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("actor not allowed to perform transition")
	ErrNotFound          = errors.New("reservation not found")
)
