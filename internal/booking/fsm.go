package booking

import "kerbside/internal/models"

// Action is a caller-requested lifecycle transition.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"
)

// actionTarget maps each action to the status it produces.
var actionTarget = map[Action]models.ReservationStatus{
	ActionConfirm:  models.StatusConfirmed,
	ActionReject:   models.StatusRejected,
	ActionCancel:   models.StatusCancelled,
	ActionComplete: models.StatusCompleted,
}

// FSM holds the allowed reservation status transitions.
type FSM struct {
	transitions map[models.ReservationStatus][]models.ReservationStatus
}

// NewFSM creates the reservation lifecycle FSM:
//
//	pending   -> confirmed | rejected | cancelled
//	confirmed -> cancelled | completed
//
// rejected, cancelled and completed are terminal.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[models.ReservationStatus][]models.ReservationStatus{
			models.StatusPending:   {models.StatusConfirmed, models.StatusRejected, models.StatusCancelled},
			models.StatusConfirmed: {models.StatusCancelled, models.StatusCompleted},
		},
	}
}

// CanTransition checks if the transition is allowed.
func (f *FSM) CanTransition(from, to models.ReservationStatus) bool {
	allowed, ok := f.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
