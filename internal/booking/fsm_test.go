package booking

import (
	"testing"

	"kerbside/internal/models"
)

func TestFSM_CanTransition(t *testing.T) {
	fsm := NewFSM()

	tests := []struct {
		from     models.ReservationStatus
		to       models.ReservationStatus
		expected bool
	}{
		{models.StatusPending, models.StatusConfirmed, true},
		{models.StatusPending, models.StatusRejected, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusPending, models.StatusCompleted, false},

		{models.StatusConfirmed, models.StatusCancelled, true},
		{models.StatusConfirmed, models.StatusCompleted, true},
		{models.StatusConfirmed, models.StatusPending, false},
		{models.StatusConfirmed, models.StatusRejected, false},

		// Terminal statuses allow nothing out.
		{models.StatusRejected, models.StatusPending, false},
		{models.StatusRejected, models.StatusConfirmed, false},
		{models.StatusCancelled, models.StatusConfirmed, false},
		{models.StatusCancelled, models.StatusPending, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCompleted, models.StatusConfirmed, false},
	}

	for _, tt := range tests {
		if got := fsm.CanTransition(tt.from, tt.to); got != tt.expected {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestActionTargets(t *testing.T) {
	tests := []struct {
		action Action
		target models.ReservationStatus
	}{
		{ActionConfirm, models.StatusConfirmed},
		{ActionReject, models.StatusRejected},
		{ActionCancel, models.StatusCancelled},
		{ActionComplete, models.StatusCompleted},
	}
	for _, tt := range tests {
		if got := actionTarget[tt.action]; got != tt.target {
			t.Errorf("actionTarget[%s] = %s, want %s", tt.action, got, tt.target)
		}
	}

	if _, ok := actionTarget[Action("archive")]; ok {
		t.Error("unknown action must have no target")
	}
}
