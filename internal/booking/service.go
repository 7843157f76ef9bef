// Package booking owns the reservation lifecycle: creation, status
// transitions, and the coupling to payment signals. Reservations are created
// and mutated only through this service.
package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kerbside/internal/availability"
	"kerbside/internal/database"
	"kerbside/internal/metrics"
	"kerbside/internal/models"
)

// SystemActor marks transitions driven by collaborators (payment signal,
// completion sweep) rather than a user.
const SystemActor int64 = 0

// EventStatusChanged is published on every successful transition.
const EventStatusChanged = "reservation.status_changed"

// StatusChange is the domain event payload. Delivery and fan-out belong to
// the notification collaborator.
type StatusChange struct {
	ReservationUUID string                   `json:"reservation_uuid"`
	From            models.ReservationStatus `json:"from"`
	To              models.ReservationStatus `json:"to"`
}

// Repository provides reservation and space storage.
type Repository interface {
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	GetReservationByUUID(ctx context.Context, uuid string) (*models.Reservation, error)
	CreateReservationWithGuard(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, upd models.StatusUpdate) error
	UpdatePaymentStatus(ctx context.Context, id int64, payment models.PaymentStatus) error
	ListElapsedConfirmed(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

// EventBus publishes domain events.
type EventBus interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Service is the reservation state machine.
type Service struct {
	repo             Repository
	bus              EventBus
	resolver         *availability.Resolver
	fsm              *FSM
	minAdvance       time.Duration
	maxAdvanceMonths int
	now              func() time.Time
	logger           *zerolog.Logger
}

// NewService creates the booking service. maxAdvanceMonths bounds how far
// ahead a window may start; zero means the six month default.
func NewService(repo Repository, bus EventBus, resolver *availability.Resolver,
	minAdvance time.Duration, maxAdvanceMonths int, logger *zerolog.Logger) *Service {
	if maxAdvanceMonths <= 0 {
		maxAdvanceMonths = 6
	}
	return &Service{
		repo:             repo,
		bus:              bus,
		resolver:         resolver,
		fsm:              NewFSM(),
		minAdvance:       minAdvance,
		maxAdvanceMonths: maxAdvanceMonths,
		now:              time.Now,
		logger:           logger,
	}
}

// Location returns the canonical timezone for calendar-date inputs.
func (s *Service) Location() *time.Location {
	return s.resolver.Location()
}

// Create validates and persists a new reservation in pending status.
// The self-booking check comes before window validation. The conflict check
// and the insert run as one storage transaction, so two racing creates for
// the same window cannot both succeed.
func (s *Service) Create(ctx context.Context, spaceID, requesterID int64, start, end time.Time) (*models.Reservation, error) {
	space, err := s.repo.GetSpace(ctx, spaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if space.OwnerID == requesterID {
		return nil, ErrSelfBooking
	}

	date, startClock, endClock, ok := s.resolver.SplitWindow(start, end)
	if !ok {
		return nil, ErrInvalidWindow
	}

	now := s.now()
	if !start.After(now.Add(s.minAdvance)) {
		return nil, ErrInvalidWindow
	}
	if start.After(now.AddDate(0, s.maxAdvanceMonths, 0)) {
		return nil, ErrInvalidWindow
	}

	if !space.Bookable() {
		return nil, ErrNotAvailable
	}

	match, ok := s.resolver.Resolve(space, date, startClock, endClock)
	if !ok {
		metrics.IncReservationCreated("not_available")
		return nil, ErrNotAvailable
	}

	r := &models.Reservation{
		UUID:          uuid.NewString(),
		SpaceID:       spaceID,
		RequesterID:   requesterID,
		StartTime:     start,
		EndTime:       end,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
		TotalAmount:   match.Rate * end.Sub(start).Hours(),
	}

	if err := s.repo.CreateReservationWithGuard(ctx, r); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncReservationCreated("slot_taken")
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	metrics.IncReservationCreated("created")
	s.publish(r.UUID, "", models.StatusPending)
	s.logger.Info().
		Str("reservation", r.UUID).
		Int64("space_id", spaceID).
		Int64("requester_id", requesterID).
		Float64("total_amount", r.TotalAmount).
		Msg("reservation created")
	return r, nil
}

// Transition applies a lifecycle action on behalf of an actor. Repeating a
// transition whose target status already holds is a no-op success; any other
// transition out of a terminal status fails with ErrInvalidTransition.
func (s *Service) Transition(ctx context.Context, reservationUUID string, action Action, actorID int64) (*models.Reservation, error) {
	to, ok := actionTarget[action]
	if !ok {
		return nil, ErrInvalidTransition
	}

	r, err := s.repo.GetReservationByUUID(ctx, reservationUUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if r.Status == to {
		return r, nil // already there, idempotent
	}
	if !s.fsm.CanTransition(r.Status, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.authorize(ctx, r, action, actorID); err != nil {
		return nil, err
	}

	from := r.Status
	upd := models.StatusUpdate{From: from, To: to}
	now := s.now()
	switch to {
	case models.StatusConfirmed:
		paid := models.PaymentPaid
		upd.Payment = &paid
	case models.StatusCancelled:
		upd.CancelledAt = &now
	case models.StatusCompleted:
		upd.CompletedAt = &now
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, upd); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) {
			// A racing transition won; re-read and treat arrival at
			// the same target as success.
			current, rerr := s.repo.GetReservationByUUID(ctx, reservationUUID)
			if rerr == nil && current.Status == to {
				return current, nil
			}
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	metrics.IncTransition(string(action))
	s.publish(r.UUID, from, to)
	s.logger.Info().
		Str("reservation", r.UUID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("actor_id", actorID).
		Msg("reservation transition")

	return s.repo.GetReservationByUUID(ctx, reservationUUID)
}

// authorize enforces who may drive each transition. Confirm and Complete are
// system actions; Reject belongs to the owner; Cancel to the requester, or to
// the owner once the reservation is confirmed.
func (s *Service) authorize(ctx context.Context, r *models.Reservation, action Action, actorID int64) error {
	if actorID == SystemActor {
		if action == ActionConfirm || action == ActionComplete {
			return nil
		}
		return ErrForbidden
	}

	space, err := s.repo.GetSpace(ctx, r.SpaceID)
	if err != nil {
		return err
	}

	switch action {
	case ActionReject:
		if actorID == space.OwnerID {
			return nil
		}
	case ActionCancel:
		if actorID == r.RequesterID {
			return nil
		}
		if r.Status == models.StatusConfirmed && actorID == space.OwnerID {
			return nil
		}
	case ActionComplete:
		if actorID == space.OwnerID {
			return nil
		}
	}
	return ErrForbidden
}

// HandlePaymentResult maps the payment collaborator's signal onto the state
// machine: success confirms a pending reservation, failure records the failed
// charge and leaves it pending for retry.
func (s *Service) HandlePaymentResult(ctx context.Context, reservationUUID string, succeeded bool) (*models.Reservation, error) {
	if succeeded {
		return s.Transition(ctx, reservationUUID, ActionConfirm, SystemActor)
	}

	r, err := s.repo.GetReservationByUUID(ctx, reservationUUID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, ErrInvalidTransition
	}
	if err := s.repo.UpdatePaymentStatus(ctx, r.ID, models.PaymentFailed); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("reservation", r.UUID).Msg("payment failed, reservation stays pending")
	return s.repo.GetReservationByUUID(ctx, reservationUUID)
}

// CompleteElapsed transitions confirmed reservations whose window has passed
// to completed. Returns how many were completed.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	elapsed, err := s.repo.ListElapsedConfirmed(ctx, s.now())
	if err != nil {
		return 0, err
	}

	completed := 0
	for i := range elapsed {
		if _, err := s.Transition(ctx, elapsed[i].UUID, ActionComplete, SystemActor); err != nil {
			s.logger.Error().Err(err).Str("reservation", elapsed[i].UUID).Msg("completion sweep failed")
			continue
		}
		completed++
	}
	return completed, nil
}

// ResolveAvailability is the pre-flight "can I book this?" check. It does not
// consult existing reservations; pair with HasConflict for full bookability.
func (s *Service) ResolveAvailability(ctx context.Context, spaceID int64, date time.Time, startClock, endClock string) (availability.Match, bool, error) {
	space, err := s.repo.GetSpace(ctx, spaceID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return availability.Match{}, false, ErrNotFound
		}
		return availability.Match{}, false, err
	}
	if !space.Bookable() {
		return availability.Match{}, false, nil
	}
	match, ok := s.resolver.Resolve(space, date, startClock, endClock)
	return match, ok, nil
}

func (s *Service) publish(reservationUUID string, from, to models.ReservationStatus) {
	if s.bus == nil {
		return
	}
	err := s.bus.PublishJSON(EventStatusChanged, StatusChange{
		ReservationUUID: reservationUUID,
		From:            from,
		To:              to,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("reservation", reservationUUID).Msg("event publish failed")
	}
}
