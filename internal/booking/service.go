// Package booking owns the booking lifecycle: creation (funded by credits or
// a subscription session), the status state machine, rescheduling, and the
// dispute metadata. The allowed-transition table is the single source of
// truth for legality; side effects into the ledger and subscription engines
// hang off the target state.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/ledger"
	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/repository"
	"github.com/mentora/backend/internal/subscription"
)

// ErrManualIntervention is returned when a refund is requested after credits
// were already released to the mentor. Double payment must never pass
// unnoticed; an operator has to resolve this by hand.
var ErrManualIntervention = errors.New("credits already released to mentor, manual intervention required")

// ErrInvalidWindow is returned when the lesson time window is malformed.
var ErrInvalidWindow = errors.New("lesson start must be before end")

// ErrNotReschedulable is returned when the booking has left its pre-lesson states.
var ErrNotReschedulable = errors.New("booking can no longer be rescheduled")

// InvalidTransitionError reports an illegal status change with the attempted
// and allowed transitions for diagnostics.
type InvalidTransitionError struct {
	From    string
	To      string
	Allowed []string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition %s -> %s (allowed: %v)", e.From, e.To, e.Allowed)
}

// transitions is the allowed-transition table. Anything not listed is
// rejected.
var transitions = map[string][]string{
	models.BookingScheduled:   {models.BookingRescheduled, models.BookingCompleted, models.BookingCancelled, models.BookingNoShow},
	models.BookingRescheduled: {models.BookingRescheduled, models.BookingCompleted, models.BookingCancelled, models.BookingNoShow},
	models.BookingCompleted:   {models.BookingDisputed},
	models.BookingNoShow:      {models.BookingDisputed},
	models.BookingDisputed:    {models.BookingRefunded, models.BookingCompleted},
	models.BookingCancelled:   {},
	models.BookingRefunded:    {},
}

func allowed(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CreateInput describes a new booking request.
type CreateInput struct {
	MenteeID    uuid.UUID
	MentorID    uuid.UUID
	StartAt     time.Time
	EndAt       time.Time
	Cost        decimal.Decimal
	FundingType string
}

// TransitionInput carries the target state plus dispute metadata where the
// target requires it.
type TransitionInput struct {
	Target          string
	DisputeReason   string
	DisputeEvidence string
	ResolutionNote  string
}

type Service interface {
	Create(ctx context.Context, actor identity.Actor, in CreateInput) (*models.Booking, error)
	// UpdateStatus applies one legal transition with its ledger/quota side
	// effects, all under the booking's lock.
	UpdateStatus(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, in TransitionInput) (*models.Booking, error)
	Reschedule(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, startAt, endAt time.Time) (*models.Booking, error)
	Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

type service struct {
	bookings *repository.Bookings
	ledger   ledger.Service
	subs     subscription.Service
	locks    *lock.Manager
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(bookings *repository.Bookings, ledgerSvc ledger.Service, subs subscription.Service, locks *lock.Manager, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		bookings: bookings,
		ledger:   ledgerSvc,
		subs:     subs,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*models.Booking, error) {
	if err := identity.RequireSelf(actor, in.MenteeID); err != nil {
		return nil, err
	}
	if !in.StartAt.Before(in.EndAt) {
		return nil, ErrInvalidWindow
	}
	if in.FundingType != models.FundingCredit && in.FundingType != models.FundingSubscription {
		return nil, fmt.Errorf("unknown funding type %q", in.FundingType)
	}

	now := s.now()
	b := &models.Booking{
		ID:           uuid.New(),
		MenteeID:     in.MenteeID,
		MentorID:     in.MentorID,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		Cost:         in.Cost.Round(2),
		FundingType:  in.FundingType,
		Status:       models.BookingScheduled,
		CreditStatus: models.CreditPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch in.FundingType {
	case models.FundingCredit:
		if _, err := s.ledger.Hold(ctx, b.ID, in.MenteeID, in.MentorID, b.Cost); err != nil {
			return nil, err
		}
	case models.FundingSubscription:
		sub, err := s.subs.Consume(ctx, in.MenteeID, in.MentorID, b.ID)
		if err != nil {
			return nil, err
		}
		b.SubscriptionID = &sub.ID
	}

	if err := s.bookings.Save(ctx, b); err != nil {
		s.compensateFunding(ctx, b, err)
		return nil, err
	}
	return b, nil
}

// compensateFunding undoes the funding side effect when persisting the
// booking record fails after the hold/consume succeeded.
func (s *service) compensateFunding(ctx context.Context, b *models.Booking, cause error) {
	var err error
	switch b.FundingType {
	case models.FundingCredit:
		_, err = s.ledger.Refund(ctx, b.ID)
	case models.FundingSubscription:
		_, err = s.subs.Restore(ctx, b.MenteeID, b.MentorID, b.ID)
	}
	if err != nil {
		s.logger.Error("funding compensation failed after booking save error",
			"booking_id", b.ID, "save_error", cause, "compensation_error", err)
	}
}

func (s *service) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

func (s *service) UpdateStatus(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, in TransitionInput) (*models.Booking, error) {
	var result *models.Booking
	err := s.locks.WithLock(ctx, lock.Booking(bookingID), func(ctx context.Context) error {
		b, err := s.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := s.authorizeTransition(actor, b, in.Target); err != nil {
			return err
		}
		if !allowed(b.Status, in.Target) {
			return &InvalidTransitionError{From: b.Status, To: in.Target, Allowed: transitions[b.Status]}
		}

		// Guard before any write: a refund after release is a hard
		// failure, not a skipped side effect.
		if in.Target == models.BookingRefunded &&
			b.FundingType == models.FundingCredit &&
			b.CreditStatus == models.CreditReleased {
			return fmt.Errorf("booking %s: %w", b.ID, ErrManualIntervention)
		}

		if err := s.applySideEffects(ctx, b, in.Target); err != nil {
			return err
		}

		now := s.now()
		b.Status = in.Target
		switch in.Target {
		case models.BookingDisputed:
			b.DisputeReason = in.DisputeReason
			b.DisputeEvidence = in.DisputeEvidence
			b.DisputedAt = &now
		case models.BookingRefunded, models.BookingCompleted:
			if b.DisputedAt != nil && b.ResolvedAt == nil {
				b.ResolutionNote = in.ResolutionNote
				b.ResolvedAt = &now
			}
		}
		b.UpdatedAt = now
		if err := s.bookings.Save(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	return result, err
}

// authorizeTransition gates who may drive each transition: participants for
// lesson outcomes, the mentee for disputes, admins for dispute resolution.
func (s *service) authorizeTransition(actor identity.Actor, b *models.Booking, target string) error {
	switch target {
	case models.BookingRefunded:
		return identity.RequireAdmin(actor)
	case models.BookingCompleted:
		if b.Status == models.BookingDisputed {
			return identity.RequireAdmin(actor)
		}
		if !actor.Is(b.MentorID) && !actor.Is(b.MenteeID) {
			return fmt.Errorf("%w: not a participant of booking %s", identity.ErrForbidden, b.ID)
		}
		return nil
	case models.BookingDisputed:
		return identity.RequireSelf(actor, b.MenteeID)
	default:
		if !actor.Is(b.MentorID) && !actor.Is(b.MenteeID) {
			return fmt.Errorf("%w: not a participant of booking %s", identity.ErrForbidden, b.ID)
		}
		return nil
	}
}

// applySideEffects runs the ledger/quota consequences of entering target.
// The booking lock is already held; ledger settlement re-enters it.
func (s *service) applySideEffects(ctx context.Context, b *models.Booking, target string) error {
	switch target {
	case models.BookingCompleted:
		if b.FundingType == models.FundingCredit && b.CreditStatus == models.CreditPending {
			if _, err := s.ledger.Release(ctx, b.ID); err != nil {
				return err
			}
			b.CreditStatus = models.CreditReleased
		}
		// Subscription bookings settled at booking time; nothing to move.

	case models.BookingCancelled:
		return s.returnFunding(ctx, b, true)

	case models.BookingNoShow:
		return s.returnFunding(ctx, b, false)

	case models.BookingRefunded:
		return s.returnFunding(ctx, b, false)

	case models.BookingDisputed, models.BookingRescheduled:
		// No balance effect.
	}
	return nil
}

// returnFunding refunds a credit hold or restores a subscription session.
// Cancellation spends the subscription's cancel allowance first; with the
// allowance exhausted the session is forfeited rather than restored.
func (s *service) returnFunding(ctx context.Context, b *models.Booking, isCancellation bool) error {
	switch b.FundingType {
	case models.FundingCredit:
		if b.CreditStatus != models.CreditPending {
			return nil
		}
		if _, err := s.ledger.Refund(ctx, b.ID); err != nil {
			return err
		}
		b.CreditStatus = models.CreditRefunded

	case models.FundingSubscription:
		if b.SubscriptionID == nil {
			return nil
		}
		if isCancellation {
			spent, err := s.subs.SpendCancel(ctx, b.MenteeID, b.MentorID, *b.SubscriptionID)
			if err != nil {
				return err
			}
			if !spent {
				s.logger.Warn("cancel allowance exhausted, session forfeited",
					"booking_id", b.ID, "subscription_id", *b.SubscriptionID)
				b.CreditStatus = models.CreditReleased
				return nil
			}
		}
		if _, err := s.subs.Restore(ctx, b.MenteeID, b.MentorID, b.ID); err != nil {
			return err
		}
		b.CreditStatus = models.CreditRefunded
	}
	return nil
}

func (s *service) Reschedule(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, startAt, endAt time.Time) (*models.Booking, error) {
	if !startAt.Before(endAt) {
		return nil, ErrInvalidWindow
	}
	var result *models.Booking
	err := s.locks.WithLock(ctx, lock.Booking(bookingID), func(ctx context.Context) error {
		b, err := s.bookings.Get(ctx, bookingID)
		if err != nil {
			return err
		}
		if !actor.Is(b.MenteeID) && !actor.Is(b.MentorID) {
			return fmt.Errorf("%w: not a participant of booking %s", identity.ErrForbidden, b.ID)
		}
		if b.Status != models.BookingScheduled && b.Status != models.BookingRescheduled {
			return fmt.Errorf("booking %s is %s: %w", b.ID, b.Status, ErrNotReschedulable)
		}
		if b.FundingType == models.FundingSubscription && b.SubscriptionID != nil {
			if err := s.subs.SpendReschedule(ctx, b.MenteeID, b.MentorID, *b.SubscriptionID); err != nil {
				return err
			}
		}
		b.StartAt = startAt
		b.EndAt = endAt
		b.Status = models.BookingRescheduled
		b.UpdatedAt = s.now()
		if err := s.bookings.Save(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	return result, err
}
