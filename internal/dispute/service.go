// Package dispute is the admin-mediated outcome of a DISPUTED booking. It
// delegates to the booking state machine, inheriting its credit-status
// guards, and exposes a read-only CanRefund check so callers can disable a
// refund action when credits were already released.
package dispute

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/booking"
	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/models"
)

// Resolution outcomes.
const (
	OutcomeRefundMentee = "REFUND_MENTEE"
	OutcomeDismiss      = "DISMISS"
)

type Service interface {
	Resolve(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, outcome, note string) (*models.Booking, error)
	// CanRefund reports whether resolving with REFUND_MENTEE could succeed
	// for the booking's current ledger state.
	CanRefund(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

type service struct {
	bookings booking.Service
}

func NewService(bookings booking.Service) Service {
	return &service{bookings: bookings}
}

var _ Service = (*service)(nil)

func (s *service) Resolve(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, outcome, note string) (*models.Booking, error) {
	if err := identity.RequireAdmin(actor); err != nil {
		return nil, err
	}
	var target string
	switch outcome {
	case OutcomeRefundMentee:
		target = models.BookingRefunded
	case OutcomeDismiss:
		target = models.BookingCompleted
	default:
		return nil, fmt.Errorf("unknown dispute outcome %q", outcome)
	}
	return s.bookings.UpdateStatus(ctx, actor, bookingID, booking.TransitionInput{
		Target:         target,
		ResolutionNote: note,
	})
}

func (s *service) CanRefund(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if b.Status != models.BookingDisputed {
		return false, nil
	}
	if b.FundingType == models.FundingCredit && b.CreditStatus == models.CreditReleased {
		return false, nil
	}
	return true, nil
}
