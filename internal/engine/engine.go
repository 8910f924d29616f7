// Package engine wires the settlement components over one store and lock
// manager and exposes the operations the host application calls.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/booking"
	"github.com/mentora/backend/internal/commission"
	"github.com/mentora/backend/internal/dispute"
	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/ledger"
	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/payout"
	"github.com/mentora/backend/internal/repository"
	"github.com/mentora/backend/internal/store"
	"github.com/mentora/backend/internal/subscription"
)

type Engine struct {
	Users         *repository.Users
	Audit         *repository.Audit
	Ledger        ledger.Service
	Bookings      booking.Service
	Subscriptions subscription.Service
	Payouts       payout.Service
	Commissions   commission.Service
	Disputes      dispute.Service
	Locks         *lock.Manager
	Verifier      *identity.Verifier
}

func New(st store.Store, locks *lock.Manager, verifier *identity.Verifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	users := repository.NewUsers(st)
	bookings := repository.NewBookings(st)
	entries := repository.NewLedger(st)
	subs := repository.NewSubscriptions(st)
	payouts := repository.NewPayouts(st)
	commissions := repository.NewCommissions(st)
	audit := repository.NewAudit(st)

	ledgerSvc := ledger.NewService(users, entries, audit, locks, logger)
	subSvc := subscription.NewService(users, subs, audit, locks, logger)
	bookingSvc := booking.NewService(bookings, ledgerSvc, subSvc, locks, logger)

	return &Engine{
		Users:         users,
		Audit:         audit,
		Ledger:        ledgerSvc,
		Bookings:      bookingSvc,
		Subscriptions: subSvc,
		Payouts:       payout.NewService(users, entries, payouts, audit, locks, logger),
		Commissions:   commission.NewService(users, commissions, audit, locks, logger),
		Disputes:      dispute.NewService(bookingSvc),
		Locks:         locks,
		Verifier:      verifier,
	}
}

// Authenticate resolves a host-issued actor token into the actor the entry
// points take for permission checks.
func (e *Engine) Authenticate(token string) (identity.Actor, error) {
	return e.Verifier.Verify(token)
}

// Entry points, named for the host application's call sites. Each delegates
// to the owning service.

func (e *Engine) HoldCreditOnBooking(ctx context.Context, bookingID, payerID, payeeID uuid.UUID, amount decimal.Decimal) (*models.LedgerEntry, error) {
	return e.Ledger.Hold(ctx, bookingID, payerID, payeeID, amount)
}

func (e *Engine) ReleaseCreditToMentor(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error) {
	return e.Ledger.Release(ctx, bookingID)
}

func (e *Engine) RefundCreditToMentee(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error) {
	return e.Ledger.Refund(ctx, bookingID)
}

func (e *Engine) CreateBooking(ctx context.Context, actor identity.Actor, in booking.CreateInput) (*models.Booking, error) {
	return e.Bookings.Create(ctx, actor, in)
}

func (e *Engine) UpdateBookingStatus(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, in booking.TransitionInput) (*models.Booking, error) {
	return e.Bookings.UpdateStatus(ctx, actor, bookingID, in)
}

func (e *Engine) RescheduleBooking(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, startAt, endAt time.Time) (*models.Booking, error) {
	return e.Bookings.Reschedule(ctx, actor, bookingID, startAt, endAt)
}

func (e *Engine) PurchaseSubscription(ctx context.Context, actor identity.Actor, menteeID, mentorID, planID uuid.UUID) (*models.Subscription, error) {
	if err := identity.RequireSelf(actor, menteeID); err != nil {
		return nil, err
	}
	return e.Subscriptions.Purchase(ctx, menteeID, mentorID, planID)
}

func (e *Engine) ConsumeSubscriptionSession(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error) {
	return e.Subscriptions.Consume(ctx, menteeID, mentorID, bookingID)
}

func (e *Engine) RestoreSubscriptionSession(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error) {
	return e.Subscriptions.Restore(ctx, menteeID, mentorID, bookingID)
}

func (e *Engine) GetPayoutBalance(ctx context.Context, mentorID uuid.UUID) (*payout.Balance, error) {
	return e.Payouts.GetBalance(ctx, mentorID)
}

func (e *Engine) RequestPayout(ctx context.Context, actor identity.Actor, mentorID uuid.UUID, amount decimal.Decimal, method string) (*models.Payout, error) {
	return e.Payouts.Request(ctx, actor, mentorID, amount, method)
}

func (e *Engine) ApprovePayout(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error) {
	return e.Payouts.Approve(ctx, actor, payoutID, note)
}

func (e *Engine) RejectPayout(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error) {
	return e.Payouts.Reject(ctx, actor, payoutID, note)
}

func (e *Engine) MarkPayoutPaid(ctx context.Context, actor identity.Actor, payoutID uuid.UUID) (*models.Payout, error) {
	return e.Payouts.MarkPaid(ctx, actor, payoutID)
}

func (e *Engine) ProcessTopupCommission(ctx context.Context, menteeID uuid.UUID, topupAmount decimal.Decimal, topupTxID string) (*models.Commission, error) {
	return e.Commissions.ProcessTopup(ctx, menteeID, topupAmount, topupTxID)
}

func (e *Engine) ResolveDispute(ctx context.Context, actor identity.Actor, bookingID uuid.UUID, outcome, note string) (*models.Booking, error) {
	return e.Disputes.Resolve(ctx, actor, bookingID, outcome, note)
}

func (e *Engine) CanRefundDispute(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	return e.Disputes.CanRefund(ctx, bookingID)
}
