package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/ledger"
	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/repository"
	"github.com/mentora/backend/internal/store"
	"github.com/mentora/backend/internal/subscription"
)

type fixture struct {
	svc      Service
	ledger   ledger.Service
	subSvc   subscription.Service
	users    *repository.Users
	bookings *repository.Bookings
	entries  *repository.Ledger
	subs     *repository.Subscriptions

	mentee uuid.UUID
	mentor uuid.UUID
	admin  identity.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := lock.NewManager(logger)

	users := repository.NewUsers(st)
	bookings := repository.NewBookings(st)
	entries := repository.NewLedger(st)
	subs := repository.NewSubscriptions(st)
	audit := repository.NewAudit(st)

	ledgerSvc := ledger.NewService(users, entries, audit, locks, logger)
	subSvc := subscription.NewService(users, subs, audit, locks, logger)

	f := &fixture{
		svc:      NewService(bookings, ledgerSvc, subSvc, locks, logger),
		ledger:   ledgerSvc,
		subSvc:   subSvc,
		users:    users,
		bookings: bookings,
		entries:  entries,
		subs:     subs,
		admin:    identity.Actor{UserID: uuid.New(), Role: models.RoleAdmin},
	}
	f.mentee = f.seedUser(t, models.RoleMentee, 100)
	f.mentor = f.seedUser(t, models.RoleMentor, 0)
	return f
}

func (f *fixture) seedUser(t *testing.T, role string, credits int64) uuid.UUID {
	t.Helper()
	u := &models.User{
		ID:      uuid.New(),
		Role:    role,
		Status:  models.UserStatusActive,
		Credits: decimal.NewFromInt(credits),
	}
	if err := f.users.Save(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func (f *fixture) menteeActor() identity.Actor {
	return identity.Actor{UserID: f.mentee, Role: models.RoleMentee}
}

func (f *fixture) mentorActor() identity.Actor {
	return identity.Actor{UserID: f.mentor, Role: models.RoleMentor}
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	u, err := f.users.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.Credits
}

func (f *fixture) createCreditBooking(t *testing.T, cost int64) *models.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.menteeActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     time.Now().Add(24 * time.Hour),
		EndAt:       time.Now().Add(25 * time.Hour),
		Cost:        decimal.NewFromInt(cost),
		FundingType: models.FundingCredit,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

// seedSubscription opens an ACTIVE bundle for the fixture pair.
func (f *fixture) seedSubscription(t *testing.T, sessions, cancelQuota, rescheduleQuota int) *models.Subscription {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	sub := &models.Subscription{
		ID:                uuid.New(),
		MenteeID:          f.mentee,
		MentorID:          f.mentor,
		PlanID:            uuid.New(),
		RemainingSessions: sessions,
		CancelQuota:       cancelQuota,
		RescheduleQuota:   rescheduleQuota,
		Status:            models.SubscriptionActive,
		StartAt:           now,
		EndAt:             now.Add(30 * 24 * time.Hour),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := f.subs.Save(ctx, sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	if err := f.subs.AppendPair(ctx, f.mentee, f.mentor, sub.ID); err != nil {
		t.Fatalf("append pair: %v", err)
	}
	return sub
}

func (f *fixture) createSubscriptionBooking(t *testing.T) *models.Booking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), f.menteeActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     time.Now().Add(24 * time.Hour),
		EndAt:       time.Now().Add(25 * time.Hour),
		FundingType: models.FundingSubscription,
	})
	if err != nil {
		t.Fatalf("create subscription booking: %v", err)
	}
	return b
}

// ---------------------------------------------------------------------------
// 1. Creation and funding.
// ---------------------------------------------------------------------------

func TestCreate_CreditFunding(t *testing.T) {
	f := newFixture(t)
	b := f.createCreditBooking(t, 30)

	if b.Status != models.BookingScheduled {
		t.Errorf("status = %s, want %s", b.Status, models.BookingScheduled)
	}
	if b.CreditStatus != models.CreditPending {
		t.Errorf("credit status = %s, want %s", b.CreditStatus, models.CreditPending)
	}
	if got := f.balance(t, f.mentee); !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("mentee balance = %s, want 70", got)
	}
	entry, ok, err := f.entries.GetByBooking(context.Background(), b.ID)
	if err != nil || !ok {
		t.Fatalf("ledger entry missing: ok=%v err=%v", ok, err)
	}
	if entry.Status != models.LedgerHolding {
		t.Errorf("entry status = %s, want %s", entry.Status, models.LedgerHolding)
	}
}

func TestCreate_CreditFundingInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.menteeActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     time.Now().Add(time.Hour),
		EndAt:       time.Now().Add(2 * time.Hour),
		Cost:        decimal.NewFromInt(500),
		FundingType: models.FundingCredit,
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := f.balance(t, f.mentee); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mentee balance = %s, want 100", got)
	}
}

func TestCreate_SubscriptionFunding(t *testing.T) {
	f := newFixture(t)
	sub := f.seedSubscription(t, 5, 2, 2)
	b := f.createSubscriptionBooking(t)

	if b.SubscriptionID == nil || *b.SubscriptionID != sub.ID {
		t.Fatalf("booking not linked to subscription %s: %v", sub.ID, b.SubscriptionID)
	}
	got, err := f.subs.Get(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if got.RemainingSessions != 4 {
		t.Errorf("remaining sessions = %d, want 4", got.RemainingSessions)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	_, err := f.svc.Create(ctx, f.menteeActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     now.Add(2 * time.Hour),
		EndAt:       now.Add(time.Hour),
		Cost:        decimal.NewFromInt(30),
		FundingType: models.FundingCredit,
	})
	if !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}

	_, err = f.svc.Create(ctx, f.menteeActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     now.Add(time.Hour),
		EndAt:       now.Add(2 * time.Hour),
		Cost:        decimal.NewFromInt(30),
		FundingType: "voucher",
	})
	if err == nil {
		t.Error("expected error for unknown funding type")
	}

	// A mentee cannot book on someone else's behalf.
	_, err = f.svc.Create(ctx, f.mentorActor(), CreateInput{
		MenteeID:    f.mentee,
		MentorID:    f.mentor,
		StartAt:     now.Add(time.Hour),
		EndAt:       now.Add(2 * time.Hour),
		Cost:        decimal.NewFromInt(30),
		FundingType: models.FundingCredit,
	})
	if !errors.Is(err, identity.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 2. The transition table: everything unlisted is rejected and leaves the
//    booking untouched.
// ---------------------------------------------------------------------------

func TestUpdateStatus_RejectsIllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	statuses := []string{
		models.BookingScheduled, models.BookingRescheduled, models.BookingCompleted,
		models.BookingCancelled, models.BookingNoShow, models.BookingDisputed,
		models.BookingRefunded,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if allowed(from, to) {
				continue
			}
			b := &models.Booking{
				ID:           uuid.New(),
				MenteeID:     f.mentee,
				MentorID:     f.mentor,
				Status:       from,
				FundingType:  models.FundingCredit,
				CreditStatus: models.CreditPending,
			}
			if err := f.bookings.Save(ctx, b); err != nil {
				t.Fatalf("save booking: %v", err)
			}

			_, err := f.svc.UpdateStatus(ctx, f.admin, b.ID, TransitionInput{Target: to})
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("%s -> %s: expected InvalidTransitionError, got %v", from, to, err)
				continue
			}
			got, _ := f.bookings.Get(ctx, b.ID)
			if got.Status != from {
				t.Errorf("%s -> %s: booking mutated to %s on rejected transition", from, to, got.Status)
			}
		}
	}
}

// ---------------------------------------------------------------------------
// 3. Settlement side effects.
// ---------------------------------------------------------------------------

func TestUpdateStatus_CompleteReleasesCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)

	got, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != models.BookingCompleted {
		t.Errorf("status = %s, want %s", got.Status, models.BookingCompleted)
	}
	if got.CreditStatus != models.CreditReleased {
		t.Errorf("credit status = %s, want %s", got.CreditStatus, models.CreditReleased)
	}
	if bal := f.balance(t, f.mentor); !bal.Equal(decimal.NewFromInt(30)) {
		t.Errorf("mentor balance = %s, want 30", bal)
	}
	if bal := f.balance(t, f.mentee); !bal.Equal(decimal.NewFromInt(70)) {
		t.Errorf("mentee balance = %s, want 70", bal)
	}
}

func TestUpdateStatus_CancelRefundsCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)

	got, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingCancelled})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.CreditStatus != models.CreditRefunded {
		t.Errorf("credit status = %s, want %s", got.CreditStatus, models.CreditRefunded)
	}
	if bal := f.balance(t, f.mentee); !bal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mentee balance = %s, want 100", bal)
	}
	if bal := f.balance(t, f.mentor); !bal.IsZero() {
		t.Errorf("mentor balance = %s, want 0", bal)
	}
}

func TestUpdateStatus_NoShowRefundsCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)

	got, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingNoShow})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.CreditStatus != models.CreditRefunded {
		t.Errorf("credit status = %s, want %s", got.CreditStatus, models.CreditRefunded)
	}
	if bal := f.balance(t, f.mentee); !bal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mentee balance = %s, want 100", bal)
	}
}

func TestUpdateStatus_CancelRestoresSubscriptionSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 5, 1, 2)
	b := f.createSubscriptionBooking(t)

	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingCancelled}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := f.subs.Get(ctx, sub.ID)
	if got.RemainingSessions != 5 {
		t.Errorf("remaining sessions = %d, want 5", got.RemainingSessions)
	}
	if got.CancelQuota != 0 {
		t.Errorf("cancel quota = %d, want 0", got.CancelQuota)
	}
}

func TestUpdateStatus_CancelForfeitsSessionWhenAllowanceExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 5, 0, 2)
	b := f.createSubscriptionBooking(t)

	got, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingCancelled})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.CreditStatus != models.CreditReleased {
		t.Errorf("credit status = %s, want %s (session forfeited)", got.CreditStatus, models.CreditReleased)
	}
	stored, _ := f.subs.Get(ctx, sub.ID)
	if stored.RemainingSessions != 4 {
		t.Errorf("remaining sessions = %d, want 4 (not restored)", stored.RemainingSessions)
	}
}

func TestUpdateStatus_NoShowRestoresSessionWithoutAllowance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 5, 0, 2)
	b := f.createSubscriptionBooking(t)

	// A no-show is not the mentee's cancellation; no allowance is spent.
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingNoShow}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := f.subs.Get(ctx, sub.ID)
	if got.RemainingSessions != 5 {
		t.Errorf("remaining sessions = %d, want 5", got.RemainingSessions)
	}
	if got.CancelQuota != 0 {
		t.Errorf("cancel quota = %d, want 0 (untouched)", got.CancelQuota)
	}
}

// ---------------------------------------------------------------------------
// 4. Disputes.
// ---------------------------------------------------------------------------

func TestUpdateStatus_DisputeRequiresMentee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingDisputed})
	if !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("mentor opening dispute: expected ErrForbidden, got %v", err)
	}

	got, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{
		Target:          models.BookingDisputed,
		DisputeReason:   "lesson never happened",
		DisputeEvidence: "chat transcript",
	})
	if err != nil {
		t.Fatalf("mentee opening dispute: %v", err)
	}
	if got.DisputeReason != "lesson never happened" {
		t.Errorf("dispute reason = %q", got.DisputeReason)
	}
	if got.DisputedAt == nil {
		t.Error("DisputedAt not set")
	}
}

func TestUpdateStatus_RefundAfterReleaseNeedsManualIntervention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingDisputed, DisputeReason: "bad lesson"}); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	_, err := f.svc.UpdateStatus(ctx, f.admin, b.ID, TransitionInput{Target: models.BookingRefunded})
	if !errors.Is(err, ErrManualIntervention) {
		t.Fatalf("expected ErrManualIntervention, got %v", err)
	}

	// Nothing moved: mentor keeps the release, booking stays disputed.
	got, _ := f.bookings.Get(ctx, b.ID)
	if got.Status != models.BookingDisputed {
		t.Errorf("status = %s, want %s", got.Status, models.BookingDisputed)
	}
	if bal := f.balance(t, f.mentor); !bal.Equal(decimal.NewFromInt(30)) {
		t.Errorf("mentor balance = %s, want 30", bal)
	}
	if bal := f.balance(t, f.mentee); !bal.Equal(decimal.NewFromInt(70)) {
		t.Errorf("mentee balance = %s, want 70", bal)
	}
}

func TestUpdateStatus_DisputedNoShowRefundKeepsSingleSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)

	// No-show already returned the escrow to the mentee.
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingNoShow}); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingDisputed, DisputeReason: "charged anyway"}); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	got, err := f.svc.UpdateStatus(ctx, f.admin, b.ID, TransitionInput{Target: models.BookingRefunded, ResolutionNote: "refund stands"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got.ResolvedAt == nil {
		t.Error("ResolvedAt not set")
	}
	// The earlier refund already settled the entry; no second credit.
	if bal := f.balance(t, f.mentee); !bal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("mentee balance = %s, want 100", bal)
	}
}

func TestUpdateStatus_DismissDisputeRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingDisputed, DisputeReason: "bad lesson"}); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted}); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("mentor dismissing dispute: expected ErrForbidden, got %v", err)
	}

	got, err := f.svc.UpdateStatus(ctx, f.admin, b.ID, TransitionInput{Target: models.BookingCompleted, ResolutionNote: "evidence insufficient"})
	if err != nil {
		t.Fatalf("admin dismissing dispute: %v", err)
	}
	if got.Status != models.BookingCompleted {
		t.Errorf("status = %s, want %s", got.Status, models.BookingCompleted)
	}
	if got.ResolutionNote != "evidence insufficient" {
		t.Errorf("resolution note = %q", got.ResolutionNote)
	}
	// The release already happened before the dispute; balances untouched.
	if bal := f.balance(t, f.mentor); !bal.Equal(decimal.NewFromInt(30)) {
		t.Errorf("mentor balance = %s, want 30", bal)
	}
}

func TestUpdateStatus_RefundedRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingNoShow}); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingDisputed, DisputeReason: "x"}); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	if _, err := f.svc.UpdateStatus(ctx, f.menteeActor(), b.ID, TransitionInput{Target: models.BookingRefunded}); !errors.Is(err, identity.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 5. Rescheduling.
// ---------------------------------------------------------------------------

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)

	newStart := time.Now().Add(48 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	got, err := f.svc.Reschedule(ctx, f.menteeActor(), b.ID, newStart, newEnd)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if got.Status != models.BookingRescheduled {
		t.Errorf("status = %s, want %s", got.Status, models.BookingRescheduled)
	}
	if !got.StartAt.Equal(newStart) || !got.EndAt.Equal(newEnd) {
		t.Errorf("window = %s..%s, want %s..%s", got.StartAt, got.EndAt, newStart, newEnd)
	}

	// A second reschedule from RESCHEDULED is still legal.
	if _, err := f.svc.Reschedule(ctx, f.mentorActor(), b.ID, newStart.Add(time.Hour), newEnd.Add(time.Hour)); err != nil {
		t.Fatalf("second Reschedule: %v", err)
	}
}

func TestReschedule_SpendsSubscriptionAllowance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.seedSubscription(t, 5, 2, 1)
	b := f.createSubscriptionBooking(t)

	start := time.Now().Add(48 * time.Hour)
	if _, err := f.svc.Reschedule(ctx, f.menteeActor(), b.ID, start, start.Add(time.Hour)); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	got, _ := f.subs.Get(ctx, sub.ID)
	if got.RescheduleQuota != 0 {
		t.Errorf("reschedule quota = %d, want 0", got.RescheduleQuota)
	}

	_, err := f.svc.Reschedule(ctx, f.menteeActor(), b.ID, start.Add(time.Hour), start.Add(2*time.Hour))
	if !errors.Is(err, subscription.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
}

func TestReschedule_OnlyPreLessonStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.createCreditBooking(t, 30)
	if _, err := f.svc.UpdateStatus(ctx, f.mentorActor(), b.ID, TransitionInput{Target: models.BookingCompleted}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	start := time.Now().Add(48 * time.Hour)
	_, err := f.svc.Reschedule(ctx, f.menteeActor(), b.ID, start, start.Add(time.Hour))
	if !errors.Is(err, ErrNotReschedulable) {
		t.Fatalf("expected ErrNotReschedulable, got %v", err)
	}
}

func TestReschedule_InvalidWindow(t *testing.T) {
	f := newFixture(t)
	b := f.createCreditBooking(t, 30)
	start := time.Now().Add(48 * time.Hour)
	_, err := f.svc.Reschedule(context.Background(), f.menteeActor(), b.ID, start, start.Add(-time.Hour))
	if !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}
