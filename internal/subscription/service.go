// Package subscription manages prepaid session bundles between one mentee
// and one mentor: purchase, session consumption/restoration, reschedule and
// cancel allowances, and end-of-validity expiry.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/repository"
)

// ErrNoActiveSubscription is returned when the pair has no ACTIVE
// subscription with sessions remaining inside its validity window.
var ErrNoActiveSubscription = errors.New("no active subscription with remaining sessions")

// ErrQuotaExhausted is returned when a reschedule allowance has run out.
var ErrQuotaExhausted = errors.New("subscription quota exhausted")

// ErrInsufficientFunds is returned when the mentee cannot afford the plan.
var ErrInsufficientFunds = errors.New("insufficient funds")

type Service interface {
	// Purchase debits the mentee by the plan price and opens an ACTIVE
	// subscription for the pair.
	Purchase(ctx context.Context, menteeID, mentorID, planID uuid.UUID) (*models.Subscription, error)
	// Consume spends one session against the pair's active subscription.
	// Idempotent per booking id.
	Consume(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error)
	// Restore gives back the session consumed by the booking, if any,
	// reactivating a COMPLETED subscription still inside its window.
	Restore(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error)
	// SpendReschedule consumes one reschedule allowance.
	SpendReschedule(ctx context.Context, menteeID, mentorID, subscriptionID uuid.UUID) error
	// SpendCancel consumes one cancel allowance if available. Reports
	// whether an allowance was spent; cancellation with an exhausted
	// allowance forfeits the session instead of failing.
	SpendCancel(ctx context.Context, menteeID, mentorID, subscriptionID uuid.UUID) (bool, error)
	// ExpireDue marks ACTIVE subscriptions whose end date has passed as
	// EXPIRED. Returns how many were expired.
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type service struct {
	users  *repository.Users
	subs   *repository.Subscriptions
	audit  *repository.Audit
	locks  *lock.Manager
	logger *slog.Logger
	now    func() time.Time
}

func NewService(users *repository.Users, subs *repository.Subscriptions, audit *repository.Audit, locks *lock.Manager, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		users:  users,
		subs:   subs,
		audit:  audit,
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) Purchase(ctx context.Context, menteeID, mentorID, planID uuid.UUID) (*models.Subscription, error) {
	plan, err := s.subs.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	price := plan.Price.Round(2)

	var result *models.Subscription
	err = s.locks.WithLock(ctx, lock.Subscription(menteeID, mentorID), func(ctx context.Context) error {
		return s.locks.WithLock(ctx, lock.Credit(menteeID), func(ctx context.Context) error {
			mentee, err := s.users.Get(ctx, menteeID)
			if err != nil {
				return err
			}
			if mentee.Credits.LessThan(price) {
				return fmt.Errorf("%w: balance %s credits, plan costs %s", ErrInsufficientFunds, mentee.Credits, price)
			}

			prevBalance := mentee.Credits
			now := s.now()

			mentee.Credits = prevBalance.Sub(price)
			mentee.UpdatedAt = now
			if err := s.users.Save(ctx, mentee); err != nil {
				return err
			}

			sub := &models.Subscription{
				ID:                uuid.New(),
				MenteeID:          menteeID,
				MentorID:          mentorID,
				PlanID:            planID,
				RemainingSessions: plan.Sessions,
				CancelQuota:       plan.CancelQuota,
				RescheduleQuota:   plan.RescheduleQuota,
				Status:            models.SubscriptionActive,
				StartAt:           now,
				EndAt:             now.AddDate(0, 0, plan.ValidityDays),
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := s.subs.Save(ctx, sub); err != nil {
				return s.rollbackPurchase(ctx, mentee, prevBalance, err)
			}
			if err := s.subs.AppendPair(ctx, menteeID, mentorID, sub.ID); err != nil {
				return s.rollbackPurchase(ctx, mentee, prevBalance, err)
			}
			if err := s.locks.WithLock(ctx, lock.Index("subs:all"), func(ctx context.Context) error {
				return s.subs.AppendAll(ctx, sub.ID)
			}); err != nil {
				return s.rollbackPurchase(ctx, mentee, prevBalance, err)
			}

			debit := &models.Transaction{
				ID:        uuid.New(),
				UserID:    menteeID,
				Type:      models.TxDebit,
				Amount:    price,
				Reference: sub.ID.String(),
				Note:      "subscription purchase: " + plan.Name,
				CreatedAt: now,
			}
			if err := s.audit.AppendTransaction(ctx, debit); err != nil {
				return s.rollbackPurchase(ctx, mentee, prevBalance, err)
			}
			history := &models.CreditHistory{
				ID:           uuid.New(),
				UserID:       menteeID,
				Delta:        price.Neg(),
				BalanceAfter: mentee.Credits,
				Reason:       "subscription purchase",
				CreatedAt:    now,
			}
			if err := s.audit.AppendHistory(ctx, history); err != nil {
				return s.rollbackPurchase(ctx, mentee, prevBalance, err)
			}

			result = sub
			return nil
		})
	})
	return result, err
}

// rollbackPurchase restores the mentee's captured balance after a failure
// mid-sequence. The original failure is surfaced; a rollback failure is
// joined onto it.
func (s *service) rollbackPurchase(ctx context.Context, mentee *models.User, prevBalance decimal.Decimal, cause error) error {
	mentee.Credits = prevBalance
	if err := s.users.Save(ctx, mentee); err != nil {
		s.logger.Error("purchase rollback failed, balance inconsistent",
			"user_id", mentee.ID, "error", err)
		return errors.Join(cause, err)
	}
	return cause
}

func (s *service) Consume(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.locks.WithLock(ctx, lock.Subscription(menteeID, mentorID), func(ctx context.Context) error {
		pair, err := s.loadPair(ctx, menteeID, mentorID)
		if err != nil {
			return err
		}

		// Idempotency first: a booking already counted against any
		// subscription of the pair must not decrement again, even if
		// that subscription has since been completed.
		for _, sub := range pair {
			if containsID(sub.ConsumedBookingIDs, bookingID) {
				s.logger.Warn("booking already consumed against subscription, skipping",
					"booking_id", bookingID, "subscription_id", sub.ID)
				result = sub
				return nil
			}
		}

		now := s.now()
		sub := pickActive(pair, now)
		if sub == nil {
			return fmt.Errorf("mentee %s / mentor %s: %w", menteeID, mentorID, ErrNoActiveSubscription)
		}

		sub.RemainingSessions--
		sub.ConsumedBookingIDs = append(sub.ConsumedBookingIDs, bookingID)
		if sub.RemainingSessions == 0 {
			sub.Status = models.SubscriptionCompleted
		}
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	return result, err
}

func (s *service) Restore(ctx context.Context, menteeID, mentorID, bookingID uuid.UUID) (*models.Subscription, error) {
	var result *models.Subscription
	err := s.locks.WithLock(ctx, lock.Subscription(menteeID, mentorID), func(ctx context.Context) error {
		pair, err := s.loadPair(ctx, menteeID, mentorID)
		if err != nil {
			return err
		}

		var sub *models.Subscription
		for _, candidate := range pair {
			if containsID(candidate.ConsumedBookingIDs, bookingID) {
				sub = candidate
				break
			}
		}
		if sub == nil {
			s.logger.Warn("no subscription consumed this booking, nothing to restore",
				"booking_id", bookingID)
			return nil
		}

		now := s.now()
		sub.ConsumedBookingIDs = removeID(sub.ConsumedBookingIDs, bookingID)
		sub.RemainingSessions++
		if sub.Status == models.SubscriptionCompleted && now.Before(sub.EndAt) {
			sub.Status = models.SubscriptionActive
		}
		sub.UpdatedAt = now
		if err := s.subs.Save(ctx, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	return result, err
}

func (s *service) SpendReschedule(ctx context.Context, menteeID, mentorID, subscriptionID uuid.UUID) error {
	return s.locks.WithLock(ctx, lock.Subscription(menteeID, mentorID), func(ctx context.Context) error {
		sub, err := s.subs.Get(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.RescheduleQuota <= 0 {
			return fmt.Errorf("%w: no reschedules left on subscription %s", ErrQuotaExhausted, subscriptionID)
		}
		sub.RescheduleQuota--
		sub.UpdatedAt = s.now()
		return s.subs.Save(ctx, sub)
	})
}

func (s *service) SpendCancel(ctx context.Context, menteeID, mentorID, subscriptionID uuid.UUID) (bool, error) {
	var spent bool
	err := s.locks.WithLock(ctx, lock.Subscription(menteeID, mentorID), func(ctx context.Context) error {
		sub, err := s.subs.Get(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.CancelQuota <= 0 {
			return nil
		}
		sub.CancelQuota--
		sub.UpdatedAt = s.now()
		spent = true
		return s.subs.Save(ctx, sub)
	})
	return spent, err
}

func (s *service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.subs.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range ids {
		sub, err := s.subs.Get(ctx, id)
		if err != nil {
			return expired, err
		}
		if sub.Status != models.SubscriptionActive || now.Before(sub.EndAt) {
			continue
		}
		err = s.locks.WithLock(ctx, lock.Subscription(sub.MenteeID, sub.MentorID), func(ctx context.Context) error {
			// Re-read under the pair lock: a concurrent consume may
			// have completed the subscription meanwhile.
			sub, err := s.subs.Get(ctx, id)
			if err != nil {
				return err
			}
			if sub.Status != models.SubscriptionActive || now.Before(sub.EndAt) {
				return nil
			}
			sub.Status = models.SubscriptionExpired
			sub.UpdatedAt = s.now()
			if err := s.subs.Save(ctx, sub); err != nil {
				return err
			}
			expired++
			s.logger.Info("subscription expired", "subscription_id", id, "end_at", sub.EndAt)
			return nil
		})
		if err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// loadPair loads every subscription between the pair, oldest first.
func (s *service) loadPair(ctx context.Context, menteeID, mentorID uuid.UUID) ([]*models.Subscription, error) {
	ids, err := s.subs.PairIDs(ctx, menteeID, mentorID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := s.subs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// pickActive returns the oldest usable subscription: ACTIVE, sessions left,
// end date not passed.
func pickActive(pair []*models.Subscription, now time.Time) *models.Subscription {
	for _, sub := range pair {
		if sub.Status == models.SubscriptionActive && sub.RemainingSessions > 0 && now.Before(sub.EndAt) {
			return sub
		}
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
