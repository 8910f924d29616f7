// Package payout manages mentor withdrawals: payable balance computation,
// the one-outstanding-request rule, and the PENDING ->
// APPROVED_PENDING_PAYMENT -> PAID / REJECTED lifecycle.
package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/identity"
	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/repository"
)

// MinPayout is the smallest withdrawal the platform processes, in credits.
var MinPayout = decimal.NewFromInt(10)

// SettlementRatio is the fraction of withdrawn credits actually paid out;
// the remainder is the platform margin.
var SettlementRatio = decimal.NewFromFloat(0.90)

// ErrBelowMinimum is returned for withdrawals under MinPayout.
var ErrBelowMinimum = errors.New("payout amount below minimum")

// ErrExistingPendingRequest is returned while a prior payout is still
// PENDING or APPROVED_PENDING_PAYMENT.
var ErrExistingPendingRequest = errors.New("a payout request is already outstanding")

// ErrInsufficientPayable is returned when the requested amount exceeds the
// mentor's payable balance.
var ErrInsufficientPayable = errors.New("insufficient payable balance")

// ErrInvalidPayoutStatus is returned on a backward or skipped status change.
var ErrInvalidPayoutStatus = errors.New("invalid payout status transition")

// Balance is a mentor's settlement view: Total is the gross earnings figure
// including credits still escrowed in holding entries destined for the
// mentor; Payable is what a payout may draw on (total minus locked).
type Balance struct {
	Total   decimal.Decimal `json:"total"`
	Locked  decimal.Decimal `json:"locked"`
	Payable decimal.Decimal `json:"payable"`
}

type Service interface {
	GetBalance(ctx context.Context, mentorID uuid.UUID) (*Balance, error)
	Request(ctx context.Context, actor identity.Actor, mentorID uuid.UUID, amount decimal.Decimal, method string) (*models.Payout, error)
	Approve(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error)
	Reject(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error)
	MarkPaid(ctx context.Context, actor identity.Actor, payoutID uuid.UUID) (*models.Payout, error)
}

type service struct {
	users   *repository.Users
	entries *repository.Ledger
	payouts *repository.Payouts
	audit   *repository.Audit
	locks   *lock.Manager
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(users *repository.Users, entries *repository.Ledger, payouts *repository.Payouts, audit *repository.Audit, locks *lock.Manager, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		users:   users,
		entries: entries,
		payouts: payouts,
		audit:   audit,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) GetBalance(ctx context.Context, mentorID uuid.UUID) (*Balance, error) {
	mentor, err := s.users.Get(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	locked, err := s.lockedAmount(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	// Credits escrowed for future lessons show in the gross total but must
	// never be withdrawable before release.
	return &Balance{
		Total:   mentor.Credits.Add(locked),
		Locked:  locked,
		Payable: mentor.Credits,
	}, nil
}

// lockedAmount sums holding-status entries destined for the mentor.
func (s *service) lockedAmount(ctx context.Context, mentorID uuid.UUID) (decimal.Decimal, error) {
	ids, err := s.entries.MentorHoldIDs(ctx, mentorID)
	if err != nil {
		return decimal.Zero, err
	}
	locked := decimal.Zero
	for _, bookingID := range ids {
		entry, ok, err := s.entries.GetByBooking(ctx, bookingID)
		if err != nil {
			return decimal.Zero, err
		}
		if ok && entry.Status == models.LedgerHolding && entry.PayeeID == mentorID {
			locked = locked.Add(entry.Amount)
		}
	}
	return locked, nil
}

func (s *service) Request(ctx context.Context, actor identity.Actor, mentorID uuid.UUID, amount decimal.Decimal, method string) (*models.Payout, error) {
	if err := identity.RequireSelf(actor, mentorID); err != nil {
		return nil, err
	}
	amount = amount.Round(2)
	if amount.LessThan(MinPayout) {
		return nil, fmt.Errorf("%w: requested %s, minimum is %s credits", ErrBelowMinimum, amount, MinPayout)
	}

	var result *models.Payout
	err := s.locks.WithLock(ctx, lock.Payout(mentorID), func(ctx context.Context) error {
		outstanding, err := s.outstanding(ctx, mentorID)
		if err != nil {
			return err
		}
		if outstanding != nil {
			return fmt.Errorf("%w: payout %s is %s", ErrExistingPendingRequest, outstanding.ID, outstanding.Status)
		}

		balance, err := s.GetBalance(ctx, mentorID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(balance.Payable) {
			return fmt.Errorf("%w. Available: %s credits (%s locked in pending bookings)",
				ErrInsufficientPayable, balance.Payable, balance.Locked)
		}

		return s.locks.WithLock(ctx, lock.Credit(mentorID), func(ctx context.Context) error {
			mentor, err := s.users.Get(ctx, mentorID)
			if err != nil {
				return err
			}
			prevBalance := mentor.Credits
			now := s.now()

			mentor.Credits = prevBalance.Sub(amount)
			mentor.UpdatedAt = now
			if err := s.users.Save(ctx, mentor); err != nil {
				return err
			}

			settlement := amount.Mul(SettlementRatio).Round(2)
			fee := amount.Sub(settlement)
			p := &models.Payout{
				ID:               uuid.New(),
				MentorID:         mentorID,
				Amount:           amount,
				SettlementAmount: settlement,
				Method:           method,
				Status:           models.PayoutPending,
				RequestedAt:      now,
			}
			if err := s.payouts.Save(ctx, p); err != nil {
				return s.rollbackRequest(ctx, mentor, prevBalance, err)
			}
			if err := s.payouts.AppendMentor(ctx, mentorID, p.ID); err != nil {
				return s.rollbackRequest(ctx, mentor, prevBalance, err)
			}

			withdrawal := &models.Transaction{
				ID:        uuid.New(),
				UserID:    mentorID,
				Type:      models.TxPayout,
				Amount:    amount,
				Reference: p.ID.String(),
				Note:      fmt.Sprintf("payout requested, %s to settle via %s", settlement, method),
				CreatedAt: now,
			}
			if err := s.audit.AppendTransaction(ctx, withdrawal); err != nil {
				return s.rollbackRequest(ctx, mentor, prevBalance, err)
			}
			platformFee := &models.Transaction{
				ID:        uuid.New(),
				UserID:    mentorID,
				Type:      models.TxPlatformFee,
				Amount:    fee,
				Reference: p.ID.String(),
				Note:      "platform margin on payout",
				CreatedAt: now,
			}
			if err := s.audit.AppendTransaction(ctx, platformFee); err != nil {
				return s.rollbackRequest(ctx, mentor, prevBalance, err)
			}
			history := &models.CreditHistory{
				ID:           uuid.New(),
				UserID:       mentorID,
				Delta:        amount.Neg(),
				BalanceAfter: mentor.Credits,
				Reason:       "payout request",
				CreatedAt:    now,
			}
			if err := s.audit.AppendHistory(ctx, history); err != nil {
				return s.rollbackRequest(ctx, mentor, prevBalance, err)
			}

			result = p
			return nil
		})
	})
	return result, err
}

func (s *service) rollbackRequest(ctx context.Context, mentor *models.User, prevBalance decimal.Decimal, cause error) error {
	mentor.Credits = prevBalance
	if err := s.users.Save(ctx, mentor); err != nil {
		s.logger.Error("payout rollback failed, balance inconsistent",
			"user_id", mentor.ID, "error", err)
		return errors.Join(cause, err)
	}
	return cause
}

// outstanding returns the mentor's non-terminal payout, if one exists.
func (s *service) outstanding(ctx context.Context, mentorID uuid.UUID) (*models.Payout, error) {
	ids, err := s.payouts.MentorIDs(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p, err := s.payouts.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Status == models.PayoutPending || p.Status == models.PayoutApprovedPending {
			return p, nil
		}
	}
	return nil, nil
}

func (s *service) Approve(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error) {
	return s.review(ctx, actor, payoutID, note, models.PayoutPending, models.PayoutApprovedPending, false)
}

func (s *service) Reject(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note string) (*models.Payout, error) {
	return s.review(ctx, actor, payoutID, note, models.PayoutPending, models.PayoutRejected, true)
}

func (s *service) MarkPaid(ctx context.Context, actor identity.Actor, payoutID uuid.UUID) (*models.Payout, error) {
	return s.review(ctx, actor, payoutID, "", models.PayoutApprovedPending, models.PayoutPaid, false)
}

// review applies one forward-only payout transition. Rejection restores the
// mentor's balance before the terminal status is persisted, so a failed save
// never strands a REJECTED payout without its refund.
func (s *service) review(ctx context.Context, actor identity.Actor, payoutID uuid.UUID, note, from, to string, restore bool) (*models.Payout, error) {
	if err := identity.RequireAdmin(actor); err != nil {
		return nil, err
	}
	p, err := s.payouts.Get(ctx, payoutID)
	if err != nil {
		return nil, err
	}

	var result *models.Payout
	err = s.locks.WithLock(ctx, lock.Payout(p.MentorID), func(ctx context.Context) error {
		p, err := s.payouts.Get(ctx, payoutID)
		if err != nil {
			return err
		}
		if p.Status != from {
			return fmt.Errorf("%w: payout %s is %s, cannot move to %s",
				ErrInvalidPayoutStatus, p.ID, p.Status, to)
		}

		now := s.now()
		p.Status = to
		if note != "" {
			p.AdminNote = note
		}
		switch to {
		case models.PayoutPaid:
			p.PaidAt = &now
		default:
			p.ReviewedAt = &now
		}

		if restore {
			if err := s.restoreBalance(ctx, p, now); err != nil {
				return err
			}
		}
		if err := s.payouts.Save(ctx, p); err != nil {
			if restore {
				return s.unwindRestore(ctx, p, err)
			}
			return err
		}
		result = p
		return nil
	})
	return result, err
}

// restoreBalance credits a rejected payout's amount back to the mentor.
func (s *service) restoreBalance(ctx context.Context, p *models.Payout, now time.Time) error {
	return s.locks.WithLock(ctx, lock.Credit(p.MentorID), func(ctx context.Context) error {
		mentor, err := s.users.Get(ctx, p.MentorID)
		if err != nil {
			return err
		}
		prevBalance := mentor.Credits
		mentor.Credits = prevBalance.Add(p.Amount)
		mentor.UpdatedAt = now
		if err := s.users.Save(ctx, mentor); err != nil {
			return err
		}
		refund := &models.Transaction{
			ID:        uuid.New(),
			UserID:    p.MentorID,
			Type:      models.TxCredit,
			Amount:    p.Amount,
			Reference: p.ID.String(),
			Note:      "payout rejected, credits returned",
			CreatedAt: now,
		}
		if err := s.audit.AppendTransaction(ctx, refund); err != nil {
			return s.rollbackRequest(ctx, mentor, prevBalance, err)
		}
		history := &models.CreditHistory{
			ID:           uuid.New(),
			UserID:       p.MentorID,
			Delta:        p.Amount,
			BalanceAfter: mentor.Credits,
			Reason:       "payout rejected",
			CreatedAt:    now,
		}
		if err := s.audit.AppendHistory(ctx, history); err != nil {
			return s.rollbackRequest(ctx, mentor, prevBalance, err)
		}
		return nil
	})
}

// unwindRestore re-debits a rejection refund when persisting the payout
// status fails afterwards, leaving the payout retryable in its prior status.
// The original failure is surfaced; an unwind failure is joined onto it.
func (s *service) unwindRestore(ctx context.Context, p *models.Payout, cause error) error {
	err := s.locks.WithLock(ctx, lock.Credit(p.MentorID), func(ctx context.Context) error {
		mentor, err := s.users.Get(ctx, p.MentorID)
		if err != nil {
			return err
		}
		mentor.Credits = mentor.Credits.Sub(p.Amount)
		mentor.UpdatedAt = s.now()
		return s.users.Save(ctx, mentor)
	})
	if err != nil {
		s.logger.Error("payout rejection unwind failed, balance inconsistent",
			"payout_id", p.ID, "error", err)
		return errors.Join(cause, err)
	}
	return cause
}
