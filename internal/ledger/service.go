// Package ledger implements the escrow hold/release/refund primitives. Each
// booking has at most one ledger entry; the entry's status moves exactly once
// from holding to released or returned and never back.
package ledger

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

// ErrInsufficientFunds is returned when the payer's balance is too low for the hold.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrHoldNotFound is returned when no ledger entry exists for the booking.
var ErrHoldNotFound = errors.New("no ledger entry for booking")

// ErrAlreadySettled is returned when a release/refund conflicts with the
// entry's terminal state (e.g. refund after release). This is a hard failure
// requiring operator intervention, never a silent no-op: honoring it would
// credit both parties for one escrow.
var ErrAlreadySettled = errors.New("ledger entry already settled")

// ErrNonPositiveAmount is returned when a hold is requested for zero or
// negative credits.
var ErrNonPositiveAmount = errors.New("amount must be positive")

type Service interface {
	// Hold debits the payer and creates a holding entry for the booking.
	// Idempotent per booking: a repeat call returns the existing entry.
	Hold(ctx context.Context, bookingID, payerID, payeeID uuid.UUID, amount decimal.Decimal) (*models.LedgerEntry, error)
	// Release settles the hold to the payee. Releasing an already released
	// entry is a no-op success; releasing a returned entry fails.
	Release(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error)
	// Refund settles the hold back to the payer. Refunding an already
	// released entry fails with ErrAlreadySettled.
	Refund(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error)
}

type service struct {
	users   *repository.Users
	entries *repository.Ledger
	audit   *repository.Audit
	locks   *lock.Manager
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(users *repository.Users, entries *repository.Ledger, audit *repository.Audit, locks *lock.Manager, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		users:   users,
		entries: entries,
		audit:   audit,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) Hold(ctx context.Context, bookingID, payerID, payeeID uuid.UUID, amount decimal.Decimal) (*models.LedgerEntry, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, amount)
	}

	var result *models.LedgerEntry
	err := s.locks.WithLock(ctx, lock.Credit(payerID), func(ctx context.Context) error {
		if existing, ok, err := s.entries.GetByBooking(ctx, bookingID); err != nil {
			return err
		} else if ok {
			s.logger.Warn("hold already exists for booking, skipping",
				"booking_id", bookingID, "status", existing.Status)
			result = existing
			return nil
		}

		payer, err := s.users.Get(ctx, payerID)
		if err != nil {
			return err
		}
		if payer.Credits.LessThan(amount) {
			return fmt.Errorf("%w: balance %s credits, need %s", ErrInsufficientFunds, payer.Credits, amount)
		}

		// Capture the balance before the debit. Rollback restores this
		// recorded value, not a re-read, so a retried operation cannot
		// lose an update in between.
		prevBalance := payer.Credits
		now := s.now()

		payer.Credits = prevBalance.Sub(amount)
		payer.UpdatedAt = now
		if err := s.users.Save(ctx, payer); err != nil {
			return err
		}

		entry := &models.LedgerEntry{
			ID:        uuid.New(),
			BookingID: bookingID,
			FromUser:  payerID,
			ToUser:    models.SystemEscrowAccountID,
			PayeeID:   payeeID,
			Amount:    amount,
			Status:    models.LedgerHolding,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.entries.Save(ctx, entry); err != nil {
			return s.rollbackHold(ctx, payer, prevBalance, bookingID, false, err)
		}

		if err := s.locks.WithLock(ctx, lock.Index("holds:"+payeeID.String()), func(ctx context.Context) error {
			return s.entries.AppendMentorHold(ctx, payeeID, bookingID)
		}); err != nil {
			return s.rollbackHold(ctx, payer, prevBalance, bookingID, true, err)
		}

		debit := &models.Transaction{
			ID:        uuid.New(),
			UserID:    payerID,
			Type:      models.TxDebit,
			Amount:    amount,
			Reference: bookingID.String(),
			Note:      "credits held for booking",
			CreatedAt: now,
		}
		if err := s.audit.AppendTransaction(ctx, debit); err != nil {
			return s.rollbackHold(ctx, payer, prevBalance, bookingID, true, err)
		}
		history := &models.CreditHistory{
			ID:           uuid.New(),
			UserID:       payerID,
			Delta:        amount.Neg(),
			BalanceAfter: payer.Credits,
			Reason:       "booking hold",
			CreatedAt:    now,
		}
		if err := s.audit.AppendHistory(ctx, history); err != nil {
			return s.rollbackHold(ctx, payer, prevBalance, bookingID, true, err)
		}

		result = entry
		return nil
	})
	return result, err
}

// rollbackHold restores the payer's captured balance and removes the entry
// written mid-sequence. The original failure is always surfaced; a rollback
// failure is joined onto it.
func (s *service) rollbackHold(ctx context.Context, payer *models.User, prevBalance decimal.Decimal, bookingID uuid.UUID, entrySaved bool, cause error) error {
	payer.Credits = prevBalance
	if err := s.users.Save(ctx, payer); err != nil {
		s.logger.Error("hold rollback failed, balance inconsistent",
			"user_id", payer.ID, "booking_id", bookingID, "error", err)
		return errors.Join(cause, err)
	}
	if entrySaved {
		if err := s.entries.Delete(ctx, bookingID); err != nil {
			s.logger.Error("hold rollback failed to remove entry",
				"booking_id", bookingID, "error", err)
			return errors.Join(cause, err)
		}
	}
	return cause
}

func (s *service) Release(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error) {
	return s.settle(ctx, bookingID, models.LedgerReleased)
}

func (s *service) Refund(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, error) {
	return s.settle(ctx, bookingID, models.LedgerReturned)
}

// settle resolves a holding entry to released (credit the payee) or returned
// (credit the payer). Release and refund on the same booking serialize on the
// booking's lock, so the terminal transition happens exactly once.
func (s *service) settle(ctx context.Context, bookingID uuid.UUID, target string) (*models.LedgerEntry, error) {
	var result *models.LedgerEntry
	err := s.locks.WithLock(ctx, lock.Booking(bookingID), func(ctx context.Context) error {
		entry, ok, err := s.entries.GetByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("booking %s: %w", bookingID, ErrHoldNotFound)
		}
		if entry.Status == target {
			// Retried settlement in the same direction is a success.
			s.logger.Warn("ledger entry already settled in this direction, skipping",
				"booking_id", bookingID, "status", entry.Status)
			result = entry
			return nil
		}
		if entry.Status != models.LedgerHolding {
			return fmt.Errorf("%w: booking %s is %s, cannot mark %s",
				ErrAlreadySettled, bookingID, entry.Status, target)
		}

		beneficiary := entry.FromUser
		reason := "booking refund"
		note := "credits returned for cancelled booking"
		if target == models.LedgerReleased {
			beneficiary = entry.PayeeID
			reason = "lesson earning"
			note = "credits released for completed booking"
		}

		return s.locks.WithLock(ctx, lock.Credit(beneficiary), func(ctx context.Context) error {
			user, err := s.users.Get(ctx, beneficiary)
			if err != nil {
				return err
			}
			prevBalance := user.Credits
			prevEntry := *entry
			now := s.now()

			user.Credits = prevBalance.Add(entry.Amount)
			user.UpdatedAt = now
			if err := s.users.Save(ctx, user); err != nil {
				return err
			}

			entry.Status = target
			entry.ToUser = beneficiary
			entry.UpdatedAt = now
			if err := s.entries.Save(ctx, entry); err != nil {
				return s.rollbackSettle(ctx, user, prevBalance, &prevEntry, false, err)
			}

			credit := &models.Transaction{
				ID:        uuid.New(),
				UserID:    beneficiary,
				Type:      models.TxCredit,
				Amount:    entry.Amount,
				Reference: bookingID.String(),
				Note:      note,
				CreatedAt: now,
			}
			if err := s.audit.AppendTransaction(ctx, credit); err != nil {
				return s.rollbackSettle(ctx, user, prevBalance, &prevEntry, true, err)
			}
			history := &models.CreditHistory{
				ID:           uuid.New(),
				UserID:       beneficiary,
				Delta:        entry.Amount,
				BalanceAfter: user.Credits,
				Reason:       reason,
				CreatedAt:    now,
			}
			if err := s.audit.AppendHistory(ctx, history); err != nil {
				return s.rollbackSettle(ctx, user, prevBalance, &prevEntry, true, err)
			}

			result = entry
			return nil
		})
	})
	return result, err
}

func (s *service) rollbackSettle(ctx context.Context, user *models.User, prevBalance decimal.Decimal, prevEntry *models.LedgerEntry, entrySaved bool, cause error) error {
	user.Credits = prevBalance
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Error("settle rollback failed, balance inconsistent",
			"user_id", user.ID, "booking_id", prevEntry.BookingID, "error", err)
		return errors.Join(cause, err)
	}
	if entrySaved {
		restored := *prevEntry
		if err := s.entries.Save(ctx, &restored); err != nil {
			s.logger.Error("settle rollback failed to restore entry",
				"booking_id", prevEntry.BookingID, "error", err)
			return errors.Join(cause, err)
		}
	}
	return cause
}
