// Package commission pays referral providers a percentage of their referred
// mentees' top-ups. Processing is idempotent per top-up transaction id.
package commission

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mentora/backend/internal/lock"
	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/repository"
)

// Tiered commission rates by top-up amount, in percent.
var (
	tierSmallLimit = decimal.NewFromInt(100)
	tierMidLimit   = decimal.NewFromInt(500)

	rateSmall = decimal.NewFromFloat(5)
	rateMid   = decimal.NewFromFloat(7.5)
	rateLarge = decimal.NewFromFloat(10)
)

// Rate returns the commission percentage for a top-up amount.
func Rate(topupAmount decimal.Decimal) decimal.Decimal {
	switch {
	case topupAmount.LessThan(tierSmallLimit):
		return rateSmall
	case topupAmount.LessThan(tierMidLimit):
		return rateMid
	default:
		return rateLarge
	}
}

type Service interface {
	// ProcessTopup computes and pays the referral commission for a mentee
	// top-up. No-op when the mentee has no referring provider, when the
	// provider is not active, or when the top-up was already processed.
	// Returns nil without error on the no-op paths.
	ProcessTopup(ctx context.Context, menteeID uuid.UUID, topupAmount decimal.Decimal, topupTxID string) (*models.Commission, error)
}

type service struct {
	users       *repository.Users
	commissions *repository.Commissions
	audit       *repository.Audit
	locks       *lock.Manager
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(users *repository.Users, commissions *repository.Commissions, audit *repository.Audit, locks *lock.Manager, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		users:       users,
		commissions: commissions,
		audit:       audit,
		locks:       locks,
		logger:      logger,
		now:         time.Now,
	}
}

var _ Service = (*service)(nil)

func (s *service) ProcessTopup(ctx context.Context, menteeID uuid.UUID, topupAmount decimal.Decimal, topupTxID string) (*models.Commission, error) {
	var result *models.Commission
	err := s.locks.WithLock(ctx, lock.Commission(topupTxID), func(ctx context.Context) error {
		if existing, ok, err := s.commissions.GetByTopup(ctx, topupTxID); err != nil {
			return err
		} else if ok {
			s.logger.Warn("commission already processed for top-up, skipping",
				"topup_tx_id", topupTxID, "commission_id", existing.ID)
			result = existing
			return nil
		}

		mentee, err := s.users.Get(ctx, menteeID)
		if err != nil {
			return err
		}
		if mentee.ReferredBy == nil {
			return nil
		}
		providerID := *mentee.ReferredBy

		rate := Rate(topupAmount)
		amount := topupAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

		return s.locks.WithLock(ctx, lock.Credit(providerID), func(ctx context.Context) error {
			// Read the provider under its credit lock: a concurrent credit
			// landing between an earlier read and the lock would be lost.
			provider, err := s.users.Get(ctx, providerID)
			if err != nil {
				return err
			}
			if provider.Status != models.UserStatusActive {
				s.logger.Warn("provider not active, commission skipped",
					"provider_id", provider.ID, "status", provider.Status, "topup_tx_id", topupTxID)
				return nil
			}

			prevBalance := provider.Credits
			now := s.now()

			provider.Credits = prevBalance.Add(amount)
			provider.UpdatedAt = now
			if err := s.users.Save(ctx, provider); err != nil {
				return err
			}

			c := &models.Commission{
				ID:          uuid.New(),
				ProviderID:  provider.ID,
				MenteeID:    menteeID,
				TopupTxID:   topupTxID,
				TopupAmount: topupAmount,
				Percent:     rate,
				Amount:      amount,
				Status:      models.CommissionPaid,
				CreatedAt:   now,
			}
			if err := s.commissions.Save(ctx, c); err != nil {
				return s.rollback(ctx, provider, prevBalance, err)
			}

			tx := &models.Transaction{
				ID:        uuid.New(),
				UserID:    provider.ID,
				Type:      models.TxCommission,
				Amount:    amount,
				Reference: topupTxID,
				Note:      "referral commission on mentee top-up",
				CreatedAt: now,
			}
			if err := s.audit.AppendTransaction(ctx, tx); err != nil {
				return s.rollback(ctx, provider, prevBalance, err)
			}
			history := &models.CreditHistory{
				ID:           uuid.New(),
				UserID:       provider.ID,
				Delta:        amount,
				BalanceAfter: provider.Credits,
				Reason:       "referral commission",
				CreatedAt:    now,
			}
			if err := s.audit.AppendHistory(ctx, history); err != nil {
				return s.rollback(ctx, provider, prevBalance, err)
			}

			result = c
			return nil
		})
	})
	return result, err
}

func (s *service) rollback(ctx context.Context, provider *models.User, prevBalance decimal.Decimal, cause error) error {
	provider.Credits = prevBalance
	if err := s.users.Save(ctx, provider); err != nil {
		s.logger.Error("commission rollback failed, balance inconsistent",
			"user_id", provider.ID, "error", err)
		return errors.Join(cause, err)
	}
	return cause
}
