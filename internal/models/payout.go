package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payout status enums. PENDING moves forward to APPROVED_PENDING_PAYMENT then
// PAID, or to REJECTED with the balance restored.
const (
	PayoutPending         = "PENDING"
	PayoutApprovedPending = "APPROVED_PENDING_PAYMENT"
	PayoutPaid            = "PAID"
	PayoutRejected        = "REJECTED"
)

type Payout struct {
	ID               uuid.UUID       `json:"id"`
	MentorID         uuid.UUID       `json:"mentor_id"`
	Amount           decimal.Decimal `json:"amount"`            // credits debited from the mentor
	SettlementAmount decimal.Decimal `json:"settlement_amount"` // amount actually paid out after the platform margin
	Method           string          `json:"method"`
	Status           string          `json:"status"`
	AdminNote        string          `json:"admin_note,omitempty"`
	RequestedAt      time.Time       `json:"requested_at"`
	ReviewedAt       *time.Time      `json:"reviewed_at,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
}
