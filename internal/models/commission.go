package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Commission status enums. Commissions credit the provider in the same
// operation that records them, so PAID is the only status written.
const (
	CommissionPaid = "PAID"
)

// Commission records one referral payout event. TopupTxID is the idempotency
// key: at most one commission exists per top-up transaction.
type Commission struct {
	ID          uuid.UUID       `json:"id"`
	ProviderID  uuid.UUID       `json:"provider_id"`
	MenteeID    uuid.UUID       `json:"mentee_id"`
	TopupTxID   string          `json:"topup_tx_id"`
	TopupAmount decimal.Decimal `json:"topup_amount"`
	Percent     decimal.Decimal `json:"percent"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
