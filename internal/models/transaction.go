package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction type enums.
const (
	TxDebit       = "debit"
	TxCredit      = "credit"
	TxPlatformFee = "platform_fee"
	TxPayout      = "payout"
	TxCommission  = "commission"
)

// Transaction is an append-only audit record of one balance mutation.
// Never mutated after creation.
type Transaction struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"` // booking, payout or top-up id
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreditHistory is an append-only snapshot of a balance after a mutation,
// kept for reconciliation and display.
type CreditHistory struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reason       string          `json:"reason"`
	CreatedAt    time.Time       `json:"created_at"`
}
