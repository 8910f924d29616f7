package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger entry status enums. An entry is created holding and transitions
// exactly once to released or returned.
const (
	LedgerHolding  = "holding"
	LedgerReleased = "released"
	LedgerReturned = "returned"
)

// LedgerEntry records one escrow hold and its eventual resolution.
// At most one entry exists per booking.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id"`
	BookingID uuid.UUID       `json:"booking_id"`
	FromUser  uuid.UUID       `json:"from_user"`
	ToUser    uuid.UUID       `json:"to_user"`  // SystemEscrowAccountID while holding
	PayeeID   uuid.UUID       `json:"payee_id"` // who a release pays (the mentor)
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
