package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking status enums.
const (
	BookingScheduled   = "SCHEDULED"
	BookingRescheduled = "RESCHEDULED"
	BookingCompleted   = "COMPLETED"
	BookingCancelled   = "CANCELLED"
	BookingNoShow      = "NO_SHOW"
	BookingDisputed    = "DISPUTED"
	BookingRefunded    = "REFUNDED"
)

// Funding type enums: how the lesson was paid for.
const (
	FundingCredit       = "credit"
	FundingSubscription = "subscription"
)

// Credit status mirrors the booking's ledger state so callers can gate
// refund decisions without loading the ledger entry.
const (
	CreditPending  = "pending"
	CreditReleased = "released"
	CreditRefunded = "refunded"
)

type Booking struct {
	ID             uuid.UUID       `json:"id"`
	MenteeID       uuid.UUID       `json:"mentee_id"`
	MentorID       uuid.UUID       `json:"mentor_id"`
	StartAt        time.Time       `json:"start_at"`
	EndAt          time.Time       `json:"end_at"`
	Cost           decimal.Decimal `json:"cost"`
	FundingType    string          `json:"funding_type"`
	SubscriptionID *uuid.UUID      `json:"subscription_id,omitempty"`
	Status         string          `json:"status"`
	CreditStatus   string          `json:"credit_status"`

	// Dispute metadata, set when the booking enters DISPUTED.
	DisputeReason   string     `json:"dispute_reason,omitempty"`
	DisputeEvidence string     `json:"dispute_evidence,omitempty"`
	ResolutionNote  string     `json:"resolution_note,omitempty"`
	DisputedAt      *time.Time `json:"disputed_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
