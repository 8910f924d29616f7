package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription status enums.
const (
	SubscriptionActive    = "ACTIVE"
	SubscriptionCompleted = "COMPLETED"
	SubscriptionCancelled = "CANCELLED"
	SubscriptionExpired   = "EXPIRED"
)

// Plan describes a prepaid session bundle a mentee can purchase for one mentor.
type Plan struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Sessions        int             `json:"sessions"`
	Price           decimal.Decimal `json:"price"`
	ValidityDays    int             `json:"validity_days"`
	CancelQuota     int             `json:"cancel_quota"`
	RescheduleQuota int             `json:"reschedule_quota"`
}

// Subscription is a purchased bundle of sessions between one mentee and one
// mentor. ConsumedBookingIDs makes session consumption idempotent per booking.
type Subscription struct {
	ID                 uuid.UUID   `json:"id"`
	MenteeID           uuid.UUID   `json:"mentee_id"`
	MentorID           uuid.UUID   `json:"mentor_id"`
	PlanID             uuid.UUID   `json:"plan_id"`
	RemainingSessions  int         `json:"remaining_sessions"`
	CancelQuota        int         `json:"cancel_quota"`
	RescheduleQuota    int         `json:"reschedule_quota"`
	ConsumedBookingIDs []uuid.UUID `json:"consumed_booking_ids"`
	Status             string      `json:"status"`
	StartAt            time.Time   `json:"start_at"`
	EndAt              time.Time   `json:"end_at"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}
