package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SystemEscrowAccountID holds credits while a booking is in escrow.
var SystemEscrowAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// User role enums.
const (
	RoleMentee   = "mentee"
	RoleMentor   = "mentor"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

// User account status enums.
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

type User struct {
	ID         uuid.UUID       `json:"id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	Role       string          `json:"role"`
	Status     string          `json:"status"`
	Credits    decimal.Decimal `json:"credits"`
	ReferredBy *uuid.UUID      `json:"referred_by,omitempty"` // provider that referred this mentee
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
