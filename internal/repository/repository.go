// Package repository provides typed access to the engine's entities on top
// of the key-value store port. Each entity lives under its own key; list
// indexes that are appended to from under unrelated locks are guarded by
// dedicated index lock keys (see internal/lock).
package repository

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

func userKey(id uuid.UUID) string    { return "user:" + id.String() }
func bookingKey(id uuid.UUID) string { return "booking:" + id.String() }
func entryKey(bookingID uuid.UUID) string {
	return "ledger:booking:" + bookingID.String()
}
func mentorHoldsKey(mentorID uuid.UUID) string {
	return "ledger:holds:" + mentorID.String()
}
func subscriptionKey(id uuid.UUID) string { return "subscription:" + id.String() }
func subPairKey(menteeID, mentorID uuid.UUID) string {
	return "subs:pair:" + menteeID.String() + ":" + mentorID.String()
}

const subAllKey = "subs:all"

func planKey(id uuid.UUID) string   { return "plan:" + id.String() }
func payoutKey(id uuid.UUID) string { return "payout:" + id.String() }
func mentorPayoutsKey(mentorID uuid.UUID) string {
	return "payouts:mentor:" + mentorID.String()
}
func commissionKey(topupTxID string) string { return "commission:topup:" + topupTxID }
func txLogKey(userID uuid.UUID) string      { return "txlog:" + userID.String() }
func historyKey(userID uuid.UUID) string    { return "credithistory:" + userID.String() }

// appendID adds id to ids if absent, returning the new slice and whether it grew.
func appendID(ids []uuid.UUID, id uuid.UUID) ([]uuid.UUID, bool) {
	for _, existing := range ids {
		if existing == id {
			return ids, false
		}
	}
	return append(ids, id), true
}
