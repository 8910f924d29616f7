package lock

import "github.com/google/uuid"

// Lock key builders. Granularity is deliberate: account-level for holds,
// booking-level for release/refund/status transitions, pair-level for
// subscription quota, mentor-level for payouts. Balance mutations always
// nest the owning account's Credit key innermost, so ordering is acyclic.

func Credit(accountID uuid.UUID) string { return "credit:" + accountID.String() }

func Booking(bookingID uuid.UUID) string { return "booking:" + bookingID.String() }

func Subscription(menteeID, mentorID uuid.UUID) string {
	return "subscription:" + menteeID.String() + ":" + mentorID.String()
}

func Payout(mentorID uuid.UUID) string { return "payout:" + mentorID.String() }

func Commission(topupTxID string) string { return "commission:" + topupTxID }

// Index guards a store index key that is appended to from under unrelated
// entity locks.
func Index(name string) string { return "idx:" + name }
