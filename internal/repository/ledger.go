package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// GetByBooking returns the booking's ledger entry, if any. At most one entry
// exists per booking.
func (r *Ledger) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*models.LedgerEntry, bool, error) {
	e, ok, err := store.Get[models.LedgerEntry](ctx, r.store, entryKey(bookingID))
	if err != nil || !ok {
		return nil, false, err
	}
	return &e, true, nil
}

func (r *Ledger) Save(ctx context.Context, e *models.LedgerEntry) error {
	return store.Put(ctx, r.store, entryKey(e.BookingID), e)
}

// Delete removes the booking's ledger entry. Used only by hold rollback.
func (r *Ledger) Delete(ctx context.Context, bookingID uuid.UUID) error {
	return r.store.Delete(ctx, entryKey(bookingID))
}

// MentorHoldIDs lists booking ids whose holds are destined for the mentor.
// Entries are filtered by status at read time, so the index may lag behind
// released/returned entries without harm.
func (r *Ledger) MentorHoldIDs(ctx context.Context, mentorID uuid.UUID) ([]uuid.UUID, error) {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, mentorHoldsKey(mentorID))
	return ids, err
}

// AppendMentorHold records a booking in the mentor's hold index. Callers must
// hold the corresponding index lock; the store write is not atomic across
// concurrent appenders.
func (r *Ledger) AppendMentorHold(ctx context.Context, mentorID, bookingID uuid.UUID) error {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, mentorHoldsKey(mentorID))
	if err != nil {
		return err
	}
	ids, grew := appendID(ids, bookingID)
	if !grew {
		return nil
	}
	return store.Put(ctx, r.store, mentorHoldsKey(mentorID), ids)
}
