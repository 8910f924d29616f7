package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Payouts struct {
	store store.Store
}

func NewPayouts(s store.Store) *Payouts {
	return &Payouts{store: s}
}

func (r *Payouts) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	p, ok, err := store.Get[models.Payout](ctx, r.store, payoutKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("payout %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *Payouts) Save(ctx context.Context, p *models.Payout) error {
	return store.Put(ctx, r.store, payoutKey(p.ID), p)
}

// MentorIDs lists the mentor's payout ids, oldest first. Writers hold the
// mentor's payout lock, so no extra index lock is needed.
func (r *Payouts) MentorIDs(ctx context.Context, mentorID uuid.UUID) ([]uuid.UUID, error) {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, mentorPayoutsKey(mentorID))
	return ids, err
}

func (r *Payouts) AppendMentor(ctx context.Context, mentorID, payoutID uuid.UUID) error {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, mentorPayoutsKey(mentorID))
	if err != nil {
		return err
	}
	ids, _ = appendID(ids, payoutID)
	return store.Put(ctx, r.store, mentorPayoutsKey(mentorID), ids)
}
