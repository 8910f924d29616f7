package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Subscriptions struct {
	store store.Store
}

func NewSubscriptions(s store.Store) *Subscriptions {
	return &Subscriptions{store: s}
}

func (r *Subscriptions) Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, ok, err := store.Get[models.Subscription](ctx, r.store, subscriptionKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	return &sub, nil
}

func (r *Subscriptions) Save(ctx context.Context, sub *models.Subscription) error {
	return store.Put(ctx, r.store, subscriptionKey(sub.ID), sub)
}

// PairIDs lists subscription ids between a mentee and a mentor, oldest first.
func (r *Subscriptions) PairIDs(ctx context.Context, menteeID, mentorID uuid.UUID) ([]uuid.UUID, error) {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, subPairKey(menteeID, mentorID))
	return ids, err
}

// AppendPair records a new subscription for the pair. Callers hold the pair's
// subscription lock, which serializes all writers of this index.
func (r *Subscriptions) AppendPair(ctx context.Context, menteeID, mentorID, subID uuid.UUID) error {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, subPairKey(menteeID, mentorID))
	if err != nil {
		return err
	}
	ids, _ = appendID(ids, subID)
	return store.Put(ctx, r.store, subPairKey(menteeID, mentorID), ids)
}

// AllIDs lists every subscription id, for the expiry sweep.
func (r *Subscriptions) AllIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, subAllKey)
	return ids, err
}

// AppendAll records a subscription in the global index. Callers must hold
// the global index lock; purchases for unrelated pairs race on this key.
func (r *Subscriptions) AppendAll(ctx context.Context, subID uuid.UUID) error {
	ids, _, err := store.Get[[]uuid.UUID](ctx, r.store, subAllKey)
	if err != nil {
		return err
	}
	ids, _ = appendID(ids, subID)
	return store.Put(ctx, r.store, subAllKey, ids)
}

func (r *Subscriptions) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	p, ok, err := store.Get[models.Plan](ctx, r.store, planKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (r *Subscriptions) SavePlan(ctx context.Context, p *models.Plan) error {
	return store.Put(ctx, r.store, planKey(p.ID), p)
}
