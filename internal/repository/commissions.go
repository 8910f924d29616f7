package repository

import (
	"context"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Commissions struct {
	store store.Store
}

func NewCommissions(s store.Store) *Commissions {
	return &Commissions{store: s}
}

// GetByTopup returns the commission recorded for a top-up transaction, if
// any. The top-up tx id is the idempotency key.
func (r *Commissions) GetByTopup(ctx context.Context, topupTxID string) (*models.Commission, bool, error) {
	c, ok, err := store.Get[models.Commission](ctx, r.store, commissionKey(topupTxID))
	if err != nil || !ok {
		return nil, false, err
	}
	return &c, true, nil
}

func (r *Commissions) Save(ctx context.Context, c *models.Commission) error {
	return store.Put(ctx, r.store, commissionKey(c.TopupTxID), c)
}
