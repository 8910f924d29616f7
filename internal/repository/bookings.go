package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Bookings struct {
	store store.Store
}

func NewBookings(s store.Store) *Bookings {
	return &Bookings{store: s}
}

func (r *Bookings) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok, err := store.Get[models.Booking](ctx, r.store, bookingKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return &b, nil
}

func (r *Bookings) Save(ctx context.Context, b *models.Booking) error {
	return store.Put(ctx, r.store, bookingKey(b.ID), b)
}
