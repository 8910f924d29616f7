package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

type Users struct {
	store store.Store
}

func NewUsers(s store.Store) *Users {
	return &Users{store: s}
}

func (r *Users) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok, err := store.Get[models.User](ctx, r.store, userKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (r *Users) Save(ctx context.Context, u *models.User) error {
	return store.Put(ctx, r.store, userKey(u.ID), u)
}
