package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentora/backend/internal/models"
	"github.com/mentora/backend/internal/store"
)

// Audit stores the append-only transaction log and credit history. Both are
// written from under the owning account's credit lock, which serializes
// appenders per user.
type Audit struct {
	store store.Store
}

func NewAudit(s store.Store) *Audit {
	return &Audit{store: s}
}

func (r *Audit) AppendTransaction(ctx context.Context, t *models.Transaction) error {
	log, _, err := store.Get[[]models.Transaction](ctx, r.store, txLogKey(t.UserID))
	if err != nil {
		return err
	}
	log = append(log, *t)
	return store.Put(ctx, r.store, txLogKey(t.UserID), log)
}

func (r *Audit) AppendHistory(ctx context.Context, h *models.CreditHistory) error {
	log, _, err := store.Get[[]models.CreditHistory](ctx, r.store, historyKey(h.UserID))
	if err != nil {
		return err
	}
	log = append(log, *h)
	return store.Put(ctx, r.store, historyKey(h.UserID), log)
}

func (r *Audit) Transactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	log, _, err := store.Get[[]models.Transaction](ctx, r.store, txLogKey(userID))
	return log, err
}

func (r *Audit) History(ctx context.Context, userID uuid.UUID) ([]models.CreditHistory, error) {
	log, _, err := store.Get[[]models.CreditHistory](ctx, r.store, historyKey(userID))
	return log, err
}
