package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

// Resolver maps conversational references ("last", explicit ids) onto
// concrete transactions and keeps working memory in sync after mutations.
type Resolver struct {
	store  store.Store
	memory *WorkingMemoryService
	log    zerolog.Logger
}

func NewResolver(s store.Store, mem *WorkingMemoryService, log zerolog.Logger) *Resolver {
	return &Resolver{store: s, memory: mem, log: log}
}

// FieldChange reports one applied field edit with narration-ready values.
type FieldChange struct {
	Tx  *model.Transaction
	Old string
	New string
}

// Resolve maps a target reference onto a live transaction id.
// "last" picks the newest non-deleted row for the project/user pair;
// "specific" requires an explicit id, which is validated against the store
// so a deleted or foreign row never resolves. Returns model.ErrNotFound
// when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, projectID, userID, target, explicitID string) (string, error) {
	explicitID = strings.TrimSpace(explicitID)
	if strings.EqualFold(target, "specific") || explicitID != "" {
		if explicitID == "" {
			return "", errors.Wrap(model.ErrNotFound, "no transaction id provided")
		}
		tx, err := r.store.Transactions().Get(ctx, projectID, explicitID)
		if err != nil {
			return "", err
		}
		return tx.ID, nil
	}
	tx, err := r.store.Transactions().Latest(ctx, projectID, userID)
	if err != nil {
		return "", err
	}
	return tx.ID, nil
}

// Fetch loads the transaction, re-validating project scope and that the row
// is still live. Memory snapshots can be stale; the store is authoritative.
func (r *Resolver) Fetch(ctx context.Context, projectID, id string) (*model.Transaction, error) {
	return r.store.Transactions().Get(ctx, projectID, id)
}

// UpdateFieldAndResync applies a single field edit and refreshes the
// working-memory snapshot. The resync is part of the operation: a stale
// snapshot would make the next "change that to X" target the wrong values.
func (r *Resolver) UpdateFieldAndResync(ctx context.Context, projectID, userID, chatID, id, field string, value interface{}) (*FieldChange, error) {
	before, err := r.Fetch(ctx, projectID, id)
	if err != nil {
		return nil, err
	}

	var upd model.TransactionUpdate
	var oldVal, newVal string
	switch field {
	case "amount":
		amt, ok := toFloat(value)
		if !ok || amt <= 0 {
			return nil, errors.Wrap(model.ErrInvalidArguments, "amount must be a positive number")
		}
		upd.Amount = &amt
		oldVal = model.FormatAmount(before.Amount, before.Currency)
		newVal = model.FormatAmount(amt, before.Currency)
	case "merchant":
		m, ok := value.(string)
		m = strings.TrimSpace(m)
		if !ok || m == "" {
			return nil, errors.Wrap(model.ErrInvalidArguments, "merchant must be a non-empty string")
		}
		upd.Merchant = &m
		oldVal, newVal = before.Merchant, m
	case "category":
		c, ok := value.(string)
		c = strings.TrimSpace(c)
		if !ok || c == "" {
			return nil, errors.Wrap(model.ErrInvalidArguments, "category must be a non-empty string")
		}
		upd.Category = &c
		oldVal, newVal = before.Category, c
	default:
		return nil, errors.Wrapf(model.ErrInvalidArguments, "field %q cannot be edited", field)
	}

	after, err := r.store.Transactions().Update(ctx, projectID, id, upd)
	if err != nil {
		return nil, err
	}
	if _, err := r.memory.SetLastTransaction(ctx, userID, chatID, after.Snapshot()); err != nil {
		return nil, errors.Wrap(err, "resync working memory after field update")
	}
	return &FieldChange{Tx: after, Old: oldVal, New: newVal}, nil
}

// SoftDelete marks the transaction deleted and scrubs any working-memory
// references to it. The row stays in the store; reads no longer see it.
func (r *Resolver) SoftDelete(ctx context.Context, projectID, userID, chatID, id string) (*model.Transaction, error) {
	deleted := model.TxDeleted
	tx, err := r.store.Transactions().Update(ctx, projectID, id, model.TransactionUpdate{Status: &deleted})
	if err != nil {
		return nil, err
	}

	wm, err := r.memory.Get(ctx, userID, chatID)
	if err != nil {
		r.log.Warn().Err(err).Str("transaction_id", id).Msg("could not read working memory after delete")
		return tx, nil
	}
	if wm.LastTransaction != nil && wm.LastTransaction.ID == id {
		if _, err := r.memory.ClearLastTransaction(ctx, userID, chatID); err != nil {
			r.log.Warn().Err(err).Str("transaction_id", id).Msg("could not clear last transaction after delete")
		}
	}
	if wm.PendingClarification != nil && wm.PendingClarification.TransactionID == id {
		if _, err := r.memory.ClearPendingClarification(ctx, userID, chatID); err != nil {
			r.log.Warn().Err(err).Str("transaction_id", id).Msg("could not clear pending clarification after delete")
		}
	}
	return tx, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
