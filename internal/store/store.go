package store

import (
	"context"
	"time"

	"github.com/centsible/centsible/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres, sqlite).
type Store interface {
	Sessions() Sessions
	Memories() Memories
	Transactions() Transactions
}

// Sessions persists conversational state keyed by (user, chat).
// Get never returns a row whose expiry has passed; expired and absent
// are indistinguishable to callers.
type Sessions interface {
	Upsert(ctx context.Context, s *model.Session) (*model.Session, error)
	Get(ctx context.Context, userID, chatID string) (*model.Session, error)
	Delete(ctx context.Context, userID, chatID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Memories persists working memory keyed by (user, chat).
// Get returns an empty memory, not an error, when the row is absent or expired.
type Memories interface {
	Upsert(ctx context.Context, m *model.WorkingMemory) (*model.WorkingMemory, error)
	Get(ctx context.Context, userID, chatID string) (*model.WorkingMemory, error)
	Delete(ctx context.Context, userID, chatID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Transactions persists expenses. Reads and updates see only rows whose
// status is pending, confirmed or personal; soft-deleted rows are invisible.
// Latest returns the newest live row for a project/user pair, or
// model.ErrNotFound when the pair has none.
type Transactions interface {
	Create(ctx context.Context, t *model.Transaction) (*model.Transaction, error)
	Get(ctx context.Context, projectID, id string) (*model.Transaction, error)
	Latest(ctx context.Context, projectID, userID string) (*model.Transaction, error)
	List(ctx context.Context, req model.ListTransactionsRequest) ([]*model.Transaction, error)
	Update(ctx context.Context, projectID, id string, upd model.TransactionUpdate) (*model.Transaction, error)
}
