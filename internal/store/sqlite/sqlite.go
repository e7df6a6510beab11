package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Open opens (or creates) a SQLite database at the given path and enables WAL journal mode.
// The URI parameter ensures better concurrency for read-heavy workloads.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema applies the embedded DDL. Statements are idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// NewWithDB constructs a SQLite store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &sqliteStore{db: db} }

type sqliteStore struct{ db *sql.DB }

func (s *sqliteStore) Sessions() store.Sessions         { return &sessions{db: s.db} }
func (s *sqliteStore) Memories() store.Memories         { return &memories{db: s.db} }
func (s *sqliteStore) Transactions() store.Transactions { return &transactions{db: s.db} }

// HealthPing implements health.HealthPinger for the SQLite-backed store.
func (s *sqliteStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Sessions ---
type sessions struct{ db *sql.DB }

func (s *sessions) Upsert(ctx context.Context, m *model.Session) (*model.Session, error) {
	stateJSON, err := json.Marshal(m.State)
	if err != nil {
		return nil, err
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO sessions (user_id, chat_id, state, created_at, expires_at)
        VALUES (?,?,?,?,?)
        ON CONFLICT (user_id, chat_id)
        DO UPDATE SET state=excluded.state, created_at=excluded.created_at, expires_at=excluded.expires_at
    `, m.UserID, m.ChatID, string(stateJSON), created.UnixMilli(), m.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	out := *m
	out.CreatedAt = created
	return &out, nil
}

func (s *sessions) Get(ctx context.Context, userID, chatID string) (*model.Session, error) {
	var out model.Session
	out.UserID = userID
	out.ChatID = chatID
	var stateJSON string
	var created, expires int64
	row := s.db.QueryRowContext(ctx, `
        SELECT state, created_at, expires_at FROM sessions
        WHERE user_id=? AND chat_id=? AND expires_at > ?
    `, userID, chatID, time.Now().UnixMilli())
	if err := row.Scan(&stateJSON, &created, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &out.State); err != nil {
		return nil, err
	}
	out.CreatedAt = time.UnixMilli(created).UTC()
	out.ExpiresAt = time.UnixMilli(expires).UTC()
	return &out, nil
}

func (s *sessions) Delete(ctx context.Context, userID, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=? AND chat_id=?`, userID, chatID)
	return err
}

func (s *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Memories ---
type memories struct{ db *sql.DB }

func (m *memories) Upsert(ctx context.Context, wm *model.WorkingMemory) (*model.WorkingMemory, error) {
	var lastJSON, pendingJSON, msgsJSON interface{}
	if wm.LastTransaction != nil {
		b, err := json.Marshal(wm.LastTransaction)
		if err != nil {
			return nil, err
		}
		lastJSON = string(b)
	}
	if wm.PendingClarification != nil {
		b, err := json.Marshal(wm.PendingClarification)
		if err != nil {
			return nil, err
		}
		pendingJSON = string(b)
	}
	if len(wm.RecentMessages) > 0 {
		b, err := json.Marshal(wm.RecentMessages)
		if err != nil {
			return nil, err
		}
		msgsJSON = string(b)
	}
	updated := wm.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := m.db.ExecContext(ctx, `
        INSERT INTO working_memory (user_id, chat_id, last_transaction, pending_clarification, recent_messages, updated_at, expires_at)
        VALUES (?,?,?,?,?,?,?)
        ON CONFLICT (user_id, chat_id)
        DO UPDATE SET last_transaction=excluded.last_transaction,
                      pending_clarification=excluded.pending_clarification,
                      recent_messages=excluded.recent_messages,
                      updated_at=excluded.updated_at,
                      expires_at=excluded.expires_at
    `, wm.UserID, wm.ChatID, lastJSON, pendingJSON, msgsJSON, updated.UnixMilli(), wm.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	out := *wm
	out.UpdatedAt = updated
	return &out, nil
}

func (m *memories) Get(ctx context.Context, userID, chatID string) (*model.WorkingMemory, error) {
	var out model.WorkingMemory
	out.UserID = userID
	out.ChatID = chatID
	var lastJSON, pendingJSON, msgsJSON sql.NullString
	var updated, expires int64
	row := m.db.QueryRowContext(ctx, `
        SELECT last_transaction, pending_clarification, recent_messages, updated_at, expires_at
        FROM working_memory WHERE user_id=? AND chat_id=? AND expires_at > ?
    `, userID, chatID, time.Now().UnixMilli())
	if err := row.Scan(&lastJSON, &pendingJSON, &msgsJSON, &updated, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.WorkingMemory{UserID: userID, ChatID: chatID}, nil
		}
		return nil, err
	}
	if lastJSON.Valid {
		if err := json.Unmarshal([]byte(lastJSON.String), &out.LastTransaction); err != nil {
			return nil, err
		}
	}
	if pendingJSON.Valid {
		if err := json.Unmarshal([]byte(pendingJSON.String), &out.PendingClarification); err != nil {
			return nil, err
		}
	}
	if msgsJSON.Valid {
		if err := json.Unmarshal([]byte(msgsJSON.String), &out.RecentMessages); err != nil {
			return nil, err
		}
	}
	out.UpdatedAt = time.UnixMilli(updated).UTC()
	out.ExpiresAt = time.UnixMilli(expires).UTC()
	return &out, nil
}

func (m *memories) Delete(ctx context.Context, userID, chatID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM working_memory WHERE user_id=? AND chat_id=?`, userID, chatID)
	return err
}

func (m *memories) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM working_memory WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- Transactions ---
type transactions struct{ db *sql.DB }

const txColumns = `id, project_id, user_id, merchant, amount, currency, category, status, created_at`

func (t *transactions) Create(ctx context.Context, m *model.Transaction) (*model.Transaction, error) {
	out := *m
	if out.ID == "" {
		out.ID = ulid.Make().String()
	}
	if out.Status == "" {
		out.Status = model.TxPending
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	if _, err := t.db.ExecContext(ctx, `
        INSERT INTO transactions (id, project_id, user_id, merchant, amount, currency, category, status, created_at)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, out.ID, out.ProjectID, out.UserID, out.Merchant, out.Amount, out.Currency, out.Category, string(out.Status), out.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *transactions) Get(ctx context.Context, projectID, id string) (*model.Transaction, error) {
	return t.get(ctx, projectID, id, false)
}

func (t *transactions) get(ctx context.Context, projectID, id string, includeDeleted bool) (*model.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE project_id=? AND id=?`
	if !includeDeleted {
		query += ` AND status IN ('pending','confirmed','personal')`
	}
	out, err := scanTransaction(t.db.QueryRowContext(ctx, query, projectID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (t *transactions) Latest(ctx context.Context, projectID, userID string) (*model.Transaction, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT `+txColumns+` FROM transactions
        WHERE project_id=? AND user_id=? AND status IN ('pending','confirmed','personal')
        ORDER BY created_at DESC, id DESC LIMIT 1
    `, projectID, userID)
	out, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (t *transactions) List(ctx context.Context, req model.ListTransactionsRequest) ([]*model.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions
              WHERE project_id=? AND user_id=? AND status IN ('pending','confirmed','personal')`
	args := []interface{}{req.ProjectID, req.UserID}
	if req.Merchant != "" {
		query += ` AND merchant LIKE ?`
		args = append(args, "%"+req.Merchant+"%")
	}
	if req.Category != "" {
		query += ` AND LOWER(category)=LOWER(?)`
		args = append(args, req.Category)
	}
	if req.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, req.Since.UnixMilli())
	}
	if req.Until != nil {
		query += ` AND created_at <= ?`
		args = append(args, req.Until.UnixMilli())
	}
	if req.MinAmount != nil {
		query += ` AND amount >= ?`
		args = append(args, *req.MinAmount)
	}
	if req.MaxAmount != nil {
		query += ` AND amount <= ?`
		args = append(args, *req.MaxAmount)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, req.Limit)
	}
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.Transaction
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *transactions) Update(ctx context.Context, projectID, id string, upd model.TransactionUpdate) (*model.Transaction, error) {
	var sets []string
	var args []interface{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if upd.Merchant != nil {
		set("merchant", *upd.Merchant)
	}
	if upd.Amount != nil {
		set("amount", *upd.Amount)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.Status != nil {
		set("status", string(*upd.Status))
	}
	if len(sets) == 0 {
		return t.Get(ctx, projectID, id)
	}
	args = append(args, projectID, id)
	query := fmt.Sprintf(`
        UPDATE transactions SET %s
        WHERE project_id=? AND id=? AND status IN ('pending','confirmed','personal')
    `, strings.Join(sets, ", "))
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, model.ErrNotFound
	}
	// Re-read without the status filter so a row just marked deleted
	// is still returned to the caller.
	return t.get(ctx, projectID, id, true)
}

// helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var m model.Transaction
	var status string
	var created int64
	if err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Merchant, &m.Amount, &m.Currency, &m.Category, &status, &created); err != nil {
		return nil, err
	}
	m.Status = model.TxStatus(status)
	m.CreatedAt = time.UnixMilli(created).UTC()
	return &m, nil
}
