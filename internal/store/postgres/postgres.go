package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

//go:embed schema.sql
var schemaSQL string

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
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

// Bootstrap opens the database and applies the schema. Used at startup.
func Bootstrap(ctx context.Context, dsn string) error {
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return EnsureSchema(ctx, db)
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Sessions() store.Sessions         { return &sessions{db: s.db} }
func (s *pgStore) Memories() store.Memories         { return &memories{db: s.db} }
func (s *pgStore) Transactions() store.Transactions { return &transactions{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
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
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id, chat_id)
        DO UPDATE SET state=EXCLUDED.state, created_at=EXCLUDED.created_at, expires_at=EXCLUDED.expires_at
    `, m.UserID, m.ChatID, stateJSON, created, m.ExpiresAt); err != nil {
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
	var stateJSON []byte
	row := s.db.QueryRowContext(ctx, `
        SELECT state, created_at, expires_at FROM sessions
        WHERE user_id=$1 AND chat_id=$2 AND expires_at > $3
    `, userID, chatID, time.Now().UTC())
	if err := row.Scan(&stateJSON, &out.CreatedAt, &out.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(stateJSON, &out.State); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *sessions) Delete(ctx context.Context, userID, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=$1 AND chat_id=$2`, userID, chatID)
	return err
}

func (s *sessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
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
		lastJSON = b
	}
	if wm.PendingClarification != nil {
		b, err := json.Marshal(wm.PendingClarification)
		if err != nil {
			return nil, err
		}
		pendingJSON = b
	}
	if len(wm.RecentMessages) > 0 {
		b, err := json.Marshal(wm.RecentMessages)
		if err != nil {
			return nil, err
		}
		msgsJSON = b
	}
	updated := wm.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	if _, err := m.db.ExecContext(ctx, `
        INSERT INTO working_memory (user_id, chat_id, last_transaction, pending_clarification, recent_messages, updated_at, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (user_id, chat_id)
        DO UPDATE SET last_transaction=EXCLUDED.last_transaction,
                      pending_clarification=EXCLUDED.pending_clarification,
                      recent_messages=EXCLUDED.recent_messages,
                      updated_at=EXCLUDED.updated_at,
                      expires_at=EXCLUDED.expires_at
    `, wm.UserID, wm.ChatID, lastJSON, pendingJSON, msgsJSON, updated, wm.ExpiresAt); err != nil {
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
	var lastJSON, pendingJSON, msgsJSON []byte
	row := m.db.QueryRowContext(ctx, `
        SELECT last_transaction, pending_clarification, recent_messages, updated_at, expires_at
        FROM working_memory WHERE user_id=$1 AND chat_id=$2 AND expires_at > $3
    `, userID, chatID, time.Now().UTC())
	if err := row.Scan(&lastJSON, &pendingJSON, &msgsJSON, &out.UpdatedAt, &out.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &model.WorkingMemory{UserID: userID, ChatID: chatID}, nil
		}
		return nil, err
	}
	if len(lastJSON) > 0 {
		if err := json.Unmarshal(lastJSON, &out.LastTransaction); err != nil {
			return nil, err
		}
	}
	if len(pendingJSON) > 0 {
		if err := json.Unmarshal(pendingJSON, &out.PendingClarification); err != nil {
			return nil, err
		}
	}
	if len(msgsJSON) > 0 {
		if err := json.Unmarshal(msgsJSON, &out.RecentMessages); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

func (m *memories) Delete(ctx context.Context, userID, chatID string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM working_memory WHERE user_id=$1 AND chat_id=$2`, userID, chatID)
	return err
}

func (m *memories) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := m.db.ExecContext(ctx, `DELETE FROM working_memory WHERE expires_at <= $1`, now.UTC())
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
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, out.ID, out.ProjectID, out.UserID, out.Merchant, out.Amount, out.Currency, out.Category, string(out.Status), out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *transactions) Get(ctx context.Context, projectID, id string) (*model.Transaction, error) {
	row := t.db.QueryRowContext(ctx, `
        SELECT `+txColumns+` FROM transactions
        WHERE project_id=$1 AND id=$2 AND status IN ('pending','confirmed','personal')
    `, projectID, id)
	out, err := scanTransaction(row)
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
        WHERE project_id=$1 AND user_id=$2 AND status IN ('pending','confirmed','personal')
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
              WHERE project_id=$1 AND user_id=$2 AND status IN ('pending','confirmed','personal')`
	args := []interface{}{req.ProjectID, req.UserID}
	n := 3
	addFilter := func(clause string, v interface{}) {
		query += fmt.Sprintf(clause, n)
		args = append(args, v)
		n++
	}
	if req.Merchant != "" {
		addFilter(" AND merchant ILIKE $%d", "%"+req.Merchant+"%")
	}
	if req.Category != "" {
		addFilter(" AND LOWER(category)=LOWER($%d)", req.Category)
	}
	if req.Since != nil {
		addFilter(" AND created_at >= $%d", *req.Since)
	}
	if req.Until != nil {
		addFilter(" AND created_at <= $%d", *req.Until)
	}
	if req.MinAmount != nil {
		addFilter(" AND amount >= $%d", *req.MinAmount)
	}
	if req.MaxAmount != nil {
		addFilter(" AND amount <= $%d", *req.MaxAmount)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
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
	n := 1
	set := func(col string, v interface{}) {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, n))
		args = append(args, v)
		n++
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
        WHERE project_id=$%d AND id=$%d AND status IN ('pending','confirmed','personal')
        RETURNING `+txColumns, strings.Join(sets, ", "), n, n+1)
	out, err := scanTransaction(t.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var m model.Transaction
	var status string
	if err := row.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Merchant, &m.Amount, &m.Currency, &m.Category, &status, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Status = model.TxStatus(status)
	return &m, nil
}
