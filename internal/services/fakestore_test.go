package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

// fakeStore is a small in-memory store.Store with the same visibility rules
// as the real drivers: expired sessions read as absent, expired or missing
// memory reads as empty, deleted transactions are invisible.
type fakeStore struct {
	mu         sync.Mutex
	sessions   map[string]*model.Session
	memories   map[string]*model.WorkingMemory
	txs        map[string]*model.Transaction
	txOrder    []string // insertion order, newest last
	nextTxID   int
	memUpserts int
	failWith   error // when set, every op fails with this error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[string]*model.Session{},
		memories: map[string]*model.WorkingMemory{},
		txs:      map[string]*model.Transaction{},
	}
}

func key(userID, chatID string) string { return userID + "|" + chatID }

func (f *fakeStore) Sessions() store.Sessions         { return &fakeSessions{f} }
func (f *fakeStore) Memories() store.Memories         { return &fakeMemories{f} }
func (f *fakeStore) Transactions() store.Transactions { return &fakeTransactions{f} }

type fakeSessions struct{ p *fakeStore }

func (s *fakeSessions) Upsert(_ context.Context, m *model.Session) (*model.Session, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.failWith != nil {
		return nil, s.p.failWith
	}
	cp := *m
	s.p.sessions[key(m.UserID, m.ChatID)] = &cp
	out := cp
	return &out, nil
}

func (s *fakeSessions) Get(_ context.Context, userID, chatID string) (*model.Session, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.failWith != nil {
		return nil, s.p.failWith
	}
	m, ok := s.p.sessions[key(userID, chatID)]
	if !ok || !m.ExpiresAt.After(time.Now()) {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *fakeSessions) Delete(_ context.Context, userID, chatID string) error {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if s.p.failWith != nil {
		return s.p.failWith
	}
	delete(s.p.sessions, key(userID, chatID))
	return nil
}

func (s *fakeSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	var n int64
	for k, m := range s.p.sessions {
		if !m.ExpiresAt.After(now) {
			delete(s.p.sessions, k)
			n++
		}
	}
	return n, nil
}

type fakeMemories struct{ p *fakeStore }

func (m *fakeMemories) Upsert(_ context.Context, wm *model.WorkingMemory) (*model.WorkingMemory, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	if m.p.failWith != nil {
		return nil, m.p.failWith
	}
	m.p.memUpserts++
	cp := copyMemory(wm)
	m.p.memories[key(wm.UserID, wm.ChatID)] = cp
	return copyMemory(cp), nil
}

func (m *fakeMemories) Get(_ context.Context, userID, chatID string) (*model.WorkingMemory, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	if m.p.failWith != nil {
		return nil, m.p.failWith
	}
	wm, ok := m.p.memories[key(userID, chatID)]
	if !ok || !wm.ExpiresAt.After(time.Now()) {
		return &model.WorkingMemory{UserID: userID, ChatID: chatID}, nil
	}
	return copyMemory(wm), nil
}

func (m *fakeMemories) Delete(_ context.Context, userID, chatID string) error {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	delete(m.p.memories, key(userID, chatID))
	return nil
}

func (m *fakeMemories) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()
	var n int64
	for k, wm := range m.p.memories {
		if !wm.ExpiresAt.After(now) {
			delete(m.p.memories, k)
			n++
		}
	}
	return n, nil
}

type fakeTransactions struct{ p *fakeStore }

func (t *fakeTransactions) Create(_ context.Context, m *model.Transaction) (*model.Transaction, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.p.failWith != nil {
		return nil, t.p.failWith
	}
	cp := *m
	if cp.ID == "" {
		t.p.nextTxID++
		cp.ID = fmt.Sprintf("tx-%d", t.p.nextTxID)
	}
	if cp.Status == "" {
		cp.Status = model.TxPending
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	t.p.txs[cp.ID] = &cp
	t.p.txOrder = append(t.p.txOrder, cp.ID)
	out := cp
	return &out, nil
}

func (t *fakeTransactions) Get(_ context.Context, projectID, id string) (*model.Transaction, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.p.failWith != nil {
		return nil, t.p.failWith
	}
	m, ok := t.p.txs[id]
	if !ok || m.ProjectID != projectID || !m.Status.Mutable() {
		return nil, model.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (t *fakeTransactions) Latest(_ context.Context, projectID, userID string) (*model.Transaction, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.p.failWith != nil {
		return nil, t.p.failWith
	}
	for i := len(t.p.txOrder) - 1; i >= 0; i-- {
		m := t.p.txs[t.p.txOrder[i]]
		if m.ProjectID == projectID && m.UserID == userID && m.Status.Mutable() {
			out := *m
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (t *fakeTransactions) List(_ context.Context, req model.ListTransactionsRequest) ([]*model.Transaction, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.p.failWith != nil {
		return nil, t.p.failWith
	}
	var out []*model.Transaction
	for _, m := range t.p.txs {
		if m.ProjectID != req.ProjectID || m.UserID != req.UserID || !m.Status.Mutable() {
			continue
		}
		if req.Merchant != "" && !strings.Contains(strings.ToLower(m.Merchant), strings.ToLower(req.Merchant)) {
			continue
		}
		if req.Category != "" && !strings.EqualFold(m.Category, req.Category) {
			continue
		}
		if req.MinAmount != nil && m.Amount < *req.MinAmount {
			continue
		}
		if req.MaxAmount != nil && m.Amount > *req.MaxAmount {
			continue
		}
		if req.Since != nil && m.CreatedAt.Before(*req.Since) {
			continue
		}
		if req.Until != nil && m.CreatedAt.After(*req.Until) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	// newest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

func (t *fakeTransactions) Update(_ context.Context, projectID, id string, upd model.TransactionUpdate) (*model.Transaction, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	if t.p.failWith != nil {
		return nil, t.p.failWith
	}
	m, ok := t.p.txs[id]
	if !ok || m.ProjectID != projectID || !m.Status.Mutable() {
		return nil, model.ErrNotFound
	}
	if upd.Merchant != nil {
		m.Merchant = *upd.Merchant
	}
	if upd.Amount != nil {
		m.Amount = *upd.Amount
	}
	if upd.Category != nil {
		m.Category = *upd.Category
	}
	if upd.Status != nil {
		m.Status = *upd.Status
	}
	out := *m
	return &out, nil
}

func copyMemory(wm *model.WorkingMemory) *model.WorkingMemory {
	cp := *wm
	if wm.LastTransaction != nil {
		lt := *wm.LastTransaction
		cp.LastTransaction = &lt
	}
	if wm.PendingClarification != nil {
		pc := *wm.PendingClarification
		cp.PendingClarification = &pc
	}
	if len(wm.RecentMessages) > 0 {
		cp.RecentMessages = append([]model.Message(nil), wm.RecentMessages...)
	}
	return &cp
}
