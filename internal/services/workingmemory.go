package services

import (
	"context"
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

// RecentMessageWindow caps the conversation window kept in working memory.
// When full, the oldest message is dropped first.
const RecentMessageWindow = 5

// WorkingMemoryService owns the medium-lived conversational context.
// Every write is read-modify-write over the whole record and slides the
// TTL window forward. Concurrent writers for the same (user, chat) can
// lose updates; chats are effectively single-writer so this is accepted.
type WorkingMemoryService struct {
	store store.Store
	ttl   time.Duration
}

func NewWorkingMemoryService(s store.Store, ttl time.Duration) *WorkingMemoryService {
	return &WorkingMemoryService{store: s, ttl: ttl}
}

// Get returns the working memory, empty when absent or expired.
func (s *WorkingMemoryService) Get(ctx context.Context, userID, chatID string) (*model.WorkingMemory, error) {
	return s.store.Memories().Get(ctx, userID, chatID)
}

// AppendMessage adds one message to the recent window, dropping the oldest
// beyond RecentMessageWindow. All other fields are left untouched.
func (s *WorkingMemoryService) AppendMessage(ctx context.Context, userID, chatID string, msg model.Message) (*model.WorkingMemory, error) {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	wm.RecentMessages = append(wm.RecentMessages, msg)
	if n := len(wm.RecentMessages); n > RecentMessageWindow {
		wm.RecentMessages = wm.RecentMessages[n-RecentMessageWindow:]
	}
	return s.save(ctx, wm)
}

// SetLastTransaction replaces the last-transaction snapshot and clears any
// pending clarification in the same write.
func (s *WorkingMemoryService) SetLastTransaction(ctx context.Context, userID, chatID string, lt *model.LastTransaction) (*model.WorkingMemory, error) {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	wm.LastTransaction = lt
	wm.PendingClarification = nil
	return s.save(ctx, wm)
}

// ClearLastTransaction drops the last-transaction snapshot.
func (s *WorkingMemoryService) ClearLastTransaction(ctx context.Context, userID, chatID string) (*model.WorkingMemory, error) {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	wm.LastTransaction = nil
	return s.save(ctx, wm)
}

// SetPendingClarification records a question the assistant is waiting on.
func (s *WorkingMemoryService) SetPendingClarification(ctx context.Context, userID, chatID string, pc *model.PendingClarification) (*model.WorkingMemory, error) {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	wm.PendingClarification = pc
	return s.save(ctx, wm)
}

// ClearPendingClarification drops the pending question.
func (s *WorkingMemoryService) ClearPendingClarification(ctx context.Context, userID, chatID string) (*model.WorkingMemory, error) {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	wm.PendingClarification = nil
	return s.save(ctx, wm)
}

// Touch slides the TTL window without changing content.
func (s *WorkingMemoryService) Touch(ctx context.Context, userID, chatID string) error {
	wm, err := s.store.Memories().Get(ctx, userID, chatID)
	if err != nil {
		return err
	}
	_, err = s.save(ctx, wm)
	return err
}

func (s *WorkingMemoryService) save(ctx context.Context, wm *model.WorkingMemory) (*model.WorkingMemory, error) {
	now := time.Now().UTC()
	wm.UpdatedAt = now
	wm.ExpiresAt = now.Add(s.ttl)
	return s.store.Memories().Upsert(ctx, wm)
}
