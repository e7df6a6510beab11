package services

import (
	"context"
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

// SessionService owns the short-lived conversational state machine.
// Every write restarts the TTL window; an expired session reads as absent.
type SessionService struct {
	store store.Store
	ttl   time.Duration
}

func NewSessionService(s store.Store, ttl time.Duration) *SessionService {
	return &SessionService{store: s, ttl: ttl}
}

// Get returns the active session or model.ErrNotFound when none exists.
// Expired sessions are indistinguishable from absent ones.
func (s *SessionService) Get(ctx context.Context, userID, chatID string) (*model.Session, error) {
	return s.store.Sessions().Get(ctx, userID, chatID)
}

// Set replaces the session state and restarts the TTL window.
func (s *SessionService) Set(ctx context.Context, userID, chatID string, state model.SessionState) (*model.Session, error) {
	now := time.Now().UTC()
	return s.store.Sessions().Upsert(ctx, &model.Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
}

// Clear removes the session so the next message starts from idle.
func (s *SessionService) Clear(ctx context.Context, userID, chatID string) error {
	return s.store.Sessions().Delete(ctx, userID, chatID)
}
