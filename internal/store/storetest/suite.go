package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()
	chatID := "c-" + uuid.New().String()
	projectID := "p-" + uuid.New().String()

	// Sessions: upsert and read back a stateful session
	sess := &model.Session{
		UserID:    userID,
		ChatID:    chatID,
		State:     model.AwaitingEditValue("amount", "tx-1"),
		CreatedAt: now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	if _, err := s.Sessions().Upsert(ctx, sess); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	got, err := s.Sessions().Get(ctx, userID, chatID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.State.Kind != model.SessionAwaitingEditValue || got.State.Field != "amount" || got.State.TransactionID != "tx-1" {
		t.Fatalf("GetSession state mismatch: %+v", got.State)
	}

	// Sessions: upsert replaces state in place
	sess.State = model.AwaitingConfirmation("delete", "tx-2")
	if _, err := s.Sessions().Upsert(ctx, sess); err != nil {
		t.Fatalf("UpsertSession replace: %v", err)
	}
	if got, err = s.Sessions().Get(ctx, userID, chatID); err != nil || got.State.Kind != model.SessionAwaitingConfirmation || got.State.TargetID != "tx-2" {
		t.Fatalf("GetSession after replace: got=%+v err=%v", got, err)
	}

	// Sessions: a row whose expiry has passed reads as absent
	expired := &model.Session{
		UserID:    userID,
		ChatID:    chatID + "-expired",
		State:     model.IdleState(),
		CreatedAt: now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}
	if _, err := s.Sessions().Upsert(ctx, expired); err != nil {
		t.Fatalf("UpsertSession expired: %v", err)
	}
	if _, err := s.Sessions().Get(ctx, userID, chatID+"-expired"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetSession expired: want ErrNotFound, got %v", err)
	}

	// Sessions: DeleteExpired removes only past-expiry rows
	n, err := s.Sessions().DeleteExpired(ctx, time.Now().UTC())
	if err != nil || n < 1 {
		t.Fatalf("DeleteExpiredSessions: n=%d err=%v", n, err)
	}
	if _, err := s.Sessions().Get(ctx, userID, chatID); err != nil {
		t.Fatalf("GetSession after sweep: %v", err)
	}

	// Sessions: delete then read
	if err := s.Sessions().Delete(ctx, userID, chatID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := s.Sessions().Get(ctx, userID, chatID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetSession after delete: want ErrNotFound, got %v", err)
	}

	// Memories: absent reads as an empty memory, not an error
	wm, err := s.Memories().Get(ctx, userID, chatID)
	if err != nil {
		t.Fatalf("GetMemory absent: %v", err)
	}
	if wm.LastTransaction != nil || wm.PendingClarification != nil || len(wm.RecentMessages) != 0 {
		t.Fatalf("GetMemory absent: expected empty memory, got %+v", wm)
	}

	// Memories: full roundtrip
	wm = &model.WorkingMemory{
		UserID: userID,
		ChatID: chatID,
		LastTransaction: &model.LastTransaction{
			ID: "tx-9", Merchant: "Blue Bottle", Amount: 12.5, Currency: "USD", Category: "coffee", CreatedAt: now,
		},
		PendingClarification: &model.PendingClarification{TransactionID: "tx-9", Field: "category", Question: "Which category?"},
		RecentMessages: []model.Message{
			{Role: model.RoleUser, Content: "coffee 12.50", Timestamp: now},
			{Role: model.RoleAssistant, Content: "Recorded.", Timestamp: now},
		},
		UpdatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}
	if _, err := s.Memories().Upsert(ctx, wm); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}
	back, err := s.Memories().Get(ctx, userID, chatID)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if back.LastTransaction == nil || back.LastTransaction.Merchant != "Blue Bottle" {
		t.Fatalf("GetMemory lastTransaction: %+v", back.LastTransaction)
	}
	if back.PendingClarification == nil || back.PendingClarification.Field != "category" {
		t.Fatalf("GetMemory pendingClarification: %+v", back.PendingClarification)
	}
	if len(back.RecentMessages) != 2 || back.RecentMessages[0].Content != "coffee 12.50" {
		t.Fatalf("GetMemory recentMessages: %+v", back.RecentMessages)
	}

	// Memories: a row whose expiry has passed reads as empty
	wm.ExpiresAt = now.Add(-time.Minute)
	if _, err := s.Memories().Upsert(ctx, wm); err != nil {
		t.Fatalf("UpsertMemory expired: %v", err)
	}
	back, err = s.Memories().Get(ctx, userID, chatID)
	if err != nil {
		t.Fatalf("GetMemory expired: %v", err)
	}
	if back.LastTransaction != nil || len(back.RecentMessages) != 0 {
		t.Fatalf("GetMemory expired: expected empty memory, got %+v", back)
	}

	// Memories: DeleteExpired removes the stale row
	n, err = s.Memories().DeleteExpired(ctx, time.Now().UTC())
	if err != nil || n < 1 {
		t.Fatalf("DeleteExpiredMemories: n=%d err=%v", n, err)
	}

	// Transactions: create generates an id and defaults status
	tx1, err := s.Transactions().Create(ctx, &model.Transaction{
		ProjectID: projectID, UserID: userID, Merchant: "Chipotle", Amount: 25, Currency: "USD", Category: "food",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx1.ID == "" || tx1.Status != model.TxPending {
		t.Fatalf("CreateTransaction defaults: %+v", tx1)
	}
	time.Sleep(5 * time.Millisecond) // ensure monotonic creation time ordering
	tx2, err := s.Transactions().Create(ctx, &model.Transaction{
		ProjectID: projectID, UserID: userID, Merchant: "Shell", Amount: 40.21, Currency: "USD", Category: "gas", Status: model.TxConfirmed,
	})
	if err != nil {
		t.Fatalf("CreateTransaction tx2: %v", err)
	}

	// Transactions: scoped get
	if got, err := s.Transactions().Get(ctx, projectID, tx1.ID); err != nil || got.Merchant != "Chipotle" {
		t.Fatalf("GetTransaction: got=%+v err=%v", got, err)
	}
	if _, err := s.Transactions().Get(ctx, "other-project", tx1.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTransaction cross-project: want ErrNotFound, got %v", err)
	}
	if _, err := s.Transactions().Get(ctx, projectID, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTransaction missing: want ErrNotFound, got %v", err)
	}

	// Transactions: list newest first with filters
	all, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListTransactions: n=%d err=%v", len(all), err)
	}
	if all[0].ID != tx2.ID {
		t.Fatalf("ListTransactions order: want %s first, got %s", tx2.ID, all[0].ID)
	}
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: "u-other"}); err != nil || len(lst) != 0 {
		t.Fatalf("ListTransactions other user: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID, Merchant: "chip"}); err != nil || len(lst) != 1 || lst[0].ID != tx1.ID {
		t.Fatalf("ListTransactions merchant filter: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID, Category: "GAS"}); err != nil || len(lst) != 1 || lst[0].ID != tx2.ID {
		t.Fatalf("ListTransactions category filter: n=%d err=%v", len(lst), err)
	}
	minAmt := 30.0
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID, MinAmount: &minAmt}); err != nil || len(lst) != 1 {
		t.Fatalf("ListTransactions min amount: n=%d err=%v", len(lst), err)
	}
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID, Limit: 1}); err != nil || len(lst) != 1 {
		t.Fatalf("ListTransactions limit: n=%d err=%v", len(lst), err)
	}

	// Transactions: partial update
	newMerchant := "Chipotle Downtown"
	upd, err := s.Transactions().Update(ctx, projectID, tx1.ID, model.TransactionUpdate{Merchant: &newMerchant})
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if upd.Merchant != newMerchant || upd.Amount != 25 {
		t.Fatalf("UpdateTransaction result: %+v", upd)
	}

	// Transactions: soft delete hides the row from reads and updates
	deleted := model.TxDeleted
	gone, err := s.Transactions().Update(ctx, projectID, tx1.ID, model.TransactionUpdate{Status: &deleted})
	if err != nil {
		t.Fatalf("UpdateTransaction delete: %v", err)
	}
	if gone.Status != model.TxDeleted {
		t.Fatalf("UpdateTransaction delete status: %+v", gone)
	}
	if _, err := s.Transactions().Get(ctx, projectID, tx1.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetTransaction deleted: want ErrNotFound, got %v", err)
	}
	amt := 99.0
	if _, err := s.Transactions().Update(ctx, projectID, tx1.ID, model.TransactionUpdate{Amount: &amt}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("UpdateTransaction deleted: want ErrNotFound, got %v", err)
	}
	if lst, err := s.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: projectID, UserID: userID}); err != nil || len(lst) != 1 {
		t.Fatalf("ListTransactions after delete: n=%d err=%v", len(lst), err)
	}

	// Transactions: latest live row for the project/user pair
	last, err := s.Transactions().Latest(ctx, projectID, userID)
	if err != nil || last.ID != tx2.ID {
		t.Fatalf("LatestTransaction: got=%+v err=%v", last, err)
	}
	if _, err := s.Transactions().Latest(ctx, projectID, "u-nobody"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("LatestTransaction unknown user: want ErrNotFound, got %v", err)
	}
	if _, err := s.Transactions().Update(ctx, projectID, tx2.ID, model.TransactionUpdate{Status: &deleted}); err != nil {
		t.Fatalf("UpdateTransaction delete tx2: %v", err)
	}
	if _, err := s.Transactions().Latest(ctx, projectID, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("LatestTransaction after deleting all: want ErrNotFound, got %v", err)
	}
}
