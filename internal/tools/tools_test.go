package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/split"
	"github.com/centsible/centsible/internal/store"
	"github.com/centsible/centsible/internal/store/sqlite"
)

func newToolEnv(t *testing.T) (store.Store, *services.WorkingMemoryService, *services.Resolver) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tools.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	if err := sqlite.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("sqlite schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	st := sqlite.NewWithDB(db)
	mem := services.NewWorkingMemoryService(st, 10*time.Minute)
	return st, mem, services.NewResolver(st, mem, zerolog.Nop())
}

func testContext() ToolContext {
	return ToolContext{ProjectID: "p1", UserID: "u1", ChatID: "c1", PayerName: "alice"}
}

type stubExtractor struct {
	fields extract.Fields
	err    error
}

func (s stubExtractor) Extract(context.Context, string) (extract.Fields, error) {
	return s.fields, s.err
}

func newRecordTool(st store.Store, mem *services.WorkingMemoryService, ex extract.Extractor) *RecordExpense {
	return NewRecordExpense(st, mem, ex, split.NewEven(), "USD", 0.5, zerolog.Nop())
}

func TestRecordExpense_StructuredArgs(t *testing.T) {
	st, mem, _ := newToolEnv(t)
	tool := newRecordTool(st, mem, extract.NewHeuristic())
	ctx := context.Background()

	res := tool.Execute(ctx, map[string]any{"merchant": "Chipotle", "amount": 25.0, "category": "food"}, testContext())
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	if !strings.Contains(res.Content, "Recorded Chipotle $25.00") {
		t.Fatalf("content: %q", res.Content)
	}
	if _, asks := res.Details["needsCategory"]; asks {
		t.Fatalf("category was given, details: %+v", res.Details)
	}

	txID, _ := res.Details["transactionId"].(string)
	if txID == "" {
		t.Fatalf("missing transactionId detail: %+v", res.Details)
	}
	tx, err := st.Transactions().Get(ctx, "p1", txID)
	if err != nil {
		t.Fatalf("Get recorded tx: %v", err)
	}
	if tx.Merchant != "Chipotle" || tx.Amount != 25 || tx.Status != model.TxPending || tx.UserID != "u1" {
		t.Fatalf("stored tx: %+v", tx)
	}

	wm, err := mem.Get(ctx, "u1", "c1")
	if err != nil {
		t.Fatalf("Get memory: %v", err)
	}
	if wm.LastTransaction == nil || wm.LastTransaction.ID != txID {
		t.Fatalf("memory not synced: %+v", wm.LastTransaction)
	}
}

func TestRecordExpense_TextFallbackAsksForCategory(t *testing.T) {
	st, mem, _ := newToolEnv(t)
	tool := newRecordTool(st, mem, extract.NewHeuristic())

	res := tool.Execute(context.Background(), map[string]any{"text": "spent 25 at Starbucks"}, testContext())
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	if !strings.Contains(res.Content, "Recorded Starbucks $25.00") {
		t.Fatalf("content: %q", res.Content)
	}
	if needs, _ := res.Details["needsCategory"].(bool); !needs {
		t.Fatalf("expected needsCategory, details: %+v", res.Details)
	}
	if !strings.Contains(res.Content, "category") {
		t.Fatalf("content should ask for a category: %q", res.Content)
	}
}

func TestRecordExpense_LowConfidenceAsksForClarification(t *testing.T) {
	st, mem, _ := newToolEnv(t)
	tool := newRecordTool(st, mem, stubExtractor{fields: extract.Fields{Amount: 10, Confidence: 0.3}})
	ctx := context.Background()

	res := tool.Execute(ctx, map[string]any{"text": "uhh maybe ten for the thing"}, testContext())
	if !res.Success {
		t.Fatalf("clarification is not a failure: %+v", res)
	}
	if needs, _ := res.Details["needsClarification"].(bool); !needs {
		t.Fatalf("expected needsClarification, details: %+v", res.Details)
	}
	if res.Details["originalText"] != "uhh maybe ten for the thing" {
		t.Fatalf("originalText detail: %+v", res.Details)
	}

	// Nothing was recorded.
	txs, err := st.Transactions().List(ctx, model.ListTransactionsRequest{ProjectID: "p1", UserID: "u1"})
	if err != nil || len(txs) != 0 {
		t.Fatalf("no rows expected: n=%d err=%v", len(txs), err)
	}
}

func TestRecordExpense_MissingAmountFails(t *testing.T) {
	st, mem, _ := newToolEnv(t)
	tool := newRecordTool(st, mem, extract.NewHeuristic())

	res := tool.Execute(context.Background(), map[string]any{"merchant": "Chipotle"}, testContext())
	if res.Success {
		t.Fatalf("expected failure: %+v", res)
	}
	if res.Err == "" || res.Content == "" {
		t.Fatalf("failure must carry narration and cause: %+v", res)
	}
}

func TestRecordExpense_SplitsAmongParticipants(t *testing.T) {
	st, mem, _ := newToolEnv(t)
	tool := newRecordTool(st, mem, extract.NewHeuristic())

	res := tool.Execute(context.Background(), map[string]any{
		"merchant":     "Dinner",
		"amount":       30.0,
		"category":     "food",
		"participants": []any{"bob", "carol"},
	}, testContext())
	if !res.Success {
		t.Fatalf("Execute failed: %+v", res)
	}
	shares, ok := res.Details["shares"].([]split.Share)
	if !ok || len(shares) != 3 {
		t.Fatalf("shares detail: %+v", res.Details["shares"])
	}
	var sum float64
	for _, s := range shares {
		sum += s.Amount
	}
	if sum != 30 {
		t.Fatalf("shares must sum to the total, got %v", sum)
	}
	if !strings.Contains(res.Content, "Split 3 ways") {
		t.Fatalf("content: %q", res.Content)
	}
}

func TestQueryExpenses(t *testing.T) {
	st, _, _ := newToolEnv(t)
	tool := NewQueryExpenses(st)
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []struct {
		merchant string
		amount   float64
		category string
		age      time.Duration
	}{
		{"Chipotle", 25, "food", 3 * time.Hour},
		{"Shell", 40, "gas", 2 * time.Hour},
		{"Blue Bottle", 6.5, "coffee", time.Hour},
	}
	for _, s := range seed {
		if _, err := st.Transactions().Create(ctx, &model.Transaction{
			ProjectID: "p1", UserID: "u1", Merchant: s.merchant, Amount: s.amount,
			Currency: "USD", Category: s.category, CreatedAt: now.Add(-s.age),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	res := tool.Execute(ctx, map[string]any{}, testContext())
	if !res.Success || res.Details["count"] != 3 {
		t.Fatalf("query all: %+v", res)
	}
	if !strings.Contains(res.Content, "Total: $71.50") {
		t.Fatalf("total line: %q", res.Content)
	}
	// Newest first.
	if bb := strings.Index(res.Content, "Blue Bottle"); bb < 0 || bb > strings.Index(res.Content, "Chipotle") {
		t.Fatalf("ordering: %q", res.Content)
	}

	res = tool.Execute(ctx, map[string]any{"merchant": "chip"}, testContext())
	if !res.Success || res.Details["count"] != 1 || !strings.Contains(res.Content, "Chipotle") {
		t.Fatalf("merchant filter: %+v", res)
	}

	res = tool.Execute(ctx, map[string]any{"limit": 2.0}, testContext())
	if !res.Success || res.Details["count"] != 2 {
		t.Fatalf("limit: %+v", res)
	}

	res = tool.Execute(ctx, map[string]any{"until": now.Format("2006-01-02")}, testContext())
	if !res.Success || res.Details["count"] != 3 {
		t.Fatalf("inclusive until: %+v", res)
	}

	res = tool.Execute(ctx, map[string]any{"since": "not-a-date"}, testContext())
	if res.Success {
		t.Fatalf("bad date should fail: %+v", res)
	}

	res = tool.Execute(ctx, map[string]any{"category": "travel"}, testContext())
	if !res.Success || res.Details["count"] != 0 || !strings.Contains(res.Content, "No expenses found") {
		t.Fatalf("empty result: %+v", res)
	}
}
