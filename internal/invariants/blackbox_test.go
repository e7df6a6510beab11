package invariants

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/api"
	"github.com/centsible/centsible/internal/auth"
	"github.com/centsible/centsible/internal/decision"
	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/orchestrator"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/split"
	"github.com/centsible/centsible/internal/store/sqlite"
	"github.com/centsible/centsible/internal/tools"
)

// ruleEngine routes messages with fixed keyword rules so the invariant
// flows are reproducible without a live model.
type ruleEngine struct{}

func (ruleEngine) Decide(_ context.Context, req decision.Request) (model.Decision, error) {
	text := strings.ToLower(strings.TrimSpace(req.Text))
	switch {
	case strings.HasPrefix(text, "delete"):
		return model.ToolCallDecision("delete_expense", map[string]any{"target": "last"}), nil
	case strings.HasPrefix(text, "what did i spend"), strings.HasPrefix(text, "show"):
		return model.ToolCallDecision("query_expenses", map[string]any{}), nil
	default:
		return model.ToolCallDecision("record_expense", map[string]any{"text": req.Text, "category": "general"}), nil
	}
}

// newLiveService assembles the full HTTP stack over a throwaway sqlite
// database, exactly as the production wiring does.
func newLiveService(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "invariants.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))
	t.Cleanup(func() { _ = db.Close() })

	st := sqlite.NewWithDB(db)
	sessions := services.NewSessionService(st, 5*time.Minute)
	memory := services.NewWorkingMemoryService(st, 10*time.Minute)
	resolver := services.NewResolver(st, memory, zerolog.Nop())

	reg := tools.NewRegistry()
	for _, tl := range []tools.Tool{
		tools.NewRecordExpense(st, memory, extract.NewHeuristic(), split.NewEven(), "USD", 0.5, zerolog.Nop()),
		tools.NewQueryExpenses(st),
		tools.NewModifyAmount(resolver),
		tools.NewModifyMerchant(resolver),
		tools.NewModifyCategory(resolver),
		tools.NewDeleteExpense(resolver),
	} {
		require.NoError(t, reg.Register(tl))
	}

	orch := orchestrator.New(sessions, memory, ruleEngine{}, reg, resolver, zerolog.Nop())
	router := api.NewRouter(api.NewHandler(orch, zerolog.Nop()), api.NewHealthHandler(nil), auth.NewStaticKey(""))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestEndpointContract(t *testing.T) {
	srv := newLiveService(t)
	checker := NewInvariantChecker(srv.URL, "")

	t.Run("HealthIsOpen", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("MessagesRejectMissingText", func(t *testing.T) {
		checker.makeRequest(t, "/api/messages", map[string]interface{}{
			"userId": "u1", "chatId": "c1", "projectId": "p1",
		}, http.StatusBadRequest)
	})

	t.Run("CallbacksRejectUnknownData", func(t *testing.T) {
		checker.makeRequest(t, "/api/callbacks", map[string]interface{}{
			"userId": "u1", "chatId": "c1", "projectId": "p1", "data": "promote_tx1",
		}, http.StatusBadRequest)
	})
}

func TestSystemInvariants(t *testing.T) {
	srv := newLiveService(t)
	checker := NewInvariantChecker(srv.URL, "")

	t.Run("UserIsolation", func(t *testing.T) {
		checker.TestUserIsolationInvariant(t, "inv-user-a", "inv-user-b", "inv-shared")
	})

	t.Run("ProjectIsolation", func(t *testing.T) {
		checker.TestProjectIsolationInvariant(t, "inv-user-proj", "inv-proj-a", "inv-proj-b")
	})

	t.Run("DeleteConfirmation", func(t *testing.T) {
		checker.TestDeleteConfirmationInvariant(t, "inv-user-confirm", "inv-proj-confirm")
	})

	t.Run("SoftDelete", func(t *testing.T) {
		checker.TestSoftDeleteInvariant(t, "inv-user-soft", "inv-proj-soft")
	})
}
