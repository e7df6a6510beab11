package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/centsible/centsible/internal/auth"
	"github.com/centsible/centsible/internal/decision"
	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/orchestrator"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/split"
	"github.com/centsible/centsible/internal/store"
	"github.com/centsible/centsible/internal/store/sqlite"
	"github.com/centsible/centsible/internal/tools"
)

type scriptedEngine struct {
	decisions []model.Decision
	requests  []decision.Request
}

func (e *scriptedEngine) Decide(_ context.Context, req decision.Request) (model.Decision, error) {
	i := len(e.requests)
	e.requests = append(e.requests, req)
	if i < len(e.decisions) {
		return e.decisions[i], nil
	}
	return model.TextReplyDecision("out of script"), nil
}

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *scriptedEngine, store.Store) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
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

	eng := &scriptedEngine{}
	orch := orchestrator.New(sessions, memory, eng, reg, resolver, zerolog.Nop())
	router := NewRouter(NewHandler(orch, zerolog.Nop()), NewHealthHandler(nil), auth.NewStaticKey(apiKey))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, eng, st
}

func postJSON(t *testing.T, url, apiKey string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func messagePayload(text string) map[string]any {
	return map[string]any{"userId": "u1", "chatId": "c1", "projectId": "p1", "text": text}
}

func TestMessagesEndpoint(t *testing.T) {
	srv, eng, st := newTestServer(t, "")
	eng.decisions = []model.Decision{
		model.ToolCallDecision("record_expense", map[string]any{"merchant": "Chipotle", "amount": 25.0, "category": "food"}),
	}

	resp, body := postJSON(t, srv.URL+"/api/messages", "", messagePayload("chipotle 25"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body["reply"], "Recorded Chipotle $25.00.")

	details, ok := body["details"].(map[string]any)
	require.True(t, ok, "details missing: %+v", body)
	txID, _ := details["transactionId"].(string)
	require.NotEmpty(t, txID)

	tx, err := st.Transactions().Get(context.Background(), "p1", txID)
	require.NoError(t, err)
	require.Equal(t, "Chipotle", tx.Merchant)
}

func TestMessagesEndpointTextReplyHasNoDetails(t *testing.T) {
	srv, eng, _ := newTestServer(t, "")
	eng.decisions = []model.Decision{model.TextReplyDecision("Hi! Tell me what you spent.")}

	resp, body := postJSON(t, srv.URL+"/api/messages", "", messagePayload("hello"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Hi! Tell me what you spent.", body["reply"])
	_, hasDetails := body["details"]
	require.False(t, hasDetails, "plain replies must omit details: %+v", body)
}

func TestMessagesValidation(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp, _ := postJSON(t, srv.URL+"/api/messages", "", map[string]any{
		"userId": "u1", "chatId": "c1", "projectId": "p1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/api/messages", "", map[string]any{
		"userId": "has space", "chatId": "c1", "projectId": "p1", "text": "hi",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/messages", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = raw.Body.Close() }()
	require.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestWebhookKeyAuth(t *testing.T) {
	srv, eng, _ := newTestServer(t, "hook-key")
	eng.decisions = []model.Decision{model.TextReplyDecision("hello")}

	resp, _ := postJSON(t, srv.URL+"/api/messages", "", messagePayload("hi"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/api/messages", "wrong", messagePayload("hi"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := postJSON(t, srv.URL+"/api/messages", "hook-key", messagePayload("hi"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hello", body["reply"])

	// Health stays open without a key.
	health, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = health.Body.Close() }()
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func TestCallbacksEndpoint(t *testing.T) {
	srv, eng, st := newTestServer(t, "")
	eng.decisions = []model.Decision{
		model.ToolCallDecision("record_expense", map[string]any{"merchant": "Chipotle", "amount": 25.0, "category": "food"}),
	}

	_, recorded := postJSON(t, srv.URL+"/api/messages", "", messagePayload("chipotle 25"))
	txID := recorded["details"].(map[string]any)["transactionId"].(string)

	resp, body := postJSON(t, srv.URL+"/api/callbacks", "", map[string]any{
		"userId": "u1", "chatId": "c1", "projectId": "p1", "data": "confirm_delete_" + txID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Deleted Chipotle $25.00.", body["reply"])

	_, err := st.Transactions().Get(context.Background(), "p1", txID)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCallbacksRejectUnknownData(t *testing.T) {
	srv, _, _ := newTestServer(t, "")

	resp, body := postJSON(t, srv.URL+"/api/callbacks", "", map[string]any{
		"userId": "u1", "chatId": "c1", "projectId": "p1", "data": "promote_abc",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["message"], "callback")
}

func TestHealthEndpointReportsUnhealthy(t *testing.T) {
	router := NewRouter(
		NewHandler(nil, zerolog.Nop()),
		NewHealthHandler(func() bool { return false }),
		auth.NewStaticKey(""),
	)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "unhealthy", body["status"])
}
