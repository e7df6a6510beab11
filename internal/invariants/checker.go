//
// Invariant contract testing for the assistant webhook API.
// Blackbox testing only: customer-facing endpoints, never internals.
// Never weaken an invariant to get an incremental change working.
//

package invariants

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// InvariantChecker drives a running assistant service through its public
// HTTP surface and asserts the guarantees chat frontends rely on.
type InvariantChecker struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewInvariantChecker creates a checker for the service at baseURL. The
// apiKey is sent as X-Api-Key on every request; pass "" for keyless setups.
func NewInvariantChecker(baseURL, apiKey string) *InvariantChecker {
	return &InvariantChecker{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Reply mirrors the wire response of /api/messages and /api/callbacks.
type Reply struct {
	Reply   string                 `json:"reply"`
	Details map[string]interface{} `json:"details"`
}

// INVARIANT: one user's ledger is invisible to every other user.
func (ic *InvariantChecker) TestUserIsolationInvariant(t *testing.T, userA, userB, projectID string) {
	ic.record(t, userA, "chat-a", projectID, "lunch 12.30 at Chipotle")

	t.Run("OtherUserSeesNothing", func(t *testing.T) {
		r := ic.SendMessage(t, userB, "chat-b", projectID, "what did i spend")
		assert.Equal(t, "No expenses found for that.", r.Reply,
			"user %s must not see expenses of user %s", userB, userA)
	})

	t.Run("OwnerStillSeesExpense", func(t *testing.T) {
		r := ic.SendMessage(t, userA, "chat-a2", projectID, "what did i spend")
		assert.Contains(t, r.Reply, "Chipotle")
	})
}

// INVARIANT: ledgers are scoped per project; projects never leak into
// each other even for the same user.
func (ic *InvariantChecker) TestProjectIsolationInvariant(t *testing.T, userID, projectA, projectB string) {
	ic.record(t, userID, "chat-p", projectA, "groceries 42.10 at WholeFoods")

	t.Run("OtherProjectSeesNothing", func(t *testing.T) {
		r := ic.SendMessage(t, userID, "chat-p2", projectB, "what did i spend")
		assert.Equal(t, "No expenses found for that.", r.Reply)
	})

	t.Run("OwnProjectSeesExpense", func(t *testing.T) {
		r := ic.SendMessage(t, userID, "chat-p3", projectA, "what did i spend")
		assert.Contains(t, r.Reply, "WholeFoods")
	})
}

// INVARIANT: destructive actions are never applied from a single message.
// A delete must ask first, and only an affirmative answer applies it.
func (ic *InvariantChecker) TestDeleteConfirmationInvariant(t *testing.T, userID, projectID string) {
	chatID := "chat-confirm"
	ic.record(t, userID, chatID, projectID, "parking 8 at CityGarage")

	t.Run("DeleteAsksFirst", func(t *testing.T) {
		r := ic.SendMessage(t, userID, chatID, projectID, "delete my last expense")
		require.Contains(t, r.Reply, "This can't be undone.")

		// A second chat is used for the probe so the pending confirmation
		// in chatID stays open.
		q := ic.SendMessage(t, userID, "chat-confirm-probe", projectID, "what did i spend")
		assert.Contains(t, q.Reply, "CityGarage", "expense must survive until confirmed")
	})

	t.Run("AffirmativeAppliesDelete", func(t *testing.T) {
		r := ic.SendMessage(t, userID, chatID, projectID, "yes")
		require.Contains(t, r.Reply, "Deleted")

		q := ic.SendMessage(t, userID, chatID, projectID, "what did i spend")
		assert.Equal(t, "No expenses found for that.", q.Reply)
	})

	t.Run("DeclineKeepsExpense", func(t *testing.T) {
		ic.record(t, userID, chatID, projectID, "taxi 15 at Uber")

		r := ic.SendMessage(t, userID, chatID, projectID, "delete my last expense")
		require.Contains(t, r.Reply, "This can't be undone.")

		r = ic.SendMessage(t, userID, chatID, projectID, "no, keep it")
		require.Equal(t, "Okay, I won't delete it.", r.Reply)

		q := ic.SendMessage(t, userID, chatID, projectID, "what did i spend")
		assert.Contains(t, q.Reply, "Uber")
	})
}

// INVARIANT: deleted expenses disappear from queries immediately, and a
// replayed delete callback is safe.
func (ic *InvariantChecker) TestSoftDeleteInvariant(t *testing.T, userID, projectID string) {
	chatID := "chat-softdelete"
	ic.record(t, userID, chatID, projectID, "groceries 42.10 at WholeFoods")
	dropID := ic.record(t, userID, chatID, projectID, "snacks 5 at Kiosk")

	t.Run("DeletedRowsLeaveQueriesImmediately", func(t *testing.T) {
		r := ic.SendCallback(t, userID, chatID, projectID, "confirm_delete_"+dropID)
		require.Contains(t, r.Reply, "Deleted")

		q := ic.SendMessage(t, userID, chatID, projectID, "what did i spend")
		assert.Contains(t, q.Reply, "WholeFoods")
		assert.NotContains(t, q.Reply, "Kiosk", "deleted expense must not appear in queries")
	})

	t.Run("ReplayedDeleteCallbackIsSafe", func(t *testing.T) {
		r := ic.SendCallback(t, userID, chatID, projectID, "confirm_delete_"+dropID)
		assert.Equal(t, "I couldn't find that transaction.", r.Reply)

		q := ic.SendMessage(t, userID, chatID, projectID, "what did i spend")
		assert.Contains(t, q.Reply, "WholeFoods", "replay must not touch other rows")
	})
}

// SendMessage posts one chat message and decodes the reply.
func (ic *InvariantChecker) SendMessage(t *testing.T, userID, chatID, projectID, text string) Reply {
	t.Helper()
	body := ic.makeRequest(t, "/api/messages", map[string]interface{}{
		"userId":    userID,
		"chatId":    chatID,
		"projectId": projectID,
		"text":      text,
	}, http.StatusOK)

	var r Reply
	require.NoError(t, json.Unmarshal(body, &r))
	require.NotEmpty(t, r.Reply, "service must always produce a reply")
	return r
}

// SendCallback posts one button callback and decodes the reply.
func (ic *InvariantChecker) SendCallback(t *testing.T, userID, chatID, projectID, data string) Reply {
	t.Helper()
	body := ic.makeRequest(t, "/api/callbacks", map[string]interface{}{
		"userId":    userID,
		"chatId":    chatID,
		"projectId": projectID,
		"data":      data,
	}, http.StatusOK)

	var r Reply
	require.NoError(t, json.Unmarshal(body, &r))
	require.NotEmpty(t, r.Reply)
	return r
}

// record sends an expense message and returns the new transaction id.
func (ic *InvariantChecker) record(t *testing.T, userID, chatID, projectID, text string) string {
	t.Helper()
	r := ic.SendMessage(t, userID, chatID, projectID, text)
	require.Contains(t, r.Reply, "Recorded", "expected a recorded expense, got %q", r.Reply)
	id, _ := r.Details["transactionId"].(string)
	require.NotEmpty(t, id, "record reply must carry details.transactionId")
	return id
}

func (ic *InvariantChecker) makeRequest(t *testing.T, path string, payload interface{}, expectedStatus int) []byte {
	t.Helper()
	reqBody, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ic.baseURL+path, bytes.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if ic.apiKey != "" {
		req.Header.Set("X-Api-Key", ic.apiKey)
	}

	resp, err := ic.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, expectedStatus, resp.StatusCode,
		"POST %s returned %d: %s", path, resp.StatusCode, string(respBody))
	return respBody
}
