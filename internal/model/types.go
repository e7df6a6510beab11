package model

import "time"

// SessionKind discriminates the conversational states a chat can be in.
type SessionKind string

const (
	// SessionIdle means no multi-turn flow is in progress.
	SessionIdle SessionKind = "idle"
	// SessionAwaitingEditValue means the assistant asked for a replacement value.
	SessionAwaitingEditValue SessionKind = "awaiting_edit_value"
	// SessionAwaitingConfirmation means a destructive action needs a yes/no.
	SessionAwaitingConfirmation SessionKind = "awaiting_confirmation"
	// SessionAwaitingIntentClarification means the assistant asked what the user meant.
	SessionAwaitingIntentClarification SessionKind = "awaiting_intent_clarification"
	// SessionAwaitingCategory means the assistant asked which category to file an expense under.
	SessionAwaitingCategory SessionKind = "awaiting_category"
)

// SessionState carries the kind plus the payload fields that kind needs.
// Only the fields belonging to Kind are set; the rest stay zero.
type SessionState struct {
	Kind SessionKind `json:"kind"`

	// awaiting_edit_value
	Field         string `json:"field,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`

	// awaiting_confirmation
	Action   string `json:"action,omitempty"`
	TargetID string `json:"targetId,omitempty"`

	// awaiting_intent_clarification
	OriginalText string `json:"originalText,omitempty"`

	// awaiting_category (shares TransactionID)
	Merchant string `json:"merchant,omitempty"`
}

// IdleState returns the state with no flow in progress.
func IdleState() SessionState {
	return SessionState{Kind: SessionIdle}
}

// AwaitingEditValue returns the state for a pending field edit on a transaction.
func AwaitingEditValue(field, transactionID string) SessionState {
	return SessionState{Kind: SessionAwaitingEditValue, Field: field, TransactionID: transactionID}
}

// AwaitingConfirmation returns the state for a pending destructive action.
func AwaitingConfirmation(action, targetID string) SessionState {
	return SessionState{Kind: SessionAwaitingConfirmation, Action: action, TargetID: targetID}
}

// AwaitingIntentClarification returns the state for an ambiguous message.
func AwaitingIntentClarification(originalText string) SessionState {
	return SessionState{Kind: SessionAwaitingIntentClarification, OriginalText: originalText}
}

// AwaitingCategory returns the state for an expense waiting on a category choice.
func AwaitingCategory(transactionID, merchant string) SessionState {
	return SessionState{Kind: SessionAwaitingCategory, TransactionID: transactionID, Merchant: merchant}
}

// Session is the short-lived conversational state for one user in one chat.
type Session struct {
	UserID    string       `json:"userId"`
	ChatID    string       `json:"chatId"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// MessageRole identifies who produced a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of the recent conversation window.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// LastTransaction is the snapshot of the most recently touched transaction.
type LastTransaction struct {
	ID        string    `json:"id"`
	Merchant  string    `json:"merchant"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

// PendingClarification records a question the assistant asked and is waiting on.
type PendingClarification struct {
	TransactionID string `json:"transactionId"`
	Field         string `json:"field"`
	Question      string `json:"question"`
}

// WorkingMemory is the medium-lived conversational context for one user in one chat.
type WorkingMemory struct {
	UserID               string                `json:"userId"`
	ChatID               string                `json:"chatId"`
	LastTransaction      *LastTransaction      `json:"lastTransaction,omitempty"`
	PendingClarification *PendingClarification `json:"pendingClarification,omitempty"`
	RecentMessages       []Message             `json:"recentMessages,omitempty"`
	UpdatedAt            time.Time             `json:"updatedAt"`
	ExpiresAt            time.Time             `json:"expiresAt"`
}

// TxStatus is the lifecycle status of a transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxPersonal  TxStatus = "personal"
	TxDeleted   TxStatus = "deleted"
)

// MutableStatuses are the statuses a transaction may hold to be read or edited.
// Deleted rows are invisible to every operation.
var MutableStatuses = []TxStatus{TxPending, TxConfirmed, TxPersonal}

// Mutable reports whether a transaction in this status can still be read or edited.
func (s TxStatus) Mutable() bool {
	for _, m := range MutableStatuses {
		if s == m {
			return true
		}
	}
	return false
}

// Transaction is a recorded expense.
type Transaction struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Merchant  string    `json:"merchant"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Category  string    `json:"category"`
	Status    TxStatus  `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot converts a transaction into the working-memory form.
func (t Transaction) Snapshot() *LastTransaction {
	return &LastTransaction{
		ID:        t.ID,
		Merchant:  t.Merchant,
		Amount:    t.Amount,
		Currency:  t.Currency,
		Category:  t.Category,
		CreatedAt: t.CreatedAt,
	}
}

// DecisionKind discriminates the two outcomes the decision engine can produce.
type DecisionKind string

const (
	DecisionToolCall  DecisionKind = "tool_call"
	DecisionTextReply DecisionKind = "text_reply"
)

// Decision is the engine's verdict for one inbound message.
type Decision struct {
	Kind DecisionKind `json:"kind"`

	// tool_call
	Name      string         `json:"name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`

	// text_reply
	Message string `json:"message,omitempty"`
}

// ToolCallDecision returns a decision asking for the named tool with arguments.
func ToolCallDecision(name string, args map[string]any) Decision {
	return Decision{Kind: DecisionToolCall, Name: name, Arguments: args}
}

// TextReplyDecision returns a decision carrying a direct reply.
func TextReplyDecision(message string) Decision {
	return Decision{Kind: DecisionTextReply, Message: message}
}

// TransactionUpdate carries the optional field changes for a transaction.
// Nil fields are left untouched.
type TransactionUpdate struct {
	Merchant *string
	Amount   *float64
	Category *string
	Status   *TxStatus
}

// ListTransactionsRequest captures filters used when listing transactions.
type ListTransactionsRequest struct {
	ProjectID string
	UserID    string
	Merchant  string
	Category  string
	Since     *time.Time
	Until     *time.Time
	MinAmount *float64
	MaxAmount *float64
	Limit     int
}

// ToolResult is the uniform outcome every tool execution reports.
type ToolResult struct {
	Success bool           `json:"success"`
	Content string         `json:"content"`
	Details map[string]any `json:"details,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// Ok returns a successful result with the user-facing content.
func Ok(content string) ToolResult {
	return ToolResult{Success: true, Content: content}
}

// OkDetails returns a successful result carrying structured details.
func OkDetails(content string, details map[string]any) ToolResult {
	return ToolResult{Success: true, Content: content, Details: details}
}

// Fail returns a failed result with the user-facing content and the cause.
func Fail(content string, err error) ToolResult {
	r := ToolResult{Success: false, Content: content}
	if err != nil {
		r.Err = err.Error()
	}
	return r
}
