// Package orchestrator runs the per-message control loop: consume any open
// session flow, consult the decision engine, execute the chosen tool, and
// always answer with text.
package orchestrator

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/decision"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/tools"
)

// Inbound is one chat event handed in by the transport layer.
type Inbound struct {
	UserID    string
	ChatID    string
	ProjectID string
	Text      string
}

// Outbound is the reply sent back through the transport. Details carries
// structured hints (confirmation buttons, recorded ids) the transport may
// render; Text alone is always enough.
type Outbound struct {
	Text    string
	Details map[string]any
}

// Callback actions parsed from button-tap correlation ids.
const (
	ActionConfirmDelete = "confirm_delete"
	ActionCancelDelete  = "cancel_delete"
	ActionEdit          = "edit"
)

// CallbackAction is the structured form of a button tap. String encoding
// and decoding stays at the transport boundary.
type CallbackAction struct {
	Action        string
	Field         string
	TransactionID string
}

type Orchestrator struct {
	sessions *services.SessionService
	memory   *services.WorkingMemoryService
	engine   decision.Engine
	registry *tools.Registry
	resolver *services.Resolver
	log      zerolog.Logger
}

// New wires the control loop. engine may be nil, in which case every
// message that needs a verdict gets the fixed fallback reply.
func New(sessions *services.SessionService, memory *services.WorkingMemoryService, engine decision.Engine, registry *tools.Registry, resolver *services.Resolver, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		memory:   memory,
		engine:   engine,
		registry: registry,
		resolver: resolver,
		log:      log,
	}
}

// HandleMessage processes one user message end to end. Every path returns
// a textual reply; failures degrade to canned messages and are logged.
func (o *Orchestrator) HandleMessage(ctx context.Context, in Inbound) Outbound {
	tc := o.toolContext(in)

	// Snapshot memory before recording the new message so the engine sees
	// the window up to, but not including, the current text.
	wm, err := o.memory.Get(ctx, in.UserID, in.ChatID)
	if err != nil {
		o.log.Error().Err(err).Msg("read working memory")
		wm = &model.WorkingMemory{UserID: in.UserID, ChatID: in.ChatID}
	}
	if _, err := o.memory.AppendMessage(ctx, in.UserID, in.ChatID, model.Message{Role: model.RoleUser, Content: in.Text}); err != nil {
		o.log.Error().Err(err).Msg("append user message")
	}

	out := o.route(ctx, in, wm, tc)
	if strings.TrimSpace(out.Text) == "" {
		out.Text = decision.FallbackReply
	}

	if _, err := o.memory.AppendMessage(ctx, in.UserID, in.ChatID, model.Message{Role: model.RoleAssistant, Content: out.Text}); err != nil {
		o.log.Error().Err(err).Msg("append assistant message")
	}
	return out
}

// HandleCallback processes a button tap. Taps supersede any open session
// flow, so the session is consumed up front.
func (o *Orchestrator) HandleCallback(ctx context.Context, in Inbound, action CallbackAction) Outbound {
	tc := o.toolContext(in)

	if err := o.sessions.Clear(ctx, in.UserID, in.ChatID); err != nil {
		o.log.Error().Err(err).Msg("clear session on callback")
	}

	var out Outbound
	switch action.Action {
	case ActionConfirmDelete:
		out = o.runTool(ctx, in, "delete_expense", map[string]any{
			"target": "specific", "transaction_id": action.TransactionID, "confirmed": true,
		}, tc)
	case ActionCancelDelete:
		out = Outbound{Text: "Okay, I won't delete it."}
	case ActionEdit:
		if _, err := o.sessions.Set(ctx, in.UserID, in.ChatID, model.AwaitingEditValue(action.Field, action.TransactionID)); err != nil {
			o.log.Error().Err(err).Msg("open edit flow")
			out = Outbound{Text: "Something went wrong. Please try again."}
		} else {
			out = Outbound{Text: "What should the new " + action.Field + " be?"}
		}
	default:
		o.log.Warn().Str("action", action.Action).Msg("unknown callback action")
		out = Outbound{Text: decision.FallbackReply}
	}

	if _, err := o.memory.AppendMessage(ctx, in.UserID, in.ChatID, model.Message{Role: model.RoleAssistant, Content: out.Text}); err != nil {
		o.log.Error().Err(err).Msg("append assistant message")
	}
	return out
}

func (o *Orchestrator) route(ctx context.Context, in Inbound, wm *model.WorkingMemory, tc tools.ToolContext) Outbound {
	sess, err := o.sessions.Get(ctx, in.UserID, in.ChatID)
	switch {
	case err == nil:
		if out, handled := o.consumeSession(ctx, in, sess.State, wm, tc); handled {
			return out
		}
	case !errors.Is(err, model.ErrNotFound):
		o.log.Error().Err(err).Msg("read session")
	}
	return o.process(ctx, in, in.Text, wm, tc)
}

// process is the stateless path: ask the engine, dispatch its verdict.
func (o *Orchestrator) process(ctx context.Context, in Inbound, text string, wm *model.WorkingMemory, tc tools.ToolContext) Outbound {
	dec := o.decide(ctx, text, wm)
	if dec.Kind == model.DecisionToolCall {
		return o.runTool(ctx, in, dec.Name, dec.Arguments, tc)
	}
	return Outbound{Text: dec.Message}
}

func (o *Orchestrator) decide(ctx context.Context, text string, wm *model.WorkingMemory) model.Decision {
	if o.engine == nil {
		return model.TextReplyDecision(decision.FallbackReply)
	}
	dec, err := o.engine.Decide(ctx, decision.Request{Text: text, Memory: wm, Tools: o.registry.Contracts()})
	if err != nil {
		o.log.Error().Err(err).Msg("decision engine failed")
		return model.TextReplyDecision(decision.FallbackReply)
	}
	return dec
}

func (o *Orchestrator) runTool(ctx context.Context, in Inbound, name string, args map[string]any, tc tools.ToolContext) Outbound {
	tool, ok := o.registry.Get(name)
	if !ok {
		o.log.Warn().Str("tool", name).Msg("decision referenced an unregistered tool")
		return Outbound{Text: decision.FallbackReply}
	}
	res := tool.Execute(ctx, args, tc)
	if !res.Success {
		o.log.Warn().Str("tool", name).Str("cause", res.Err).Msg("tool execution failed")
	}
	o.applyResultState(ctx, in, res)
	return Outbound{Text: res.Content, Details: res.Details}
}

// applyResultState opens the follow-up session a tool result asks for.
func (o *Orchestrator) applyResultState(ctx context.Context, in Inbound, res model.ToolResult) {
	if !res.Success || res.Details == nil {
		return
	}
	txID, _ := res.Details["transactionId"].(string)
	switch {
	case asBool(res.Details["needsConfirmation"]):
		o.setSession(ctx, in, model.AwaitingConfirmation("delete", txID))
	case asBool(res.Details["needsClarification"]):
		orig, _ := res.Details["originalText"].(string)
		if orig == "" {
			orig = in.Text
		}
		o.setSession(ctx, in, model.AwaitingIntentClarification(orig))
	case asBool(res.Details["needsCategory"]):
		merchant, _ := res.Details["merchant"].(string)
		o.setSession(ctx, in, model.AwaitingCategory(txID, merchant))
		if _, err := o.memory.SetPendingClarification(ctx, in.UserID, in.ChatID, &model.PendingClarification{
			TransactionID: txID,
			Field:         "category",
			Question:      "Which category should I file it under?",
		}); err != nil {
			o.log.Error().Err(err).Msg("record pending clarification")
		}
	}
}

func (o *Orchestrator) setSession(ctx context.Context, in Inbound, state model.SessionState) {
	if _, err := o.sessions.Set(ctx, in.UserID, in.ChatID, state); err != nil {
		o.log.Error().Err(err).Str("kind", string(state.Kind)).Msg("set session")
	}
}

func (o *Orchestrator) toolContext(in Inbound) tools.ToolContext {
	return tools.ToolContext{ProjectID: in.ProjectID, UserID: in.UserID, ChatID: in.ChatID}
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
