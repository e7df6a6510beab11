package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/tools"
)

var affirmatives = map[string]bool{
	"yes": true, "y": true, "yep": true, "confirm": true, "sure": true, "ok": true, "okay": true,
}

func isAffirmative(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".!")
	return affirmatives[s]
}

// consumeSession resolves the open flow against the new message. The session
// is cleared first on every path; flows that need another turn set a fresh
// one. A false return means the message should be processed stateless.
func (o *Orchestrator) consumeSession(ctx context.Context, in Inbound, st model.SessionState, wm *model.WorkingMemory, tc tools.ToolContext) (Outbound, bool) {
	if err := o.sessions.Clear(ctx, in.UserID, in.ChatID); err != nil {
		o.log.Error().Err(err).Msg("clear session")
	}

	switch st.Kind {
	case model.SessionIdle:
		return Outbound{}, false

	case model.SessionAwaitingEditValue:
		return o.finishEdit(ctx, in, st.Field, st.TransactionID, in.Text, tc), true

	case model.SessionAwaitingConfirmation:
		if st.Action != "delete" {
			o.log.Warn().Str("action", st.Action).Msg("unknown confirmation action cleared")
			return Outbound{}, false
		}
		if !isAffirmative(in.Text) {
			return Outbound{Text: "Okay, I won't delete it."}, true
		}
		return o.runTool(ctx, in, "delete_expense", map[string]any{
			"target": "specific", "transaction_id": st.TargetID, "confirmed": true,
		}, tc), true

	case model.SessionAwaitingIntentClarification:
		combined := strings.TrimSpace(st.OriginalText + " " + in.Text)
		return o.process(ctx, in, combined, wm, tc), true

	case model.SessionAwaitingCategory:
		return o.finishEdit(ctx, in, "category", st.TransactionID, in.Text, tc), true

	default:
		o.log.Warn().Str("kind", string(st.Kind)).Msg("unrecognized session state cleared")
		return Outbound{}, false
	}
}

// finishEdit applies a typed-in replacement value to a transaction field.
// A value that fails to parse re-opens the flow so the user can retype it.
func (o *Orchestrator) finishEdit(ctx context.Context, in Inbound, field, txID, raw string, tc tools.ToolContext) Outbound {
	var value any
	if field == "amount" {
		amt, ok := extract.ParseAmount(raw)
		if !ok {
			o.setSession(ctx, in, model.AwaitingEditValue(field, txID))
			return Outbound{Text: "That doesn't look like an amount. Give me a number like 12.50."}
		}
		value = amt
	} else {
		value = strings.TrimSpace(raw)
	}

	change, err := o.resolver.UpdateFieldAndResync(ctx, tc.ProjectID, tc.UserID, tc.ChatID, txID, field, value)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return Outbound{Text: "I couldn't find that transaction anymore."}
	case errors.Is(err, model.ErrInvalidArguments):
		o.setSession(ctx, in, model.AwaitingEditValue(field, txID))
		return Outbound{Text: fmt.Sprintf("That doesn't look like a valid %s.", field)}
	case err != nil:
		o.log.Error().Err(err).Str("field", field).Msg("apply edit")
		return Outbound{Text: "Something went wrong while updating that expense."}
	}

	if field == "category" && change.Old == "" {
		return Outbound{Text: fmt.Sprintf("Filed under %s.", change.New)}
	}
	return Outbound{Text: fmt.Sprintf("Updated %s: %s → %s.", field, change.Old, change.New)}
}
