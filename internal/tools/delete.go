package tools

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/services"
)

// DeleteExpense soft-deletes a transaction behind a two-phase confirmation.
// Without confirmed=true the call only validates the target and asks; the
// row is never touched. The confirmed call re-resolves from scratch rather
// than trusting the first phase.
type DeleteExpense struct {
	resolver *services.Resolver
}

func NewDeleteExpense(r *services.Resolver) *DeleteExpense {
	return &DeleteExpense{resolver: r}
}

func (t *DeleteExpense) Name() string { return "delete_expense" }

func (t *DeleteExpense) Description() string {
	return "Delete a recorded expense. Ask for confirmation first; pass confirmed=true only after the user explicitly agreed."
}

func (t *DeleteExpense) Parameters() []Param {
	return []Param{
		{Name: "target", Type: "string", Description: "Which expense to delete; defaults to the most recent one", Enum: []string{"last", "specific"}},
		{Name: "transaction_id", Type: "string", Description: "Transaction id, required when target is specific"},
		{Name: "confirmed", Type: "boolean", Description: "True only after the user explicitly confirmed the deletion"},
	}
}

func (t *DeleteExpense) Execute(ctx context.Context, args map[string]any, tc ToolContext) model.ToolResult {
	id, err := t.resolver.Resolve(ctx, tc.ProjectID, tc.UserID, stringArg(args, "target"), stringArg(args, "transaction_id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Fail("I couldn't find that transaction.", err)
		}
		return model.Fail("Something went wrong while looking that up.", err)
	}

	if !boolArg(args, "confirmed") {
		tx, err := t.resolver.Fetch(ctx, tc.ProjectID, id)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.Fail("I couldn't find that transaction.", err)
			}
			return model.Fail("Something went wrong while looking that up.", err)
		}
		return model.OkDetails(
			fmt.Sprintf("Delete %s %s? This can't be undone.", tx.Merchant, model.FormatAmount(tx.Amount, tx.Currency)),
			map[string]any{"needsConfirmation": true, "transactionId": id, "merchant": tx.Merchant},
		)
	}

	tx, err := t.resolver.SoftDelete(ctx, tc.ProjectID, tc.UserID, tc.ChatID, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Fail("I couldn't find that transaction.", err)
		}
		return model.Fail("Something went wrong while deleting that expense.", err)
	}

	return model.OkDetails(
		fmt.Sprintf("Deleted %s %s.", tx.Merchant, model.FormatAmount(tx.Amount, tx.Currency)),
		map[string]any{"deleted": true, "transactionId": id},
	)
}
