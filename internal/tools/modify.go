package tools

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/services"
)

// ModifyField edits one field of a transaction. The three modify tools
// (amount, merchant, category) share this implementation and differ only
// in the field they bind.
type ModifyField struct {
	field    string
	resolver *services.Resolver
}

func NewModifyAmount(r *services.Resolver) *ModifyField {
	return &ModifyField{field: "amount", resolver: r}
}

func NewModifyMerchant(r *services.Resolver) *ModifyField {
	return &ModifyField{field: "merchant", resolver: r}
}

func NewModifyCategory(r *services.Resolver) *ModifyField {
	return &ModifyField{field: "category", resolver: r}
}

func (t *ModifyField) Name() string { return "modify_" + t.field }

func (t *ModifyField) Description() string {
	switch t.field {
	case "amount":
		return "Change the amount of a recorded expense. Use when the user corrects how much was spent."
	case "merchant":
		return "Change the merchant of a recorded expense."
	default:
		return "Change the category of a recorded expense."
	}
}

func (t *ModifyField) Parameters() []Param {
	params := []Param{
		{Name: "target", Type: "string", Description: "Which expense to change; defaults to the most recent one", Enum: []string{"last", "specific"}},
		{Name: "transaction_id", Type: "string", Description: "Transaction id, required when target is specific"},
	}
	switch t.field {
	case "amount":
		params = append(params, Param{Name: "new_amount", Type: "number", Description: "The corrected amount", Required: true})
	case "merchant":
		params = append(params, Param{Name: "new_merchant", Type: "string", Description: "The corrected merchant", Required: true})
	default:
		params = append(params, Param{Name: "new_category", Type: "string", Description: "The corrected category", Required: true})
	}
	return params
}

func (t *ModifyField) Execute(ctx context.Context, args map[string]any, tc ToolContext) model.ToolResult {
	var value any
	if t.field == "amount" {
		n, ok := numberArg(args, "new_amount")
		if !ok {
			return model.Fail("I need the new amount.", model.ErrInvalidArguments)
		}
		value = n
	} else {
		s := stringArg(args, "new_"+t.field)
		if s == "" {
			return model.Fail(fmt.Sprintf("I need the new %s.", t.field), model.ErrInvalidArguments)
		}
		value = s
	}

	id, err := t.resolver.Resolve(ctx, tc.ProjectID, tc.UserID, stringArg(args, "target"), stringArg(args, "transaction_id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Fail("I couldn't find that transaction.", err)
		}
		return model.Fail("Something went wrong while looking that up.", err)
	}

	change, err := t.resolver.UpdateFieldAndResync(ctx, tc.ProjectID, tc.UserID, tc.ChatID, id, t.field, value)
	switch {
	case errors.Is(err, model.ErrInvalidArguments):
		return model.Fail(fmt.Sprintf("That doesn't look like a valid %s.", t.field), err)
	case errors.Is(err, model.ErrNotFound):
		return model.Fail("I couldn't find that transaction.", err)
	case err != nil:
		return model.Fail("Something went wrong while updating that expense.", err)
	}

	return model.OkDetails(
		fmt.Sprintf("Updated %s: %s → %s.", t.field, change.Old, change.New),
		map[string]any{"transactionId": id, "field": t.field, "old": change.Old, "new": change.New},
	)
}
