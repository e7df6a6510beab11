package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/store"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 50
)

// QueryExpenses lists recorded expenses, newest first, with optional filters.
type QueryExpenses struct {
	store store.Store
}

func NewQueryExpenses(s store.Store) *QueryExpenses {
	return &QueryExpenses{store: s}
}

func (t *QueryExpenses) Name() string { return "query_expenses" }

func (t *QueryExpenses) Description() string {
	return "List recorded expenses, newest first. Use when the user asks what they spent."
}

func (t *QueryExpenses) Parameters() []Param {
	return []Param{
		{Name: "merchant", Type: "string", Description: "Only expenses whose merchant contains this text"},
		{Name: "category", Type: "string", Description: "Only expenses in this category"},
		{Name: "since", Type: "string", Description: "Earliest date to include, YYYY-MM-DD"},
		{Name: "until", Type: "string", Description: "Latest date to include, YYYY-MM-DD"},
		{Name: "limit", Type: "number", Description: "Maximum number of expenses to return"},
	}
}

func (t *QueryExpenses) Execute(ctx context.Context, args map[string]any, tc ToolContext) model.ToolResult {
	req := model.ListTransactionsRequest{
		ProjectID: tc.ProjectID,
		UserID:    tc.UserID,
		Merchant:  stringArg(args, "merchant"),
		Category:  stringArg(args, "category"),
		Limit:     defaultQueryLimit,
	}
	if n, ok := numberArg(args, "limit"); ok && n >= 1 {
		req.Limit = int(n)
		if req.Limit > maxQueryLimit {
			req.Limit = maxQueryLimit
		}
	}
	if s := stringArg(args, "since"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return model.Fail("I couldn't read that start date. Use YYYY-MM-DD.", model.ErrInvalidArguments)
		}
		req.Since = &d
	}
	if s := stringArg(args, "until"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return model.Fail("I couldn't read that end date. Use YYYY-MM-DD.", model.ErrInvalidArguments)
		}
		// inclusive end of day
		end := d.Add(24*time.Hour - time.Millisecond)
		req.Until = &end
	}

	txs, err := t.store.Transactions().List(ctx, req)
	if err != nil {
		return model.Fail("Something went wrong while looking up your expenses.", err)
	}
	if len(txs) == 0 {
		return model.OkDetails("No expenses found for that.", map[string]any{"count": 0})
	}

	var b strings.Builder
	var total float64
	fmt.Fprintf(&b, "Here's what I found (%d):\n", len(txs))
	for _, tx := range txs {
		fmt.Fprintf(&b, "- %s %s", tx.Merchant, model.FormatAmount(tx.Amount, tx.Currency))
		if tx.Category != "" {
			fmt.Fprintf(&b, " (%s)", tx.Category)
		}
		fmt.Fprintf(&b, ", %s\n", tx.CreatedAt.Format("Jan 2"))
		total += tx.Amount
	}
	fmt.Fprintf(&b, "Total: %s", model.FormatAmount(total, txs[0].Currency))

	return model.OkDetails(b.String(), map[string]any{"count": len(txs)})
}
