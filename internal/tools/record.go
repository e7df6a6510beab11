package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/extract"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/services"
	"github.com/centsible/centsible/internal/split"
	"github.com/centsible/centsible/internal/store"
)

// RecordExpense inserts a new ledger row from structured arguments, falling
// back to the field extractor when the engine only passes raw text.
type RecordExpense struct {
	store     store.Store
	memory    *services.WorkingMemoryService
	extractor extract.Extractor
	splitter  split.Computer
	currency  string
	threshold float64
	log       zerolog.Logger
}

func NewRecordExpense(s store.Store, mem *services.WorkingMemoryService, ex extract.Extractor, sp split.Computer, defaultCurrency string, confidenceThreshold float64, log zerolog.Logger) *RecordExpense {
	return &RecordExpense{
		store:     s,
		memory:    mem,
		extractor: ex,
		splitter:  sp,
		currency:  defaultCurrency,
		threshold: confidenceThreshold,
		log:       log,
	}
}

func (t *RecordExpense) Name() string { return "record_expense" }

func (t *RecordExpense) Description() string {
	return "Record a new expense in the ledger. Use when the user reports spending money."
}

func (t *RecordExpense) Parameters() []Param {
	return []Param{
		{Name: "merchant", Type: "string", Description: "Merchant or what the money was spent on"},
		{Name: "amount", Type: "number", Description: "Amount spent, without currency symbol"},
		{Name: "currency", Type: "string", Description: "ISO currency code, e.g. USD"},
		{Name: "category", Type: "string", Description: "Expense category, e.g. food, transport"},
		{Name: "text", Type: "string", Description: "Raw user message, when merchant or amount could not be determined"},
		{Name: "participants", Type: "array", Description: "Names of people splitting this expense"},
	}
}

func (t *RecordExpense) Execute(ctx context.Context, args map[string]any, tc ToolContext) model.ToolResult {
	merchant := stringArg(args, "merchant")
	amount, hasAmount := numberArg(args, "amount")
	currency := strings.ToUpper(stringArg(args, "currency"))
	category := stringArg(args, "category")
	text := stringArg(args, "text")
	participants := stringsArg(args, "participants")
	if len(participants) == 0 {
		participants = tc.Participants
	}

	if (merchant == "" || !hasAmount || amount <= 0) && text != "" && t.extractor != nil {
		fields, err := t.extractor.Extract(ctx, text)
		if err != nil {
			t.log.Warn().Err(err).Msg("field extraction failed")
			return model.Fail("I couldn't read that expense. Try something like \"coffee 4.50 at Blue Bottle\".", err)
		}
		if fields.Confidence < t.threshold {
			return model.OkDetails(
				"I couldn't quite work out the details. Could you rephrase, e.g. \"coffee 4.50 at Blue Bottle\"?",
				map[string]any{"needsClarification": true, "originalText": text},
			)
		}
		if merchant == "" {
			merchant = fields.Merchant
		}
		if !hasAmount || amount <= 0 {
			amount, hasAmount = fields.Amount, fields.Amount > 0
		}
		if currency == "" {
			currency = fields.Currency
		}
		if category == "" {
			category = fields.Category
		}
	}

	if !hasAmount || amount <= 0 {
		return model.Fail("I need an amount to record that expense.", model.ErrInvalidArguments)
	}
	if merchant == "" {
		merchant = "misc"
	}
	if currency == "" {
		currency = t.currency
	}

	tx, err := t.store.Transactions().Create(ctx, &model.Transaction{
		ProjectID: tc.ProjectID,
		UserID:    tc.UserID,
		Merchant:  merchant,
		Amount:    amount,
		Currency:  currency,
		Category:  category,
	})
	if err != nil {
		t.log.Error().Err(err).Msg("record expense insert failed")
		return model.Fail("Something went wrong while saving that expense.", err)
	}

	if _, err := t.memory.SetLastTransaction(ctx, tc.UserID, tc.ChatID, tx.Snapshot()); err != nil {
		t.log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("could not sync working memory after record")
	}

	details := map[string]any{"transactionId": tx.ID, "merchant": tx.Merchant}
	content := fmt.Sprintf("Recorded %s %s.", tx.Merchant, model.FormatAmount(tx.Amount, tx.Currency))

	if len(participants) > 0 && t.splitter != nil {
		shares := t.splitter.Compute(tx.Amount, tc.PayerName, participants)
		if len(shares) > 1 {
			details["shares"] = shares
			content += fmt.Sprintf(" Split %d ways.", len(shares))
		}
	}

	if tx.Category == "" {
		details["needsCategory"] = true
		content += " Which category should I file it under?"
	}

	return model.OkDetails(content, details)
}
