package extract

import (
	"context"
	"strings"
)

// Heuristic is the built-in extractor used when no extraction service is
// configured. It finds the first monetary value and treats the remaining
// meaningful words as the merchant.
type Heuristic struct{}

func NewHeuristic() Heuristic { return Heuristic{} }

var fillerWords = map[string]bool{
	"i": true, "we": true, "just": true, "spent": true, "paid": true,
	"bought": true, "got": true, "at": true, "on": true, "for": true,
	"in": true, "a": true, "an": true, "the": true, "of": true,
	"from": true, "to": true, "my": true, "some": true,
	"today": true, "yesterday": true, "dollars": true, "bucks": true,
}

func (Heuristic) Extract(_ context.Context, text string) (Fields, error) {
	var out Fields
	amt, currency, ok := parseMoney(text)
	if ok {
		out.Amount = amt
		out.Currency = currency
	}

	cleaned := amountRe.ReplaceAllString(text, " ")
	var kept []string
	for _, w := range strings.Fields(cleaned) {
		if fillerWords[strings.ToLower(strings.Trim(w, ".,!?"))] {
			continue
		}
		kept = append(kept, strings.Trim(w, ".,!?"))
	}
	out.Merchant = strings.Join(kept, " ")

	switch {
	case out.Amount > 0 && out.Merchant != "":
		out.Confidence = 0.9
	case out.Amount > 0:
		out.Confidence = 0.6
	default:
		out.Confidence = 0.2
	}
	return out, nil
}
