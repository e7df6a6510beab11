// Package extract turns free-form expense text into structured fields.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Fields is the structured reading of one expense phrase.
type Fields struct {
	Merchant   string  `json:"merchant"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Extractor parses free text into expense fields. Implementations must be
// safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, text string) (Fields, error)
}

var amountRe = regexp.MustCompile(`([$€£])?\s?(\d+(?:[.,]\d{1,2})?)`)

var symbolCurrency = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// ParseAmount reads the first monetary value in s, tolerating a leading
// currency symbol and a comma decimal separator.
func ParseAmount(s string) (float64, bool) {
	amt, _, ok := parseMoney(s)
	return amt, ok
}

func parseMoney(s string) (float64, string, bool) {
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	raw := strings.ReplaceAll(m[2], ",", ".")
	amt, err := strconv.ParseFloat(raw, 64)
	if err != nil || amt <= 0 {
		return 0, "", false
	}
	return amt, symbolCurrency[m[1]], true
}
