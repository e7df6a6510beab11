package model

import (
	"fmt"
	"strings"
)

// FormatAmount renders an amount for chat replies, always with two decimals.
// Known currencies use their symbol; anything else is prefixed with its code.
func FormatAmount(amount float64, currency string) string {
	switch strings.ToUpper(currency) {
	case "USD", "":
		return fmt.Sprintf("$%.2f", amount)
	case "EUR":
		return fmt.Sprintf("€%.2f", amount)
	case "GBP":
		return fmt.Sprintf("£%.2f", amount)
	default:
		return fmt.Sprintf("%s %.2f", strings.ToUpper(currency), amount)
	}
}
