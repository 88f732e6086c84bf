package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The dashboard reads prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseMoney parses "35", "35.50" and the pt-BR "35,50".
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}
