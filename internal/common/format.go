package common

import (
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatNumber renders v with the given decimal places in pt-BR notation:
// "." groups thousands and "," separates decimals (128456.7 -> "128.456,70").
func FormatNumber(v float64, places int32) string {
	s := decimal.NewFromFloat(v).StringFixed(places)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatPercent renders a percentage with two decimals ("6,25%").
func FormatPercent(v float64) string {
	return FormatNumber(v, 2) + "%"
}

// FormatBRL renders a price as Brazilian reais.
func FormatBRL(v float64) string {
	return money.NewFromFloat(v, money.BRL).Display()
}
