// Package markup turns a raw bid into the rate a customer would actually pay.
package markup

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	DefaultPercent = decimal.NewFromInt(1)
)

// Table maps currency codes to a markup percent. Codes not listed use Default.
type Table struct {
	Default decimal.Decimal
	Rates   map[string]decimal.Decimal
}

func NewTable(defaultPercent float64, rates map[string]float64) Table {
	t := Table{
		Default: decimal.NewFromFloat(defaultPercent),
		Rates:   make(map[string]decimal.Decimal, len(rates)),
	}
	for code, pct := range rates {
		t.Rates[strings.ToUpper(strings.TrimSpace(code))] = decimal.NewFromFloat(pct)
	}
	return t
}

func (t Table) Percent(code string) decimal.Decimal {
	if p, ok := t.Rates[strings.ToUpper(code)]; ok {
		return p
	}
	return t.Default
}

// Adjust returns base * (1 + percent/100).
func (t Table) Adjust(code string, base decimal.Decimal) decimal.Decimal {
	return base.Mul(one.Add(t.Percent(code).Div(hundred)))
}
