package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO 4217 code card refunds are issued in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyAUD Currency = "AUD"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyCAD,
	CurrencyEUR,
	CurrencyGBP,
	CurrencyAUD,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency normalizes case and whitespace before matching.
func ParseCurrency(value string) (Currency, error) {
	normalized := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
