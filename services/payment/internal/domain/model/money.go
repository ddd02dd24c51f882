package model

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MaxCurrencyScale is the number of decimal places ledger amounts keep
const MaxCurrencyScale = 2

// CurrencyScale returns the number of minor-unit digits of an ISO 4217 code,
// e.g. 2 for INR and 0 for JPY
func CurrencyScale(code string) (int32, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// MinorUnits converts an amount to the integer count of the currency's
// smallest unit, rounding half away from zero
func MinorUnits(amount decimal.Decimal, code string) (int64, error) {
	scale, err := CurrencyScale(code)
	if err != nil {
		return 0, err
	}
	return amount.Shift(scale).Round(0).IntPart(), nil
}
