package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as int64 paise everywhere. Rupee values only
// exist at the display boundary; conversion goes through decimal so
// no float arithmetic ever touches money.

// FormatPaise renders a paise amount as a rupee string with 2 decimals,
// e.g. 150000 -> "1500.00".
func FormatPaise(paise int64) string {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// RupeesToPaise converts a rupee decimal string to paise. It returns
// an error when the value does not land on a whole paise.
func RupeesToPaise(rupees string) (int64, error) {
	d, err := decimal.NewFromString(rupees)
	if err != nil {
		return 0, err
	}
	scaled := d.Mul(decimal.NewFromInt(100))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-paise precision", rupees)
	}
	return scaled.IntPart(), nil
}
