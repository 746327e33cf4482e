package models

import (
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places monetary outputs are rounded to.
const MoneyPlaces = 2

// RoundMoney rounds an accumulated amount for presentation.
func RoundMoney(amount decimal.Decimal) float64 {
	return amount.Round(MoneyPlaces).InexactFloat64()
}

// SumAmounts adds up amounts without intermediate rounding.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
