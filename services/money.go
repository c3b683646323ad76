package services

import "github.com/shopspring/decimal"

const CurrencySymbol = "₹"

// FormatMoney renders an amount with two decimals, e.g. ₹120.50.
func FormatMoney(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}
