package ledger

import "github.com/shopspring/decimal"

// CurrencyPlaces é a precisão monetária do ledger (centavos)
const CurrencyPlaces = 2

// MaxAmount é o maior valor em módulo que cabe em NUMERIC(14,2).
// Vale para valores de operação, saldos e totais por lado.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// RoundCurrency arredonda para centavos (half away from zero)
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// InRange indica se |d| <= MaxAmount
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// ValidAmount indica se o valor é positivo, já está em centavos e não passa de MaxAmount
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(RoundCurrency(d)) && InRange(d)
}
