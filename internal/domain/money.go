package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All persisted amounts are minor-unit integers (cents, satoshi). Decimal strings
// only exist at the webhook boundary and are converted here.

var currencyExponents = map[string]int32{
	"BTC":  8,
	"LTC":  8,
	"USDT": 6,
	"USD":  2,
	"EUR":  2,
	"KES":  2,
}

func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[currency]; ok {
		return exp
	}
	return 2
}

// ParseAmount converts a decimal-string amount into minor units of the currency.
// Rejects negative amounts and precision beyond what the currency can represent.
func ParseAmount(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	shifted := d.Shift(CurrencyExponent(currency))
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q exceeds %s precision", s, currency)
	}
	return shifted.IntPart(), nil
}

// FormatAmount renders minor units as a decimal string for payloads and messages.
func FormatAmount(minor int64, currency string) string {
	return decimal.New(minor, -CurrencyExponent(currency)).String()
}

// CoversRequired reports whether received satisfies required within the tolerance
// band, e.g. tolerancePct=2.0 accepts payments up to 2% short as full settlement.
func CoversRequired(received, required int64, tolerancePct float64) bool {
	if received >= required {
		return true
	}
	req := decimal.NewFromInt(required)
	floor := req.Sub(req.Mul(decimal.NewFromFloat(tolerancePct)).Div(decimal.NewFromInt(100)))
	return decimal.NewFromInt(received).Cmp(floor) >= 0
}

// PercentOf returns pct% of amount, rounded down. Used for penalty computation so
// the user is never charged a fraction of a minor unit up.
func PercentOf(amount int64, pct float64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100)).
		IntPart()
}
