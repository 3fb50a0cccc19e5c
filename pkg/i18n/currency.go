package i18n

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols maps ISO 4217 currency codes to their display symbol.
var currencySymbols = map[string]struct {
	symbol string
	prefix bool // true = "$12.50", false = "12.50 TMT"
}{
	"USD": {"$", true},
	"EUR": {"€", true},
	"GBP": {"£", true},
	"JPY": {"¥", true},
	"INR": {"₹", true},
	"TRY": {"₺", true},
	"BRL": {"R$", true},
	"MXN": {"$", true},
	"AED": {"د.إ", false},
	"KZT": {"₸", false},
	"TMT": {"TMT", false},
	"NGN": {"₦", true},
	"KES": {"KSh", true},
	"ZAR": {"R", true},
	"EGP": {"E£", true},
	"PKR": {"₨", true},
}

// CurrencySymbol returns the display symbol for code, or the code itself when unknown.
func CurrencySymbol(currencyCode string) string {
	code := strings.ToUpper(currencyCode)
	if info, ok := currencySymbols[code]; ok {
		return info.symbol
	}
	return code
}

// FormatCents renders an amount held in minor units.
//
//	FormatCents(1550, "USD")  → "$15.50"
//	FormatCents(15000, "TMT") → "150.00 TMT"
//	FormatCents(15000, "XYZ") → "150.00 XYZ"
func FormatCents(cents int64, currencyCode string) string {
	amount := decimal.New(cents, -2).StringFixed(2)
	code := strings.ToUpper(currencyCode)

	info, ok := currencySymbols[code]
	if !ok {
		return fmt.Sprintf("%s %s", amount, code)
	}
	if info.prefix {
		return info.symbol + amount
	}
	return fmt.Sprintf("%s %s", amount, info.symbol)
}
