package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD"
)

// currencySymbols maps each supported currency to its display symbol.
var currencySymbols = map[Currency]string{
	USD: "$",
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol returns the display symbol for c.
func (c Currency) Symbol() (string, bool) {
	s, ok := currencySymbols[c]
	return s, ok
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency parses a currency code such as "usd" or "USD".
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", newValidationError("currency", fmt.Sprintf("unsupported currency: %q", s))
	}
	return c, nil
}

// Money is an immutable positive amount in a single currency.
type Money struct {
	value    decimal.Decimal
	currency Currency
}

// maxAmount is the exclusive upper bound of a Money value.
var maxAmount = decimal.New(1, 15)

// NewMoney returns a Money or a *ValidationError when value is not positive,
// not below 10^15, or not stored exactly as a float64.
func NewMoney(value decimal.Decimal, currency Currency) (Money, error) {
	if value.IsZero() {
		return Money{}, newValidationError("amount", "amount cannot be zero")
	}
	if value.IsNegative() {
		return Money{}, newValidationError("amount", "amount cannot be negative")
	}
	if value.GreaterThanOrEqual(maxAmount) {
		return Money{}, newValidationError("amount", "amount is too large")
	}
	if _, ok := exactFloat(value); !ok {
		return Money{}, newValidationError("amount", "amount has too many digits to be stored exactly")
	}
	return Money{value: value, currency: currency}, nil
}

// exactFloat converts v to float64 and reports whether the float converts
// back to the same decimal. Amounts are persisted as float64.
func exactFloat(v decimal.Decimal) (float64, bool) {
	f, _ := v.Float64()
	if f == 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return f, false
	}
	return f, decimal.NewFromFloat(f).Equal(v)
}

// NewMoneyFromFloat is NewMoney for float64 amounts.
func NewMoneyFromFloat(value float64, currency Currency) (Money, error) {
	return NewMoney(decimal.NewFromFloat(value), currency)
}

func (m Money) Value() decimal.Decimal {
	return m.value
}

func (m Money) Currency() Currency {
	return m.currency
}

// Float64 returns the value as a float64. ok is false when the float does
// not convert back to the same value, which only happens for a Money that
// was not built by NewMoney.
func (m Money) Float64() (f float64, ok bool) {
	return exactFloat(m.value)
}

// IsZero reports whether m is the zero Money, i.e. was not built by NewMoney.
func (m Money) IsZero() bool {
	return m.value.Sign() == 0 && m.currency == ""
}

// Equal compares value and currency.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.value.Equal(other.value)
}

// Format renders the amount with two decimals and comma grouping, prefixed
// with the currency symbol, e.g. "$1,234.56". Currencies without a symbol
// fall back to their code: "EUR 1,234.56".
func (m Money) Format() string {
	rounded := m.value.Round(2)
	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Shift(2).IntPart()

	p := message.NewPrinter(language.AmericanEnglish)
	amount := fmt.Sprintf("%s.%02d", p.Sprint(number.Decimal(whole.IntPart())), cents)

	if symbol, ok := m.currency.Symbol(); ok {
		return symbol + amount
	}
	return string(m.currency) + " " + amount
}

func (m Money) String() string {
	return m.Format()
}
