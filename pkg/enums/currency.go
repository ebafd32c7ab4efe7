package enums

import "fmt"

// Currency represents the monetary denominations the platform charges in.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyKHR Currency = "KHR"
)

var validCurrencies = []Currency{
	CurrencyUSD,
	CurrencyKHR,
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

// Decimals returns the canonical number of decimal places for the currency.
// Riel amounts carry no fractional part; dollar amounts carry two.
func (c Currency) Decimals() int32 {
	if c == CurrencyKHR {
		return 0
	}
	return 2
}

// NumericCode returns the ISO 4217 numeric code used in QR payloads.
func (c Currency) NumericCode() string {
	switch c {
	case CurrencyKHR:
		return "116"
	case CurrencyUSD:
		return "840"
	default:
		return ""
	}
}

// ParseCurrency converts a raw string into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
