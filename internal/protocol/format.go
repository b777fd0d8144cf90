package protocol

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRevenue renders an amount with at least one fractional digit:
// 17 → "17.0", 25.5 → "25.5", 2.25 → "2.25".
func FormatRevenue(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseRevenue is the inverse of FormatRevenue.
func ParseRevenue(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// SearchHeader is the first line of a non-empty search response.
func SearchHeader(term string) string {
	return `Products matching "` + term + "\":\n"
}

// NoSearchResults is the response when nothing matches term.
func NoSearchResults(term string) string {
	return `No products found matching "` + term + `".`
}
