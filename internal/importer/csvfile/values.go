package csvfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// parseDate accepts the layouts in dateLayouts. Values without a zone are UTC.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseAmount reads a decimal amount. A leading currency symbol is ignored and
// when both separators appear the rightmost one is the decimal point, so
// "1,234.50" and "1.234,50" are the same value. A lone comma is a decimal comma.
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(strings.TrimLeft(s, "$€£ "))

	dot := strings.LastIndexByte(clean, '.')
	comma := strings.LastIndexByte(clean, ',')

	switch {
	case comma >= 0 && dot > comma:
		clean = strings.ReplaceAll(clean, ",", "")
	case comma >= 0:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unrecognised amount %q", s)
	}

	return d, nil
}
