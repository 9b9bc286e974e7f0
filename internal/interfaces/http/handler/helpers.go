package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// parseDate parses a YYYY-MM-DD date in UTC
func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}

// parseTimestamp parses an RFC 3339 timestamp
func parseTimestamp(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
