package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errInvalidTime = errors.New("invalid_time")

// optional trims raw and parses it with fn. Blank input yields nil.
func optional[T any](raw string, fn func(string) (T, error)) (*T, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := fn(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseOptionalBool(raw string) (*bool, error) {
	return optional(raw, strconv.ParseBool)
}

func parseOptionalDecimal(raw string) (*decimal.Decimal, error) {
	return optional(raw, decimal.NewFromString)
}

// parseOptionalTime accepts RFC3339 or a bare date. A bare date used as an
// upper bound covers the whole day.
func parseOptionalTime(raw string, endOfDay bool) (*time.Time, error) {
	return optional(raw, func(s string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		day, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
		if err != nil {
			return time.Time{}, errInvalidTime
		}
		if endOfDay {
			return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return day, nil
	})
}
