// Package utils holds small pure helpers shared across the service.  This
// file implements the time accounting for rents: duration in minutes with
// deterministic rounding and the human-readable period string.
package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidWindow is returned when a time window ends at or before its
// start.
var ErrInvalidWindow = errors.New("end time must be after start time")

var sixty = decimal.NewFromInt(60)

// ComputeMinutes returns the duration between start and end in minutes,
// rounded half-up to two decimal places.  It fails with ErrInvalidWindow
// when end is not after start.
func ComputeMinutes(start, end time.Time) (decimal.Decimal, error) {
	d := end.Sub(start)
	if d <= 0 {
		return decimal.Decimal{}, ErrInvalidWindow
	}
	// Exact: nanoseconds scaled to seconds, then divided by 60.
	seconds := decimal.New(d.Nanoseconds(), -9)
	return seconds.Div(sixty).Round(2), nil
}

// FormatPeriod renders minutes as "H hour(s) M minute(s)".  The hour
// segment is omitted when zero; when both segments are zero the result is
// "0 minutes".  Fractional minute remainders drop a trailing ".0" when
// they reduce to a whole number (90.00 -> "1 hour 30 minutes",
// 45.5 -> "45.5 minutes").
func FormatPeriod(minutes decimal.Decimal) string {
	normalized := minutes.Round(2)

	hours := normalized.Div(sixty).Floor()
	remaining := normalized.Sub(hours.Mul(sixty)).Round(2)

	segments := make([]string, 0, 2)
	if !hours.IsZero() {
		unit := "hours"
		if hours.Equal(decimal.NewFromInt(1)) {
			unit = "hour"
		}
		segments = append(segments, fmt.Sprintf("%s %s", hours.String(), unit))
	}
	if !remaining.IsZero() {
		value := remaining.String()
		if remaining.Equal(remaining.Truncate(0)) {
			value = remaining.Truncate(0).String()
		}
		unit := "minutes"
		if remaining.Equal(decimal.NewFromInt(1)) {
			unit = "minute"
		}
		segments = append(segments, fmt.Sprintf("%s %s", value, unit))
	}
	if len(segments) == 0 {
		return "0 minutes"
	}
	return strings.Join(segments, " ")
}
