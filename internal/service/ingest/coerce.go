// internal/service/ingest/coerce.go

package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ToNonNegativeInt converts a raw cell into an engagement count. Missing,
// non-numeric, negative and non-finite values all become 0. Decimal values
// are truncated.
func ToNonNegativeInt(value string) int64 {
	v, _ := coerceInt(value)
	return v
}

// coerceInt is ToNonNegativeInt that also reports whether a non-empty value
// had to be replaced with 0
func coerceInt(value string) (int64, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, true
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, false
		}
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// dateLayouts are tried in order; day-first layouts come before any other
// slash layout since exports use Brazilian dates
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"2006/01/02",
}

// parseDate returns nil for empty or unparseable values
func parseDate(value string) (*time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	return nil, false
}
