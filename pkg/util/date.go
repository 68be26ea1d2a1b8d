package util

import (
	"strconv"
	"time"
)

// Upbit exchange timestamps: candle minute keys carry no zone, REST cursors end in Z.
const (
	ExchangeLayout = "2006-01-02T15:04:05"
	CursorLayout   = "2006-01-02T15:04:05Z"
)

// KST is the exchange's local time zone.
var KST = time.FixedZone("KST", 9*60*60)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseExchangeTime parses a zone-less exchange timestamp in loc.
func ParseExchangeTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(ExchangeLayout, s, loc)
}

// FormatCursor renders t as a REST pagination cursor in UTC.
func FormatCursor(t time.Time) string {
	return t.UTC().Format(CursorLayout)
}

// FromMillis converts a unix millisecond timestamp to UTC; 0 stays zero.
func FromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
