package model

import "time"

// TimestampLayout is RFC3339 with a fixed nine-digit fraction, so stored
// timestamps sort lexically in chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
