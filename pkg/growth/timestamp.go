package growth

import "time"

// TimestampLayout is the persisted timestamp format: UTC, second precision.
// Its lexicographic order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// Truncate drops sub-second precision the store cannot keep.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
