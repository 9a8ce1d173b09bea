package clock

import "time"

const layout = "2006-01-02T15:04:05Z"

// Now returns the current UTC time in the wire format used by API responses.
func Now() string {
	return time.Now().UTC().Format(layout)
}

// NowUTC returns the current time truncated to the precision the store keeps,
// so a persisted timestamp round-trips equal to the in-memory one.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
