package waitlist

// RoundToNearest floors n to the nearest multiple of interval. Negative
// values floor away from zero: RoundToNearest(-1, 10) is -10.
func RoundToNearest(n, interval int) int {
	if interval <= 0 {
		return n
	}
	r := n % interval
	if r < 0 {
		r += interval
	}
	return n - r
}

// FormatCount buckets a raw count for public display so the exact size of
// the list is not exposed: nearest 10 below 100, nearest 100 below 1000,
// nearest 1000 from 1000 up. Always rounds down.
func FormatCount(n int) int {
	switch {
	case n < 100:
		return RoundToNearest(n, 10)
	case n < 1000:
		return RoundToNearest(n, 100)
	default:
		return RoundToNearest(n, 1000)
	}
}
