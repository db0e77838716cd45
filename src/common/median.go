package common

import (
	"sort"
	"time"
)

// MedianDuration returns the median of a set of latencies, 0 when empty. With
// an even count it is the mean of the two middle values.
func MedianDuration(input []time.Duration) time.Duration {
	s := make([]time.Duration, len(input))
	copy(s, input)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })

	l := len(s)
	switch {
	case l == 0:
		return 0
	case l%2 == 0:
		return (s[l/2-1] + s[l/2]) / 2
	default:
		return s[l/2]
	}
}
