package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMedianDuration(t *testing.T) {
	ms := func(in ...int) []time.Duration {
		res := make([]time.Duration, len(in))
		for i, v := range in {
			res[i] = time.Duration(v) * time.Millisecond
		}
		return res
	}

	for _, c := range []struct {
		in  []time.Duration
		out time.Duration
	}{
		{ms(5, 3, 4, 2, 1), 3 * time.Millisecond},
		{ms(6, 3, 2, 4, 5, 1), 3500 * time.Microsecond},
		{ms(1), time.Millisecond},
		{nil, 0},
	} {
		assert.Equal(t, c.out, MedianDuration(c.in), "%v", c.in)
	}

	// the input is left untouched
	in := ms(3, 1, 2)
	MedianDuration(in)
	assert.Equal(t, ms(3, 1, 2), in)
}
