package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHourWindow(t *testing.T) {
	assert.Equal(t, []int{6, 7, 8, 9, 10, 11, 12}, HourWindow(6, 13))
	assert.Equal(t, []int{22, 23, 0, 1, 2}, HourWindow(22, 3))
	assert.Empty(t, HourWindow(5, 5))

	for s := 0; s < 24; s++ {
		for e := 0; e < 24; e++ {
			got := len(HourWindow(s, e))
			switch {
			case s == e:
				assert.Equal(t, 0, got)
			case s < e:
				assert.Equal(t, e-s, got)
			default:
				assert.Equal(t, 24-s+e, got)
			}
		}
	}
}

func TestInWindow(t *testing.T) {
	assert.True(t, InWindow(6, 6, 13))
	assert.False(t, InWindow(13, 6, 13))
	assert.True(t, InWindow(23, 22, 3))
	assert.True(t, InWindow(2, 22, 3))
	assert.False(t, InWindow(3, 22, 3))
	assert.False(t, InWindow(10, 5, 5))

	// membership agrees with the built window
	for s := 0; s < 24; s++ {
		for e := 0; e < 24; e++ {
			in := map[int]bool{}
			for _, h := range HourWindow(s, e) {
				in[h] = true
			}
			for h := 0; h < 24; h++ {
				assert.Equal(t, in[h], InWindow(h, s, e), "h=%d s=%d e=%d", h, s, e)
			}
		}
	}
}
