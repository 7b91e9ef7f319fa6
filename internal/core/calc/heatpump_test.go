package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateCop(t *testing.T) {
	assert.Equal(t, 2.0, InterpolateCop(-30, DefaultCopCurve))
	assert.Equal(t, 5.0, InterpolateCop(30, DefaultCopCurve))
	assert.Equal(t, 3.2, InterpolateCop(0, DefaultCopCurve))
	assert.InDelta(t, 3.6, InterpolateCop(5, DefaultCopCurve), 1e-9)
	assert.Equal(t, 0.0, InterpolateCop(5, nil))
}

func TestHeatingHours(t *testing.T) {
	assert.Equal(t, 0.0, HeatingHours(20, 15, 25))
	assert.Equal(t, 0.0, HeatingHours(18, 10, 17.9))
	assert.Equal(t, 24.0, HeatingHours(5, 0, 10))
	assert.Equal(t, 24.0, HeatingHours(10, 10, 10))

	h := HeatingHours(14, 8, 20)
	assert.Greater(t, h, 0.0)
	assert.InDelta(t, 8.0, h, 1e-9)

	for avg := -10.0; avg < 18; avg++ {
		h := HeatingHours(avg, avg-5, avg+10)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 24.0)
	}
}
