package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredEnergy(t *testing.T) {
	assert.InDelta(t, 13.89, RequiredEnergy(2.0, 0, 6, 95, 1.1), 0.01)
	assert.Equal(t, 0.0, RequiredEnergy(2.0, 0, 6, 0, 1.1))
	assert.Equal(t, 0.0, RequiredEnergy(2.0, 0, 0, 95, 1.1))
	assert.InDelta(t, 13.2, RequiredEnergy(1.5, 0.5, 6, 100, 1.1), 0.001)
}

func TestSurplusEnergy(t *testing.T) {
	assert.Equal(t, 7.0, SurplusEnergy(10, 5, 2))
	assert.Equal(t, 0.0, SurplusEnergy(5, 10, 0))
	assert.Equal(t, 0.0, SurplusEnergy(0, 0, 0))
}

func TestNeededReserve(t *testing.T) {
	assert.Equal(t, 3.0, NeededReserve(5, 2))
	assert.Equal(t, 0.0, NeededReserve(2, 5))
}

func TestChargeCurrent(t *testing.T) {
	assert.Equal(t, 0, ChargeCurrent(0, 50, 200, 48, 2))
	assert.Equal(t, 0, ChargeCurrent(-1, 50, 200, 48, 2))
	assert.Equal(t, 0, ChargeCurrent(2, 100, 200, 48, 2))

	// small top-up from a low SOC gets scaled below the phase rating
	amps := ChargeCurrent(0.5, 20, 200, 48, 2)
	assert.Positive(t, amps)
	assert.LessOrEqual(t, amps, 23)

	// a charge the phase currents cannot finish in time falls back to the
	// first phase rating
	assert.Equal(t, 23, ChargeCurrent(9, 5, 200, 48, 2))

	for soc := 0.0; soc < 100; soc += 5 {
		amps := ChargeCurrent(1.0, soc, 200, 48, 2)
		assert.Positive(t, amps, "soc=%v", soc)
	}
}
