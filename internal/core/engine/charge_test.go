package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acazau/gridpilot/internal/core/domain"
)

func morningStates() fakeReader {
	return fakeReader{
		"number.prog2_soc":   numericState(50),
		"sensor.battery_soc": numericState(90),
		"sensor.daily_load":  numericState(12),
	}
}

func TestMorningChargeReserveCoversNeed(t *testing.T) {
	h := newTestEngine(t, morningStates(), 4)
	outcome, err := h.engine.RunMorningCharge(nil)
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, domain.ActionNoAction, outcome.Action)
	assert.Empty(t, h.inverter.numbers, "reserve covers need, nothing should be written")
	assert.Len(t, h.notifier.messages, 1)
	assert.Len(t, h.tracker.history, 1)
}

func TestMorningChargeSchedulesOnDeficit(t *testing.T) {
	states := morningStates()
	states["sensor.daily_load"] = numericState(48)
	h := newTestEngine(t, states, 4)

	outcome, err := h.engine.RunMorningCharge(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionChargeScheduled, outcome.Action)

	target, ok := h.inverter.numbers["number.prog2_soc"]
	require.True(t, ok, "program SOC must be written")
	assert.LessOrEqual(t, target, 100.0)
	assert.Greater(t, target, 90.0)

	amps, ok := h.inverter.numbers["number.charge_current"]
	require.True(t, ok)
	assert.Positive(t, amps)
}

func TestMorningChargeSkipsDuringBalancing(t *testing.T) {
	h := newTestEngine(t, morningStates(), 4)
	h.engine.state.BalancingOngoing = true

	outcome, err := h.engine.RunMorningCharge(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, outcome.Action)
	assert.Equal(t, "balancing_ongoing", outcome.Reason)
	assert.False(t, h.engine.state.BalancingOngoing, "flag is consumed")
	assert.Empty(t, h.inverter.numbers)
}

func TestMorningChargeAddsArbitrage(t *testing.T) {
	states := morningStates()
	states["sensor.battery_soc"] = numericState(20)
	states["sensor.morning_sell_price"] = numericState(3.0)
	states["sensor.remaining_forecast"] = numericState(2.0)
	h := newTestEngine(t, states, 4)

	outcome, err := h.engine.RunMorningCharge(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionChargeScheduled, outcome.Action)
	assert.Equal(t, ArbitrageEnabled, outcome.FullDetails["arbitrage_reason"])
	arb, ok := outcome.FullDetails["arbitrage_kwh"].(float64)
	require.True(t, ok)
	assert.Positive(t, arb)
}

func TestMorningChargeAbortsSilently(t *testing.T) {
	cases := map[string]fakeReader{
		"missing program entity": {
			"sensor.battery_soc": numericState(90),
		},
		"unavailable battery soc": {
			"number.prog2_soc":   numericState(50),
			"sensor.battery_soc": textState("unavailable"),
		},
		"invalid battery soc": {
			"number.prog2_soc":   numericState(50),
			"sensor.battery_soc": textState("not-a-number"),
		},
	}
	for name, states := range cases {
		t.Run(name, func(t *testing.T) {
			h := newTestEngine(t, states, 4)
			outcome, err := h.engine.RunMorningCharge(nil)
			require.ErrorIs(t, err, ErrAborted)
			assert.Nil(t, outcome)
			assert.Empty(t, h.inverter.numbers)
			assert.Empty(t, h.notifier.messages, "aborted runs stay silent")
			assert.Empty(t, h.tracker.history)
		})
	}
}

func TestAfternoonChargeSetsGridAssist(t *testing.T) {
	states := fakeReader{
		"number.prog2_soc":   numericState(10),
		"sensor.battery_soc": numericState(20),
		"sensor.daily_load":  numericState(48),
	}
	h := newTestEngine(t, states, 13)

	outcome, err := h.engine.RunAfternoonCharge(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionChargeScheduled, outcome.Action)
	assert.True(t, h.engine.state.GridAssist)
	assert.Contains(t, h.inverter.numbers, "number.prog2_soc")
}

func TestAfternoonChargeNoActionResetsProgram(t *testing.T) {
	states := fakeReader{
		"number.prog2_soc":   numericState(60),
		"sensor.battery_soc": numericState(95),
		"sensor.daily_load":  numericState(6),
	}
	h := newTestEngine(t, states, 13)

	outcome, err := h.engine.RunAfternoonCharge(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, outcome.Action)
	assert.Equal(t, 10.0, h.inverter.numbers["number.prog2_soc"])
	assert.False(t, h.engine.state.GridAssist)
}

func TestChargeWriteFailurePropagates(t *testing.T) {
	states := morningStates()
	states["sensor.daily_load"] = numericState(48)
	h := newTestEngine(t, states, 4)
	h.inverter.failWrites = true

	outcome, err := h.engine.RunMorningCharge(nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAborted)
	assert.Nil(t, outcome)
	assert.Empty(t, h.notifier.messages, "failed runs emit nothing")
}

func TestChargeTestModeSkipsWrites(t *testing.T) {
	states := morningStates()
	states["sensor.daily_load"] = numericState(48)
	h := newTestEngine(t, states, 4)
	h.engine.TestMode = true

	outcome, err := h.engine.RunMorningCharge(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionChargeScheduled, outcome.Action)
	assert.Empty(t, h.inverter.numbers, "test mode never touches the inverter")
	assert.NotEmpty(t, outcome.EntitiesChanged, "intended writes are still reported")
}
