package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acazau/gridpilot/internal/core/domain"
)

func morningSellStates() fakeReader {
	return fakeReader{
		"number.prog3_soc":   numericState(10),
		"sensor.battery_soc": numericState(90),
		"sensor.daily_load":  numericState(2.4),
		"select.work_mode":   textState("Zero Export To Load"),
	}
}

func TestMorningSellExportsSurplus(t *testing.T) {
	h := newTestEngine(t, morningSellStates(), 6)

	outcome, err := h.engine.RunMorningSell(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionSell, outcome.Action)

	target, ok := h.inverter.numbers["number.prog3_soc"]
	require.True(t, ok)
	assert.Less(t, target, 90.0)
	assert.GreaterOrEqual(t, target, 10.0)
	assert.Equal(t, "Export First", h.inverter.options["select.work_mode"])
	assert.Equal(t, 5000.0, h.inverter.numbers["number.export_power"])

	// pre-sell state is persisted for the scheduled restore
	payload, err := h.store.Load("home_morning")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, "Zero Export To Load", payload.WorkMode)
	assert.Equal(t, "number.prog3_soc", payload.ProgSocEntity)
	assert.Equal(t, 10.0, payload.ProgSocValue)
	assert.Equal(t, 7, payload.RestoreHour)
	assert.Equal(t, domain.SellMorning, payload.SellType)
}

func TestMorningSellNoSurplus(t *testing.T) {
	states := morningSellStates()
	states["sensor.battery_soc"] = numericState(10)
	h := newTestEngine(t, states, 6)

	outcome, err := h.engine.RunMorningSell(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, outcome.Action)
	assert.Equal(t, "no_surplus", outcome.Reason)
	assert.Empty(t, h.inverter.numbers)
	assert.Empty(t, h.store.data)
}

func TestMorningSellAbortsWithoutWorkMode(t *testing.T) {
	states := morningSellStates()
	delete(states, "select.work_mode")
	h := newTestEngine(t, states, 6)

	_, err := h.engine.RunMorningSell(nil)
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, h.notifier.messages)
}

func eveningSellStates() fakeReader {
	return fakeReader{
		"number.prog5_soc":   numericState(10),
		"sensor.battery_soc": numericState(90),
		"sensor.daily_load":  numericState(2.4),
		"select.work_mode":   textState("Zero Export To Load"),
	}
}

func TestEveningSellHighPrice(t *testing.T) {
	states := eveningSellStates()
	states["sensor.evening_sell_price"] = numericState(6.0)
	h := newTestEngine(t, states, 17)

	outcome, err := h.engine.RunEveningSell(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionHighSell, outcome.Action)
	assert.Contains(t, h.inverter.numbers, "number.prog5_soc")
	assert.Equal(t, "Export First", h.inverter.options["select.work_mode"])
}

func TestEveningSellSurplusAcrossMidnight(t *testing.T) {
	states := eveningSellStates()
	states["sensor.pv_tomorrow"] = forecastState(map[int]float64{9: 5.0})
	h := newTestEngine(t, states, 17)

	outcome, err := h.engine.RunEveningSell(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionSell, outcome.Action)

	target := h.inverter.numbers["number.prog5_soc"]
	assert.Less(t, target, 90.0)

	payload, err := h.store.Load("home_evening")
	require.NoError(t, err)
	require.NotNil(t, payload)
	assert.Equal(t, 18, payload.RestoreHour)
	assert.Equal(t, domain.SellEvening, payload.SellType)
}

func TestEveningSellWaitsForSufficiency(t *testing.T) {
	// no PV tomorrow: the reserve must carry through the whole cheap
	// window, nothing is sellable
	h := newTestEngine(t, eveningSellStates(), 17)

	outcome, err := h.engine.RunEveningSell(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNoAction, outcome.Action)
	assert.Equal(t, "sufficiency_not_reached", outcome.Reason)
	assert.Empty(t, h.inverter.numbers)
}

func TestEveningSellClampsToTodayProduction(t *testing.T) {
	states := eveningSellStates()
	states["sensor.pv_tomorrow"] = forecastState(map[int]float64{9: 5.0})
	states["sensor.pv_actual_today"] = numericState(1.0)
	h := newTestEngine(t, states, 17)
	h.engine.Entry.Sensors.PVActualToday = "sensor.pv_actual_today"

	outcome, err := h.engine.RunEveningSell(nil)
	require.NoError(t, err)
	require.Equal(t, domain.ActionSell, outcome.Action)
	surplus, ok := outcome.FullDetails["surplus_kwh"].(float64)
	require.True(t, ok)
	assert.InDelta(t, 1.0, surplus, 1e-9)
}
