package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/acazau/gridpilot/internal/core/domain"
)

func flatData(start, end int, usagePerHour, margin float64, pv map[int]float64) domain.ForecastData {
	data := domain.ForecastData{
		StartHour:        start,
		EndHour:          end,
		Margin:           margin,
		PVForecastHourly: pv,
	}
	for h := range data.HourlyUsage {
		data.HourlyUsage[h] = usagePerHour
	}
	return data
}

func TestSufficiencyNoPV(t *testing.T) {
	res := Sufficiency(flatData(6, 13, 0.5, 1.0, nil))
	assert.False(t, res.SufficiencyReached)
	assert.Equal(t, 13, res.SufficiencyHour)
	assert.InDelta(t, 3.5, res.RequiredKwh, 1e-9)
	assert.InDelta(t, 3.5, res.RequiredSufficiencyKwh, 1e-9)
	assert.Zero(t, res.PVSufficiencyKwh)
}

func TestSufficiencyAtWindowStart(t *testing.T) {
	pv := map[int]float64{6: 2.0}
	res := Sufficiency(flatData(6, 13, 0.5, 1.0, pv))
	assert.True(t, res.SufficiencyReached)
	assert.Equal(t, 6, res.SufficiencyHour)
	assert.Zero(t, res.RequiredSufficiencyKwh)
	assert.Zero(t, res.PVSufficiencyKwh)
}

func TestSufficiencyMidWindow(t *testing.T) {
	pv := map[int]float64{8: 0.2, 9: 1.0, 10: 2.0}
	res := Sufficiency(flatData(6, 13, 0.5, 1.0, pv))
	assert.True(t, res.SufficiencyReached)
	assert.Equal(t, 9, res.SufficiencyHour)
	// hours 6,7,8 accumulate before sufficiency
	assert.InDelta(t, 1.5, res.RequiredSufficiencyKwh, 1e-9)
	assert.InDelta(t, 0.2, res.PVSufficiencyKwh, 1e-9)
	// whole window still counted in the total
	assert.InDelta(t, 3.5, res.RequiredKwh, 1e-9)
}

func TestSufficiencyAppliesMargin(t *testing.T) {
	res := Sufficiency(flatData(6, 8, 1.0, 1.1, nil))
	assert.InDelta(t, 2.2, res.RequiredKwh, 1e-9)
}

func TestSufficiencyWrappedWindow(t *testing.T) {
	pv := map[int]float64{9: 5.0}
	res := Sufficiency(flatData(22, 13, 0.1, 1.0, pv))
	assert.True(t, res.SufficiencyReached)
	assert.Equal(t, 9, res.SufficiencyHour)
	// 22..23 plus 0..8 is 11 hours before sufficiency
	assert.InDelta(t, 1.1, res.RequiredSufficiencyKwh, 1e-9)
}
