package engine

import (
	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
)

// hourlyDemand is the margin-adjusted demand for one hour of the window.
func hourlyDemand(data domain.ForecastData, hour int) float64 {
	return (data.HourlyUsage[hour] + data.HeatPumpHourly[hour] + data.LossesHourly) * data.Margin
}

// Sufficiency scans the window for the first hour where forecast PV meets
// that hour's demand. Demand and PV are accumulated over the hours
// strictly before that point; when PV never catches up the accumulation
// covers the whole window and the sufficiency hour defaults to the window
// end. Charge sizing uses this to stop compensating for hours that will
// self-supply.
func Sufficiency(data domain.ForecastData) domain.SufficiencyResult {
	res := domain.SufficiencyResult{
		SufficiencyHour: data.EndHour,
	}
	for _, h := range calc.HourWindow(data.StartHour, data.EndHour) {
		demand := hourlyDemand(data, h)
		res.RequiredKwh += demand
		if !res.SufficiencyReached {
			if data.PVForecastHourly[h] >= demand {
				res.SufficiencyHour = h
				res.SufficiencyReached = true
			} else {
				res.RequiredSufficiencyKwh += demand
				res.PVSufficiencyKwh += data.PVForecastHourly[h]
			}
		}
	}
	return res
}
