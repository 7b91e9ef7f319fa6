package forecast

import (
	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/port"
)

// HeatPumpWindow asks the external forecaster for the heat pump
// consumption over the window. A disabled feature, a nil service or any
// call failure contributes zero without error; the flows proceed on
// load-only demand.
func HeatPumpWindow(svc port.ForecastService, enabled bool, startHour, endHour int) (float64, map[int]float64) {
	if !enabled || svc == nil {
		return 0, map[int]float64{}
	}
	window := calc.HourWindow(startHour, endHour)
	if len(window) == 0 {
		return 0, map[int]float64{}
	}
	_, hourly, err := svc.HeatPumpForecast(startHour, len(window))
	if err != nil {
		return 0, map[int]float64{}
	}
	filtered := make(map[int]float64)
	total := 0.0
	for _, h := range window {
		if v, ok := hourly[h]; ok {
			filtered[h] = v
			total += v
		}
	}
	return total, filtered
}
