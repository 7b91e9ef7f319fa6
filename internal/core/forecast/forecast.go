package forecast

import (
	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"
)

// Inputs bundles the collaborators a forecast gathering run needs.
type Inputs struct {
	Reader   port.StateReader
	HeatPump port.ForecastService
	Entry    config.EntryConfig
	NowHour  int
	Margin   float64
}

// Gather builds the full demand/generation picture for one flow window.
// Returns the forecast data plus the applied PV compensation factor, nil
// when compensation is disabled or not computable.
func Gather(in Inputs, startHour, endHour int) (domain.ForecastData, *float64) {
	window := calc.HourWindow(startHour, endHour)

	usage := HourlyUsage(in.Reader, in.Entry.Sensors)
	usageKwh := 0.0
	for _, h := range window {
		usageKwh += usage[h]
	}

	hpKwh, hpHourly := HeatPumpWindow(in.HeatPump, in.Entry.HeatPump.Enabled, startHour, endHour)

	factor := 1.0
	if in.Entry.PVEfficiency > 0 {
		factor = in.Entry.PVEfficiency / 100
	}
	var comp *float64
	if in.Entry.CompensationEnabled {
		if comp = CompensationFactor(in.Reader, in.Entry.Sensors); comp != nil {
			factor *= *comp
		}
	}
	pvKwh, pvHourly := PVWindow(in.Reader, in.Entry.Sensors, startHour, endHour, in.NowHour, factor)

	margin := in.Margin
	if margin <= 0 {
		margin = calc.DefaultMargin
	}

	return domain.ForecastData{
		StartHour:        startHour,
		EndHour:          endHour,
		Hours:            len(window),
		HourlyUsage:      usage,
		UsageKwh:         usageKwh,
		HeatPumpKwh:      hpKwh,
		HeatPumpHourly:   hpHourly,
		PVForecastKwh:    pvKwh,
		PVForecastHourly: pvHourly,
		LossesHourly:     in.Entry.HourlyLossesKwh,
		LossesKwh:        in.Entry.HourlyLossesKwh * float64(len(window)),
		Margin:           margin,
	}, comp
}
