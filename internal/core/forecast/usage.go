package forecast

import (
	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/port"
)

// fallbackDailyLoadKwh is used when neither the daily load sensor nor a
// configured default is usable.
const fallbackDailyLoadKwh = 10.0

// HourlyUsage builds the 24-entry kWh-per-hour usage array. Each of the
// six 4-hour buckets (00-04 .. 20-24) takes its configured average sensor
// when one is set and readable; the rest fall back to a flat daily/24
// rate from the daily load sensor, the configured default, or the
// hardcoded fallback, in that order.
func HourlyUsage(reader port.StateReader, sensors config.SensorsConfig) [24]float64 {
	daily := fallbackDailyLoadKwh
	if sensors.DefaultDailyLoadKwh > 0 {
		daily = sensors.DefaultDailyLoadKwh
	}
	if r := port.ReadFloat(reader, sensors.DailyLoad); r.OK() && r.Value > 0 {
		daily = r.Value
	}
	flat := daily / 24

	var usage [24]float64
	for i := range usage {
		usage[i] = flat
	}
	for bucket, entityID := range sensors.UsageBuckets {
		if bucket >= 6 || entityID == "" {
			continue
		}
		r := port.ReadFloat(reader, entityID)
		if !r.OK() || r.Value < 0 {
			continue
		}
		for h := bucket * 4; h < (bucket+1)*4; h++ {
			usage[h] = r.Value
		}
	}
	return usage
}
