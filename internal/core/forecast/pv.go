package forecast

import (
	"time"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/port"
)

// maxCompensationFactor bounds how far a good production day can inflate
// the forecast.
const maxCompensationFactor = 1.5

// detailAttrKeys are the forecast attribute names tried in order.
var detailAttrKeys = []string{"detailedHourly", "detailedForecast"}

// CompensationFactor derives a forecast correction from observed
// production: the ratio of yesterday's actual to yesterday's forecast,
// blended with today's partial ratio when both exist. Nil when neither
// ratio can be computed.
func CompensationFactor(reader port.StateReader, sensors config.SensorsConfig) *float64 {
	ry := productionRatio(reader, sensors.PVActualYesterday, sensors.PVForecastYesterday)
	rt := productionRatio(reader, sensors.PVActualToday, sensors.PVForecastTodayKwh)

	var factor float64
	switch {
	case ry != nil && rt != nil:
		factor = (*ry + 2**rt) / 3
	case ry != nil:
		factor = *ry
	case rt != nil:
		factor = *rt
	default:
		return nil
	}
	if factor > maxCompensationFactor {
		factor = maxCompensationFactor
	}
	return &factor
}

func productionRatio(reader port.StateReader, actualID, forecastID string) *float64 {
	actual := port.ReadFloat(reader, actualID)
	forecast := port.ReadFloat(reader, forecastID)
	if !actual.OK() || !forecast.OK() || forecast.Value <= 0 {
		return nil
	}
	r := actual.Value / forecast.Value
	return &r
}

// PVWindow sums the detailed hourly PV forecast over the half-open window
// [startHour, endHour), scaled by factor (efficiency times compensation,
// 1.0 for none). Window hours past midnight, and whole windows starting
// before nowHour, draw from the tomorrow forecast entity. A missing or
// attribute-less forecast entity contributes zero.
func PVWindow(reader port.StateReader, sensors config.SensorsConfig, startHour, endHour, nowHour int, factor float64) (float64, map[int]float64) {
	if factor <= 0 {
		factor = 1.0
	}
	today := hourlyFromEntity(reader, sensors.PVForecastToday)
	tomorrow := hourlyFromEntity(reader, sensors.PVForecastTomorrow)

	hourly := make(map[int]float64)
	total := 0.0
	useTomorrow := startHour < nowHour
	prev := -1
	for _, h := range calc.HourWindow(startHour, endHour) {
		if prev >= 0 && h < prev {
			useTomorrow = true
		}
		prev = h
		src := today
		if useTomorrow {
			src = tomorrow
		}
		v := src[h] * factor
		hourly[h] = v
		total += v
	}
	return total, hourly
}

// PVDayTotal sums every entry of one forecast entity, scaled by factor.
func PVDayTotal(reader port.StateReader, entityID string, factor float64) float64 {
	if factor <= 0 {
		factor = 1.0
	}
	total := 0.0
	for _, v := range hourlyFromEntity(reader, entityID) {
		total += v * factor
	}
	return total
}

// hourlyFromEntity buckets a detailed forecast attribute (a list of
// {period_start, pv_estimate}) to local hour of day.
func hourlyFromEntity(reader port.StateReader, entityID string) map[int]float64 {
	hourly := make(map[int]float64)
	if entityID == "" {
		return hourly
	}
	st := reader.GetState(entityID)
	if st == nil || st.Attributes == nil {
		return hourly
	}
	var entries []any
	for _, key := range detailAttrKeys {
		if raw, ok := st.Attributes[key].([]any); ok && len(raw) > 0 {
			entries = raw
			break
		}
	}
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		hour, ok := periodHour(m["period_start"])
		if !ok {
			continue
		}
		if v, ok := toFloat(m["pv_estimate"]); ok {
			hourly[hour] += v
		}
	}
	return hourly
}

// periodHour extracts the hour of day as carried by the timestamp's own
// offset. Forecast providers publish period starts in the site's local
// time, so no timezone conversion is applied.
func periodHour(v any) (int, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.Hour(), true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.Hour(), true
			}
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
