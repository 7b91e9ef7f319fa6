package calc

// CopPoint is one sample of a heat pump coefficient-of-performance curve.
type CopPoint struct {
	Temp float64
	Cop  float64
}

// DefaultCopCurve is a generic air-to-water heat pump curve, outdoor
// temperature to COP.
var DefaultCopCurve = []CopPoint{
	{Temp: -20, Cop: 2.0},
	{Temp: -10, Cop: 2.5},
	{Temp: 0, Cop: 3.2},
	{Temp: 10, Cop: 4.0},
	{Temp: 20, Cop: 5.0},
}

// heatingThreshold is the outdoor temperature above which no heating is
// assumed.
const heatingThreshold = 18.0

// InterpolateCop looks up the COP for temp on a curve sorted by
// temperature, linearly interpolating between points and clamping to the
// endpoint values outside the curve range.
func InterpolateCop(temp float64, curve []CopPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	if temp <= curve[0].Temp {
		return curve[0].Cop
	}
	last := curve[len(curve)-1]
	if temp >= last.Temp {
		return last.Cop
	}
	for i := 1; i < len(curve); i++ {
		a, b := curve[i-1], curve[i]
		if temp <= b.Temp {
			span := b.Temp - a.Temp
			if span <= 0 {
				return a.Cop
			}
			frac := (temp - a.Temp) / span
			return a.Cop + frac*(b.Cop-a.Cop)
		}
	}
	return last.Cop
}

// HeatingHours estimates how many hours of a day the heat pump runs, from
// the day's average, minimum and maximum outdoor temperatures. Zero when
// the average is at or above the heating threshold, the full day when even
// the maximum stays below it, otherwise a linear fraction of the daily
// temperature range, clamped to [0, 24].
func HeatingHours(avgTemp, minTemp, maxTemp float64) float64 {
	if avgTemp >= heatingThreshold {
		return 0
	}
	if maxTemp < heatingThreshold {
		return 24
	}
	span := maxTemp - minTemp
	if span <= 0 {
		return 24
	}
	hours := 24 * (heatingThreshold - avgTemp) / span
	if hours < 0 {
		return 0
	}
	if hours > 24 {
		return 24
	}
	return hours
}
