package calc

import "math"

// DefaultMargin is the safety multiplier applied to demand estimates.
const DefaultMargin = 1.1

// RequiredEnergy is the grid-side energy needed to cover hourlyUsage plus
// hourlyLosses over hours, corrected for battery efficiency and a safety
// margin. Returns 0 when efficiency is not positive.
func RequiredEnergy(hourlyUsage, hourlyLosses float64, hours int, efficiency, margin float64) float64 {
	if efficiency <= 0 || hours <= 0 {
		return 0
	}
	return (hourlyUsage + hourlyLosses) * float64(hours) / (efficiency / 100) * margin
}

// SurplusEnergy is the energy left over after required demand is covered by
// the reserve plus forecast PV. Never negative.
func SurplusEnergy(reserveKwh, requiredKwh, pvForecastKwh float64) float64 {
	return math.Max(reserveKwh+pvForecastKwh-requiredKwh, 0)
}

// NeededReserve is the demand not covered by forecast PV, ignoring the
// current battery state. Never negative.
func NeededReserve(requiredKwh, pvForecastKwh float64) float64 {
	return math.Max(requiredKwh-pvForecastKwh, 0)
}
