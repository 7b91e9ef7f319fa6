package calc

// SocToKwh converts a SOC delta (percent points) to stored energy.
func SocToKwh(soc, capacityAh, voltage float64) float64 {
	return soc / 100 * capacityAh * voltage / 1000
}

// KwhToSoc converts stored energy to SOC percent points. Returns 0 when
// capacity or voltage is 0 so callers never divide by zero.
func KwhToSoc(kwh, capacityAh, voltage float64) float64 {
	if capacityAh <= 0 || voltage <= 0 {
		return 0
	}
	return kwh * 1000 / (capacityAh * voltage) * 100
}

// TotalCapacityKwh is the full battery capacity.
func TotalCapacityKwh(capacityAh, voltage float64) float64 {
	return capacityAh * voltage / 1000
}

// UsableCapacityKwh is the capacity between min and max SOC.
func UsableCapacityKwh(minSoc, maxSoc, capacityAh, voltage float64) float64 {
	if maxSoc <= minSoc {
		return 0
	}
	return SocToKwh(maxSoc-minSoc, capacityAh, voltage)
}

// BatteryReserve is the dischargeable energy above minSoc, scaled by the
// round-trip efficiency percent. Zero at or below minSoc.
func BatteryReserve(currentSoc, minSoc, capacityAh, voltage, efficiency float64) float64 {
	if currentSoc <= minSoc || efficiency <= 0 {
		return 0
	}
	return SocToKwh(currentSoc-minSoc, capacityAh, voltage) * efficiency / 100
}

// BatterySpace is the chargeable energy below maxSoc. Zero at or above maxSoc.
func BatterySpace(currentSoc, maxSoc, capacityAh, voltage float64) float64 {
	if currentSoc >= maxSoc {
		return 0
	}
	return SocToKwh(maxSoc-currentSoc, capacityAh, voltage)
}
