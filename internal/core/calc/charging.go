package calc

import "math"

// chargePhase is one segment of the inverter's tapering charge curve.
// Batteries accept less current as SOC rises, so the rated current drops
// per phase.
type chargePhase struct {
	upToSoc float64
	current float64
}

var chargePhases = []chargePhase{
	{upToSoc: 50, current: 23},
	{upToSoc: 70, current: 18},
	{upToSoc: 90, current: 9},
	{upToSoc: 100, current: 5},
}

// DefaultChargeTargetTime is the time budget, in hours, a scheduled charge
// should complete within.
const DefaultChargeTargetTime = 2.0

// MaxChargeCurrent is the first phase's rated current, the most the
// charger is ever asked for.
const MaxChargeCurrent = 23.0

func phaseFor(soc float64) chargePhase {
	for _, p := range chargePhases {
		if soc < p.upToSoc {
			return p
		}
	}
	return chargePhases[len(chargePhases)-1]
}

// ChargeCurrent recommends an integer charge current (A) to deliver
// energyKwh starting from currentSoc within targetTime hours.
//
// It walks the charge phases between the current and the target SOC,
// summing the time each phase needs at its rated current. If the battery
// can absorb the energy faster than the time budget, the starting phase's
// rated current is scaled down so the charge finishes near the budget
// instead of overshooting it. If even the rated currents cannot meet the
// budget, the first phase's rated current is used as the ceiling.
// Returns 0 when there is nothing to charge.
func ChargeCurrent(energyKwh, currentSoc, capacityAh, voltage, targetTime float64) int {
	if energyKwh <= 0 || capacityAh <= 0 || voltage <= 0 {
		return 0
	}
	if targetTime <= 0 {
		targetTime = DefaultChargeTargetTime
	}
	targetSoc := math.Min(currentSoc+KwhToSoc(energyKwh, capacityAh, voltage), 100)
	if targetSoc <= currentSoc {
		return 0
	}

	totalTime := 0.0
	soc := currentSoc
	for _, p := range chargePhases {
		if soc >= targetSoc {
			break
		}
		upper := math.Min(p.upToSoc, targetSoc)
		if upper <= soc {
			continue
		}
		phaseKwh := SocToKwh(upper-soc, capacityAh, voltage)
		powerKw := p.current * voltage / 1000
		if powerKw > 0 {
			totalTime += phaseKwh / powerKw
		}
		soc = upper
	}

	start := phaseFor(currentSoc)
	if totalTime > targetTime {
		return int(math.Ceil(chargePhases[0].current))
	}
	scaled := start.current * totalTime / targetTime
	if scaled > start.current {
		scaled = start.current
	}
	amps := int(math.Ceil(scaled))
	if amps < 1 {
		amps = 1
	}
	return amps
}
