package engine

import (
	"math"

	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"
)

const (
	morningWindowStart = 6
	defaultTariffEnd   = 13
	defaultMorningSell = 7
	defaultEveningSell = 17
	eveningWindowEnd   = 22
)

// tariffEnd is the hour the cheap night tariff ends, which also opens the
// afternoon window.
func (e *Engine) tariffEnd() int {
	if e.Entry.TariffEndHour > 0 && e.Entry.TariffEndHour <= 23 {
		return e.Entry.TariffEndHour
	}
	return defaultTariffEnd
}

// priceHour reads an hour-valued price sensor, falling back to def when
// the sensor is unusable or out of range.
func (e *Engine) priceHour(entityID string, def int) int {
	r := port.ReadFloat(e.Reader, entityID)
	if r.OK() {
		h := int(r.Value)
		if h >= 0 && h <= 23 {
			return h
		}
	}
	return def
}

// RunMorningCharge sizes a cheap-tariff charge covering the day's demand
// until PV takes over, plus any arbitrage headroom for the morning peak
// sell. Skips itself while an overnight balancing cycle is running.
func (e *Engine) RunMorningCharge(margin *float64) (*domain.DecisionOutcome, error) {
	flow := chargeFlow{
		scenario:   "morning_charge",
		progEntity: e.Entry.Programs.Prog2Soc,
		window: func(int) (int, int) {
			return morningWindowStart, e.tariffEnd()
		},
		preCheck: func() *domain.DecisionOutcome {
			if !e.state.BalancingOngoing {
				return nil
			}
			e.state.BalancingOngoing = false
			return &domain.DecisionOutcome{
				Scenario: "morning_charge",
				Action:   domain.ActionNoAction,
				Summary:  "morning charge skipped: balancing in progress",
				Reason:   "balancing_ongoing",
			}
		},
		gap: func(run *chargeRun) float64 {
			b := run.Battery
			reserve := run.Balance.ReserveKwh
			plain := run.Suff.RequiredKwh - reserve - run.Data.PVForecastKwh
			bounded := run.Suff.RequiredSufficiencyKwh - reserve - run.Suff.PVSufficiencyKwh
			deficit := math.Max(math.Max(plain, bounded), 0)

			arb := Arbitrage(ArbitrageInputs{
				SellPrice:        port.ReadFloat(e.Reader, e.Entry.Sensors.MorningSellPrice),
				MinPrice:         e.Entry.Sell.ArbitrageMinPrice,
				CapKwh:           e.arbitrageCap(),
				FullCapacityKwh:  calc.TotalCapacityKwh(b.CapacityAh, b.Voltage),
				CurrentEnergyKwh: calc.SocToKwh(run.BatterySoc, b.CapacityAh, b.Voltage),
				RequiredKwh:      run.Suff.RequiredKwh,
				NowHour:          run.NowHour,
				WindowStart:      run.Data.StartHour,
				WindowEnd:        run.Data.EndHour,
				SellStartHour:    e.priceHour(e.Entry.Sensors.MorningMaxPriceHour, defaultMorningSell),
				PVHourly:         run.Data.PVForecastHourly,
				Demand: func(h int) float64 {
					return hourlyDemand(run.Data, h)
				},
			})
			run.Details["deficit_kwh"] = deficit
			run.Details["deficit_sufficiency_kwh"] = math.Max(bounded, 0)
			run.Details["arbitrage_kwh"] = arb.Kwh
			run.Details["arbitrage_reason"] = arb.Reason
			return deficit + arb.Kwh
		},
		chargeKwh: func(gapKwh, efficiency float64) float64 {
			// grid energy charged through the battery crosses the
			// conversion loss twice before it serves load
			f := efficiency / 100
			return gapKwh / (f * f)
		},
		noActionTarget: func(run *chargeRun) float64 {
			b := run.Battery
			boundedNeed := math.Max(run.Suff.RequiredSufficiencyKwh-run.Suff.PVSufficiencyKwh, 0)
			need := math.Max(run.Balance.NeededReserveKwh, boundedNeed)
			return b.MinSoc + calc.KwhToSoc(need, b.CapacityAh, b.Voltage)
		},
	}
	return e.runCharge(flow, margin)
}

// arbitrageCap prefers the configured fixed cap over the remaining
// forecast sensor.
func (e *Engine) arbitrageCap() domain.FloatReading {
	if e.Entry.Sell.ArbitrageCapKwh > 0 {
		return domain.OkReading("", e.Entry.Sell.ArbitrageCapKwh)
	}
	return port.ReadFloat(e.Reader, e.Entry.Sensors.RemainingForecast)
}
