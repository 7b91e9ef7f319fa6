package engine

import (
	"fmt"
	"math"

	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"
)

// RunEveningSell handles the evening price peak. An exceptional price
// beats everything: the reserve above tonight's need is exported outright.
// Otherwise the flow looks across the whole night into tomorrow's cheap
// tariff and sells only what the night plus tomorrow morning cannot use.
func (e *Engine) RunEveningSell(margin *float64) (*domain.DecisionOutcome, error) {
	highPrice := e.eveningPriceHigh()
	flow := sellFlow{
		scenario:   "evening_sell",
		sellType:   domain.SellEvening,
		progEntity: e.Entry.Programs.Prog5Soc,
		window: func(nowHour int) (int, int) {
			if highPrice {
				return (nowHour + 1) % 24, eveningWindowEnd
			}
			return (nowHour + 1) % 24, e.tariffEnd()
		},
		evaluate: func(run *sellRun) (*domain.SellRequest, error) {
			if highPrice {
				return e.evaluateHighSell(run), nil
			}
			return e.evaluateSurplusSell(run), nil
		},
	}
	return e.runSell(flow, margin)
}

func (e *Engine) eveningPriceHigh() bool {
	if e.Entry.Sell.HighPriceThreshold <= 0 {
		return false
	}
	price := port.ReadFloat(e.Reader, e.Entry.Sensors.EveningSellPrice)
	return price.OK() && price.Value > e.Entry.Sell.HighPriceThreshold
}

// evaluateHighSell sells everything above tonight's demand while the
// price spike lasts.
func (e *Engine) evaluateHighSell(run *sellRun) *domain.SellRequest {
	b := run.Battery
	reserve := calc.BatteryReserve(run.BatterySoc, b.MinSoc, b.CapacityAh, b.Voltage, b.Efficiency)
	surplus := calc.SurplusEnergy(reserve, run.Suff.RequiredKwh, 0)

	run.Details["reserve_kwh"] = reserve
	run.Details["required_kwh"] = run.Suff.RequiredKwh
	details := e.sellDetails(run)

	return &domain.SellRequest{
		SurplusKwh: surplus,
		BuildOutcome: func(targetSoc, surplusKwh float64, exportW int) domain.DecisionOutcome {
			details["target_soc"] = targetSoc
			details["surplus_kwh"] = surplusKwh
			details["export_w"] = exportW
			return domain.DecisionOutcome{
				Scenario: "evening_sell",
				Action:   domain.ActionHighSell,
				Summary:  fmt.Sprintf("evening high sell: exporting %.2f kWh at %dW down to %.0f%%", surplusKwh, exportW, targetSoc),
				KeyMetrics: []domain.Metric{
					{Name: "surplus_kwh", Value: kwhStr(surplusKwh)},
					{Name: "target_soc", Value: socStr(targetSoc)},
				},
				FullDetails: details,
			}
		},
		BuildNoAction: func(surplusKwh float64) domain.DecisionOutcome {
			details["surplus_kwh"] = surplusKwh
			return domain.DecisionOutcome{
				Scenario:    "evening_sell",
				Action:      domain.ActionNoAction,
				Summary:     "evening high sell: reserve fully needed tonight",
				Reason:      "no_surplus",
				FullDetails: details,
				KeyMetrics: []domain.Metric{
					{Name: "surplus_kwh", Value: kwhStr(surplusKwh)},
				},
			}
		},
	}
}

// evaluateSurplusSell sells the reserve the night and tomorrow's cheap
// window will not consume. Without a PV sufficiency point tomorrow the
// whole reserve stays put.
func (e *Engine) evaluateSurplusSell(run *sellRun) *domain.SellRequest {
	b := run.Battery
	reserve := calc.BatteryReserve(run.BatterySoc, b.MinSoc, b.CapacityAh, b.Voltage, b.Efficiency)

	required := run.Suff.RequiredSufficiencyKwh
	pv := run.Suff.PVSufficiencyKwh
	needed := math.Max(required-pv, 0)
	surplus := math.Max(reserve-needed, 0)

	// the battery should not sell more than today's PV put in: clamp to
	// today's production so far plus what today can still produce
	todayPV := 0.0
	for h := run.NowHour + 1; h < 24; h++ {
		todayPV += run.Data.PVForecastHourly[h]
	}
	if actual := port.ReadFloat(e.Reader, e.Entry.Sensors.PVActualToday); actual.OK() {
		run.ClampPVKwh = math.Max(actual.Value, 0) + todayPV
	}

	run.Details["reserve_kwh"] = reserve
	run.Details["needed_kwh"] = needed
	run.Details["today_pv_kwh"] = todayPV
	run.Details["sufficiency_hour"] = run.Suff.SufficiencyHour
	details := e.sellDetails(run)

	if !run.Suff.SufficiencyReached {
		// force the no-action path through the shared tail
		surplus = 0
		details["reason_detail"] = "sufficiency_not_reached"
	}

	return &domain.SellRequest{
		SurplusKwh: surplus,
		BuildOutcome: func(targetSoc, surplusKwh float64, exportW int) domain.DecisionOutcome {
			details["target_soc"] = targetSoc
			details["surplus_kwh"] = surplusKwh
			details["export_w"] = exportW
			return domain.DecisionOutcome{
				Scenario: "evening_sell",
				Action:   domain.ActionSell,
				Summary:  fmt.Sprintf("evening sell: exporting %.2f kWh at %dW down to %.0f%%", surplusKwh, exportW, targetSoc),
				KeyMetrics: []domain.Metric{
					{Name: "surplus_kwh", Value: kwhStr(surplusKwh)},
					{Name: "target_soc", Value: socStr(targetSoc)},
				},
				FullDetails: details,
			}
		},
		BuildNoAction: func(surplusKwh float64) domain.DecisionOutcome {
			reason := "no_surplus"
			if !run.Suff.SufficiencyReached {
				reason = "sufficiency_not_reached"
			}
			details["surplus_kwh"] = surplusKwh
			return domain.DecisionOutcome{
				Scenario:    "evening_sell",
				Action:      domain.ActionNoAction,
				Summary:     "evening sell: reserve needed through tomorrow morning",
				Reason:      reason,
				FullDetails: details,
				KeyMetrics: []domain.Metric{
					{Name: "surplus_kwh", Value: kwhStr(surplusKwh)},
				},
			}
		},
	}
}
