package engine

import (
	"fmt"

	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
)

// RunMorningSell discharges the reserve left over after the day's needs
// into the morning price peak. The demand window ends at the sufficiency
// hour: once PV covers load, holding reserve for later hours is wasted.
func (e *Engine) RunMorningSell(margin *float64) (*domain.DecisionOutcome, error) {
	flow := sellFlow{
		scenario:   "morning_sell",
		sellType:   domain.SellMorning,
		progEntity: e.Entry.Programs.Prog3Soc,
		window: func(nowHour int) (int, int) {
			return (nowHour + 1) % 24, e.tariffEnd()
		},
		evaluate: func(run *sellRun) (*domain.SellRequest, error) {
			b := run.Battery
			reserve := calc.BatteryReserve(run.BatterySoc, b.MinSoc, b.CapacityAh, b.Voltage, b.Efficiency)

			required := run.Suff.RequiredKwh
			pv := run.Data.PVForecastKwh
			if run.Suff.SufficiencyReached {
				required = run.Suff.RequiredSufficiencyKwh
				pv = run.Suff.PVSufficiencyKwh
			}
			surplus := calc.SurplusEnergy(reserve, required, pv)

			run.Details["reserve_kwh"] = reserve
			run.Details["required_kwh"] = required
			run.Details["pv_kwh"] = pv
			run.Details["sufficiency_hour"] = run.Suff.SufficiencyHour

			details := e.sellDetails(run)
			return &domain.SellRequest{
				SurplusKwh: surplus,
				BuildOutcome: func(targetSoc, surplusKwh float64, exportW int) domain.DecisionOutcome {
					details["target_soc"] = targetSoc
					details["surplus_kwh"] = surplusKwh
					details["export_w"] = exportW
					return domain.DecisionOutcome{
						Scenario: "morning_sell",
						Action:   domain.ActionSell,
						Summary:  fmt.Sprintf("morning sell: exporting %.2f kWh at %dW down to %.0f%%", surplusKwh, exportW, targetSoc),
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
						Scenario: "morning_sell",
						Action:   domain.ActionNoAction,
						Summary:  "morning sell: no sellable surplus",
						Reason:   "no_surplus",
						KeyMetrics: []domain.Metric{
							{Name: "surplus_kwh", Value: kwhStr(surplusKwh)},
						},
						FullDetails: details,
					}
				},
			}, nil
		},
	}
	return e.runSell(flow, margin)
}

func (e *Engine) sellDetails(run *sellRun) map[string]any {
	details := map[string]any{
		"window_start":    run.Data.StartHour,
		"window_end":      run.Data.EndHour,
		"hours":           run.Data.Hours,
		"usage_kwh":       run.Data.UsageKwh,
		"pv_forecast_kwh": run.Data.PVForecastKwh,
		"battery_soc":     run.BatterySoc,
		"program_soc":     run.ProgSoc,
		"work_mode":       run.WorkMode,
		"margin":          run.Data.Margin,
	}
	for k, v := range run.Details {
		details[k] = v
	}
	return details
}
