package engine

import (
	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
)

// RunAfternoonCharge tops the battery up at the start of the afternoon
// tariff when the reserve plus remaining PV cannot carry the evening.
// Scheduling a charge here means the grid assists the battery through the
// evening, which the evening behavior flow takes into account.
func (e *Engine) RunAfternoonCharge(margin *float64) (*domain.DecisionOutcome, error) {
	flow := chargeFlow{
		scenario:   "afternoon_charge",
		progEntity: e.Entry.Programs.Prog2Soc,
		window: func(int) (int, int) {
			return e.tariffEnd(), eveningWindowEnd
		},
		gap: func(run *chargeRun) float64 {
			b := run.Battery
			hours := run.Data.Hours
			usagePerHour := 0.0
			if hours > 0 {
				usagePerHour = (run.Data.UsageKwh + run.Data.HeatPumpKwh) / float64(hours)
			}
			required := calc.RequiredEnergy(usagePerHour, run.Data.LossesHourly, hours, b.Efficiency, run.Data.Margin)
			run.Details["required_energy_kwh"] = required
			return required - run.Balance.ReserveKwh - run.Data.PVForecastKwh
		},
		chargeKwh: func(gapKwh, efficiency float64) float64 {
			return gapKwh / (efficiency / 100)
		},
		noActionTarget: func(run *chargeRun) float64 {
			return run.Battery.MinSoc
		},
		noActionLowers: true,
		onScheduled: func(run *chargeRun) {
			e.state.GridAssist = true
		},
	}
	return e.runCharge(flow, margin)
}
