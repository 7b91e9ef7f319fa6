package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/forecast"
)

// chargeRun is the shared context a charge flow evaluates on.
type chargeRun struct {
	Battery    domain.BatteryConfig
	Now        time.Time
	NowHour    int
	ProgEntity string
	ProgSoc    float64
	BatterySoc float64
	Data       domain.ForecastData
	Suff       domain.SufficiencyResult
	Balance    domain.EnergyBalance
	Comp       *float64
	// Details accumulates flow-specific diagnostics for the outcome.
	Details map[string]any
}

// chargeFlow parameterizes the shared charge run loop. Each concrete flow
// supplies its window, deficit computation and no-action fallback; the
// loop owns sensor reads, forecast gathering, writes and emission.
type chargeFlow struct {
	scenario   string
	progEntity string
	window     func(nowHour int) (int, int)
	// preCheck may short-circuit the run with an outcome (emitted) before
	// any forecast work happens.
	preCheck func() *domain.DecisionOutcome
	// gap returns the energy deficit to resolve, in kWh. Zero or negative
	// means no charge is needed.
	gap func(run *chargeRun) float64
	// chargeKwh converts a deficit to the energy the charger must deliver.
	chargeKwh func(gapKwh, efficiency float64) float64
	// noActionTarget is the fallback program SOC written when no charge is
	// scheduled, keeping the setpoint loosely tracking need. Only raises
	// are written unless noActionLowers is set: a setpoint already above
	// the need does no harm overnight.
	noActionTarget func(run *chargeRun) float64
	noActionLowers bool
	onScheduled    func(run *chargeRun)
}

func (e *Engine) runCharge(flow chargeFlow, marginOverride *float64) (*domain.DecisionOutcome, error) {
	progSoc, err := e.readRequired(flow.progEntity, flow.scenario+" program SOC")
	if err != nil {
		return nil, err
	}
	batterySoc, err := e.readRequired(e.Entry.Sensors.BatterySoc, "battery SOC")
	if err != nil {
		return nil, err
	}

	if flow.preCheck != nil {
		if outcome := flow.preCheck(); outcome != nil {
			if err := e.emit(outcome); err != nil {
				return nil, err
			}
			return outcome, nil
		}
	}

	now := e.Now()
	start, end := flow.window(now.Hour())
	margin := e.margin(marginOverride)
	data, comp := forecast.Gather(forecast.Inputs{
		Reader:   e.Reader,
		HeatPump: e.HeatPump,
		Entry:    e.Entry,
		NowHour:  now.Hour(),
		Margin:   margin,
	}, start, end)
	suff := Sufficiency(data)

	b := e.battery()
	reserve := calc.BatteryReserve(batterySoc, b.MinSoc, b.CapacityAh, b.Voltage, b.Efficiency)

	run := &chargeRun{
		Battery:    b,
		Now:        now,
		NowHour:    now.Hour(),
		ProgEntity: flow.progEntity,
		ProgSoc:    progSoc,
		BatterySoc: batterySoc,
		Data:       data,
		Suff:       suff,
		Comp:       comp,
		Details:    map[string]any{},
	}
	run.Balance = domain.EnergyBalance{
		ReserveKwh:       reserve,
		RequiredKwh:      suff.RequiredKwh,
		NeededReserveKwh: calc.NeededReserve(suff.RequiredKwh, data.PVForecastKwh),
		PVCompensation:   comp,
	}
	run.Balance.GapKwh = flow.gap(run)

	details := e.chargeDetails(run)
	for k, v := range run.Details {
		details[k] = v
	}

	var changes []domain.EntityChange
	if run.Balance.GapKwh <= 0 {
		target := clampSoc(flow.noActionTarget(run), b.MinSoc, b.MaxSoc)
		if target-progSoc > 0.01 || (flow.noActionLowers && math.Abs(target-progSoc) > 0.01) {
			if err := e.setProgramSoc(flow.progEntity, target, &changes); err != nil {
				return nil, err
			}
		}
		details["fallback_target_soc"] = target
		outcome := &domain.DecisionOutcome{
			Scenario: flow.scenario,
			Action:   domain.ActionNoAction,
			Summary:  fmt.Sprintf("%s: no charge needed, reserve %.2f kWh covers %.2f kWh", flow.scenario, reserve, suff.RequiredKwh),
			KeyMetrics: []domain.Metric{
				{Name: "reserve_kwh", Value: kwhStr(reserve)},
				{Name: "required_kwh", Value: kwhStr(suff.RequiredKwh)},
			},
			FullDetails:     details,
			EntitiesChanged: changes,
		}
		if err := e.emit(outcome); err != nil {
			return nil, err
		}
		return outcome, nil
	}

	chargeKwh := flow.chargeKwh(run.Balance.GapKwh, b.Efficiency)
	targetSoc := math.Min(batterySoc+calc.KwhToSoc(chargeKwh, b.CapacityAh, b.Voltage), b.MaxSoc)
	amps := calc.ChargeCurrent(chargeKwh, batterySoc, b.CapacityAh, b.Voltage, calc.DefaultChargeTargetTime)

	if err := e.setProgramSoc(flow.progEntity, targetSoc, &changes); err != nil {
		return nil, err
	}
	if e.Entry.Programs.ChargeCurrent != "" {
		if err := e.setNumber(e.Entry.Programs.ChargeCurrent, float64(amps), &changes); err != nil {
			return nil, err
		}
	}
	if flow.onScheduled != nil {
		flow.onScheduled(run)
	}

	details["charge_kwh"] = chargeKwh
	details["target_soc"] = targetSoc
	details["charge_current_a"] = amps
	outcome := &domain.DecisionOutcome{
		Scenario: flow.scenario,
		Action:   domain.ActionChargeScheduled,
		Summary:  fmt.Sprintf("%s: charging %.2f kWh to %.0f%% at %dA", flow.scenario, chargeKwh, math.Ceil(targetSoc), amps),
		KeyMetrics: []domain.Metric{
			{Name: "charge_kwh", Value: kwhStr(chargeKwh)},
			{Name: "target_soc", Value: socStr(targetSoc)},
			{Name: "gap_kwh", Value: kwhStr(run.Balance.GapKwh)},
		},
		FullDetails:     details,
		EntitiesChanged: changes,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// sellRun is the shared context of a sell flow.
type sellRun struct {
	Battery    domain.BatteryConfig
	Now        time.Time
	NowHour    int
	ProgEntity string
	ProgSoc    float64
	BatterySoc float64
	WorkMode   string
	Data       domain.ForecastData
	Suff       domain.SufficiencyResult
	// ClampPVKwh bounds the sellable surplus to today's remaining PV
	// production. Negative disables the clamp.
	ClampPVKwh float64
	Details    map[string]any
}

type sellFlow struct {
	scenario   string
	sellType   domain.SellType
	progEntity string
	window     func(nowHour int) (int, int)
	// evaluate computes the surplus and the outcome builders. The shared
	// tail executes the request uniformly.
	evaluate func(run *sellRun) (*domain.SellRequest, error)
}

func (e *Engine) runSell(flow sellFlow, marginOverride *float64) (*domain.DecisionOutcome, error) {
	progSoc, err := e.readRequired(flow.progEntity, flow.scenario+" program SOC")
	if err != nil {
		return nil, err
	}
	batterySoc, err := e.readRequired(e.Entry.Sensors.BatterySoc, "battery SOC")
	if err != nil {
		return nil, err
	}
	workMode, err := e.readOption(e.Entry.Programs.WorkMode, "inverter work mode")
	if err != nil {
		return nil, err
	}

	now := e.Now()
	start, end := flow.window(now.Hour())
	margin := e.margin(marginOverride)
	data, _ := forecast.Gather(forecast.Inputs{
		Reader:   e.Reader,
		HeatPump: e.HeatPump,
		Entry:    e.Entry,
		NowHour:  now.Hour(),
		Margin:   margin,
	}, start, end)

	run := &sellRun{
		Battery:    e.battery(),
		Now:        now,
		NowHour:    now.Hour(),
		ProgEntity: flow.progEntity,
		ProgSoc:    progSoc,
		BatterySoc: batterySoc,
		WorkMode:   workMode,
		Data:       data,
		Suff:       Sufficiency(data),
		ClampPVKwh: -1,
		Details:    map[string]any{},
	}
	req, err := flow.evaluate(run)
	if err != nil {
		return nil, err
	}
	return e.runSellTail(flow, run, req)
}

// runSellTail is the uniform end of every sell decision: clamp the
// surplus, derive the target SOC, persist the restore payload, write the
// setpoints and emit through the request's builders.
func (e *Engine) runSellTail(flow sellFlow, run *sellRun, req *domain.SellRequest) (*domain.DecisionOutcome, error) {
	surplus := req.SurplusKwh
	if run.ClampPVKwh >= 0 && surplus > run.ClampPVKwh {
		surplus = run.ClampPVKwh
	}
	b := run.Battery

	noAction := func() (*domain.DecisionOutcome, error) {
		outcome := req.BuildNoAction(surplus)
		if err := e.emit(&outcome); err != nil {
			return nil, err
		}
		return &outcome, nil
	}

	if surplus <= 0 {
		return noAction()
	}
	targetSoc := math.Max(run.BatterySoc-calc.KwhToSoc(surplus, b.CapacityAh, b.Voltage), b.MinSoc)
	if targetSoc >= run.BatterySoc {
		return noAction()
	}

	exportW := int(math.Min(surplus*1000, e.maxExportPowerW()))

	if e.Store != nil {
		payload := domain.RestorePayload{
			WorkMode:      run.WorkMode,
			ProgSocEntity: flow.progEntity,
			ProgSocValue:  run.ProgSoc,
			RestoreHour:   (run.NowHour + 1) % 24,
			SellType:      flow.sellType,
			Timestamp:     run.Now,
		}
		if err := e.Store.Save(e.restoreKey(flow.sellType), payload); err != nil {
			return nil, err
		}
	}

	var changes []domain.EntityChange
	if err := e.setProgramSoc(flow.progEntity, targetSoc, &changes); err != nil {
		return nil, err
	}
	if err := e.selectOption(e.Entry.Programs.WorkMode, e.exportWorkMode(), &changes); err != nil {
		return nil, err
	}
	if e.Entry.Programs.ExportPower != "" {
		if err := e.setNumber(e.Entry.Programs.ExportPower, float64(exportW), &changes); err != nil {
			return nil, err
		}
	}

	outcome := req.BuildOutcome(targetSoc, surplus, exportW)
	outcome.EntitiesChanged = changes
	if err := e.emit(&outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (e *Engine) maxExportPowerW() float64 {
	if e.Entry.Sell.MaxExportPowerW > 0 {
		return e.Entry.Sell.MaxExportPowerW
	}
	return 5000
}

func (e *Engine) exportWorkMode() string {
	if e.Entry.Sell.ExportWorkMode != "" {
		return e.Entry.Sell.ExportWorkMode
	}
	return "Export First"
}

func (e *Engine) chargeDetails(run *chargeRun) map[string]any {
	details := map[string]any{
		"window_start":       run.Data.StartHour,
		"window_end":         run.Data.EndHour,
		"hours":              run.Data.Hours,
		"usage_kwh":          run.Data.UsageKwh,
		"heat_pump_kwh":      run.Data.HeatPumpKwh,
		"losses_kwh":         run.Data.LossesKwh,
		"pv_forecast_kwh":    run.Data.PVForecastKwh,
		"margin":             run.Data.Margin,
		"battery_soc":        run.BatterySoc,
		"program_soc":        run.ProgSoc,
		"reserve_kwh":        run.Balance.ReserveKwh,
		"required_kwh":       run.Balance.RequiredKwh,
		"needed_reserve_kwh": run.Balance.NeededReserveKwh,
		"gap_kwh":            run.Balance.GapKwh,
		"sufficiency_hour":   run.Suff.SufficiencyHour,
		"sufficiency":        run.Suff.SufficiencyReached,
	}
	if run.Comp != nil {
		details["pv_compensation"] = *run.Comp
	}
	return details
}

func clampSoc(soc, minSoc, maxSoc float64) float64 {
	if soc < minSoc {
		return minSoc
	}
	if soc > maxSoc {
		return maxSoc
	}
	return soc
}
