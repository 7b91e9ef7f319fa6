package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/acazau/gridpilot/internal/core/calc"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/forecast"
)

// RunEveningBehavior decides how the battery passes the night. Three
// mutually exclusive branches, evaluated in priority order: a due
// balancing cycle on a dark forecast, preservation of the current charge
// when tomorrow cannot refill it, or restoring the normal overnight
// setpoints. Later branches assume the earlier ones did not fire; keep
// this order.
func (e *Engine) RunEveningBehavior(margin *float64) (*domain.DecisionOutcome, error) {
	prog6Soc, err := e.readRequired(e.Entry.Programs.Prog6Soc, "evening program SOC")
	if err != nil {
		return nil, err
	}
	batterySoc, err := e.readRequired(e.Entry.Sensors.BatterySoc, "battery SOC")
	if err != nil {
		return nil, err
	}

	// the flag only survives from one evening run to the next morning
	e.state.BalancingOngoing = false
	gridAssist := e.state.GridAssist
	e.state.GridAssist = false

	now := e.Now()
	b := e.battery()

	factor := e.pvFactor()
	var comp *float64
	if e.Entry.CompensationEnabled {
		if comp = forecast.CompensationFactor(e.Reader, e.Entry.Sensors); comp != nil {
			factor *= *comp
		}
	}
	pvTomorrow := forecast.PVDayTotal(e.Reader, e.Entry.Sensors.PVForecastTomorrow, factor)

	data, _ := forecast.Gather(forecast.Inputs{
		Reader:   e.Reader,
		HeatPump: e.HeatPump,
		Entry:    e.Entry,
		NowHour:  now.Hour(),
		Margin:   e.margin(margin),
	}, eveningWindowEnd, e.tariffEnd())
	suff := Sufficiency(data)
	reserve := calc.BatteryReserve(batterySoc, b.MinSoc, b.CapacityAh, b.Voltage, b.Efficiency)
	neededSufficiency := math.Max(suff.RequiredSufficiencyKwh-suff.PVSufficiencyKwh, 0)
	space := calc.BatterySpace(batterySoc, b.MaxSoc, b.CapacityAh, b.Voltage)

	details := map[string]any{
		"battery_soc":            batterySoc,
		"prog6_soc":              prog6Soc,
		"reserve_kwh":            reserve,
		"needed_sufficiency_kwh": neededSufficiency,
		"battery_space_kwh":      space,
		"pv_tomorrow_kwh":        pvTomorrow,
		"grid_assist":            gridAssist,
		"sufficiency_hour":       suff.SufficiencyHour,
	}
	if comp != nil {
		details["pv_compensation"] = *comp
	}

	if e.balancingDue(now) && pvTomorrow < e.Entry.Balancing.PVThresholdKwh {
		return e.eveningBalancing(details)
	}

	reserveInsufficient := reserve < neededSufficiency
	pvBelowSpace := pvTomorrow < space
	if gridAssist || reserveInsufficient || pvBelowSpace {
		return e.eveningPreservation(batterySoc, neededSufficiency, b, details,
			preservationReason(gridAssist, reserveInsufficient))
	}

	if prog6Soc > b.MinSoc+0.01 {
		return e.eveningRestoration(b, details)
	}

	outcome := &domain.DecisionOutcome{
		Scenario:    "evening_behavior",
		Action:      domain.ActionNoAction,
		Summary:     "evening: overnight setpoints already normal",
		FullDetails: details,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (e *Engine) balancingDue(now time.Time) bool {
	interval := e.Entry.Balancing.IntervalDays
	if interval <= 0 {
		interval = 14
	}
	if e.state.LastBalancing == nil {
		return true
	}
	return now.Sub(*e.state.LastBalancing).Hours() >= float64(interval)*24
}

// eveningBalancing drives a full-charge equalization cycle overnight:
// every program slot to max SOC at the maximum charge current.
func (e *Engine) eveningBalancing(details map[string]any) (*domain.DecisionOutcome, error) {
	b := e.battery()
	var changes []domain.EntityChange
	for _, entity := range []string{e.Entry.Programs.Prog1Soc, e.Entry.Programs.Prog2Soc, e.Entry.Programs.Prog6Soc} {
		if entity == "" {
			continue
		}
		if err := e.setProgramSoc(entity, b.MaxSoc, &changes); err != nil {
			return nil, err
		}
	}
	if e.Entry.Programs.ChargeCurrent != "" {
		if err := e.setNumber(e.Entry.Programs.ChargeCurrent, calc.MaxChargeCurrent, &changes); err != nil {
			return nil, err
		}
	}
	e.state.BalancingOngoing = true
	e.state.HighSocSince = nil

	outcome := &domain.DecisionOutcome{
		Scenario: "evening_behavior",
		Action:   domain.ActionBalancingEnabled,
		Summary:  fmt.Sprintf("evening: balancing cycle started, charging to %.0f%%", b.MaxSoc),
		KeyMetrics: []domain.Metric{
			{Name: "target_soc", Value: socStr(b.MaxSoc)},
		},
		FullDetails:     details,
		EntitiesChanged: changes,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// eveningPreservation locks the overnight programs at the battery's
// current level so a dim tomorrow starts from everything we have now.
func (e *Engine) eveningPreservation(batterySoc, neededSufficiency float64, b domain.BatteryConfig, details map[string]any, reason string) (*domain.DecisionOutcome, error) {
	morningTarget := b.MinSoc + calc.KwhToSoc(neededSufficiency, b.CapacityAh, b.Voltage)
	target := clampSoc(math.Min(morningTarget, batterySoc), b.MinSoc, b.MaxSoc)

	var changes []domain.EntityChange
	for _, entity := range []string{e.Entry.Programs.Prog1Soc, e.Entry.Programs.Prog6Soc} {
		if entity == "" {
			continue
		}
		if err := e.setProgramSoc(entity, target, &changes); err != nil {
			return nil, err
		}
	}
	details["preserve_target_soc"] = target

	outcome := &domain.DecisionOutcome{
		Scenario: "evening_behavior",
		Action:   domain.ActionPreservationEnabled,
		Summary:  fmt.Sprintf("evening: preserving charge at %.0f%%", math.Ceil(target)),
		Reason:   reason,
		KeyMetrics: []domain.Metric{
			{Name: "preserve_soc", Value: socStr(target)},
		},
		FullDetails:     details,
		EntitiesChanged: changes,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// eveningRestoration returns every overnight program to the minimum SOC.
func (e *Engine) eveningRestoration(b domain.BatteryConfig, details map[string]any) (*domain.DecisionOutcome, error) {
	var changes []domain.EntityChange
	for _, entity := range []string{e.Entry.Programs.Prog1Soc, e.Entry.Programs.Prog2Soc, e.Entry.Programs.Prog6Soc} {
		if entity == "" {
			continue
		}
		if err := e.setProgramSoc(entity, b.MinSoc, &changes); err != nil {
			return nil, err
		}
	}
	outcome := &domain.DecisionOutcome{
		Scenario: "evening_behavior",
		Action:   domain.ActionNormalRestored,
		Summary:  fmt.Sprintf("evening: overnight setpoints restored to %.0f%%", b.MinSoc),
		KeyMetrics: []domain.Metric{
			{Name: "restored_soc", Value: socStr(b.MinSoc)},
		},
		FullDetails:     details,
		EntitiesChanged: changes,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

func preservationReason(gridAssist, reserveInsufficient bool) string {
	switch {
	case gridAssist:
		return "grid_assist"
	case reserveInsufficient:
		return "reserve_insufficient"
	default:
		return "pv_below_battery_space"
	}
}
