package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"
)

// ErrAborted wraps every silent abort: preconditions not met, nothing
// written, no outcome emitted. Callers log it and move on without
// notifying the user.
var ErrAborted = errors.New("run aborted")

// Engine executes the decision flows for one config entry. All runs for
// the entry are expected to arrive through a single dispatcher, so the
// per-entry state needs no locking.
type Engine struct {
	Entry    config.EntryConfig
	Reader   port.StateReader
	Inverter port.InverterController
	HeatPump port.ForecastService
	Notifier port.Notifier
	Bus      port.EventBus
	Tracker  port.OutcomeTracker
	Store    port.RestoreStore
	Logger   *zap.Logger
	TestMode bool
	// Now supplies the local wall clock; replaceable in tests.
	Now func() time.Time

	state domain.EntryState
}

func New(entry config.EntryConfig, reader port.StateReader, inverter port.InverterController, logger *zap.Logger) *Engine {
	return &Engine{
		Entry:    entry,
		Reader:   reader,
		Inverter: inverter,
		Logger:   logger,
		Now:      time.Now,
		state:    domain.EntryState{EntryID: entry.ID},
	}
}

// State snapshots the per-entry runtime state.
func (e *Engine) State() domain.EntryState {
	return e.state
}

// Run executes one named strategy. Margin overrides the configured safety
// margin when non-nil.
func (e *Engine) Run(strategy domain.Strategy, entryID string, margin *float64, sellType domain.SellType) (*domain.DecisionOutcome, error) {
	if err := e.resolveEntry(entryID); err != nil {
		return nil, err
	}
	switch strategy {
	case domain.StrategyMorningCharge:
		return e.RunMorningCharge(margin)
	case domain.StrategyAfternoonCharge:
		return e.RunAfternoonCharge(margin)
	case domain.StrategyMorningSell:
		return e.RunMorningSell(margin)
	case domain.StrategyEveningSell:
		return e.RunEveningSell(margin)
	case domain.StrategyEveningBehavior:
		return e.RunEveningBehavior(margin)
	case domain.StrategySellRestore:
		return e.RunSellRestore(sellType)
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// resolveEntry checks the caller-supplied entry id against the single
// configured entry.
func (e *Engine) resolveEntry(entryID string) error {
	if entryID != "" && entryID != e.Entry.ID {
		e.Logger.Error("unknown config entry", zap.String("entry_id", entryID))
		return fmt.Errorf("%w: unknown config entry %q", ErrAborted, entryID)
	}
	return nil
}

func (e *Engine) battery() domain.BatteryConfig {
	b := e.Entry.Battery
	return domain.BatteryConfig{
		CapacityAh: b.CapacityAh,
		Voltage:    b.Voltage,
		MinSoc:     b.MinSoc,
		MaxSoc:     b.MaxSoc,
		Efficiency: b.Efficiency,
	}
}

func (e *Engine) margin(override *float64) float64 {
	if override != nil && *override > 0 {
		return *override
	}
	if e.Entry.Margin > 0 {
		return e.Entry.Margin
	}
	return 1.1
}

// readRequired reads a numeric sensor a flow cannot run without. Any
// non-ok status aborts the run silently per the error taxonomy.
func (e *Engine) readRequired(entityID, what string) (float64, error) {
	r := port.ReadFloat(e.Reader, entityID)
	switch r.Status {
	case domain.ReadOk:
		return r.Value, nil
	case domain.ReadMissing:
		e.Logger.Warn("required sensor not configured or not found",
			zap.String("what", what), zap.String("entity_id", entityID))
		return 0, fmt.Errorf("%w: %s missing (%s)", ErrAborted, what, entityID)
	case domain.ReadUnavailable:
		e.Logger.Warn("required sensor unavailable",
			zap.String("what", what), zap.String("entity_id", entityID))
		return 0, fmt.Errorf("%w: %s unavailable (%s)", ErrAborted, what, entityID)
	default:
		e.Logger.Warn("required sensor has non-numeric state",
			zap.String("what", what), zap.String("entity_id", entityID), zap.String("raw", r.Raw))
		return 0, fmt.Errorf("%w: %s invalid state %q (%s)", ErrAborted, what, r.Raw, entityID)
	}
}

// readOption reads the current option of a select entity.
func (e *Engine) readOption(entityID, what string) (string, error) {
	if entityID == "" {
		e.Logger.Warn("required select not configured", zap.String("what", what))
		return "", fmt.Errorf("%w: %s not configured", ErrAborted, what)
	}
	st := e.Reader.GetState(entityID)
	if st == nil || st.State == "" || st.State == "unknown" || st.State == "unavailable" {
		e.Logger.Warn("required select unavailable",
			zap.String("what", what), zap.String("entity_id", entityID))
		return "", fmt.Errorf("%w: %s unavailable (%s)", ErrAborted, what, entityID)
	}
	return st.State, nil
}

// setNumber writes a numeric setpoint. Test mode logs the intended write
// and records it in the outcome without touching the inverter.
func (e *Engine) setNumber(entityID string, value float64, changes *[]domain.EntityChange) error {
	if e.TestMode {
		e.Logger.Info("test mode: skipping number write",
			zap.String("entity_id", entityID), zap.Float64("value", value))
		*changes = append(*changes, domain.ValueChange(entityID, value))
		return nil
	}
	if err := e.Inverter.SetNumber(entityID, value); err != nil {
		return fmt.Errorf("set %s=%v: %w", entityID, value, err)
	}
	*changes = append(*changes, domain.ValueChange(entityID, value))
	return nil
}

// setProgramSoc writes a program SOC slot. Values are rounded up so the
// inverter never undershoots the computed target.
func (e *Engine) setProgramSoc(entityID string, soc float64, changes *[]domain.EntityChange) error {
	return e.setNumber(entityID, math.Ceil(soc), changes)
}

func (e *Engine) selectOption(entityID, option string, changes *[]domain.EntityChange) error {
	if e.TestMode {
		e.Logger.Info("test mode: skipping select write",
			zap.String("entity_id", entityID), zap.String("option", option))
		*changes = append(*changes, domain.OptionChange(entityID, option))
		return nil
	}
	if err := e.Inverter.SelectOption(entityID, option); err != nil {
		return fmt.Errorf("select %s=%s: %w", entityID, option, err)
	}
	*changes = append(*changes, domain.OptionChange(entityID, option))
	return nil
}

func (e *Engine) pvFactor() float64 {
	if e.Entry.PVEfficiency > 0 {
		return e.Entry.PVEfficiency / 100
	}
	return 1.0
}

func (e *Engine) restoreKey(sellType domain.SellType) string {
	return fmt.Sprintf("%s_%s", e.Entry.ID, sellType)
}
