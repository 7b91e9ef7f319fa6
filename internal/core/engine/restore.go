package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/core/domain"
)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// RunSellRestore reverts the inverter to the state persisted before a
// peak sell: the original work mode and program SOC. Nothing to restore
// is not an error, the sell may have produced no action.
func (e *Engine) RunSellRestore(sellType domain.SellType) (*domain.DecisionOutcome, error) {
	if e.Store == nil {
		return nil, fmt.Errorf("%w: no restore store wired", ErrAborted)
	}
	key := e.restoreKey(sellType)
	payload, err := e.Store.Load(key)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		e.Logger.Debug("no sell state to restore", zap.String("key", key))
		return nil, nil
	}

	var changes []domain.EntityChange
	if err := e.selectOption(e.Entry.Programs.WorkMode, payload.WorkMode, &changes); err != nil {
		return nil, err
	}
	if err := e.setNumber(payload.ProgSocEntity, payload.ProgSocValue, &changes); err != nil {
		return nil, err
	}
	if err := e.Store.Remove(key); err != nil {
		return nil, err
	}

	outcome := &domain.DecisionOutcome{
		Scenario: fmt.Sprintf("%s_sell_restore", sellType),
		Action:   domain.ActionNormalRestored,
		Summary:  fmt.Sprintf("%s sell finished: restored %s and %s=%.0f", sellType, payload.WorkMode, payload.ProgSocEntity, payload.ProgSocValue),
		KeyMetrics: []domain.Metric{
			{Name: "work_mode", Value: payload.WorkMode},
			{Name: "restored_soc", Value: socStr(payload.ProgSocValue)},
		},
		FullDetails: map[string]any{
			"work_mode":       payload.WorkMode,
			"prog_soc_entity": payload.ProgSocEntity,
			"prog_soc_value":  payload.ProgSocValue,
			"restore_hour":    payload.RestoreHour,
			"sell_timestamp":  payload.Timestamp,
		},
		EntitiesChanged: changes,
	}
	if err := e.emit(outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// RestoreOverdue reverts any sell whose restore hour passed while the
// process was down. Called once at startup.
func (e *Engine) RestoreOverdue() error {
	if e.Store == nil {
		return nil
	}
	keys, err := e.Store.Keys()
	if err != nil {
		return err
	}
	now := e.Now()
	for _, key := range keys {
		payload, err := e.Store.Load(key)
		if err != nil {
			return err
		}
		if payload == nil {
			continue
		}
		restoreAt := startOfDay(payload.Timestamp).Add(time.Duration(payload.RestoreHour) * time.Hour)
		if !restoreAt.After(payload.Timestamp) {
			restoreAt = restoreAt.Add(24 * time.Hour)
		}
		if now.After(restoreAt) {
			e.Logger.Info("overdue sell restore", zap.String("key", key),
				zap.Time("due", restoreAt))
			if _, err := e.RunSellRestore(payload.SellType); err != nil {
				return err
			}
		}
	}
	return nil
}
