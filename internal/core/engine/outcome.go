package engine

import (
	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/core/domain"
)

// DecisionEvent is the bus event name every emitted outcome fires under.
const DecisionEvent = "gridpilot_decision"

// emit fans a finished outcome out to every wired sink, in order: log,
// notification, last-optimization tracker, rolling history, bus event.
// Unwired sinks are skipped; a failing wired sink fails the run, since a
// failed write must not be reported as success.
func (e *Engine) emit(outcome *domain.DecisionOutcome) error {
	outcome.EntryID = e.Entry.ID
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = e.Now()
	}

	e.Logger.Info("decision",
		zap.String("scenario", outcome.Scenario),
		zap.String("action", string(outcome.Action)),
		zap.String("summary", outcome.Summary))

	if e.Notifier != nil {
		if err := e.Notifier.Notify(outcome.Summary); err != nil {
			return err
		}
	}
	if e.Tracker != nil {
		if err := e.Tracker.SetLastOptimization(*outcome); err != nil {
			return err
		}
		entry := map[string]any{
			"timestamp": outcome.Timestamp,
			"scenario":  outcome.Scenario,
		}
		for _, m := range outcome.KeyMetrics {
			entry[m.Name] = m.Value
		}
		if outcome.Reason != "" {
			entry["reason"] = outcome.Reason
		}
		if err := e.Tracker.AppendHistory(entry); err != nil {
			return err
		}
	}
	if e.Bus != nil {
		payload := map[string]any{
			"action_type":  string(outcome.Action),
			"summary":      outcome.Summary,
			"scenario":     outcome.Scenario,
			"entry_id":     outcome.EntryID,
			"full_details": outcome.FullDetails,
		}
		if len(outcome.EntitiesChanged) > 0 {
			payload["entities_changed"] = outcome.EntitiesChanged
		}
		if err := e.Bus.Fire(DecisionEvent, payload); err != nil {
			return err
		}
	}
	return nil
}
