package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acazau/gridpilot/internal/core/domain"
)

type failingNotifier struct{}

func (failingNotifier) Notify(string) error { return errors.New("notify down") }

func TestEmitFansOutToAllSinks(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 8)
	outcome := &domain.DecisionOutcome{
		Scenario: "morning_charge",
		Action:   domain.ActionChargeScheduled,
		Summary:  "charge to 80%",
		Reason:   "deficit",
		KeyMetrics: []domain.Metric{
			{Name: "target_soc", Value: "80%"},
		},
	}

	require.NoError(t, h.engine.emit(outcome))
	assert.Equal(t, "home", outcome.EntryID)
	assert.False(t, outcome.Timestamp.IsZero())

	assert.Equal(t, []string{"charge to 80%"}, h.notifier.messages)
	require.NotNil(t, h.tracker.last)
	assert.Equal(t, "morning_charge", h.tracker.last.Scenario)
	require.Len(t, h.tracker.history, 1)
	assert.Equal(t, "80%", h.tracker.history[0]["target_soc"])
	assert.Equal(t, "deficit", h.tracker.history[0]["reason"])
	require.Len(t, h.bus.events, 1)
	assert.Equal(t, DecisionEvent, h.bus.events[0]["event"])
	assert.Equal(t, "charge_scheduled", h.bus.events[0]["action_type"])
}

func TestEmitSkipsUnwiredSinks(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 8)
	h.engine.Notifier = nil
	h.engine.Tracker = nil
	h.engine.Bus = nil

	require.NoError(t, h.engine.emit(&domain.DecisionOutcome{
		Scenario: "evening_behavior",
		Action:   domain.ActionNoAction,
		Summary:  "nothing to do",
	}))
}

func TestEmitPropagatesSinkFailure(t *testing.T) {
	h := newTestEngine(t, fakeReader{}, 8)
	h.engine.Notifier = failingNotifier{}

	err := h.engine.emit(&domain.DecisionOutcome{
		Scenario: "morning_sell",
		Action:   domain.ActionSell,
		Summary:  "selling",
	})
	require.Error(t, err)
	assert.Nil(t, h.tracker.last, "later sinks are not reached")
}
