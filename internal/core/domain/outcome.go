package domain

import "time"

// ActionType tags what a decision run did.
type ActionType string

const (
	ActionNoAction            ActionType = "no_action"
	ActionChargeScheduled     ActionType = "charge_scheduled"
	ActionSell                ActionType = "sell"
	ActionBalancingEnabled    ActionType = "balancing_enabled"
	ActionPreservationEnabled ActionType = "preservation_enabled"
	ActionNormalRestored      ActionType = "normal_restored"
	ActionHighSell            ActionType = "high_sell"
)

// EntityChange records one write issued by a strategy. Exactly one of
// Value or Option is set.
type EntityChange struct {
	EntityID string   `json:"entity_id"`
	Value    *float64 `json:"value,omitempty"`
	Option   *string  `json:"option,omitempty"`
}

func ValueChange(entityID string, value float64) EntityChange {
	return EntityChange{EntityID: entityID, Value: &value}
}

func OptionChange(entityID, option string) EntityChange {
	return EntityChange{EntityID: entityID, Option: &option}
}

// Metric is one pre-formatted key/value pair kept in the rolling history.
type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DecisionOutcome is the canonical result record of one strategy run.
// Built fresh each run, immutable once handed to the emission sink.
type DecisionOutcome struct {
	Scenario        string         `json:"scenario"`
	EntryID         string         `json:"entry_id"`
	Action          ActionType     `json:"action"`
	Summary         string         `json:"summary"`
	KeyMetrics      []Metric       `json:"key_metrics,omitempty"`
	Reason          string         `json:"reason,omitempty"`
	FullDetails     map[string]any `json:"full_details,omitempty"`
	EntitiesChanged []EntityChange `json:"entities_changed,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// SellRequest defers a sell decision to the shared sell tail, which clamps
// the surplus, computes the target SOC, issues the writes and emits the
// outcome through the builder callbacks.
type SellRequest struct {
	SurplusKwh    float64
	BuildOutcome  func(targetSoc, surplusKwh float64, exportW int) DecisionOutcome
	BuildNoAction func(surplusKwh float64) DecisionOutcome
}
