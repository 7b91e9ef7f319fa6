package domain

import "time"

// BatteryConfig holds the immutable per-entry battery parameters. Built
// from config at the start of each strategy run, never mutated.
type BatteryConfig struct {
	CapacityAh float64
	Voltage    float64
	MinSoc     float64
	MaxSoc     float64
	Efficiency float64
}

// ForecastData is the demand/generation picture over one strategy's hour
// window. Built once per run from sensor reads, read-only afterward.
type ForecastData struct {
	StartHour int
	EndHour   int
	Hours     int

	// HourlyUsage has one kWh value per hour of day, index = hour.
	HourlyUsage [24]float64
	UsageKwh    float64

	HeatPumpKwh    float64
	HeatPumpHourly map[int]float64

	PVForecastKwh    float64
	PVForecastHourly map[int]float64

	LossesHourly float64
	LossesKwh    float64

	Margin float64
}

// SufficiencyResult marks the hour within a window past which PV alone
// covers demand, with demand/PV accumulated up to that hour.
type SufficiencyResult struct {
	RequiredKwh            float64
	RequiredSufficiencyKwh float64
	PVSufficiencyKwh       float64
	SufficiencyHour        int
	SufficiencyReached     bool
}

// EnergyBalance is the reserve-vs-demand summary a charge flow decides on.
type EnergyBalance struct {
	ReserveKwh       float64
	RequiredKwh      float64
	NeededReserveKwh float64
	GapKwh           float64
	PVCompensation   *float64
}

// ChargeAction is the output of charge sizing.
type ChargeAction struct {
	TargetSoc     float64
	ChargeCurrent int
}

// SellType distinguishes the two peak-sell flows in restore bookkeeping.
type SellType string

const (
	SellMorning SellType = "morning"
	SellEvening SellType = "evening"
)

// RestorePayload is the persisted pre-sell inverter state, reverted at
// RestoreHour or immediately at startup when that hour already passed.
type RestorePayload struct {
	WorkMode      string    `json:"work_mode"`
	ProgSocEntity string    `json:"prog_soc_entity"`
	ProgSocValue  float64   `json:"prog_soc_value"`
	RestoreHour   int       `json:"restore_hour"`
	SellType      SellType  `json:"sell_type"`
	Timestamp     time.Time `json:"timestamp"`
}

// EntryState is the mutable cross-run state of one config entry. It is
// owned by the dispatch actor, which serializes all strategy runs for the
// entry, so fields need no locking.
type EntryState struct {
	EntryID          string     `json:"entry_id"`
	BalancingOngoing bool       `json:"balancing_ongoing"`
	LastBalancing    *time.Time `json:"last_balancing,omitempty"`
	// HighSocSince tracks how long the battery has held near-full SOC
	// while balancing, for the completion monitor.
	HighSocSince *time.Time `json:"high_soc_since,omitempty"`
	// GridAssist is set by the afternoon charge flow and consulted by the
	// evening preservation branch. Cleared each evening run.
	GridAssist bool `json:"grid_assist"`
}
