package port

import (
	"strconv"
	"strings"

	"github.com/acazau/gridpilot/internal/core/domain"
)

// StateReader reads current host entity states. A nil result means the
// entity does not exist; sensor trouble is reported through the state
// string, never through an error.
type StateReader interface {
	GetState(entityID string) *domain.EntityState
}

// InverterController issues setpoint writes as host service calls.
// Writes are fire-and-forget on the host side; an error here means the
// call could not be handed to the host at all.
type InverterController interface {
	SetNumber(entityID string, value float64) error
	SelectOption(entityID, option string) error
}

// ForecastService is the external heat pump consumption forecaster.
// Returns total kWh plus a per-hour-of-day breakdown.
type ForecastService interface {
	HeatPumpForecast(startingHour, hoursAhead int) (float64, map[int]float64, error)
}

// Notifier delivers a one-line user notification.
type Notifier interface {
	Notify(message string) error
}

// EventBus fires a named event with a payload on the host bus.
type EventBus interface {
	Fire(event string, payload map[string]any) error
}

// OutcomeTracker keeps the two tracking entities: the last-optimization
// snapshot and the bounded rolling history.
type OutcomeTracker interface {
	SetLastOptimization(outcome domain.DecisionOutcome) error
	AppendHistory(entry map[string]any) error
}

// RestoreStore persists the small sell-restore blobs across restarts.
type RestoreStore interface {
	Load(key string) (*domain.RestorePayload, error)
	Save(key string, payload domain.RestorePayload) error
	Remove(key string) error
	Keys() ([]string, error)
}

// ReadFloat reads one entity as a tagged numeric value. An empty entityID
// is a missing configuration, a nil or unknown/unavailable state is an
// unavailable sensor, and anything non-numeric is invalid.
func ReadFloat(reader StateReader, entityID string) domain.FloatReading {
	if entityID == "" {
		return domain.MissingReading(entityID)
	}
	st := reader.GetState(entityID)
	if st == nil {
		return domain.MissingReading(entityID)
	}
	s := strings.TrimSpace(st.State)
	if s == "" || strings.EqualFold(s, "unknown") || strings.EqualFold(s, "unavailable") {
		return domain.UnavailableReading(entityID)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.InvalidReading(entityID, st.State)
	}
	return domain.OkReading(entityID, v)
}
