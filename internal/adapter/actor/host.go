package actor

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// historyLimit bounds the rolling decision history published to the
// retained history topic.
const historyLimit = 50

// HostGateway adapts the bridge actor to the synchronous host ports the
// decision engine consumes. Every write is a request to the bridge PID,
// so all MQTT traffic stays serialized through one actor.
type HostGateway struct {
	system  *actor.ActorSystem
	bridge  *actor.PID
	cfg     *config.Config
	timeout time.Duration

	mu      sync.Mutex
	history []map[string]any
}

func NewHostGateway(system *actor.ActorSystem, bridge *actor.PID, cfg *config.Config) *HostGateway {
	return &HostGateway{
		system:  system,
		bridge:  bridge,
		cfg:     cfg,
		timeout: 10 * time.Second,
	}
}

func (g *HostGateway) request(msg any) (any, error) {
	return g.system.Root.RequestFuture(g.bridge, msg, g.timeout).Result()
}

func (g *HostGateway) call(msg any) error {
	result, err := g.request(msg)
	if err != nil {
		return err
	}
	if resp, ok := result.(domain.ActorResponse); ok && resp.HasResponseError() {
		return resp.GetResponseError()
	}
	return nil
}

func (g *HostGateway) SetNumber(entityID string, value float64) error {
	return g.call(domain.CallServiceRequest{
		Domain:  "number",
		Service: "set_value",
		Data: map[string]any{
			"entity_id": entityID,
			"value":     value,
		},
	})
}

func (g *HostGateway) SelectOption(entityID, option string) error {
	return g.call(domain.CallServiceRequest{
		Domain:  "select",
		Service: "select_option",
		Data: map[string]any{
			"entity_id": entityID,
			"option":    option,
		},
	})
}

func (g *HostGateway) Notify(message string) error {
	return g.call(domain.CallServiceRequest{
		Domain:  "notify",
		Service: "notify",
		Data: map[string]any{
			"title":   "GridPilot",
			"message": message,
		},
	})
}

func (g *HostGateway) Fire(event string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return g.call(domain.PublishMessageRequest{
		Topic:   fmt.Sprintf("%s/event/%s", g.cfg.MQTT.BaseTopic, event),
		Payload: string(encoded),
	})
}

func (g *HostGateway) SetLastOptimization(outcome domain.DecisionOutcome) error {
	encoded, err := json.Marshal(outcome)
	if err != nil {
		return err
	}
	return g.call(domain.PublishMessageRequest{
		Topic:   fmt.Sprintf("%s/last_optimization", g.cfg.MQTT.BaseTopic),
		Payload: string(encoded),
		Retain:  true,
	})
}

func (g *HostGateway) AppendHistory(entry map[string]any) error {
	g.mu.Lock()
	g.history = append(g.history, entry)
	if len(g.history) > historyLimit {
		g.history = g.history[len(g.history)-historyLimit:]
	}
	snapshot := make([]map[string]any, len(g.history))
	copy(snapshot, g.history)
	g.mu.Unlock()

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return g.call(domain.PublishMessageRequest{
		Topic:   fmt.Sprintf("%s/history", g.cfg.MQTT.BaseTopic),
		Payload: string(encoded),
		Retain:  true,
	})
}

func (g *HostGateway) HeatPumpForecast(startingHour, hoursAhead int) (float64, map[int]float64, error) {
	result, err := g.request(HeatPumpForecastRequest{
		StartingHour: startingHour,
		HoursAhead:   hoursAhead,
	})
	if err != nil {
		return 0, nil, err
	}
	resp, ok := result.(HeatPumpForecastResponse)
	if !ok {
		return 0, nil, fmt.Errorf("unexpected forecast response %T", result)
	}
	if resp.HasResponseError() {
		return 0, nil, resp.GetResponseError()
	}
	return resp.TotalKwh, resp.Hourly, nil
}
