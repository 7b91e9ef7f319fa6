package actor

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/mqtt"
	"github.com/acazau/gridpilot/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// StateCache mirrors the host's retained entity states. The bridge actor
// is the only writer; decision flows read concurrently.
type StateCache struct {
	mu     sync.RWMutex
	states map[string]*domain.EntityState
}

func NewStateCache() *StateCache {
	return &StateCache{states: map[string]*domain.EntityState{}}
}

func (c *StateCache) GetState(entityID string) *domain.EntityState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[entityID]
}

func (c *StateCache) set(entityID string, state *domain.EntityState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[entityID] = state
}

func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}

type BridgeActor struct {
	config   *config.Config
	behavior actor.Behavior
	stash    *actorutil.Stash
	client   *mqtt.MQTTClient
	cache    *StateCache
	logger   *zap.Logger
	// pending heat pump forecast requests by correlation id
	pendingForecast map[string]pendingForecast
}

type pendingForecast struct {
	replyTo *actor.PID
	since   time.Time
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type stateUpdate struct {
	entityID string
	payload  mqtt.StatePayload
}

// HeatPumpForecastRequest asks the external forecaster, over the host
// service topic, for expected heat pump consumption.
type HeatPumpForecastRequest struct {
	domain.ActorRequestMixIn
	StartingHour int
	HoursAhead   int
}

type HeatPumpForecastResponse struct {
	domain.ActorResponseMixIn
	TotalKwh float64
	Hourly   map[int]float64
}

type forecastReply struct {
	CorrelationID string          `json:"correlation_id"`
	TotalKwh      float64         `json:"total_kwh"`
	Hourly        map[int]float64 `json:"hourly"`
}

func NewBridgeActor(config *config.Config, cache *StateCache, logger *zap.Logger) *BridgeActor {
	act := &BridgeActor{
		config:          config,
		behavior:        actor.NewBehavior(),
		stash:           &actorutil.Stash{},
		cache:           cache,
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_BRIDGE, logger),
		pendingForecast: map[string]pendingForecast{},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *BridgeActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BridgeActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("bridge@starting started")

		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("bridge@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		// mirror the host's retained state subtree into the cache
		state.client.SubscribeToHostStates(func(c pahomqtt.Client, m pahomqtt.Message) {
			entityID, err := state.client.ParseStateTopic(m.Topic())
			if err != nil {
				return
			}
			ctx.Send(ctx.Self(), stateUpdate{
				entityID: entityID,
				payload:  mqtt.ParseStatePayload(m.Payload()),
			})
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		state.logger.Debug("bridge@starting subscribed")

		state.client.Subscribe(state.client.ForecastReplyTopic(), 1, func(c pahomqtt.Client, m pahomqtt.Message) {
			var reply forecastReply
			if err := json.Unmarshal(m.Payload(), &reply); err != nil {
				state.logger.Warn("bridge: bad forecast reply", zap.Error(err))
				return
			}
			ctx.Send(ctx.Self(), reply)
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			}
		}, 1*time.Second)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// stop actor and let supervisor decide
		state.logger.Error("bridge@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("bridge@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BridgeActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("bridge@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BRIDGE,
			Healthy: true,
			State:   fmt.Sprintf("tracking %d entities", state.cache.Len()),
		})
	case stateUpdate:
		state.cache.set(msg.entityID, &domain.EntityState{
			State:      msg.payload.State,
			Attributes: msg.payload.Attributes,
		})
	case domain.PublishMessageRequest:
		state.logger.Debug("bridge@default PublishMessageRequest", zap.String("topic", msg.Topic))
		state.publish(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx), publishMessageKind)
	case domain.CallServiceRequest:
		state.logger.Debug("bridge@default CallServiceRequest",
			zap.String("domain", msg.Domain), zap.String("service", msg.Service))
		payload, err := json.Marshal(msg.Data)
		if err != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.CallServiceResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
			return
		}
		topic := state.client.ServiceTopic(msg.Domain, msg.Service)
		state.publish(ctx, topic, string(payload), false, actorutil.ForRequest(msg).ReplyTo(ctx), callServiceKind)
	case HeatPumpForecastRequest:
		state.handleForecastRequest(ctx, msg)
	case forecastReply:
		state.handleForecastReply(ctx, msg)
	case MQTTConnectionLost:
		state.logger.Error("bridge@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("bridge@default ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

type publishKind int

const (
	publishMessageKind publishKind = iota
	callServiceKind
)

type publishDone struct {
	result publishResult
	kind   publishKind
}

func (state *BridgeActor) publish(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID, kind publishKind) {
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishDone{
			result: publishResult{ReplyTo: replyTo, Error: err},
			kind:   kind,
		})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.PublishResultReceive)
}

func (state *BridgeActor) PublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishDone:
		if msg.result.Error != nil {
			state.logger.Error("bridge@publishing could not publish a message", zap.Error(msg.result.Error))
		}
		if msg.result.ReplyTo != nil {
			mixin := domain.ActorResponseMixIn{ResponseError: msg.result.Error}
			switch msg.kind {
			case callServiceKind:
				ctx.Send(msg.result.ReplyTo, domain.CallServiceResponse{ActorResponseMixIn: mixin})
			default:
				ctx.Send(msg.result.ReplyTo, domain.PublishMessageResponse{ActorResponseMixIn: mixin})
			}
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("bridge@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BridgeActor) handleForecastRequest(ctx actor.Context, msg HeatPumpForecastRequest) {
	replyTo := actorutil.ForRequest(msg).ReplyTo(ctx)
	hp := state.config.Entry.HeatPump
	if !hp.Enabled {
		ctx.Send(replyTo, HeatPumpForecastResponse{})
		return
	}

	state.pruneForecasts()
	corr := fmt.Sprintf("%d_%d", time.Now().UnixMilli(), rand.IntN(10000))
	state.pendingForecast[corr] = pendingForecast{replyTo: replyTo, since: time.Now()}

	request := map[string]any{
		"correlation_id": corr,
		"reply_topic":    state.client.ForecastReplyTopic(),
		"starting_hour":  msg.StartingHour,
		"hours_ahead":    msg.HoursAhead,
	}
	topic := state.client.ServiceTopic(hp.Domain, hp.Service)
	state.client.PublishJSON(topic, request, 1, false, func(err error) {
		if err != nil {
			state.logger.Error("bridge: forecast request publish failed", zap.Error(err))
		}
	}, 5*time.Second)
}

func (state *BridgeActor) handleForecastReply(ctx actor.Context, reply forecastReply) {
	pending, ok := state.pendingForecast[reply.CorrelationID]
	if !ok {
		state.logger.Debug("bridge: forecast reply without request",
			zap.String("correlation_id", reply.CorrelationID))
		return
	}
	delete(state.pendingForecast, reply.CorrelationID)
	ctx.Send(pending.replyTo, HeatPumpForecastResponse{
		TotalKwh: reply.TotalKwh,
		Hourly:   reply.Hourly,
	})
}

// pruneForecasts drops requests whose caller gave up long ago.
func (state *BridgeActor) pruneForecasts() {
	cutoff := time.Now().Add(-time.Minute)
	for corr, p := range state.pendingForecast {
		if p.since.Before(cutoff) {
			delete(state.pendingForecast, corr)
		}
	}
}

func (state *BridgeActor) stop() {
	state.logger.Debug("bridge: disconnect")
	if state.client != nil {
		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
		state.client.Disconnect(500 * time.Millisecond)
	}
}

// Dummy actor
func NewTestBridgeActor(config *config.Config, cache *StateCache, logger *zap.Logger) *BridgeActor {
	act := &BridgeActor{
		config:          config,
		behavior:        actor.NewBehavior(),
		stash:           &actorutil.Stash{},
		cache:           cache,
		logger:          actorutil.ActorLogger(domain.ACTOR_ID_BRIDGE, logger),
		pendingForecast: map[string]pendingForecast{},
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *BridgeActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BRIDGE,
			Healthy: true,
			State:   "idle",
		})
	case stateUpdate:
		state.cache.set(msg.entityID, &domain.EntityState{
			State:      msg.payload.State,
			Attributes: msg.payload.Attributes,
		})
	case domain.PublishMessageRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishMessageResponse{})
	case domain.CallServiceRequest:
		actorutil.ForRequest(msg).Respond(ctx, domain.CallServiceResponse{})
	case HeatPumpForecastRequest:
		actorutil.ForRequest(msg).Respond(ctx, HeatPumpForecastResponse{})
	}
}
