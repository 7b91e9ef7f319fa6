package domain

import (
	"github.com/asynkron/protoactor-go/actor"
)

const (
	ACTOR_ID_MASTER   = "master"
	ACTOR_ID_BRIDGE   = "bridge"
	ACTOR_ID_DISPATCH = "dispatch"
)

type ActorRef actor.PID

type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

type ActorResponseMixIn struct {
	ResponseError error
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

// Strategy names one of the schedulable decision flows.
type Strategy string

const (
	StrategyMorningCharge   Strategy = "morning_charge"
	StrategyAfternoonCharge Strategy = "afternoon_charge"
	StrategyMorningSell     Strategy = "morning_sell"
	StrategyEveningSell     Strategy = "evening_sell"
	StrategyEveningBehavior Strategy = "evening_behavior"
	StrategySellRestore     Strategy = "sell_restore"
)

// ParseStrategy maps an external strategy name to its constant.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyMorningCharge, StrategyAfternoonCharge, StrategyMorningSell,
		StrategyEveningSell, StrategyEveningBehavior, StrategySellRestore:
		return Strategy(s), true
	}
	return "", false
}

// RunStrategyRequest asks the dispatch actor to execute one flow. Margin
// overrides the configured safety margin when set. SellType selects the
// payload for StrategySellRestore.
type RunStrategyRequest struct {
	ActorRequestMixIn
	Strategy Strategy
	EntryID  string
	Margin   *float64
	SellType SellType
}

type RunStrategyResponse struct {
	ActorResponseMixIn
	Outcome *DecisionOutcome
}

// CompleteBalancingRequest marks a running balancing cycle as finished.
type CompleteBalancingRequest struct {
	ActorRequestMixIn
	EntryID string
}

type CompleteBalancingResponse struct {
	ActorResponseMixIn
	Completed bool
}

// GetEntryStateRequest snapshots the per-entry runtime state.
type GetEntryStateRequest struct {
	ActorRequestMixIn
	EntryID string
}

type GetEntryStateResponse struct {
	ActorResponseMixIn
	State EntryState
}

// BalancingTickRequest drives the balancing completion monitor.
type BalancingTickRequest struct {
	ActorRequestMixIn
}

// PublishMessageRequest publishes a raw MQTT message through the bridge.
type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

// CallServiceRequest asks the bridge to issue a host service call.
type CallServiceRequest struct {
	ActorRequestMixIn
	Domain  string
	Service string
	Data    map[string]any
}

type CallServiceResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
