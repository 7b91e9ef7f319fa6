package actor

import (
	"fmt"
	"log"
	"time"

	adactor "github.com/acazau/gridpilot/internal/adapter/actor"
	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"
	. "github.com/acazau/gridpilot/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type BridgeActorProvider func(cache *adactor.StateCache) *adactor.BridgeActor

type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	cache               *adactor.StateCache
	store               port.RestoreStore
	bridgeActor         *actor.PID
	dispatchActor       *actor.PID
	bridgeActorProvider BridgeActorProvider
	logger              *zap.Logger
}

type healthCheckResult struct {
	bridgeActorHealthy   bool
	dispatchActorHealthy bool
	checksReceived       int
	respondTo            *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, cache *adactor.StateCache, bridgeActorProvider BridgeActorProvider,
	store port.RestoreStore, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		cache:               cache,
		store:               store,
		bridgeActorProvider: bridgeActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// start MQTT bridge child
		bridgeActorPID, err := state.startBridgeActor(ctx)
		if err != nil {
			panic(err)
		}
		state.bridgeActor = bridgeActorPID

		// start dispatch child
		dispatchActorPID, err := state.startDispatchActor(ctx)
		if err != nil {
			panic(err)
		}
		state.dispatchActor = dispatchActorPID

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Bridge Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.bridgeActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_BRIDGE,
				Healthy: false,
			}
		})
		// Dispatch Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.dispatchActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_DISPATCH,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case domain.RunStrategyRequest:
		ctx.Forward(state.dispatchActor)
	case domain.CompleteBalancingRequest:
		ctx.Forward(state.dispatchActor)
	case domain.GetEntryStateRequest:
		ctx.Forward(state.dispatchActor)
	case domain.BalancingTickRequest:
		ctx.Forward(state.dispatchActor)
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// a child that does not answer in time counts as unhealthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_BRIDGE {
				state.currentHealthCheck.bridgeActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_DISPATCH {
				state.currentHealthCheck.dispatchActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startBridgeActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	bridgeProps := actor.PropsFromProducer(func() actor.Actor {
		return state.bridgeActorProvider(state.cache)
	}, actor.WithSupervisor(supervisor))
	bridgeActorPID, err := ctx.SpawnNamed(bridgeProps, domain.ACTOR_ID_BRIDGE)
	if err != nil {
		return nil, err
	}

	return bridgeActorPID, nil
}

func (state *MasterOfPuppetsActor) startDispatchActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	dispatchProps := actor.PropsFromProducer(func() actor.Actor {
		return NewDispatchActor(&state.config, state.bridgeActor, state.cache, state.store, state.logger)
	}, actor.WithSupervisor(supervisor))
	dispatchActorPID, err := ctx.SpawnNamed(dispatchProps, domain.ACTOR_ID_DISPATCH)
	if err != nil {
		return nil, err
	}

	return dispatchActorPID, nil
}

func (state *healthCheckResult) reset() {
	state.bridgeActorHealthy = false
	state.dispatchActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 2
}

func (state *healthCheckResult) allHealthy() bool {
	return state.bridgeActorHealthy && state.dispatchActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
