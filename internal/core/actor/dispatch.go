package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/acazau/gridpilot/internal/adapter/actor"
	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/engine"
	"github.com/acazau/gridpilot/internal/core/port"
	"github.com/acazau/gridpilot/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// DispatchActor owns the decision engine for the configured entry. Every
// strategy run goes through its mailbox, so two runs can never interleave
// reads and writes against the same entry state.
type restoreCheck struct {
	err error
}

type DispatchActor struct {
	config *config.Config
	bridge *actor.PID
	cache  *adactor.StateCache
	store  port.RestoreStore
	engine *engine.Engine
	logger *zap.Logger
}

func NewDispatchActor(cfg *config.Config, bridge *actor.PID, cache *adactor.StateCache,
	store port.RestoreStore, logger *zap.Logger) *DispatchActor {
	return &DispatchActor{
		config: cfg,
		bridge: bridge,
		cache:  cache,
		store:  store,
		logger: actorutil.ActorLogger(domain.ACTOR_ID_DISPATCH, logger),
	}
}

func (state *DispatchActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("dispatch started")

		gateway := adactor.NewHostGateway(ctx.ActorSystem(), state.bridge, state.config)
		eng := engine.New(state.config.Entry, state.cache, gateway, state.logger)
		eng.HeatPump = gateway
		eng.Notifier = gateway
		eng.Bus = gateway
		eng.Tracker = gateway
		eng.Store = state.store
		eng.TestMode = state.config.TestMode
		state.engine = eng

		// revert any sell whose restore hour passed while we were down
		actorutil.NewBackgroundTaskNoError(ctx, func() *restoreCheck {
			return &restoreCheck{err: eng.RestoreOverdue()}
		}).WithTimeout(30 * time.Second).OnError(func(err error) {
			state.logger.Error("overdue restore check failed", zap.Error(err))
		}).OnSuccess(func(r restoreCheck) {
			if r.err != nil {
				state.logger.Error("overdue restore check failed", zap.Error(r.err))
			}
		}).Run()
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_DISPATCH,
			Healthy: state.engine != nil,
			State:   "idle",
		})
	case domain.RunStrategyRequest:
		state.logger.Info("run strategy",
			zap.String("strategy", string(msg.Strategy)),
			zap.String("entry_id", msg.EntryID))
		outcome, err := state.engine.Run(msg.Strategy, msg.EntryID, msg.Margin, msg.SellType)
		if err != nil {
			if errors.Is(err, engine.ErrAborted) {
				state.logger.Info("strategy aborted", zap.String("strategy", string(msg.Strategy)), zap.Error(err))
			} else {
				state.logger.Error("strategy failed", zap.String("strategy", string(msg.Strategy)), zap.Error(err))
			}
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.RunStrategyResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Outcome:            outcome,
		})
	case domain.CompleteBalancingRequest:
		if err := state.resolveEntry(msg.EntryID); err != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.CompleteBalancingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
			return
		}
		completed, err := state.engine.CompleteBalancing()
		actorutil.ForRequest(msg).Respond(ctx, domain.CompleteBalancingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			Completed:          completed,
		})
	case domain.GetEntryStateRequest:
		if err := state.resolveEntry(msg.EntryID); err != nil {
			actorutil.ForRequest(msg).Respond(ctx, domain.GetEntryStateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
			return
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.GetEntryStateResponse{
			State: state.engine.State(),
		})
	case domain.BalancingTickRequest:
		if err := state.engine.BalancingTick(); err != nil {
			state.logger.Error("balancing tick failed", zap.Error(err))
		}
	default:
		state.logger.Debug("dispatch ignore", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *DispatchActor) resolveEntry(entryID string) error {
	if entryID != "" && entryID != state.config.Entry.ID {
		return fmt.Errorf("unknown config entry %q", entryID)
	}
	return nil
}
