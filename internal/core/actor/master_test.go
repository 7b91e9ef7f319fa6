package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "github.com/acazau/gridpilot/internal/adapter/actor"
	"github.com/acazau/gridpilot/internal/adapter/store"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	restoreStore, err := store.NewFileRestoreStore(t.TempDir())
	if err != nil {
		t.Error(err)
		return
	}

	cache := adactor.NewStateCache()

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, cache, func(cache *adactor.StateCache) *adactor.BridgeActor {
			return adactor.NewTestBridgeActor(&cfg, cache, logger)
		}, restoreStore, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	// a run with no sensors available aborts without writes
	runRes, err := context.RequestFuture(pid, domain.RunStrategyRequest{
		Strategy: domain.StrategyMorningCharge,
	}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	runResp, ok := runRes.(domain.RunStrategyResponse)
	assert.True(t, ok)
	assert.True(t, runResp.HasResponseError(), "empty state cache aborts the run")
	assert.Nil(t, runResp.Outcome)

	// entry state snapshot
	stateRes, err := context.RequestFuture(pid, domain.GetEntryStateRequest{EntryID: "home"}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	stateResp, ok := stateRes.(domain.GetEntryStateResponse)
	assert.True(t, ok)
	assert.False(t, stateResp.State.BalancingOngoing)

	context.Stop(pid)

	as.Shutdown()
}
