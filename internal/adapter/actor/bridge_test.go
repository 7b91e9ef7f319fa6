package actor

import (
	"testing"
	"time"

	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/mqtt"
	"github.com/acazau/gridpilot/internal/util"
	"github.com/acazau/gridpilot/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBridgeActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cache := NewStateCache()

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestBridgeActor(&cfg, cache, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	context.Send(pid, stateUpdate{
		entityID: "sensor.battery_soc",
		payload:  mqtt.StatePayload{State: "86.5"},
	})

	time.Sleep(500 * time.Millisecond)

	st := cache.GetState("sensor.battery_soc")
	if assert.NotNil(t, st) {
		assert.Equal(t, "86.5", st.State)
	}

	callResult, err := context.RequestFuture(pid, domain.CallServiceRequest{
		Domain:  "number",
		Service: "set_value",
		Data:    map[string]any{"entity_id": "number.prog2_soc", "value": 80.0},
	}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	callResp, ok := callResult.(domain.CallServiceResponse)
	assert.True(t, ok)
	assert.False(t, callResp.HasResponseError())

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestStateCacheConcurrentAccess(t *testing.T) {

	cache := NewStateCache()
	done := make(chan struct{})

	go func() {
		for i := 0; i < 100; i++ {
			cache.set("sensor.battery_soc", &domain.EntityState{State: "50"})
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		cache.GetState("sensor.battery_soc")
	}
	<-done

	assert.Equal(t, 1, cache.Len())
}
