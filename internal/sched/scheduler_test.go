package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/util"
)

type fakeReader map[string]string

func (f fakeReader) GetState(entityID string) *domain.EntityState {
	v, ok := f[entityID]
	if !ok {
		return nil
	}
	return &domain.EntityState{State: v}
}

type fakeStore struct {
	payloads map[string]domain.RestorePayload
}

func (f *fakeStore) Load(key string) (*domain.RestorePayload, error) {
	p, ok := f.payloads[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) Save(key string, payload domain.RestorePayload) error {
	f.payloads[key] = payload
	return nil
}

func (f *fakeStore) Remove(key string) error {
	delete(f.payloads, key)
	return nil
}

func (f *fakeStore) Keys() ([]string, error) {
	var keys []string
	for k := range f.payloads {
		keys = append(keys, k)
	}
	return keys, nil
}

func testScheduler(reader fakeReader, store *fakeStore) *Scheduler {
	cfg := util.LoadTestConfig()
	s := &Scheduler{
		cfg:    &cfg,
		reader: reader,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	if store != nil {
		s.store = store
	}
	return s
}

func strategiesAt(s *Scheduler, hour int) []domain.Strategy {
	now := time.Date(2026, 8, 29, hour, 0, 0, 0, time.Local)
	var out []domain.Strategy
	for _, req := range s.dueRequests(now) {
		out = append(out, req.Strategy)
	}
	return out
}

func TestScheduleFixedHours(t *testing.T) {
	s := testScheduler(fakeReader{}, nil)

	assert.Equal(t, []domain.Strategy{domain.StrategyMorningCharge}, strategiesAt(s, 4))
	assert.Equal(t, []domain.Strategy{domain.StrategyAfternoonCharge}, strategiesAt(s, 13))
	assert.Equal(t, []domain.Strategy{domain.StrategyEveningBehavior}, strategiesAt(s, 22))
	assert.Empty(t, strategiesAt(s, 3))
}

func TestScheduleSellDefaults(t *testing.T) {
	s := testScheduler(fakeReader{}, nil)

	// no price hour sensors configured, defaults apply
	assert.Equal(t, []domain.Strategy{domain.StrategyMorningSell}, strategiesAt(s, 7))
	assert.Equal(t, []domain.Strategy{domain.StrategyEveningSell}, strategiesAt(s, 17))
}

func TestScheduleSellFollowsPriceSensor(t *testing.T) {
	s := testScheduler(fakeReader{
		"sensor.morning_max_price_hour": "9",
		"sensor.evening_max_price_hour": "19",
	}, nil)
	s.cfg.Entry.Sensors.MorningMaxPriceHour = "sensor.morning_max_price_hour"
	s.cfg.Entry.Sensors.EveningMaxPriceHour = "sensor.evening_max_price_hour"

	assert.Empty(t, strategiesAt(s, 7))
	assert.Equal(t, []domain.Strategy{domain.StrategyMorningSell}, strategiesAt(s, 9))
	assert.Equal(t, []domain.Strategy{domain.StrategyEveningSell}, strategiesAt(s, 19))
}

func TestScheduleSellSensorOutOfRange(t *testing.T) {
	s := testScheduler(fakeReader{"sensor.morning_max_price_hour": "31"}, nil)
	s.cfg.Entry.Sensors.MorningMaxPriceHour = "sensor.morning_max_price_hour"

	assert.Equal(t, []domain.Strategy{domain.StrategyMorningSell}, strategiesAt(s, 7))
}

func TestScheduleRestoreFromPersistedHour(t *testing.T) {
	store := &fakeStore{payloads: map[string]domain.RestorePayload{
		"home_morning": {SellType: domain.SellMorning, RestoreHour: 8},
	}}
	s := testScheduler(fakeReader{}, store)

	reqs := s.dueRequests(time.Date(2026, 8, 29, 8, 0, 0, 0, time.Local))
	require.Len(t, reqs, 1)
	assert.Equal(t, domain.StrategySellRestore, reqs[0].Strategy)
	assert.Equal(t, domain.SellMorning, reqs[0].SellType)

	assert.Empty(t, strategiesAt(s, 9))
}
