package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
)

type fakeReader map[string]*domain.EntityState

func (f fakeReader) GetState(entityID string) *domain.EntityState {
	return f[entityID]
}

func numericState(value float64) *domain.EntityState {
	return &domain.EntityState{State: fmt.Sprintf("%g", value)}
}

func textState(s string) *domain.EntityState {
	return &domain.EntityState{State: s}
}

func forecastState(hourly map[int]float64) *domain.EntityState {
	var entries []any
	for h, v := range hourly {
		entries = append(entries, map[string]any{
			"period_start": fmt.Sprintf("2026-08-29T%02d:00:00Z", h),
			"pv_estimate":  v,
		})
	}
	return &domain.EntityState{State: "ok", Attributes: map[string]any{"detailedHourly": entries}}
}

type fakeInverter struct {
	numbers map[string]float64
	options map[string]string
	// numberOrder records write order for partial-write assertions
	numberOrder []string
	failWrites  bool
}

func newFakeInverter() *fakeInverter {
	return &fakeInverter{numbers: map[string]float64{}, options: map[string]string{}}
}

func (f *fakeInverter) SetNumber(entityID string, value float64) error {
	if f.failWrites {
		return errors.New("service call failed")
	}
	f.numbers[entityID] = value
	f.numberOrder = append(f.numberOrder, entityID)
	return nil
}

func (f *fakeInverter) SelectOption(entityID, option string) error {
	if f.failWrites {
		return errors.New("service call failed")
	}
	f.options[entityID] = option
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fakeBus struct {
	events []map[string]any
}

func (f *fakeBus) Fire(event string, payload map[string]any) error {
	p := map[string]any{"event": event}
	for k, v := range payload {
		p[k] = v
	}
	f.events = append(f.events, p)
	return nil
}

type fakeTracker struct {
	last    *domain.DecisionOutcome
	history []map[string]any
}

func (f *fakeTracker) SetLastOptimization(outcome domain.DecisionOutcome) error {
	f.last = &outcome
	return nil
}

func (f *fakeTracker) AppendHistory(entry map[string]any) error {
	f.history = append(f.history, entry)
	return nil
}

type fakeStore struct {
	data map[string]domain.RestorePayload
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]domain.RestorePayload{}}
}

func (f *fakeStore) Load(key string) (*domain.RestorePayload, error) {
	p, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) Save(key string, payload domain.RestorePayload) error {
	f.data[key] = payload
	return nil
}

func (f *fakeStore) Remove(key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Keys() ([]string, error) {
	var keys []string
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func testEntry() config.EntryConfig {
	return config.EntryConfig{
		ID: "home",
		Battery: config.BatteryConfig{
			CapacityAh: 200,
			Voltage:    48,
			MinSoc:     10,
			MaxSoc:     100,
			Efficiency: 100,
		},
		Margin:        1.0,
		TariffEndHour: 13,
		PVEfficiency:  100,
		Sensors: config.SensorsConfig{
			BatterySoc:          "sensor.battery_soc",
			DailyLoad:           "sensor.daily_load",
			PVForecastToday:     "sensor.pv_today",
			PVForecastTomorrow:  "sensor.pv_tomorrow",
			MorningSellPrice:    "sensor.morning_sell_price",
			EveningSellPrice:    "sensor.evening_sell_price",
			MorningMaxPriceHour: "sensor.morning_max_price_hour",
			EveningMaxPriceHour: "sensor.evening_max_price_hour",
			RemainingForecast:   "sensor.remaining_forecast",
		},
		Programs: config.ProgramsConfig{
			Prog1Soc:      "number.prog1_soc",
			Prog2Soc:      "number.prog2_soc",
			Prog3Soc:      "number.prog3_soc",
			Prog5Soc:      "number.prog5_soc",
			Prog6Soc:      "number.prog6_soc",
			ChargeCurrent: "number.charge_current",
			WorkMode:      "select.work_mode",
			ExportPower:   "number.export_power",
		},
		Sell: config.SellConfig{
			HighPriceThreshold: 5.0,
			ArbitrageMinPrice:  2.0,
			ExportWorkMode:     "Export First",
			DefaultWorkMode:    "Zero Export To Load",
			MaxExportPowerW:    5000,
		},
		Balancing: config.BalancingConfig{
			IntervalDays:   14,
			PVThresholdKwh: 20.5,
		},
	}
}

type testHarness struct {
	engine   *Engine
	inverter *fakeInverter
	notifier *fakeNotifier
	bus      *fakeBus
	tracker  *fakeTracker
	store    *fakeStore
}

func newTestEngine(t *testing.T, states fakeReader, hour int) *testHarness {
	t.Helper()
	inverter := newFakeInverter()
	notifier := &fakeNotifier{}
	bus := &fakeBus{}
	tracker := &fakeTracker{}
	store := newFakeStore()

	e := New(testEntry(), states, inverter, zap.NewNop())
	e.Notifier = notifier
	e.Bus = bus
	e.Tracker = tracker
	e.Store = store
	now := time.Date(2026, 8, 29, hour, 0, 0, 0, time.Local)
	e.Now = func() time.Time { return now }

	return &testHarness{engine: e, inverter: inverter, notifier: notifier, bus: bus, tracker: tracker, store: store}
}
