package sched

import (
	"context"
	"time"

	"github.com/acazau/gridpilot/internal/config"
	"github.com/acazau/gridpilot/internal/core/domain"
	"github.com/acazau/gridpilot/internal/core/port"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	morningChargeHour   = 4
	eveningBehaviorHour = 22
	defaultTariffEnd    = 13
	defaultMorningSell  = 7
	defaultEveningSell  = 17
)

// Scheduler fires the decision flows on their local-time hours. One cron
// tick per hour resolves the dynamic hours (tariff end, max price hour
// sensors, pending restore payloads) at fire time, so sensor changes take
// effect without rescheduling.
type Scheduler struct {
	cfg    *config.Config
	root   *actor.RootContext
	master *actor.PID
	reader port.StateReader
	store  port.RestoreStore
	logger *zap.Logger
	sched  quartz.Scheduler
	now    func() time.Time
}

func NewScheduler(cfg *config.Config, root *actor.RootContext, master *actor.PID,
	reader port.StateReader, store port.RestoreStore, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		root:   root,
		master: master,
		reader: reader,
		store:  store,
		logger: logger.Named("sched"),
		now:    time.Now,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	trigger, err := quartz.NewCronTrigger("0 0 * * * *")
	if err != nil {
		return err
	}
	tick := job.NewFunctionJob(func(context.Context) (bool, error) {
		s.Tick()
		return true, nil
	})
	if err := sched.ScheduleJob(quartz.NewJobDetail(tick, quartz.NewJobKey("hourly_tick")), trigger); err != nil {
		return err
	}

	s.sched = sched
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	if s.sched != nil {
		s.sched.Stop()
	}
}

// Tick dispatches every flow due at the current hour plus the balancing
// monitor tick.
func (s *Scheduler) Tick() {
	now := s.now()
	requests := s.dueRequests(now)
	for _, req := range requests {
		s.logger.Info("dispatching scheduled strategy",
			zap.String("strategy", string(req.Strategy)), zap.Int("hour", now.Hour()))
		s.root.Send(s.master, req)
	}
	s.root.Send(s.master, domain.BalancingTickRequest{})
}

func (s *Scheduler) dueRequests(now time.Time) []domain.RunStrategyRequest {
	hour := now.Hour()
	entry := s.cfg.Entry
	var due []domain.RunStrategyRequest

	add := func(strategy domain.Strategy, sellType domain.SellType) {
		due = append(due, domain.RunStrategyRequest{
			Strategy: strategy,
			EntryID:  entry.ID,
			SellType: sellType,
		})
	}

	if hour == morningChargeHour {
		add(domain.StrategyMorningCharge, "")
	}
	if hour == s.tariffEnd() {
		add(domain.StrategyAfternoonCharge, "")
	}
	if hour == eveningBehaviorHour {
		add(domain.StrategyEveningBehavior, "")
	}
	if hour == s.priceHour(entry.Sensors.MorningMaxPriceHour, defaultMorningSell) {
		add(domain.StrategyMorningSell, "")
	}
	if hour == s.priceHour(entry.Sensors.EveningMaxPriceHour, defaultEveningSell) {
		add(domain.StrategyEveningSell, "")
	}
	for _, sellType := range s.restoresDueAt(hour) {
		add(domain.StrategySellRestore, sellType)
	}
	return due
}

func (s *Scheduler) tariffEnd() int {
	if h := s.cfg.Entry.TariffEndHour; h >= 0 && h <= 23 {
		return h
	}
	return defaultTariffEnd
}

// priceHour resolves a dynamic sell hour from its sensor, falling back to
// the fixed default when the sensor is absent or out of range.
func (s *Scheduler) priceHour(entityID string, fallback int) int {
	r := port.ReadFloat(s.reader, entityID)
	if !r.OK() {
		return fallback
	}
	hour := int(r.Value)
	if hour < 0 || hour > 23 {
		s.logger.Warn("max price hour sensor out of range",
			zap.String("entity_id", entityID), zap.Float64("value", r.Value))
		return fallback
	}
	return hour
}

// restoresDueAt lists the sell types whose persisted restore hour matches
// this hour.
func (s *Scheduler) restoresDueAt(hour int) []domain.SellType {
	if s.store == nil {
		return nil
	}
	keys, err := s.store.Keys()
	if err != nil {
		s.logger.Error("restore store scan failed", zap.Error(err))
		return nil
	}
	var due []domain.SellType
	for _, key := range keys {
		payload, err := s.store.Load(key)
		if err != nil || payload == nil {
			continue
		}
		if payload.RestoreHour == hour {
			due = append(due, payload.SellType)
		}
	}
	return due
}
