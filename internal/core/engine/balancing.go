package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/acazau/gridpilot/internal/core/port"
)

const (
	// balancingCompleteSoc is the SOC the pack must hold for the cycle to
	// count as finished.
	balancingCompleteSoc  = 97.0
	balancingHoldDuration = 2 * time.Hour
	balancingCompleteMsg  = "balancing complete: cell equalization finished"
)

// BalancingTick advances the completion monitor while a balancing cycle
// is running: the cycle completes once the SOC has held near full for two
// hours. A dip below the threshold resets the hold timer; an unreadable
// SOC sensor just waits for the next tick.
func (e *Engine) BalancingTick() error {
	if !e.state.BalancingOngoing {
		return nil
	}
	r := port.ReadFloat(e.Reader, e.Entry.Sensors.BatterySoc)
	if !r.OK() {
		return nil
	}
	now := e.Now()
	if r.Value < balancingCompleteSoc {
		e.state.HighSocSince = nil
		return nil
	}
	if e.state.HighSocSince == nil {
		t := now
		e.state.HighSocSince = &t
		return nil
	}
	if now.Sub(*e.state.HighSocSince) >= balancingHoldDuration {
		return e.completeBalancing(now)
	}
	return nil
}

// CompleteBalancing finishes the cycle manually, regardless of SOC.
func (e *Engine) CompleteBalancing() (bool, error) {
	if !e.state.BalancingOngoing {
		return false, nil
	}
	if err := e.completeBalancing(e.Now()); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) completeBalancing(now time.Time) error {
	e.state.BalancingOngoing = false
	e.state.HighSocSince = nil
	e.state.LastBalancing = &now
	e.Logger.Info("balancing cycle complete", zap.Time("at", now))
	if e.Notifier != nil {
		return e.Notifier.Notify(balancingCompleteMsg)
	}
	return nil
}
