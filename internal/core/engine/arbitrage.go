package engine

import (
	"math"

	"github.com/acazau/gridpilot/internal/core/domain"
)

// Arbitrage reason codes, recorded in outcome details.
const (
	ArbitrageEnabled          = "enabled"
	ArbitrageMissingSellPrice = "missing_morning_sell_price"
	ArbitragePriceBelowMin    = "sell_price_below_threshold"
	ArbitrageMissingForecast  = "missing_remaining_forecast"
	ArbitrageInvalidForecast  = "invalid_remaining_forecast"
	ArbitrageLimitZero        = "arb_limit_zero"
)

// ArbitrageInputs sizes an extra charge for a later peak-price sell.
type ArbitrageInputs struct {
	SellPrice domain.FloatReading
	MinPrice  float64
	// CapKwh is the externally forecast chargeable/sellable energy.
	CapKwh domain.FloatReading

	FullCapacityKwh  float64
	CurrentEnergyKwh float64
	RequiredKwh      float64

	NowHour       int
	WindowStart   int
	WindowEnd     int
	SellStartHour int

	PVHourly map[int]float64
	// Demand returns the margin-adjusted demand for one hour.
	Demand func(hour int) float64
}

// ArbitrageResult carries the sized energy and the reason it was or was
// not enabled.
type ArbitrageResult struct {
	Kwh         float64
	ArbLimitKwh float64
	Reason      string
}

// Arbitrage bounds an extra peak-sell charge by the battery headroom left
// after near-term demand, less the PV surplus expected to arrive for free
// before the sell window opens. Zero with a reason code when the sell
// price is unusable, not above the minimum, or no headroom remains.
func Arbitrage(in ArbitrageInputs) ArbitrageResult {
	if !in.SellPrice.OK() {
		return ArbitrageResult{Reason: ArbitrageMissingSellPrice}
	}
	if in.SellPrice.Value <= in.MinPrice {
		return ArbitrageResult{Reason: ArbitragePriceBelowMin}
	}
	switch in.CapKwh.Status {
	case domain.ReadOk:
	case domain.ReadInvalid:
		return ArbitrageResult{Reason: ArbitrageInvalidForecast}
	default:
		return ArbitrageResult{Reason: ArbitrageMissingForecast}
	}

	freeAfter := in.FullCapacityKwh - (in.CurrentEnergyKwh + in.RequiredKwh)

	// linear hour span, no midnight wrap: the sell window opens later the
	// same day or not at all
	surplus := 0.0
	from := max(in.WindowStart, in.NowHour)
	to := min(in.SellStartHour, in.WindowEnd)
	for h := from; h < to; h++ {
		demand := 0.0
		if in.Demand != nil {
			demand = in.Demand(h)
		}
		surplus += math.Max(in.PVHourly[h]-demand, 0)
	}

	arbLimit := math.Max(freeAfter-surplus, 0)
	if arbLimit <= 0 {
		return ArbitrageResult{Reason: ArbitrageLimitZero}
	}
	return ArbitrageResult{
		Kwh:         math.Min(math.Max(in.CapKwh.Value, 0), arbLimit),
		ArbLimitKwh: arbLimit,
		Reason:      ArbitrageEnabled,
	}
}
