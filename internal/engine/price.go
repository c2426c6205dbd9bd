package engine

import (
	"math"

	"trenches/internal/domain"
)

const (
	// PriceFloor keeps every price strictly positive.
	PriceFloor = 0.0001

	impactFactor    = 0.02
	impactRetention = 0.85
	impactEpsilon   = 0.0001

	pumpJumpChance = 0.05
	dumpJumpChance = 0.08
)

// NewPriceState starts a token at price in ACCUMULATION with a freshly rolled duration.
func NewPriceState(price float64, src Source) domain.PriceState {
	return domain.PriceState{
		Price:         price,
		Phase:         domain.PhaseAccumulation,
		PhaseDuration: rollDuration(domain.PhaseAccumulation, src),
		Open:          price,
		High:          price,
		Low:           price,
	}
}

// TickPrice advances one token's price process by one tick.
// It reads nothing but s and src.
func TickPrice(s domain.PriceState, src Source) domain.PriceState {
	cfg := phaseTable[s.Phase]
	vol := cfg.Volatility

	const dt = 1.0
	gbm := (cfg.Drift-0.5*vol*vol)*dt + vol*math.Sqrt(dt)*normal(src)

	var jump float64
	switch s.Phase {
	case domain.PhasePump, domain.PhaseMegaPump:
		if src.Float64() < pumpJumpChance {
			jump += 0.02 + src.Float64()*0.03
		}
	case domain.PhaseDump:
		if src.Float64() < dumpJumpChance {
			jump -= 0.015 + src.Float64()*0.025
		}
	}
	wickNoise := (src.Float64() - 0.5) * vol * 0.3

	ret := gbm + jump + wickNoise + s.PendingImpact
	price := math.Max(s.Price*math.Exp(ret), PriceFloor)

	open, closePrice := s.Price, price
	wickUp := math.Abs(normal(src) * vol * s.Price * 0.5)
	wickDown := math.Abs(normal(src) * vol * s.Price * 0.5)
	high := math.Max(open, closePrice) + wickUp
	low := math.Max(math.Min(open, closePrice)-wickDown, PriceFloor)

	volume := (100 + src.Float64()*500) * volumeMultiplier(s.Phase) * (1 + src.Float64())

	impact := s.PendingImpact * impactRetention
	if math.Abs(impact) < impactEpsilon {
		impact = 0
	}

	next := domain.PriceState{
		Price:         price,
		PendingImpact: impact,
		Open:          open,
		High:          high,
		Low:           low,
		Volume:        volume,
		Phase:         s.Phase,
		TicksInPhase:  s.TicksInPhase + 1,
		PhaseDuration: s.PhaseDuration,
	}
	if next.TicksInPhase >= s.PhaseDuration {
		next.Phase = selectNextPhase(cfg.Transitions, src)
		next.TicksInPhase = 0
		next.PhaseDuration = rollDuration(next.Phase, src)
	}
	return next
}

// TradeImpact returns the signed pending-impact contribution of a trade.
func TradeImpact(amountSOL float64, isBuy bool, liquidity float64) float64 {
	impact := amountSOL / math.Max(liquidity, 1) * impactFactor
	if !isBuy {
		return -impact
	}
	return impact
}

// WithTradeImpact adds a trade's pressure to the pending impact. The price
// itself only moves on the following ticks.
func WithTradeImpact(s domain.PriceState, amountSOL float64, isBuy bool, liquidity float64) domain.PriceState {
	s.PendingImpact += TradeImpact(amountSOL, isBuy, liquidity)
	return s
}

func volumeMultiplier(p domain.Phase) float64 {
	switch p {
	case domain.PhaseMegaPump:
		return 5
	case domain.PhasePeak:
		return 4
	case domain.PhaseDump:
		return 3.5
	case domain.PhasePump:
		return 3
	default:
		return 1
	}
}
