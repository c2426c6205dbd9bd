package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trenches/internal/domain"
)

func TestTickPrice_Invariants(t *testing.T) {
	src := NewSeededSource(1, 2)

	for p := domain.Phase(0); p < domain.PhaseCount; p++ {
		s := NewPriceState(InitialPrice, src)
		s.Phase = p
		for i := 0; i < 5000; i++ {
			next := TickPrice(s, src)

			require.Greater(t, next.Price, 0.0)
			assert.GreaterOrEqual(t, next.Price, PriceFloor)
			assert.Equal(t, s.Price, next.Open, "open must equal previous close")
			assert.GreaterOrEqual(t, next.High, math.Max(next.Open, next.Price))
			assert.LessOrEqual(t, next.Low, math.Min(next.Open, next.Price))
			assert.GreaterOrEqual(t, next.Low, PriceFloor)
			assert.Greater(t, next.Volume, 0.0)
			assert.Less(t, next.TicksInPhase, next.PhaseDuration+1)
			s = next
		}
	}
}

func TestTickPrice_DoesNotMutateInput(t *testing.T) {
	src := NewSeededSource(3, 4)
	s := NewPriceState(0.5, src)
	s.PendingImpact = 0.1
	before := s

	_ = TickPrice(s, src)
	assert.Equal(t, before, s)
}

func TestTickPrice_ImpactDecaysToZero(t *testing.T) {
	s := NewPriceState(InitialPrice, constSource(0.25))
	s.PendingImpact = 0.5

	prev := s.PendingImpact
	reached := -1
	for i := 0; i < 100; i++ {
		s = TickPrice(s, constSource(0.25))
		require.LessOrEqual(t, s.PendingImpact, prev)
		prev = s.PendingImpact
		if s.PendingImpact == 0 && reached < 0 {
			reached = i
		}
	}
	assert.GreaterOrEqual(t, reached, 0, "pending impact should snap to zero")
	assert.Zero(t, s.PendingImpact)
}

func TestTickPrice_ImpactMovesPrice(t *testing.T) {
	s := NewPriceState(0.05, constSource(0.25))
	s.PendingImpact = 0.2

	next := TickPrice(s, constSource(0.25))
	assert.InDelta(t, 0.05*math.Exp(0.2), next.Price, 0.05*0.01)
	assert.InDelta(t, 0.2*impactRetention, next.PendingImpact, 1e-12)
}

func TestTickPrice_Floor(t *testing.T) {
	s := NewPriceState(PriceFloor, constSource(0.25))
	s.PendingImpact = -5

	next := TickPrice(s, constSource(0.25))
	assert.Equal(t, PriceFloor, next.Price)
	assert.Equal(t, PriceFloor, next.Low)
}

func TestTickPrice_PhaseRollover(t *testing.T) {
	s := NewPriceState(InitialPrice, constSource(0.25))
	s.TicksInPhase = s.PhaseDuration - 1

	next := TickPrice(s, constSource(0.25))
	// 0.25 lands in the PUMP band of the ACCUMULATION row.
	assert.Equal(t, domain.PhasePump, next.Phase)
	assert.Zero(t, next.TicksInPhase)
	cfg := PhaseConfigFor(domain.PhasePump)
	assert.GreaterOrEqual(t, next.PhaseDuration, cfg.MinDuration)
	assert.Less(t, next.PhaseDuration, cfg.MaxDuration)
}

func TestTradeImpact(t *testing.T) {
	assert.InDelta(t, 0.002, TradeImpact(10, true, 100), 1e-12)
	assert.InDelta(t, -0.002, TradeImpact(10, false, 100), 1e-12)
	// Liquidity below one is clamped.
	assert.InDelta(t, 0.2, TradeImpact(10, true, 0.5), 1e-12)
}

func TestVolumeMultiplier(t *testing.T) {
	assert.Equal(t, 5.0, volumeMultiplier(domain.PhaseMegaPump))
	assert.Equal(t, 4.0, volumeMultiplier(domain.PhasePeak))
	assert.Equal(t, 3.5, volumeMultiplier(domain.PhaseDump))
	assert.Equal(t, 3.0, volumeMultiplier(domain.PhasePump))
	assert.Equal(t, 1.0, volumeMultiplier(domain.PhaseCrab))
}
