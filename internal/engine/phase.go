package engine

import (
	"fmt"
	"math"

	"trenches/internal/domain"
)

// PhaseConfig parameterises the price process while a token is in one phase.
type PhaseConfig struct {
	Drift       float64 // per-tick log-return bias
	Volatility  float64 // log-return standard deviation
	MinDuration int     // ticks, inclusive
	MaxDuration int     // ticks, exclusive
	// Transitions holds the weight of moving to each phase, indexed by domain.Phase.
	Transitions [domain.PhaseCount]float64
}

// phaseTable is indexed by domain.Phase. Transition columns use the same order:
// ACCUMULATION, PUMP, MEGA_PUMP, PEAK, DUMP, CRAB, RECOVERY.
var phaseTable = [domain.PhaseCount]PhaseConfig{
	domain.PhaseAccumulation: {
		Drift: 0.0005, Volatility: 0.008, MinDuration: 30, MaxDuration: 120,
		Transitions: [domain.PhaseCount]float64{0.10, 0.55, 0.05, 0, 0.10, 0.15, 0.05},
	},
	domain.PhasePump: {
		Drift: 0.008, Volatility: 0.025, MinDuration: 15, MaxDuration: 80,
		Transitions: [domain.PhaseCount]float64{0.05, 0.10, 0.20, 0.40, 0.15, 0.05, 0.05},
	},
	domain.PhaseMegaPump: {
		Drift: 0.025, Volatility: 0.05, MinDuration: 5, MaxDuration: 30,
		Transitions: [domain.PhaseCount]float64{0, 0.10, 0.05, 0.50, 0.25, 0.05, 0.05},
	},
	domain.PhasePeak: {
		Drift: 0, Volatility: 0.04, MinDuration: 5, MaxDuration: 20,
		Transitions: [domain.PhaseCount]float64{0, 0.10, 0.02, 0.03, 0.60, 0.15, 0.10},
	},
	domain.PhaseDump: {
		Drift: -0.012, Volatility: 0.035, MinDuration: 10, MaxDuration: 60,
		Transitions: [domain.PhaseCount]float64{0.15, 0.15, 0.02, 0, 0.08, 0.35, 0.25},
	},
	domain.PhaseCrab: {
		Drift: 0, Volatility: 0.006, MinDuration: 30, MaxDuration: 150,
		Transitions: [domain.PhaseCount]float64{0.20, 0.40, 0.05, 0, 0.10, 0.10, 0.15},
	},
	domain.PhaseRecovery: {
		Drift: 0.004, Volatility: 0.015, MinDuration: 15, MaxDuration: 60,
		Transitions: [domain.PhaseCount]float64{0.20, 0.45, 0.05, 0, 0.10, 0.15, 0.05},
	},
}

const phaseWeightTolerance = 1e-9

func init() {
	if err := ValidatePhaseTable(); err != nil {
		panic(err)
	}
}

// PhaseConfigFor returns the configuration of phase p.
func PhaseConfigFor(p domain.Phase) PhaseConfig {
	return phaseTable[p]
}

// ValidatePhaseTable checks that every transition row sums to 1 and every
// duration range is non-empty.
func ValidatePhaseTable() error {
	for i, cfg := range phaseTable {
		p := domain.Phase(i)
		var sum float64
		for _, w := range cfg.Transitions {
			if w < 0 {
				return fmt.Errorf("phase %s: negative transition weight", p)
			}
			sum += w
		}
		if math.Abs(sum-1) > phaseWeightTolerance {
			return fmt.Errorf("phase %s: transition weights sum to %v", p, sum)
		}
		if cfg.MinDuration <= 0 || cfg.MaxDuration <= cfg.MinDuration {
			return fmt.Errorf("phase %s: bad duration range [%d,%d)", p, cfg.MinDuration, cfg.MaxDuration)
		}
	}
	return nil
}

// selectNextPhase walks the weights in canonical order and returns the first
// phase whose cumulative weight reaches the draw. Rounding slack lands on CRAB.
func selectNextPhase(weights [domain.PhaseCount]float64, src Source) domain.Phase {
	r := src.Float64()
	var cumulative float64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		cumulative += w
		if r <= cumulative {
			return domain.Phase(i)
		}
	}
	return domain.PhaseCrab
}

func rollDuration(p domain.Phase, src Source) int {
	cfg := phaseTable[p]
	return intBetween(src, cfg.MinDuration, cfg.MaxDuration)
}
