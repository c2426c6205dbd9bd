package engine

import (
	"math"
	"math/rand/v2"
)

// Source supplies uniform draws in [0,1). It is the only randomness input of
// the engine, so tests can script every draw.
type Source interface {
	Float64() float64
}

// NewSource returns a PCG source seeded from the runtime entropy pool.
// The returned source is not safe for concurrent use.
func NewSource() Source {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewSeededSource returns a reproducible source.
func NewSeededSource(seed1, seed2 uint64) Source {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// normal draws a standard-normal sample with the Box–Muller transform.
// 1-U keeps the log argument in (0,1].
func normal(src Source) float64 {
	u := 1 - src.Float64()
	v := src.Float64()
	return math.Sqrt(-2*math.Log(u)) * math.Cos(2*math.Pi*v)
}

// intBetween returns an integer uniformly in [lo, hi).
func intBetween(src Source, lo, hi int) int {
	return lo + int(math.Floor(src.Float64()*float64(hi-lo)))
}

func pick[T any](src Source, items []T) T {
	return items[int(src.Float64()*float64(len(items)))]
}
