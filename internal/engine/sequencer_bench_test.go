package engine

import (
	"testing"

	"trenches/internal/event"
)

func newBenchSequencer(tokens int) (*Sequencer, string) {
	sim := NewSimulator(WithSource(NewSeededSource(7, 11)))
	state := sim.Initialize(sim.NewMarket(), tokens)
	seq := NewSequencer(SequencerConfig{InboxSize: 1024}, sim, state, nil)

	var id string
	for k := range state.Tokens {
		id = k
		break
	}
	return seq, id
}

// BenchmarkSequencer_Tick measures one full market tick over a typical population.
func BenchmarkSequencer_Tick(b *testing.B) {
	seq, _ := newBenchSequencer(35)
	ev := &event.TickEvent{}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		seq.Process(ev)
	}
}

// BenchmarkSequencer_Trade measures applying a pooled trade event.
func BenchmarkSequencer_Trade(b *testing.B) {
	seq, id := newBenchSequencer(35)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireTradeEvent()
		ev.TokenID = id
		ev.AmountSOL = 0.5
		ev.IsBuy = i%2 == 0
		seq.Process(ev)
	}
}
