package event

import (
	"sync"
)

// tradePool recycles TradeEvents between the game service and the sequencer.
//
// Usage:
//
//	ev := AcquireTradeEvent()
//	ev.TokenID = "abc"
//	// ... hand to the sequencer, which releases it after processing ...
var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.TsMs = 0
	ev.TokenID = ""
	ev.AmountSOL = 0
	ev.IsBuy = false

	tradePool.Put(ev)
}

// Warmup pre-allocates trade events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*TradeEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTradeEvent())
	}
	for _, ev := range evs {
		ReleaseTradeEvent(ev)
	}
}
