package event

import "testing"

func TestTradeEventPool_ResetsOnRelease(t *testing.T) {
	ev := AcquireTradeEvent()
	ev.Seq = 7
	ev.TokenID = "tok1"
	ev.AmountSOL = 3
	ev.IsBuy = true
	ReleaseTradeEvent(ev)

	// sync.Pool may or may not hand the same pointer back; either way it must be zeroed.
	got := AcquireTradeEvent()
	defer ReleaseTradeEvent(got)
	if got.Seq != 0 || got.TokenID != "" || got.AmountSOL != 0 || got.IsBuy {
		t.Errorf("expected zeroed event, got %+v", *got)
	}
}

func TestReleaseTradeEvent_Nil(t *testing.T) {
	ReleaseTradeEvent(nil) // must not panic
}

func TestEventTypes(t *testing.T) {
	var tick Event = &TickEvent{}
	var trade Event = &TradeEvent{}
	if tick.GetType() != EvTick {
		t.Errorf("tick type = %d", tick.GetType())
	}
	if trade.GetType() != EvTrade {
		t.Errorf("trade type = %d", trade.GetType())
	}
}
