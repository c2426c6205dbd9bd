package strategy_test

import (
	"testing"

	"trenches/internal/domain"
	"trenches/internal/strategy"
)

func marketWith(prices map[string]float64) domain.MarketState {
	tokens := make(map[string]domain.Token, len(prices))
	for id, p := range prices {
		tokens[id] = domain.Token{ID: id, Price: domain.PriceState{Price: p}}
	}
	return domain.MarketState{Tokens: tokens}
}

func TestNewSMACross_RejectsBadPeriods(t *testing.T) {
	for _, tc := range []struct{ short, long int }{{0, 5}, {5, 5}, {6, 5}, {-1, 3}} {
		if _, err := strategy.NewSMACross(tc.short, tc.long); err == nil {
			t.Errorf("NewSMACross(%d, %d): expected error", tc.short, tc.long)
		}
	}
}

func TestSMACross(t *testing.T) {
	strat, err := strategy.NewSMACross(3, 5)
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}

	push := func(price float64) []strategy.Action {
		return strat.OnMarketUpdate(marketWith(map[string]float64{"tok-1": price}))
	}

	// Five flat samples fill the window without a previous average.
	for i := 0; i < 5; i++ {
		if actions := push(100); len(actions) > 0 {
			t.Errorf("T%d: expected no actions, got %v", i+1, actions)
		}
	}

	// [100 100 100 100 200]: short 133.3 > long 120 => golden cross.
	actions := push(200)
	if len(actions) != 1 {
		t.Fatalf("T6: expected 1 action (BUY), got %d", len(actions))
	}
	if actions[0].Type != strategy.ActionBuy {
		t.Errorf("T6: expected BUY, got %s", actions[0].Type)
	}
	if actions[0].TokenID != "tok-1" || actions[0].Price != 200 {
		t.Errorf("T6: unexpected action %+v", actions[0])
	}

	// [100 100 100 200 50]: short 116.7 still above long 110.
	if actions := push(50); len(actions) != 0 {
		t.Errorf("T7: expected no actions, got %v", actions)
	}

	// [100 100 200 50 0.5]: short 83.5 < long 90.1 => dead cross.
	actions = push(0.5)
	if len(actions) != 1 {
		t.Fatalf("T8: expected 1 action (SELL), got %d", len(actions))
	}
	if actions[0].Type != strategy.ActionSell {
		t.Errorf("T8: expected SELL, got %s", actions[0].Type)
	}
}

func TestSMACross_IndependentWindows(t *testing.T) {
	strat, err := strategy.NewSMACross(2, 3)
	if err != nil {
		t.Fatalf("NewSMACross: %v", err)
	}

	for i := 0; i < 3; i++ {
		strat.OnMarketUpdate(marketWith(map[string]float64{"a": 1, "b": 1}))
	}
	// A new token joins; its window starts empty.
	strat.OnMarketUpdate(marketWith(map[string]float64{"a": 1, "b": 1, "c": 1}))
	if strat.Tracked() != 3 {
		t.Fatalf("expected 3 tracked tokens, got %d", strat.Tracked())
	}

	actions := strat.OnMarketUpdate(marketWith(map[string]float64{"a": 2, "b": 0.5, "c": 5}))
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", actions)
	}
	if actions[0].TokenID != "a" || actions[0].Type != strategy.ActionBuy {
		t.Errorf("expected BUY a first, got %+v", actions[0])
	}
	if actions[1].TokenID != "b" || actions[1].Type != strategy.ActionSell {
		t.Errorf("expected SELL b second, got %+v", actions[1])
	}
}

func TestActionType_String(t *testing.T) {
	if strategy.ActionBuy.String() != "BUY" || strategy.ActionSell.String() != "SELL" {
		t.Error("unexpected action names")
	}
	if strategy.ActionType(9).String() != "UNKNOWN" {
		t.Error("expected UNKNOWN for out of range action")
	}
}
