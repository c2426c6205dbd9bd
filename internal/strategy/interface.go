package strategy

import "trenches/internal/domain"

// ActionType is the side of a strategy signal.
type ActionType int

const (
	ActionBuy ActionType = iota
	ActionSell
)

func (a ActionType) String() string {
	switch a {
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Action is a trade signal for one token at the price that triggered it.
type Action struct {
	Type    ActionType
	TokenID string
	Price   float64
}

// Strategy consumes market snapshots and emits trade signals.
// Implementations are called from a single goroutine and need no locking.
type Strategy interface {
	OnMarketUpdate(state domain.MarketState) []Action
}
