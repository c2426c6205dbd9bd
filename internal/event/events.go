package event

// Type defines the type of event.
type Type uint16

const (
	EvTick Type = iota + 1
	EvTrade
)

// Event is the interface for all sequencer inbox events.
type Event interface {
	GetSeq() uint64
	GetType() Type
}

// BaseEvent contains common fields for all events.
// Seq is stamped by the sequencer when the event is processed.
type BaseEvent struct {
	Seq  uint64 `json:"seq"`
	TsMs int64  `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64 { return e.Seq }

// TickEvent asks the sequencer to advance the market immediately.
type TickEvent struct {
	BaseEvent
}

func (e TickEvent) GetType() Type { return EvTick }

// TradeEvent carries a player trade's price pressure into the market.
type TradeEvent struct {
	BaseEvent
	TokenID   string  `json:"token_id"`
	AmountSOL float64 `json:"amount_sol"`
	IsBuy     bool    `json:"is_buy"`
}

func (e TradeEvent) GetType() Type { return EvTrade }
