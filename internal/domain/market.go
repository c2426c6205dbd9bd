package domain

// Phase is the market mood governing a token's drift, volatility and duration.
type Phase uint8

const (
	PhaseAccumulation Phase = iota
	PhasePump
	PhaseMegaPump
	PhasePeak
	PhaseDump
	PhaseCrab
	PhaseRecovery

	// PhaseCount is the number of phases; tables indexed by Phase use it as their length.
	PhaseCount = 7
)

var phaseNames = [PhaseCount]string{
	"ACCUMULATION", "PUMP", "MEGA_PUMP", "PEAK", "DUMP", "CRAB", "RECOVERY",
}

// String returns the canonical upper-case phase name.
func (p Phase) String() string {
	if int(p) < PhaseCount {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

// MarshalText encodes the phase by name so snapshots stay readable.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name; unknown names fall back to CRAB.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	*p = PhaseCrab
	return nil
}

// PriceState is the per-token output of one price engine tick.
// Hot fields first, mirroring the order they are touched in the tick path.
type PriceState struct {
	Price         float64 `json:"price"`
	PendingImpact float64 `json:"pending_impact"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
	Phase         Phase   `json:"phase"`
	TicksInPhase  int     `json:"ticks_in_phase"`
	PhaseDuration int     `json:"phase_duration"`
}

// EventType tags a MarketEvent.
type EventType string

const (
	EventNewToken  EventType = "new_token"
	EventMigration EventType = "migration"
)

// MarketEvent is a transient notification produced by the simulator.
type MarketEvent struct {
	Type        EventType      `json:"type"`
	TokenID     string         `json:"token_id"`
	TokenName   string         `json:"token_name"`
	TokenTicker string         `json:"token_ticker"`
	TimestampMs int64          `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// MarketState is an immutable snapshot of the whole market.
// A tick never mutates a MarketState; it builds the next one.
type MarketState struct {
	Tokens      map[string]Token `json:"tokens"`
	Events      []MarketEvent    `json:"events"`
	TickCount   uint64           `json:"tick_count"`
	StartTimeMs int64            `json:"start_time"`
}

// Token returns the token with the given id.
func (s MarketState) Token(id string) (Token, bool) {
	t, ok := s.Tokens[id]
	return t, ok
}

// Prices returns the current price of every token keyed by id.
func (s MarketState) Prices() map[string]float64 {
	out := make(map[string]float64, len(s.Tokens))
	for id, t := range s.Tokens {
		out[id] = t.Price.Price
	}
	return out
}
