package engine

import (
	"math"
	"time"

	"trenches/internal/domain"
)

const (
	// MaxEvents caps the event log carried in MarketState.
	MaxEvents = 100
	// DefaultInitialTokens is the population seeded by Initialize.
	DefaultInitialTokens = 35

	backfillSoon     = 8 // tokens [0,8) start in the soon band
	backfillMigrated = 4 // the next 4 start migrated

	minLiquidity       = 10
	buyLiquidityRatio  = 0.5
	sellLiquidityRatio = 0.3
)

// Simulator advances a MarketState. It is not safe for concurrent use; the
// Sequencer serialises every call.
type Simulator struct {
	src     Source
	now     func() time.Time
	factory *Factory
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSource replaces the entropy source.
func WithSource(src Source) Option {
	return func(s *Simulator) { s.src = src }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator creates a simulator with fresh entropy and the system clock
// unless overridden.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = NewSource()
	}
	s.factory = NewFactory(s.src, s.now)
	return s
}

// Factory exposes the simulator's token factory.
func (s *Simulator) Factory() *Factory {
	return s.factory
}

// NewMarket returns an empty market starting now.
func (s *Simulator) NewMarket() domain.MarketState {
	return domain.MarketState{
		Tokens:      make(map[string]domain.Token),
		StartTimeMs: s.now().UnixMilli(),
	}
}

// Initialize adds count tokens to state. The first few are back-filled with a
// simulated history so the market opens mid-flight.
func (s *Simulator) Initialize(state domain.MarketState, count int) domain.MarketState {
	now := s.now()
	tokens := cloneTokens(state.Tokens, count)
	events := make([]domain.MarketEvent, 0, count)

	for i := 0; i < count; i++ {
		tok := s.factory.NewToken()

		switch {
		case i < backfillSoon:
			target := 0.1 + s.src.Float64()*0.7
			s.backfill(&tok, target, intBetween(s.src, 200, 400), now)
			tok.Status = domain.StatusSoon
			tok.Liquidity = 200 + s.src.Float64()*500
		case i < backfillSoon+backfillMigrated:
			target := 1.0 + s.src.Float64()*4.0
			s.backfill(&tok, target, intBetween(s.src, 400, 700), now)
			tok.Status = domain.StatusMigrated
			migratedAt := now.UnixMilli() - int64(s.src.Float64()*300_000)
			tok.MigratedAtMs = &migratedAt
			tok.Liquidity = 500 + s.src.Float64()*2000
		}
		tok.MarketCap = tok.Price.Price * tok.TotalSupply

		tokens[tok.ID] = tok
		events = append(events, newTokenEvent(tok, now.UnixMilli()))
	}

	state.Tokens = tokens
	state.Events = appendEvents(state.Events, events)
	return state
}

// backfill runs the price engine offline from InitialPrice toward target,
// spacing ticks two seconds apart so they end just before now.
func (s *Simulator) backfill(tok *domain.Token, target float64, maxTicks int, now time.Time) {
	nowSec := now.Unix()
	ps := NewPriceState(InitialPrice, s.src)
	ps.PhaseDuration = 5 + intBetween(s.src, 0, 10)
	var candles domain.CandleStore
	history := []float64{InitialPrice}

	for i := 0; i < maxTicks; i++ {
		ps = TickPrice(ps, s.src)
		ts := nowSec - int64(maxTicks-i)*2
		candles = AddTick(candles, TickFromState(ps), float64(ts))
		history = append(history, ps.Price)

		if ps.Price >= target*0.8 && s.src.Float64() < 0.15 {
			break
		}
		if ps.Price > target*2 {
			break
		}
	}

	if ratio := target / ps.Price; math.Abs(ratio-1) > 0.01 {
		prev := history[len(history)-1]
		ps.Price *= 0.7 + ratio*0.3
		closing := Tick{Price: ps.Price, Open: prev, High: ps.Price * 1.005, Low: ps.Price * 0.995, Volume: 150}
		candles = AddTick(candles, closing, float64(nowSec-1))
		history = append(history, ps.Price)
	}

	if len(history) > PriceHistoryLen {
		history = history[len(history)-PriceHistoryLen:]
	}
	tok.Price = ps
	tok.Candles = candles
	tok.PriceHistory = history
}

// Tick advances every token by one price engine step and may spawn one token.
// state is not modified; the returned state shares no mutable data with it.
func (s *Simulator) Tick(state domain.MarketState) (domain.MarketState, []domain.MarketEvent) {
	now := s.now()
	nowMs := now.UnixMilli()
	chartTime := float64(now.Unix())

	tokens := make(map[string]domain.Token, len(state.Tokens)+1)
	var events []domain.MarketEvent

	for id, tok := range state.Tokens {
		prevStatus := tok.Status
		ps := TickPrice(tok.Price, s.src)

		tok.Price = ps
		tok.Candles = AddTick(tok.Candles, TickFromState(ps), chartTime)
		tok.MarketCap = ps.Price * tok.TotalSupply
		tok.PriceHistory = pushHistory(tok.PriceHistory, ps.Price)
		tok = UpdateStatus(tok, nowMs)

		if tok.Status == domain.StatusMigrated && prevStatus != domain.StatusMigrated {
			events = append(events, domain.MarketEvent{
				Type:        domain.EventMigration,
				TokenID:     id,
				TokenName:   tok.Name,
				TokenTicker: tok.Ticker,
				TimestampMs: nowMs,
				Data:        map[string]any{"price": ps.Price},
			})
		}
		tokens[id] = tok
	}

	if ShouldSpawn(len(tokens), s.src) {
		tok := s.factory.NewToken()
		tok.CreatedAtMs = nowMs
		tokens[tok.ID] = tok
		events = append(events, newTokenEvent(tok, nowMs))
	}

	return domain.MarketState{
		Tokens:      tokens,
		Events:      appendEvents(state.Events, events),
		TickCount:   state.TickCount + 1,
		StartTimeMs: state.StartTimeMs,
	}, events
}

// ApplyTrade feeds a player trade into the token's pending impact and
// liquidity. Unknown tokens and non-positive sizes are ignored.
func (s *Simulator) ApplyTrade(state domain.MarketState, tokenID string, amountSOL float64, isBuy bool) domain.MarketState {
	tok, ok := state.Tokens[tokenID]
	if !ok || !(amountSOL > 0) || math.IsInf(amountSOL, 0) {
		return state
	}

	tok.Price = WithTradeImpact(tok.Price, amountSOL, isBuy, tok.Liquidity)
	if isBuy {
		tok.Liquidity += amountSOL * buyLiquidityRatio
	} else {
		tok.Liquidity = math.Max(minLiquidity, tok.Liquidity-amountSOL*sellLiquidityRatio)
	}

	tokens := cloneTokens(state.Tokens, 0)
	tokens[tokenID] = tok
	state.Tokens = tokens
	return state
}

// Candles returns the candles of one token and timeframe, or nil for an unknown token.
func Candles(state domain.MarketState, tokenID string, tf domain.Timeframe) []domain.Candle {
	tok, ok := state.Tokens[tokenID]
	if !ok {
		return nil
	}
	return AllCandles(tok.Candles, tf)
}

func newTokenEvent(tok domain.Token, nowMs int64) domain.MarketEvent {
	return domain.MarketEvent{
		Type:        domain.EventNewToken,
		TokenID:     tok.ID,
		TokenName:   tok.Name,
		TokenTicker: tok.Ticker,
		TimestampMs: nowMs,
	}
}

func cloneTokens(src map[string]domain.Token, extra int) map[string]domain.Token {
	out := make(map[string]domain.Token, len(src)+extra)
	for id, t := range src {
		out[id] = t
	}
	return out
}

// appendEvents returns a new slice of at most MaxEvents, newest last.
func appendEvents(log, added []domain.MarketEvent) []domain.MarketEvent {
	total := len(log) + len(added)
	drop := max(total-MaxEvents, 0)
	out := make([]domain.MarketEvent, 0, total-drop)
	if drop < len(log) {
		out = append(out, log[drop:]...)
		return append(out, added...)
	}
	return append(out, added[drop-len(log):]...)
}

func pushHistory(history []float64, price float64) []float64 {
	drop := max(len(history)+1-PriceHistoryLen, 0)
	out := make([]float64, 0, len(history)-drop+1)
	out = append(out, history[drop:]...)
	return append(out, price)
}
