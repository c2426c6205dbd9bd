package strategy

import (
	"fmt"
	"sort"

	"trenches/internal/domain"
)

// SMACross implements a simple moving-average crossover across every token in the market.
// Each token keeps its own fixed-size ring buffer, so steady-state updates do not allocate.
type SMACross struct {
	shortPeriod int
	longPeriod  int
	windows     map[string]*window
	ids         []string
}

type window struct {
	prices []float64
	head   int // next write position
	count  int
	sum    float64 // running sum over the long period

	prevShort float64
	prevLong  float64
}

// NewSMACross creates a crossover strategy. shortPeriod must be positive and less than longPeriod.
func NewSMACross(shortPeriod, longPeriod int) (*SMACross, error) {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		return nil, fmt.Errorf("sma cross: short period %d must be in (0, %d)", shortPeriod, longPeriod)
	}
	return &SMACross{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		windows:     make(map[string]*window),
	}, nil
}

// OnMarketUpdate feeds every token's price into its window and returns crossover signals
// ordered by token id.
func (s *SMACross) OnMarketUpdate(state domain.MarketState) []Action {
	if len(state.Tokens) != len(s.ids) {
		s.syncIDs(state)
	}

	var actions []Action
	for _, id := range s.ids {
		tok, ok := state.Tokens[id]
		if !ok {
			continue
		}
		w := s.windows[id]
		if a, ok := s.update(w, tok.Price.Price); ok {
			a.TokenID = id
			actions = append(actions, a)
		}
	}
	return actions
}

// Tracked returns the number of tokens with a price window.
func (s *SMACross) Tracked() int {
	return len(s.windows)
}

func (s *SMACross) syncIDs(state domain.MarketState) {
	s.ids = s.ids[:0]
	for id := range state.Tokens {
		if _, ok := s.windows[id]; !ok {
			s.windows[id] = &window{prices: make([]float64, s.longPeriod)}
		}
		s.ids = append(s.ids, id)
	}
	sort.Strings(s.ids)
}

func (s *SMACross) update(w *window, price float64) (Action, bool) {
	// When full, head points at the oldest value.
	if w.count == s.longPeriod {
		w.sum -= w.prices[w.head]
	}
	w.prices[w.head] = price
	w.sum += price
	w.head = (w.head + 1) % s.longPeriod
	if w.count < s.longPeriod {
		w.count++
	}
	if w.count < s.longPeriod {
		return Action{}, false
	}

	currLong := w.sum / float64(s.longPeriod)
	currShort := s.shortSMA(w)

	var (
		act Action
		hit bool
	)
	if w.prevShort != 0 && w.prevLong != 0 {
		switch {
		case w.prevShort <= w.prevLong && currShort > currLong:
			act, hit = Action{Type: ActionBuy, Price: price}, true
		case w.prevShort >= w.prevLong && currShort < currLong:
			act, hit = Action{Type: ActionSell, Price: price}, true
		}
	}

	w.prevShort = currShort
	w.prevLong = currLong
	return act, hit
}

// shortSMA walks backwards from the latest sample.
func (s *SMACross) shortSMA(w *window) float64 {
	var sum float64
	idx := w.head
	for i := 0; i < s.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = s.longPeriod - 1
		}
		sum += w.prices[idx]
	}
	return sum / float64(s.shortPeriod)
}
