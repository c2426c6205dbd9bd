package engine

import (
	"math"

	"trenches/internal/domain"
)

// MaxCandles caps the closed history of each timeframe.
const MaxCandles = 500

// Tick is one price observation fed into the candle aggregator.
type Tick struct {
	Price  float64 // close
	Open   float64
	High   float64
	Low    float64
	Volume float64
}

// TickFromState extracts the candle inputs of a price engine tick.
func TickFromState(s domain.PriceState) Tick {
	return Tick{Price: s.Price, Open: s.Open, High: s.High, Low: s.Low, Volume: s.Volume}
}

// AddTick folds t, observed at ts (unix seconds), into every timeframe of store
// and returns the updated store. store itself is left untouched.
func AddTick(store domain.CandleStore, t Tick, ts float64) domain.CandleStore {
	next := store
	for _, tf := range domain.Timeframes {
		width := tf.Seconds()
		bucket := int64(math.Floor(ts/float64(width))) * width
		cur := store.Current[tf]

		if cur == nil || cur.Time != bucket {
			if cur != nil {
				next.Closed[tf] = appendCapped(store.Closed[tf], *cur, MaxCandles)
			}
			next.Current[tf] = &domain.Candle{
				Time:   bucket,
				Open:   t.Open,
				High:   max(t.High, t.Open, t.Price),
				Low:    min(t.Low, t.Open, t.Price),
				Close:  t.Price,
				Volume: t.Volume,
			}
			continue
		}

		c := *cur
		c.High = max(c.High, t.High, t.Price)
		c.Low = min(c.Low, t.Low, t.Price)
		c.Close = t.Price
		c.Volume += t.Volume
		next.Current[tf] = &c
	}
	return next
}

// AllCandles returns the closed history of tf followed by the open candle, if any.
// The result is a fresh slice.
func AllCandles(store domain.CandleStore, tf domain.Timeframe) []domain.Candle {
	closed := store.Closed[tf]
	out := make([]domain.Candle, len(closed), len(closed)+1)
	copy(out, closed)
	if cur := store.Current[tf]; cur != nil {
		out = append(out, *cur)
	}
	return out
}

// appendCapped returns a new slice holding the newest limit-1 entries of
// history plus c. history is never written through.
func appendCapped(history []domain.Candle, c domain.Candle, limit int) []domain.Candle {
	drop := max(len(history)+1-limit, 0)
	out := make([]domain.Candle, 0, len(history)-drop+1)
	out = append(out, history[drop:]...)
	return append(out, c)
}
