package domain

import "fmt"

// Candle is an OHLCV summary of one timeframe bucket.
type Candle struct {
	Time   int64   `json:"time"` // bucket start, unix seconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Timeframe is one of the fixed candle widths.
type Timeframe uint8

const (
	Timeframe1s Timeframe = iota
	Timeframe5s
	Timeframe1m
	Timeframe5m

	TimeframeCount = 4
)

// Timeframes lists every timeframe in canonical order.
var Timeframes = [TimeframeCount]Timeframe{Timeframe1s, Timeframe5s, Timeframe1m, Timeframe5m}

var timeframeSeconds = [TimeframeCount]int64{1, 5, 60, 300}
var timeframeNames = [TimeframeCount]string{"1s", "5s", "1m", "5m"}

// Seconds returns the bucket width.
func (tf Timeframe) Seconds() int64 {
	return timeframeSeconds[tf]
}

func (tf Timeframe) String() string {
	if int(tf) < TimeframeCount {
		return timeframeNames[tf]
	}
	return "unknown"
}

// ParseTimeframe maps "1s", "5s", "1m" or "5m" to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	for i, name := range timeframeNames {
		if name == s {
			return Timeframe(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

// CandleStore holds the closed history and the open candle for every timeframe.
// Histories are treated as immutable once published; the aggregator copies on close.
type CandleStore struct {
	Closed  [TimeframeCount][]Candle `json:"closed"`
	Current [TimeframeCount]*Candle  `json:"current"`
}
