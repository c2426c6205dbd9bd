package domain

// TokenStatus is the lifecycle stage of a token.
type TokenStatus string

const (
	StatusNew      TokenStatus = "new"
	StatusSoon     TokenStatus = "soon"
	StatusMigrated TokenStatus = "migrated"
)

// Token is a simulated memecoin. It is a value type: copies share nothing
// mutable except slices, which the engine never writes through.
type Token struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Ticker       string      `json:"ticker"`
	Avatar       string      `json:"avatar"`
	Status       TokenStatus `json:"status"`
	Price        PriceState  `json:"price_state"`
	Candles      CandleStore `json:"candles"`
	CreatedAtMs  int64       `json:"created_at"`
	MigratedAtMs *int64      `json:"migrated_at"`
	Liquidity    float64     `json:"liquidity"`
	MarketCap    float64     `json:"market_cap"`
	PriceHistory []float64   `json:"price_history"`
	TotalSupply  float64     `json:"total_supply"`
}

// TokenSummary is the compact view of a token sent to clients every tick.
type TokenSummary struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Ticker    string      `json:"ticker"`
	Avatar    string      `json:"avatar"`
	Status    TokenStatus `json:"status"`
	Phase     Phase       `json:"phase"`
	Price     float64     `json:"price"`
	MarketCap float64     `json:"market_cap"`
	Liquidity float64     `json:"liquidity"`
	Volume    float64     `json:"volume"`
	History   []float64   `json:"history"`
}

// Summary returns the client view of the token.
func (t Token) Summary() TokenSummary {
	return TokenSummary{
		ID:        t.ID,
		Name:      t.Name,
		Ticker:    t.Ticker,
		Avatar:    t.Avatar,
		Status:    t.Status,
		Phase:     t.Price.Phase,
		Price:     t.Price.Price,
		MarketCap: t.MarketCap,
		Liquidity: t.Liquidity,
		Volume:    t.Price.Volume,
		History:   t.PriceHistory,
	}
}
