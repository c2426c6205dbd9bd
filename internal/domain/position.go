package domain

import "github.com/shopspring/decimal"

// TradeSide is the direction of a simulated trade.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// Position is a simulated holding of one token. SOL figures are decimal;
// prices are USD per token.
type Position struct {
	TokenID       string          `json:"token_id"`
	TokenName     string          `json:"token_name"`
	TokenTicker   string          `json:"token_ticker"`
	TokenAvatar   string          `json:"token_avatar"`
	Amount        decimal.Decimal `json:"amount"`         // tokens held
	AvgBuyPrice   decimal.Decimal `json:"avg_buy_price"`  // USD per token
	TotalInvested decimal.Decimal `json:"total_invested"` // SOL
	CurrentPrice  decimal.Decimal `json:"current_price"`  // USD per token
	CurrentValue  decimal.Decimal `json:"current_value"`  // SOL
	PnL           decimal.Decimal `json:"pnl"`            // SOL, unrealised
	PnLPercent    decimal.Decimal `json:"pnl_percent"`
}

// TradeRecord is one entry of the trade history.
type TradeRecord struct {
	ID           string           `json:"id"`
	TokenID      string           `json:"token_id"`
	TokenTicker  string           `json:"token_ticker"`
	Side         TradeSide        `json:"side"`
	AmountSOL    decimal.Decimal  `json:"amount_sol"`
	AmountTokens decimal.Decimal  `json:"amount_tokens"`
	Price        decimal.Decimal  `json:"price"`
	TimestampMs  int64            `json:"timestamp"`
	PnLSOL       *decimal.Decimal `json:"pnl_sol,omitempty"` // realised, sells only
}
