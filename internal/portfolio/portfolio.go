// Package portfolio tracks the player's simulated SOL balance, open
// positions, realised and unrealised PnL, and trade history.
package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trenches/internal/domain"
)

const (
	// HistoryLimit caps the trade history.
	HistoryLimit = 100
	// DefaultClaimCooldown is the wait between faucet claims.
	DefaultClaimCooldown = time.Hour
)

var (
	// SOLPriceUSD converts between SOL and token USD prices.
	SOLPriceUSD = decimal.NewFromInt(88)
	// DefaultClaimAmount is the SOL granted per claim.
	DefaultClaimAmount = decimal.NewFromInt(10)

	// dust: a position with fewer tokens left is closed.
	dust    = decimal.New(1, -3)
	hundred = decimal.NewFromInt(100)
)

// Options configures a Book.
type Options struct {
	ClaimAmount     decimal.Decimal
	ClaimCooldown   time.Duration
	StartingBalance decimal.Decimal
}

// TokenRef identifies the token being bought.
type TokenRef struct {
	ID     string
	Name   string
	Ticker string
	Avatar string
}

// RefOf returns the reference of a market token.
func RefOf(t domain.Token) TokenRef {
	return TokenRef{ID: t.ID, Name: t.Name, Ticker: t.Ticker, Avatar: t.Avatar}
}

// Book is the player's wallet. It is safe for concurrent use.
type Book struct {
	mu sync.RWMutex

	balance     decimal.Decimal
	positions   map[string]domain.Position
	lastClaimMs int64
	realized    decimal.Decimal
	unrealized  decimal.Decimal
	history     []domain.TradeRecord

	claimAmount decimal.Decimal
	cooldown    time.Duration
	start       decimal.Decimal
}

// New creates an empty book. Zero options fall back to the defaults.
func New(opts Options) *Book {
	if !opts.ClaimAmount.IsPositive() {
		opts.ClaimAmount = DefaultClaimAmount
	}
	if opts.ClaimCooldown <= 0 {
		opts.ClaimCooldown = DefaultClaimCooldown
	}
	b := &Book{
		claimAmount: opts.ClaimAmount,
		cooldown:    opts.ClaimCooldown,
		start:       opts.StartingBalance,
	}
	b.reset()
	return b
}

func (b *Book) reset() {
	b.balance = b.start
	b.positions = make(map[string]domain.Position)
	b.lastClaimMs = 0
	b.realized = decimal.Zero
	b.unrealized = decimal.Zero
	b.history = nil
}

// Claim credits the faucet amount if the cooldown has elapsed.
func (b *Book) Claim(now time.Time) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.UnixMilli()-b.lastClaimMs < b.cooldown.Milliseconds() {
		return decimal.Zero, domain.ErrClaimCooldown
	}
	b.balance = b.balance.Add(b.claimAmount)
	b.lastClaimMs = now.UnixMilli()
	return b.claimAmount, nil
}

// NextClaimAt returns when the next claim becomes available.
func (b *Book) NextClaimAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastClaimMs == 0 {
		return time.UnixMilli(0)
	}
	return time.UnixMilli(b.lastClaimMs).Add(b.cooldown)
}

// Credit adds amount to the balance, e.g. a quest reward.
func (b *Book) Credit(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	b.mu.Lock()
	b.balance = b.balance.Add(amount)
	b.mu.Unlock()
}

// Buy spends amountSOL on tok at priceUSD per token.
func (b *Book) Buy(tok TokenRef, amountSOL decimal.Decimal, priceUSD float64, now time.Time) (domain.TradeRecord, error) {
	if !amountSOL.IsPositive() || !(priceUSD > 0) {
		return domain.TradeRecord{}, domain.ErrInvalidAmount
	}
	price := decimal.NewFromFloat(priceUSD)

	b.mu.Lock()
	defer b.mu.Unlock()

	if amountSOL.GreaterThan(b.balance) {
		return domain.TradeRecord{}, fmt.Errorf("%w: need %s SOL, have %s", domain.ErrInsufficientBalance, amountSOL, b.balance)
	}

	tokens := amountSOL.Mul(SOLPriceUSD).Div(price)

	pos, ok := b.positions[tok.ID]
	if ok {
		pos.Amount = pos.Amount.Add(tokens)
		pos.TotalInvested = pos.TotalInvested.Add(amountSOL)
		pos.AvgBuyPrice = pos.TotalInvested.Mul(SOLPriceUSD).Div(pos.Amount)
		revalue(&pos, price)
	} else {
		pos = domain.Position{
			TokenID:       tok.ID,
			TokenName:     tok.Name,
			TokenTicker:   tok.Ticker,
			TokenAvatar:   tok.Avatar,
			Amount:        tokens,
			AvgBuyPrice:   price,
			TotalInvested: amountSOL,
			CurrentPrice:  price,
			CurrentValue:  amountSOL,
			PnL:           decimal.Zero,
			PnLPercent:    decimal.Zero,
		}
	}
	b.positions[tok.ID] = pos
	b.balance = b.balance.Sub(amountSOL)

	rec := domain.TradeRecord{
		ID:           uuid.NewString(),
		TokenID:      tok.ID,
		TokenTicker:  tok.Ticker,
		Side:         domain.SideBuy,
		AmountSOL:    amountSOL,
		AmountTokens: tokens,
		Price:        price,
		TimestampMs:  now.UnixMilli(),
	}
	b.record(rec)
	return rec, nil
}

// Sell returns amountTokens of tokenID at priceUSD and credits the proceeds.
// The record's PnLSOL carries the realised profit of this trade.
func (b *Book) Sell(tokenID string, amountTokens decimal.Decimal, priceUSD float64, now time.Time) (domain.TradeRecord, error) {
	if !(priceUSD > 0) {
		return domain.TradeRecord{}, domain.ErrInvalidAmount
	}
	price := decimal.NewFromFloat(priceUSD)

	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[tokenID]
	if !ok {
		return domain.TradeRecord{}, domain.ErrNoPosition
	}
	if !amountTokens.IsPositive() || amountTokens.GreaterThan(pos.Amount) {
		return domain.TradeRecord{}, domain.ErrInvalidAmount
	}

	received := amountTokens.Mul(price).Div(SOLPriceUSD)
	fraction := amountTokens.Div(pos.Amount)
	pnl := received.Sub(pos.TotalInvested.Mul(fraction))

	remaining := pos.Amount.Sub(amountTokens)
	if remaining.LessThan(dust) {
		delete(b.positions, tokenID)
	} else {
		pos.Amount = remaining
		pos.TotalInvested = pos.TotalInvested.Mul(decimal.NewFromInt(1).Sub(fraction))
		revalue(&pos, price)
		b.positions[tokenID] = pos
	}

	b.balance = b.balance.Add(received)
	b.realized = b.realized.Add(pnl)

	rec := domain.TradeRecord{
		ID:           uuid.NewString(),
		TokenID:      tokenID,
		TokenTicker:  pos.TokenTicker,
		Side:         domain.SideSell,
		AmountSOL:    received,
		AmountTokens: amountTokens,
		Price:        price,
		TimestampMs:  now.UnixMilli(),
		PnLSOL:       &pnl,
	}
	b.record(rec)
	return rec, nil
}

// Reprice refreshes every held position from prices and recomputes the total
// unrealised PnL. Positions missing from prices keep their last valuation.
func (b *Book) Reprice(prices map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := decimal.Zero
	for id, pos := range b.positions {
		if p, ok := prices[id]; ok && p > 0 {
			revalue(&pos, decimal.NewFromFloat(p))
			b.positions[id] = pos
		}
		total = total.Add(pos.PnL)
	}
	b.unrealized = total
}

func revalue(pos *domain.Position, price decimal.Decimal) {
	pos.CurrentPrice = price
	pos.CurrentValue = pos.Amount.Mul(price).Div(SOLPriceUSD)
	pos.PnL = pos.CurrentValue.Sub(pos.TotalInvested)
	if pos.TotalInvested.IsPositive() {
		pos.PnLPercent = pos.PnL.Div(pos.TotalInvested).Mul(hundred)
	} else {
		pos.PnLPercent = decimal.Zero
	}
}

func (b *Book) record(rec domain.TradeRecord) {
	b.history = append(b.history, rec)
	if over := len(b.history) - HistoryLimit; over > 0 {
		b.history = append([]domain.TradeRecord(nil), b.history[over:]...)
	}
}

// Balance returns the SOL balance.
func (b *Book) Balance() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balance
}

// Position returns the position in tokenID, if any.
func (b *Book) Position(tokenID string) (domain.Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pos, ok := b.positions[tokenID]
	return pos, ok
}

// Positions returns every open position ordered by token id.
func (b *Book) Positions() []domain.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortedPositions()
}

func (b *Book) sortedPositions() []domain.Position {
	out := make([]domain.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// History returns the trade history, oldest first.
func (b *Book) History() []domain.TradeRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.TradeRecord(nil), b.history...)
}

// Summary is a read-only view of the book.
type Summary struct {
	Balance       decimal.Decimal      `json:"balance"`
	RealizedPnL   decimal.Decimal      `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal      `json:"unrealized_pnl"`
	Positions     []domain.Position    `json:"positions"`
	LastClaimMs   int64                `json:"last_claim_time"`
	TradeHistory  []domain.TradeRecord `json:"trade_history,omitempty"`
}

// Snapshot returns the current summary without trade history.
func (b *Book) Snapshot() Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Summary{
		Balance:       b.balance,
		RealizedPnL:   b.realized,
		UnrealizedPnL: b.unrealized,
		Positions:     b.sortedPositions(),
		LastClaimMs:   b.lastClaimMs,
	}
}

// MarshalState encodes the persistent part of the book.
func (b *Book) MarshalState() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return json.Marshal(Summary{
		Balance:      b.balance,
		RealizedPnL:  b.realized,
		Positions:    b.sortedPositions(),
		LastClaimMs:  b.lastClaimMs,
		TradeHistory: b.history,
	})
}

// UnmarshalState replaces the book with data. On error the book is unchanged.
func (b *Book) UnmarshalState(data []byte) error {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	positions := make(map[string]domain.Position, len(s.Positions))
	for _, pos := range s.Positions {
		if pos.TokenID == "" {
			return errors.New("position without token id")
		}
		positions[pos.TokenID] = pos
	}
	if over := len(s.TradeHistory) - HistoryLimit; over > 0 {
		s.TradeHistory = s.TradeHistory[over:]
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = s.Balance
	b.realized = s.RealizedPnL
	b.lastClaimMs = s.LastClaimMs
	b.positions = positions
	b.history = s.TradeHistory
	b.unrealized = decimal.Zero
	for _, pos := range positions {
		b.unrealized = b.unrealized.Add(pos.PnL)
	}
	return nil
}

// Save persists the book under domain.PortfolioStateKey.
func (b *Book) Save(ctx context.Context, store domain.StateStore) error {
	data, err := b.MarshalState()
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}
	return store.SaveState(ctx, domain.PortfolioStateKey, data)
}

// Load restores the book from store. A missing key leaves a fresh book;
// corrupt data is discarded and the key deleted.
func (b *Book) Load(ctx context.Context, store domain.StateStore) error {
	data, err := store.LoadState(ctx, domain.PortfolioStateKey)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := b.UnmarshalState(data); err != nil {
		slog.Warn("Discarding corrupt portfolio state", slog.Any("error", err))
		b.mu.Lock()
		b.reset()
		b.mu.Unlock()
		return store.DeleteState(ctx, domain.PortfolioStateKey)
	}
	return nil
}
