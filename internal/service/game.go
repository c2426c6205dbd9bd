package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"trenches/internal/domain"
	"trenches/internal/notification"
	"trenches/internal/portfolio"
	"trenches/internal/quest"
	"trenches/internal/strategy"

	"github.com/shopspring/decimal"
)

const (
	// questScanEvery is how many ticks pass between holding scans.
	questScanEvery   = 5
	subscriberBuffer = 16
)

// Market is the part of the sequencer the game drives.
type Market interface {
	Snapshot() domain.MarketState
	SubmitTrade(ctx context.Context, tokenID string, amountSOL float64, isBuy bool) error
	TrySubmitTrade(tokenID string, amountSOL float64, isBuy bool) error
}

// TickUpdate is what subscribers receive after every tick.
type TickUpdate struct {
	Tick          uint64                `json:"tick"`
	Tokens        []domain.TokenSummary `json:"tokens"`
	Events        []domain.MarketEvent  `json:"events"`
	Notifications []domain.Notification `json:"notifications"`
	Portfolio     portfolio.Summary     `json:"portfolio"`
}

// Options configures a Game.
type Options struct {
	Store     domain.StateStore
	Autopilot strategy.Strategy // nil disables autopilot
	TradeSOL  decimal.Decimal   // autopilot buy size
	Now       func() time.Time
}

// Game glues the market to the player: portfolio, quests, notifications,
// persistence and the optional autopilot.
type Game struct {
	market   Market
	book     *portfolio.Book
	quests   *quest.Tracker
	notes    *notification.Center
	store    domain.StateStore
	auto     strategy.Strategy
	tradeSOL decimal.Decimal
	now      func() time.Time

	subMu  sync.Mutex
	subs   map[int]chan TickUpdate
	nextID int
}

// NewGame creates a game over market using book for the player's holdings.
func NewGame(market Market, book *portfolio.Book, opts Options) *Game {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Game{
		market:   market,
		book:     book,
		quests:   quest.NewTracker(),
		notes:    notification.NewCenter(),
		store:    opts.Store,
		auto:     opts.Autopilot,
		tradeSOL: opts.TradeSOL,
		now:      opts.Now,
		subs:     make(map[int]chan TickUpdate),
	}
}

func (g *Game) Portfolio() *portfolio.Book { return g.book }

func (g *Game) Quests() *quest.Tracker { return g.quests }

func (g *Game) Notifications() *notification.Center { return g.notes }

// Buy spends amountSOL on tokenID at the current price and feeds the trade
// into the market.
func (g *Game) Buy(ctx context.Context, tokenID string, amountSOL decimal.Decimal) (domain.TradeRecord, error) {
	tok, ok := g.market.Snapshot().Token(tokenID)
	if !ok {
		return domain.TradeRecord{}, domain.ErrTokenNotFound
	}
	now := g.now()
	rec, err := g.book.Buy(portfolio.RefOf(tok), amountSOL, tok.Price.Price, now)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	g.quests.TrackBuy(now)
	g.notes.Add(notification.FromTrade(rec), now)

	if err := g.market.SubmitTrade(ctx, tokenID, amountSOL.InexactFloat64(), true); err != nil {
		slog.Warn("Trade impact dropped", slog.String("token", tokenID), slog.Any("error", err))
	}
	return rec, nil
}

// Sell sells percent (0, 100] of the position in tokenID.
func (g *Game) Sell(ctx context.Context, tokenID string, percent float64) (domain.TradeRecord, error) {
	rec, err := g.sell(tokenID, percent)
	if err != nil {
		return rec, err
	}
	if err := g.market.SubmitTrade(ctx, tokenID, rec.AmountSOL.InexactFloat64(), false); err != nil {
		slog.Warn("Trade impact dropped", slog.String("token", tokenID), slog.Any("error", err))
	}
	return rec, nil
}

func (g *Game) sell(tokenID string, percent float64) (domain.TradeRecord, error) {
	if !(percent > 0) || percent > 100 {
		return domain.TradeRecord{}, fmt.Errorf("%w: sell percent %v", domain.ErrInvalidAmount, percent)
	}
	pos, ok := g.book.Position(tokenID)
	if !ok {
		return domain.TradeRecord{}, domain.ErrNoPosition
	}

	price := pos.CurrentPrice.InexactFloat64()
	if tok, ok := g.market.Snapshot().Token(tokenID); ok {
		price = tok.Price.Price
	}
	pnlPercent := 0.0
	if avg := pos.AvgBuyPrice.InexactFloat64(); avg > 0 {
		pnlPercent = (price - avg) / avg * 100
	}

	amount := pos.Amount
	if percent < 100 {
		amount = pos.Amount.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	}

	now := g.now()
	rec, err := g.book.Sell(tokenID, amount, price, now)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	g.quests.TrackSell(pnlPercent, rec.AmountSOL.InexactFloat64(), now)
	g.notes.Add(notification.FromTrade(rec), now)
	return rec, nil
}

// Claim collects the faucet.
func (g *Game) Claim() (decimal.Decimal, error) {
	now := g.now()
	amount, err := g.book.Claim(now)
	if err != nil {
		return decimal.Zero, err
	}
	g.notes.Add(notification.FromClaim(amount.String()), now)
	return amount, nil
}

// Load restores the player state from the store. Without a store it is a no-op.
func (g *Game) Load(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	if err := g.book.Load(ctx, g.store); err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}
	if err := g.quests.Load(ctx, g.store); err != nil {
		return fmt.Errorf("failed to load quests: %w", err)
	}
	return nil
}

// Save persists the player state. Both keys are attempted even if one fails.
func (g *Game) Save(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	return errors.Join(g.book.Save(ctx, g.store), g.quests.Save(ctx, g.store))
}

// OnTick is registered with the sequencer. It runs on the sequencer
// goroutine, so it never blocks on the market.
func (g *Game) OnTick(state domain.MarketState, events []domain.MarketEvent) {
	now := g.now()

	for _, ev := range events {
		if n, ok := notification.FromMarketEvent(ev); ok {
			g.notes.Add(n, now)
		}
	}

	prices := state.Prices()
	g.book.Reprice(prices)
	if state.TickCount%questScanEvery == 0 {
		g.quests.Observe(g.book.Positions(), prices)
	}
	for _, q := range g.quests.Check() {
		g.book.Credit(decimal.NewFromFloat(q.Reward))
		g.notes.Add(notification.FromQuest(q), now)
		slog.Info("Quest completed", slog.String("quest", q.ID), slog.Float64("reward", q.Reward))
	}
	g.notes.Prune(now)

	if g.auto != nil {
		g.runAutopilot(state)
	}

	g.publish(g.update(state, events))
}

func (g *Game) runAutopilot(state domain.MarketState) {
	for _, a := range g.auto.OnMarketUpdate(state) {
		switch a.Type {
		case strategy.ActionBuy:
			tok, ok := state.Token(a.TokenID)
			if !ok || g.tradeSOL.GreaterThan(g.book.Balance()) {
				continue
			}
			now := g.now()
			rec, err := g.book.Buy(portfolio.RefOf(tok), g.tradeSOL, a.Price, now)
			if err != nil {
				slog.Debug("Autopilot buy skipped", slog.String("token", a.TokenID), slog.Any("error", err))
				continue
			}
			g.quests.TrackBuy(now)
			g.notes.Add(notification.FromTrade(rec), now)
			g.submitAsync(a.TokenID, rec.AmountSOL, true)
		case strategy.ActionSell:
			if _, ok := g.book.Position(a.TokenID); !ok {
				continue
			}
			rec, err := g.sell(a.TokenID, 100)
			if err != nil {
				slog.Debug("Autopilot sell skipped", slog.String("token", a.TokenID), slog.Any("error", err))
				continue
			}
			g.submitAsync(a.TokenID, rec.AmountSOL, false)
		}
	}
}

func (g *Game) submitAsync(tokenID string, amount decimal.Decimal, isBuy bool) {
	if err := g.market.TrySubmitTrade(tokenID, amount.InexactFloat64(), isBuy); err != nil {
		slog.Warn("Autopilot trade impact dropped", slog.String("token", tokenID), slog.Any("error", err))
	}
}

func (g *Game) update(state domain.MarketState, events []domain.MarketEvent) TickUpdate {
	tokens := make([]domain.TokenSummary, 0, len(state.Tokens))
	for _, tok := range state.Tokens {
		tokens = append(tokens, tok.Summary())
	}
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].MarketCap != tokens[j].MarketCap {
			return tokens[i].MarketCap > tokens[j].MarketCap
		}
		return tokens[i].ID < tokens[j].ID
	})
	return TickUpdate{
		Tick:          state.TickCount,
		Tokens:        tokens,
		Events:        events,
		Notifications: g.notes.Visible(),
		Portfolio:     g.book.Snapshot(),
	}
}

// Subscribe returns a channel of tick updates and a function that ends the
// subscription. Slow subscribers miss updates rather than stall the market.
func (g *Game) Subscribe() (<-chan TickUpdate, func()) {
	ch := make(chan TickUpdate, subscriberBuffer)

	g.subMu.Lock()
	id := g.nextID
	g.nextID++
	g.subs[id] = ch
	g.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.subMu.Lock()
			delete(g.subs, id)
			g.subMu.Unlock()
			close(ch)
		})
	}
}

func (g *Game) publish(u TickUpdate) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	for _, ch := range g.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
