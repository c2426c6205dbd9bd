// Package quest tracks trading statistics and the achievements they unlock.
package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"trenches/internal/domain"
)

// Quest ids.
const (
	FirstBlood           = "first_blood"
	DiamondHands         = "diamond_hands"
	PaperHands           = "paper_hands"
	ToTheMoon            = "to_the_moon"
	BagHolder            = "bag_holder"
	DegenLord            = "degen_lord"
	SpeedRunner          = "speed_runner"
	WhaleAlert           = "whale_alert"
	PortfolioDiversifier = "portfolio_diversifier"
	LuckyTrader          = "lucky_trader"
)

// speedWindow is the look-back of the speed_runner quest.
const speedWindow = 5 * time.Minute

var definitions = []domain.Quest{
	{ID: FirstBlood, Title: "First Blood", Description: "Make your first trade", Icon: "🩸", Reward: 0, Target: 1, Category: domain.QuestTrading},
	{ID: DiamondHands, Title: "Diamond Hands", Description: "Hold a position while it's down 50%+", Icon: "💎", Reward: 2, Target: 1, Category: domain.QuestHolding},
	{ID: PaperHands, Title: "Paper Hands", Description: "Sell at a loss 3 times in a row", Icon: "🧻", Reward: 0, Target: 3, Category: domain.QuestDegen},
	{ID: ToTheMoon, Title: "To The Moon", Description: "Make 10x profit on a single position", Icon: "🚀", Reward: 5, Target: 10, Category: domain.QuestTrading},
	{ID: BagHolder, Title: "Bag Holder", Description: "Hold 3 tokens at a loss simultaneously", Icon: "💰", Reward: 2, Target: 3, Category: domain.QuestHolding},
	{ID: DegenLord, Title: "Degen Lord", Description: "Hold 10+ tokens simultaneously", Icon: "👑", Reward: 5, Target: 10, Category: domain.QuestDegen},
	{ID: SpeedRunner, Title: "Speed Runner", Description: "Make 20 trades in 5 minutes", Icon: "⚡", Reward: 3, Target: 20, Category: domain.QuestTrading},
	{ID: WhaleAlert, Title: "Whale Alert", Description: "Accumulate 500 SOL total earned", Icon: "🐳", Reward: 10, Target: 500, Category: domain.QuestHolding},
	{ID: PortfolioDiversifier, Title: "Portfolio Diversifier", Description: "Hold 5 different tokens at once", Icon: "📊", Reward: 2, Target: 5, Category: domain.QuestHolding},
	{ID: LuckyTrader, Title: "Lucky Trader", Description: "Make a profitable trade 5 times in a row", Icon: "🍀", Reward: 3, Target: 5, Category: domain.QuestTrading},
}

// Stats are the raw counters quests are measured against.
type Stats struct {
	TotalTrades       int     `json:"total_trades"`
	TotalBuys         int     `json:"total_buys"`
	TotalSells        int     `json:"total_sells"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	ConsecutiveWins   int     `json:"consecutive_wins"`
	MaxProfitMultiple float64 `json:"max_profit_multiple"`
	MaxTokensHeld     int     `json:"tokens_held_simultaneously"`
	MaxTokensAtLoss   int     `json:"tokens_at_loss"`
	TotalSOLEarned    float64 `json:"total_sol_earned"`
	HeldWhileDown50   bool    `json:"held_while_down_50"`
	RecentTradesMs    []int64 `json:"speed_trades"`
}

// Tracker owns the quest list and stats. It is safe for concurrent use.
type Tracker struct {
	mu     sync.RWMutex
	quests []domain.Quest
	stats  Stats
}

// NewTracker returns a tracker with every quest at zero progress.
func NewTracker() *Tracker {
	return &Tracker{quests: fresh()}
}

func fresh() []domain.Quest {
	return append([]domain.Quest(nil), definitions...)
}

// TrackBuy records a buy made at now.
func (t *Tracker) TrackBuy(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalBuys++
	t.countTrade(now)
}

// TrackSell records a sell made at now. pnlPercent is the position's PnL
// before the sale; received is the SOL credited.
func (t *Tracker) TrackSell(pnlPercent, received float64, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalSells++
	switch {
	case pnlPercent < 0:
		t.stats.ConsecutiveLosses++
		t.stats.ConsecutiveWins = 0
	case pnlPercent > 0:
		t.stats.ConsecutiveWins++
		t.stats.ConsecutiveLosses = 0
	}
	t.stats.TotalSOLEarned += received
	t.countTrade(now)
}

func (t *Tracker) countTrade(now time.Time) {
	t.stats.TotalTrades++
	nowMs := now.UnixMilli()
	var recent []int64
	for _, ts := range t.stats.RecentTradesMs {
		if nowMs-ts < speedWindow.Milliseconds() {
			recent = append(recent, ts)
		}
	}
	t.stats.RecentTradesMs = append(recent, nowMs)
}

// Observe scans open positions against current prices: holdings count,
// positions at a loss, positions down 50% or more, and the best multiple.
func (t *Tracker) Observe(positions []domain.Position, prices map[string]float64) {
	if len(positions) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.MaxTokensHeld = max(t.stats.MaxTokensHeld, len(positions))

	losses := 0
	for _, pos := range positions {
		price, ok := prices[pos.TokenID]
		avg := pos.AvgBuyPrice.InexactFloat64()
		if !ok || avg <= 0 {
			continue
		}
		multiple := price / avg
		pnlPercent := (multiple - 1) * 100
		if pnlPercent <= -50 {
			t.stats.HeldWhileDown50 = true
		}
		if pnlPercent < 0 {
			losses++
		}
		if multiple > 1 {
			t.stats.MaxProfitMultiple = math.Max(t.stats.MaxProfitMultiple, multiple)
		}
	}
	t.stats.MaxTokensAtLoss = max(t.stats.MaxTokensAtLoss, losses)
}

func (t *Tracker) measure(id string) float64 {
	s := t.stats
	switch id {
	case FirstBlood:
		return float64(min(s.TotalTrades, 1))
	case DiamondHands:
		if s.HeldWhileDown50 {
			return 1
		}
		return 0
	case PaperHands:
		return float64(s.ConsecutiveLosses)
	case ToTheMoon:
		return s.MaxProfitMultiple
	case BagHolder:
		return float64(s.MaxTokensAtLoss)
	case DegenLord, PortfolioDiversifier:
		return float64(s.MaxTokensHeld)
	case SpeedRunner:
		return float64(len(s.RecentTradesMs))
	case WhaleAlert:
		return s.TotalSOLEarned
	case LuckyTrader:
		return float64(s.ConsecutiveWins)
	}
	return 0
}

// Check recomputes progress of incomplete quests and returns the ones that
// completed in this call. Completed quests never regress.
func (t *Tracker) Check() []domain.Quest {
	t.mu.Lock()
	defer t.mu.Unlock()

	var done []domain.Quest
	for i := range t.quests {
		q := &t.quests[i]
		if q.Completed {
			continue
		}
		q.Current = t.measure(q.ID)
		q.Progress = math.Min(q.Current/q.Target, 1)
		if q.Progress >= 1 {
			q.Completed = true
			done = append(done, *q)
		}
	}
	return done
}

// Quests returns a copy of the quest list in display order.
func (t *Tracker) Quests() []domain.Quest {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Quest(nil), t.quests...)
}

// CompletedCount returns how many quests are done.
func (t *Tracker) CompletedCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, q := range t.quests {
		if q.Completed {
			n++
		}
	}
	return n
}

// Stats returns a copy of the counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.stats
	s.RecentTradesMs = append([]int64(nil), s.RecentTradesMs...)
	return s
}

type persisted struct {
	Quests         []domain.Quest `json:"quests"`
	Stats          Stats          `json:"stats"`
	CompletedCount int            `json:"completed_count"`
}

// MarshalState encodes quests and stats.
func (t *Tracker) MarshalState() ([]byte, error) {
	count := t.CompletedCount()
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(persisted{Quests: t.quests, Stats: t.stats, CompletedCount: count})
}

// UnmarshalState restores progress from data. Quest text always comes from
// the built-in definitions; unknown ids in data are ignored.
func (t *Tracker) UnmarshalState(data []byte) error {
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Quests) == 0 {
		return errors.New("no quests in saved state")
	}
	saved := make(map[string]domain.Quest, len(p.Quests))
	for _, q := range p.Quests {
		saved[q.ID] = q
	}

	quests := fresh()
	for i := range quests {
		if s, ok := saved[quests[i].ID]; ok {
			quests[i].Current = s.Current
			quests[i].Progress = s.Progress
			quests[i].Completed = s.Completed
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.quests = quests
	t.stats = p.Stats
	return nil
}

// Save persists the tracker under domain.QuestStateKey.
func (t *Tracker) Save(ctx context.Context, store domain.StateStore) error {
	data, err := t.MarshalState()
	if err != nil {
		return fmt.Errorf("failed to marshal quests: %w", err)
	}
	return store.SaveState(ctx, domain.QuestStateKey, data)
}

// Load restores the tracker from store. Missing or unreadable state leaves
// fresh quests in place.
func (t *Tracker) Load(ctx context.Context, store domain.StateStore) error {
	data, err := store.LoadState(ctx, domain.QuestStateKey)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.UnmarshalState(data); err != nil {
		slog.Warn("Ignoring unreadable quest state", slog.Any("error", err))
	}
	return nil
}
