package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"trenches/internal/domain"
	"trenches/internal/event"
	"trenches/internal/infra"
)

const (
	defaultInboxSize    = 256
	defaultTickInterval = 500 * time.Millisecond
	journalTimeout      = 2 * time.Second
)

// TickFunc observes every committed market state together with the events
// that tick produced. It runs on the sequencer goroutine and must not block.
type TickFunc func(state domain.MarketState, events []domain.MarketEvent)

// SequencerConfig holds the sequencer's tunables.
type SequencerConfig struct {
	InboxSize    int
	TickInterval time.Duration
	DumpPath     string
	Metrics      *infra.Metrics
}

// Sequencer is the single goroutine that owns the market.
// Ticks and trades are applied strictly in arrival order; readers only ever
// see committed immutable snapshots.
type Sequencer struct {
	inbox    chan event.Event
	sim      *Simulator
	state    domain.MarketState
	nextSeq  uint64
	journal  domain.EventJournal
	metrics  *infra.Metrics
	interval time.Duration
	dumpPath string

	onTick []TickFunc

	mu sync.RWMutex // guards state for external reads
}

// NewSequencer creates a sequencer starting from the given market state.
// journal may be nil.
func NewSequencer(cfg SequencerConfig, sim *Simulator, initial domain.MarketState, journal domain.EventJournal) *Sequencer {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.DumpPath == "" {
		cfg.DumpPath = "panic_dump.json"
	}
	return &Sequencer{
		inbox:    make(chan event.Event, cfg.InboxSize),
		sim:      sim,
		state:    initial,
		nextSeq:  1,
		journal:  journal,
		metrics:  cfg.Metrics,
		interval: cfg.TickInterval,
		dumpPath: cfg.DumpPath,
	}
}

// OnTick registers fn to be called after each tick. Register before Run.
func (s *Sequencer) OnTick(fn TickFunc) {
	s.onTick = append(s.onTick, fn)
}

// Run drives the tick loop and drains the inbox until ctx is cancelled.
// This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started",
		slog.Duration("interval", s.interval),
		slog.Int("tokens", len(s.Snapshot().Tokens)),
	)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState(s.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...", slog.Uint64("next_seq", s.nextSeq))
			return
		case <-ticker.C:
			s.Process(&event.TickEvent{BaseEvent: event.BaseEvent{TsMs: time.Now().UnixMilli()}})
		case ev := <-s.inbox:
			s.Process(ev)
		}
	}
}

// Process applies one event synchronously. Run calls it for every event;
// tests may call it directly instead of starting the loop.
func (s *Sequencer) Process(ev event.Event) {
	switch e := ev.(type) {
	case *event.TickEvent:
		e.Seq = s.nextSeq
		s.tick()
	case *event.TradeEvent:
		e.Seq = s.nextSeq
		s.applyTrade(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return
	}
	s.nextSeq++
}

func (s *Sequencer) tick() {
	start := time.Now()
	next, events := s.sim.Tick(s.current())

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.metrics.RecordTick(time.Since(start), len(next.Tokens))
	for _, ev := range events {
		switch ev.Type {
		case domain.EventNewToken:
			s.metrics.RecordSpawn()
		case domain.EventMigration:
			s.metrics.RecordMigration()
			slog.Info("Token migrated",
				slog.String("token", ev.TokenTicker),
				slog.String("id", ev.TokenID),
			)
		}
	}

	if len(events) > 0 && s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		if err := s.journal.AppendEvents(ctx, events); err != nil {
			s.metrics.RecordError("journal")
			slog.Warn("Failed to journal market events", slog.Any("error", err))
		}
		cancel()
	}

	for _, fn := range s.onTick {
		fn(next, events)
	}
}

func (s *Sequencer) applyTrade(e *event.TradeEvent) {
	defer event.ReleaseTradeEvent(e)

	cur := s.current()
	if _, ok := cur.Token(e.TokenID); !ok {
		slog.Debug("Trade for unknown token ignored", slog.String("id", e.TokenID))
		return
	}
	next := s.sim.ApplyTrade(cur, e.TokenID, e.AmountSOL, e.IsBuy)

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.metrics.RecordTrade(e.IsBuy)
}

// current reads the state from the owning goroutine; no lock is needed
// because only this goroutine writes it.
func (s *Sequencer) current() domain.MarketState {
	return s.state
}

// Submit enqueues ev, blocking until there is room or ctx is done.
func (s *Sequencer) Submit(ctx context.Context, ev event.Event) error {
	select {
	case s.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit enqueues ev without blocking. It is safe to call from a TickFunc.
func (s *Sequencer) TrySubmit(ev event.Event) error {
	select {
	case s.inbox <- ev:
		return nil
	default:
		return domain.ErrInboxFull
	}
}

// SubmitTrade wraps a player trade in a pooled event and enqueues it.
func (s *Sequencer) SubmitTrade(ctx context.Context, tokenID string, amountSOL float64, isBuy bool) error {
	ev := event.AcquireTradeEvent()
	ev.TsMs = time.Now().UnixMilli()
	ev.TokenID = tokenID
	ev.AmountSOL = amountSOL
	ev.IsBuy = isBuy
	if err := s.Submit(ctx, ev); err != nil {
		event.ReleaseTradeEvent(ev)
		return err
	}
	return nil
}

// TrySubmitTrade is SubmitTrade without blocking. It is safe to call from a TickFunc.
func (s *Sequencer) TrySubmitTrade(tokenID string, amountSOL float64, isBuy bool) error {
	ev := event.AcquireTradeEvent()
	ev.TsMs = time.Now().UnixMilli()
	ev.TokenID = tokenID
	ev.AmountSOL = amountSOL
	ev.IsBuy = isBuy
	if err := s.TrySubmit(ev); err != nil {
		event.ReleaseTradeEvent(ev)
		return err
	}
	return nil
}

// Snapshot returns the latest committed market state (external read).
// The returned value is immutable; callers must not modify it.
func (s *Sequencer) Snapshot() domain.MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Candles returns the candles of one token at tf from the latest snapshot.
func (s *Sequencer) Candles(tokenID string, tf domain.Timeframe) []domain.Candle {
	return Candles(s.Snapshot(), tokenID, tf)
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq uint64             `json:"next_seq"`
		Market  domain.MarketState `json:"market"`
	}{
		NextSeq: s.nextSeq,
		Market:  s.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
