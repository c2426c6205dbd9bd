package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"trenches/internal/domain"
	"trenches/internal/engine"
	"trenches/internal/event"
	"trenches/internal/infra"
	"trenches/internal/infra/storage"
	"trenches/internal/portfolio"
	"trenches/internal/service"
	"trenches/internal/strategy"
	"trenches/internal/transport/feed"
)

const (
	autosaveInterval = 30 * time.Second
	shutdownTimeout  = 10 * time.Second
	replayEvents     = 20

	saveAttempts  = 3
	saveBaseDelay = 200 * time.Millisecond
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config    *infra.Config
	Store     domain.Store
	Metrics   *infra.Metrics
	Sequencer *engine.Sequencer
	Game      *service.Game
	Hub       *feed.Hub
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the configuration, sets up logging and wires every component.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(infra.NewLogger(cfg))
	return b.Wire(cfg)
}

// Wire builds the component graph from cfg. It does not start anything.
func (b *Bootstrap) Wire(cfg *infra.Config) error {
	b.Config = cfg
	slog.Info("Bootstrapping trenches", slog.String("version", cfg.App.Version))

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("Storage ready", slog.String("driver", cfg.Storage.Driver))

	b.Metrics = infra.NewMetrics()
	event.Warmup()

	sim := engine.NewSimulator()
	market := sim.Initialize(sim.NewMarket(), cfg.Simulation.InitialTokens)
	b.Sequencer = engine.NewSequencer(engine.SequencerConfig{
		InboxSize:    cfg.Simulation.InboxSize,
		TickInterval: cfg.Simulation.TickInterval(),
		Metrics:      b.Metrics,
	}, sim, market, store)
	slog.Info("Market seeded", slog.Int("tokens", len(market.Tokens)))

	opts := service.Options{Store: store, TradeSOL: cfg.Autopilot.TradeSOL}
	if cfg.Autopilot.Enabled {
		auto, err := strategy.NewSMACross(cfg.Autopilot.Fast, cfg.Autopilot.Slow)
		if err != nil {
			return &domain.ConfigError{Field: "autopilot", Err: err}
		}
		opts.Autopilot = auto
		slog.Info("Autopilot enabled", slog.Int("fast", cfg.Autopilot.Fast), slog.Int("slow", cfg.Autopilot.Slow))
	}
	book := portfolio.New(portfolio.Options{
		ClaimAmount:     cfg.Portfolio.ClaimAmount,
		ClaimCooldown:   cfg.Portfolio.ClaimCooldown(),
		StartingBalance: cfg.Portfolio.StartingBalance,
	})
	b.Game = service.NewGame(b.Sequencer, book, opts)
	b.Sequencer.OnTick(b.Game.OnTick)

	b.Hub = feed.NewHub(b.Game, b.Sequencer, b.Metrics, nil)
	return nil
}

// Restore loads the saved player state and logs the tail of the event journal.
func (b *Bootstrap) Restore(ctx context.Context) error {
	if err := b.Game.Load(ctx); err != nil {
		return err
	}
	summary := b.Game.Portfolio().Snapshot()
	slog.Info("Player state restored",
		slog.String("balance", summary.Balance.String()),
		slog.Int("positions", len(summary.Positions)),
		slog.Int("quests_completed", b.Game.Quests().CompletedCount()),
	)

	recent, err := b.Store.RecentEvents(ctx, replayEvents)
	if err != nil {
		slog.Warn("Failed to read event journal", slog.Any("error", err))
		return nil
	}
	for _, ev := range recent {
		slog.Debug("Journaled event",
			slog.String("type", string(ev.Type)),
			slog.String("token", ev.TokenTicker),
			slog.Int64("ts", ev.TimestampMs),
		)
	}
	return nil
}

// Handler returns the public HTTP surface: the feed and the metrics endpoint.
func (b *Bootstrap) Handler() http.Handler {
	mux := http.NewServeMux()
	b.Hub.Routes(mux)
	if path := b.Config.Server.MetricsPath; path != "" {
		mux.Handle("GET "+path, b.Metrics.Handler())
	}
	return mux
}

// Run starts the sequencer and the HTTP listeners and blocks until ctx is done.
// On the way out it stops the listeners, saves the player and closes storage.
func (b *Bootstrap) Run(ctx context.Context) error {
	seqDone := make(chan struct{})
	go func() {
		defer close(seqDone)
		b.Sequencer.Run(ctx)
	}()

	srv := &http.Server{
		Addr:              b.Config.Server.ListenAddr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	var pprofSrv *http.Server
	if addr := b.Config.Server.PprofAddr; addr != "" {
		pprofSrv = &http.Server{Addr: addr, Handler: pprofMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			slog.Info("Pprof server started", slog.String("addr", addr))
			if err := pprofSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	b.autosave(ctx)

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	errs = append(errs, srv.Shutdown(shutdownCtx))
	if pprofSrv != nil {
		errs = append(errs, pprofSrv.Shutdown(shutdownCtx))
	}
	<-seqDone
	errs = append(errs, b.save(shutdownCtx), b.Store.Close())
	return errors.Join(errs...)
}

// autosave saves the player state periodically until ctx is done.
func (b *Bootstrap) autosave(ctx context.Context) {
	ticker := time.NewTicker(autosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := b.save(saveCtx); err != nil {
				b.Metrics.RecordError("save")
				slog.Warn("Autosave failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}

// save persists the player, retrying transient storage failures with
// exponential backoff.
func (b *Bootstrap) save(ctx context.Context) error {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		if err = b.Game.Save(ctx); err == nil || !domain.IsRetriable(err) || attempt == saveAttempts-1 {
			return err
		}
		delay := saveBaseDelay << attempt
		slog.Warn("Save failed, retrying", slog.Int("attempt", attempt+1), slog.Duration("delay", delay), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
	}
	return err
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
