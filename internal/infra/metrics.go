package infra

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "trenches"

// Metrics exposes simulation counters to Prometheus and keeps atomic mirrors
// for cheap in-process snapshots. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	ticks        prometheus.Counter
	trades       *prometheus.CounterVec
	spawned      prometheus.Counter
	migrations   prometheus.Counter
	errors       *prometheus.CounterVec
	activeTokens prometheus.Gauge
	feedClients  prometheus.Gauge
	tickDuration prometheus.Histogram

	// Mirrors for Snapshot
	ticksTotal      atomic.Uint64
	tradesTotal     atomic.Uint64
	spawnedTotal    atomic.Uint64
	migrationsTotal atomic.Uint64
	errorsTotal     atomic.Uint64
	latencySumNs    atomic.Int64
	latencyCount    atomic.Uint64
	tokens          atomic.Int32
	clients         atomic.Int32
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "ticks_total",
			Help:      "Total number of market ticks processed",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "trades_total",
			Help:      "Trades applied to the market by side",
		}, []string{"side"}),
		spawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "tokens_spawned_total",
			Help:      "Tokens launched after initialization",
		}),
		migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "migrations_total",
			Help:      "Tokens that crossed the migration threshold",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Errors by operation",
		}, []string{"op"}),
		activeTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "active_tokens",
			Help:      "Tokens currently simulated",
		}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "feed",
			Name:      "clients",
			Help:      "Connected websocket clients",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "market",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent advancing the market by one tick",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
	reg.MustRegister(m.ticks, m.trades, m.spawned, m.migrations, m.errors,
		m.activeTokens, m.feedClients, m.tickDuration)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTick records one tick with its duration and the post-tick population.
func (m *Metrics) RecordTick(d time.Duration, activeTokens int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.activeTokens.Set(float64(activeTokens))

	m.ticksTotal.Add(1)
	m.latencySumNs.Add(d.Nanoseconds())
	m.latencyCount.Add(1)
	m.tokens.Store(int32(activeTokens))
}

// RecordTrade records a trade applied to the market.
func (m *Metrics) RecordTrade(isBuy bool) {
	if m == nil {
		return
	}
	side := "sell"
	if isBuy {
		side = "buy"
	}
	m.trades.WithLabelValues(side).Inc()
	m.tradesTotal.Add(1)
}

// RecordSpawn records a newly launched token.
func (m *Metrics) RecordSpawn() {
	if m == nil {
		return
	}
	m.spawned.Inc()
	m.spawnedTotal.Add(1)
}

// RecordMigration records a token migration.
func (m *Metrics) RecordMigration() {
	if m == nil {
		return
	}
	m.migrations.Inc()
	m.migrationsTotal.Add(1)
}

// RecordError records an error occurrence for op.
func (m *Metrics) RecordError(op string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(op).Inc()
	m.errorsTotal.Add(1)
}

// IncrementClients increments connected feed clients by 1.
func (m *Metrics) IncrementClients() {
	if m == nil {
		return
	}
	m.feedClients.Inc()
	m.clients.Add(1)
}

// DecrementClients decrements connected feed clients by 1.
func (m *Metrics) DecrementClients() {
	if m == nil {
		return
	}
	m.feedClients.Dec()
	m.clients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Ticks        uint64    `json:"ticks"`
	Trades       uint64    `json:"trades"`
	Spawned      uint64    `json:"spawned"`
	Migrations   uint64    `json:"migrations"`
	ErrorsTotal  uint64    `json:"errors"`
	AvgTickNs    int64     `json:"avg_tick_ns"`
	ActiveTokens int32     `json:"active_tokens"`
	FeedClients  int32     `json:"feed_clients"`
	Timestamp    time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{Timestamp: time.Now()}
	}
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		Ticks:        m.ticksTotal.Load(),
		Trades:       m.tradesTotal.Load(),
		Spawned:      m.spawnedTotal.Load(),
		Migrations:   m.migrationsTotal.Load(),
		ErrorsTotal:  m.errorsTotal.Load(),
		AvgTickNs:    avgLatency,
		ActiveTokens: m.tokens.Load(),
		FeedClients:  m.clients.Load(),
		Timestamp:    time.Now(),
	}
}
