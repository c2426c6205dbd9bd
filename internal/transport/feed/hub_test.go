package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trenches/internal/domain"
	"trenches/internal/engine"
	"trenches/internal/infra"
	"trenches/internal/service"
)

type fakeGame struct {
	mu      sync.Mutex
	updates chan service.TickUpdate
	subs    int
	buys    []decimal.Decimal
}

func newFakeGame() *fakeGame {
	return &fakeGame{updates: make(chan service.TickUpdate, 4)}
}

func (g *fakeGame) Buy(_ context.Context, tokenID string, amount decimal.Decimal) (domain.TradeRecord, error) {
	if tokenID != "pepe" {
		return domain.TradeRecord{}, domain.ErrTokenNotFound
	}
	g.mu.Lock()
	g.buys = append(g.buys, amount)
	g.mu.Unlock()
	return domain.TradeRecord{ID: "t1", TokenID: tokenID, Side: domain.SideBuy, AmountSOL: amount}, nil
}

func (g *fakeGame) Sell(_ context.Context, tokenID string, percent float64) (domain.TradeRecord, error) {
	return domain.TradeRecord{}, domain.ErrNoPosition
}

func (g *fakeGame) Claim() (decimal.Decimal, error) {
	return decimal.NewFromInt(10), nil
}

func (g *fakeGame) Subscribe() (<-chan service.TickUpdate, func()) {
	g.mu.Lock()
	g.subs++
	g.mu.Unlock()
	return g.updates, func() {}
}

func (g *fakeGame) subscribers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.subs
}

type fakeMarket struct {
	state domain.MarketState
}

func (m fakeMarket) Snapshot() domain.MarketState { return m.state }

func (m fakeMarket) Candles(tokenID string, tf domain.Timeframe) []domain.Candle {
	return engine.Candles(m.state, tokenID, tf)
}

func testMarket() fakeMarket {
	return fakeMarket{state: domain.MarketState{Tokens: map[string]domain.Token{
		"pepe": {ID: "pepe", Name: "Pepe", Ticker: "PEPE", PriceHistory: []float64{1, 2, 1.5, 3}},
		"doge": {ID: "doge", Name: "Doge", Ticker: "DOGE"},
	}}}
}

func newTestHub(t *testing.T) (*Hub, *fakeGame, *infra.Metrics, *httptest.Server) {
	t.Helper()
	game := newFakeGame()
	metrics := infra.NewMetrics()
	hub := NewHub(game, testMarket(), metrics, infra.NewSparkline(60, 20))
	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(srv.Close)
	return hub, game, metrics, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := strings.Replace(srv.URL, "http://", "ws://", 1) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHub_BroadcastsTicks(t *testing.T) {
	_, game, metrics, srv := newTestHub(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return game.subscribers() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), metrics.Snapshot().FeedClients)

	game.updates <- service.TickUpdate{
		Tick:   42,
		Tokens: []domain.TokenSummary{{ID: "pepe", Ticker: "PEPE"}},
		Events: []domain.MarketEvent{{Type: domain.EventNewToken, TokenID: "pepe"}},
	}

	frame := readFrame(t, conn)
	assert.Equal(t, "tick", frame["type"])
	assert.EqualValues(t, 42, frame["tick"])
	require.Len(t, frame["tokens"], 1)
	require.Len(t, frame["events"], 1)
	assert.Contains(t, frame, "notifications")
	assert.Contains(t, frame, "portfolio")
}

func TestHub_Commands(t *testing.T) {
	_, game, _, srv := newTestHub(t)
	conn := dial(t, srv)

	tests := []struct {
		name    string
		command string
		check   func(t *testing.T, frame map[string]any)
	}{
		{
			name:    "buy",
			command: `{"id":"1","action":"buy","token_id":"pepe","amount":"0.5"}`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "result", frame["type"])
				assert.Equal(t, "1", frame["id"])
				trade, ok := frame["trade"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "pepe", trade["token_id"])
			},
		},
		{
			name:    "buy unknown token",
			command: `{"id":"2","action":"buy","token_id":"nope","amount":1}`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "error", frame["type"])
				assert.Equal(t, "2", frame["id"])
				assert.Equal(t, domain.ErrTokenNotFound.Error(), frame["error"])
			},
		},
		{
			name:    "sell without position",
			command: `{"id":"3","action":"sell","token_id":"pepe","percent":50}`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "error", frame["type"])
				assert.Equal(t, domain.ErrNoPosition.Error(), frame["error"])
			},
		},
		{
			name:    "claim",
			command: `{"id":"4","action":"claim"}`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "result", frame["type"])
				assert.Equal(t, "10", frame["claimed"])
			},
		},
		{
			name:    "unknown action",
			command: `{"action":"rug"}`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "error", frame["type"])
				assert.Contains(t, frame["error"], "unknown action")
			},
		},
		{
			name:    "malformed",
			command: `{not json`,
			check: func(t *testing.T, frame map[string]any) {
				assert.Equal(t, "error", frame["type"])
				assert.Equal(t, "malformed command", frame["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.command)))
			tt.check(t, readFrame(t, conn))
		})
	}

	game.mu.Lock()
	defer game.mu.Unlock()
	require.Len(t, game.buys, 1)
	assert.True(t, game.buys[0].Equal(decimal.RequireFromString("0.5")))
}

func TestHub_ClientGauge(t *testing.T) {
	_, _, metrics, srv := newTestHub(t)

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return metrics.Snapshot().FeedClients == 1 }, time.Second, 5*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	assert.Eventually(t, func() bool { return metrics.Snapshot().FeedClients == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_Tokens(t *testing.T) {
	_, _, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/tokens")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var tokens []domain.TokenSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.Len(t, tokens, 2)
	assert.Equal(t, "doge", tokens[0].ID)
	assert.Equal(t, "pepe", tokens[1].ID)
}

func TestHub_Candles(t *testing.T) {
	_, _, _, srv := newTestHub(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/tokens/pepe/candles", http.StatusOK},
		{"/tokens/pepe/candles?tf=1m", http.StatusOK},
		{"/tokens/pepe/candles?tf=2h", http.StatusBadRequest},
		{"/tokens/nope/candles", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, tt.path)
	}

	resp, err := http.Get(srv.URL + "/tokens/pepe/candles")
	require.NoError(t, err)
	defer resp.Body.Close()
	var candles []domain.Candle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&candles))
	assert.NotNil(t, candles)
	assert.Empty(t, candles)
}

func TestHub_Sparkline(t *testing.T) {
	_, _, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/tokens/pepe/sparkline.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	empty, err := http.Get(srv.URL + "/tokens/doge/sparkline.png")
	require.NoError(t, err)
	empty.Body.Close()
	assert.Equal(t, http.StatusNoContent, empty.StatusCode)

	missing, err := http.Get(srv.URL + "/tokens/nope/sparkline.png")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHub_StatsAndHealth(t *testing.T) {
	_, _, metrics, srv := newTestHub(t)
	metrics.RecordTick(time.Millisecond, 12)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	var snap infra.MetricsSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint64(1), snap.Ticks)
	assert.Equal(t, int32(12), snap.ActiveTokens)

	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
