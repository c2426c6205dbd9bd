package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"trenches/internal/domain"
	"trenches/internal/infra"
	"trenches/internal/service"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	pingInterval  = 30 * time.Second
	readTimeout   = 60 * time.Second
	writeTimeout  = 10 * time.Second
	replyBuffer   = 8
	maxFrameBytes = 4096
	actionTimeout = 5 * time.Second
)

// Game is the player-facing surface the hub drives.
type Game interface {
	Buy(ctx context.Context, tokenID string, amountSOL decimal.Decimal) (domain.TradeRecord, error)
	Sell(ctx context.Context, tokenID string, percent float64) (domain.TradeRecord, error)
	Claim() (decimal.Decimal, error)
	Subscribe() (<-chan service.TickUpdate, func())
}

// Market serves read-only market snapshots.
type Market interface {
	Snapshot() domain.MarketState
	Candles(tokenID string, tf domain.Timeframe) []domain.Candle
}

// Command is a client request read from the websocket.
type Command struct {
	ID      string          `json:"id,omitempty"` // echoed back in the reply
	Action  string          `json:"action"`       // buy, sell, claim
	TokenID string          `json:"token_id,omitempty"`
	Amount  decimal.Decimal `json:"amount"`  // SOL, buy only
	Percent float64         `json:"percent"` // sell only
}

type tickFrame struct {
	Type string `json:"type"`
	service.TickUpdate
}

type resultFrame struct {
	Type    string              `json:"type"`
	ID      string              `json:"id,omitempty"`
	Action  string              `json:"action"`
	Trade   *domain.TradeRecord `json:"trade,omitempty"`
	Claimed *decimal.Decimal    `json:"claimed,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// Hub serves the websocket feed and the HTTP chart endpoints.
type Hub struct {
	game      Game
	market    Market
	metrics   *infra.Metrics
	sparkline *infra.Sparkline
	upgrader  websocket.Upgrader
}

// NewHub creates a hub. metrics may be nil.
func NewHub(game Game, market Market, metrics *infra.Metrics, sparkline *infra.Sparkline) *Hub {
	if sparkline == nil {
		sparkline = infra.NewSparkline(120, 40)
	}
	return &Hub{
		game:      game,
		market:    market,
		metrics:   metrics,
		sparkline: sparkline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers the hub's endpoints on mux.
func (h *Hub) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.serveWS)
	mux.HandleFunc("GET /tokens", h.handleTokens)
	mux.HandleFunc("GET /tokens/{id}/candles", h.handleCandles)
	mux.HandleFunc("GET /tokens/{id}/sparkline.png", h.handleSparkline)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Handler returns a mux with only the hub's routes.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux)
	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}
	h.metrics.IncrementClients()
	defer h.metrics.DecrementClients()

	updates, unsubscribe := h.game.Subscribe()
	defer unsubscribe()

	replies := make(chan any, replyBuffer)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		h.writeLoop(conn, updates, replies, done)
	}()

	h.readLoop(r.Context(), conn, replies, stopped)
	close(done)
	<-stopped
}

// readLoop decodes commands until the client goes away.
func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, replies chan<- any, stopped <-chan struct{}) {
	conn.SetReadLimit(maxFrameBytes)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Feed client read failed", slog.Any("error", err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		var reply any
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			reply = errorFrame{Type: "error", Error: "malformed command"}
		} else {
			reply = h.execute(ctx, cmd)
		}

		select {
		case replies <- reply:
		case <-stopped:
			return
		}
	}
}

func (h *Hub) execute(ctx context.Context, cmd Command) any {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	res := resultFrame{Type: "result", ID: cmd.ID, Action: cmd.Action}
	switch cmd.Action {
	case "buy":
		rec, err := h.game.Buy(ctx, cmd.TokenID, cmd.Amount)
		if err != nil {
			return errorFrame{Type: "error", ID: cmd.ID, Error: err.Error()}
		}
		res.Trade = &rec
	case "sell":
		rec, err := h.game.Sell(ctx, cmd.TokenID, cmd.Percent)
		if err != nil {
			return errorFrame{Type: "error", ID: cmd.ID, Error: err.Error()}
		}
		res.Trade = &rec
	case "claim":
		amount, err := h.game.Claim()
		if err != nil {
			return errorFrame{Type: "error", ID: cmd.ID, Error: err.Error()}
		}
		res.Claimed = &amount
	default:
		return errorFrame{Type: "error", ID: cmd.ID, Error: "unknown action: " + cmd.Action}
	}
	return res
}

// writeLoop owns every write to conn.
func (h *Hub) writeLoop(conn *websocket.Conn, updates <-chan service.TickUpdate, replies <-chan any, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(v); err != nil {
			slog.Debug("Feed client write failed", slog.Any("error", err))
			return false
		}
		return true
	}

	for {
		select {
		case <-done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if !write(tickFrame{Type: "tick", TickUpdate: u}) {
				return
			}
		case r := <-replies:
			if !write(r) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleTokens(w http.ResponseWriter, r *http.Request) {
	state := h.market.Snapshot()
	out := make([]domain.TokenSummary, 0, len(state.Tokens))
	for _, tok := range state.Tokens {
		out = append(out, tok.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (h *Hub) handleCandles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tfName := r.URL.Query().Get("tf")
	if tfName == "" {
		tfName = domain.Timeframe5s.String()
	}
	tf, err := domain.ParseTimeframe(tfName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, ok := h.market.Snapshot().Token(id); !ok {
		http.Error(w, domain.ErrTokenNotFound.Error(), http.StatusNotFound)
		return
	}
	candles := h.market.Candles(id, tf)
	if candles == nil {
		candles = []domain.Candle{}
	}
	writeJSON(w, http.StatusOK, candles)
}

func (h *Hub) handleSparkline(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.market.Snapshot().Token(r.PathValue("id"))
	if !ok {
		http.Error(w, domain.ErrTokenNotFound.Error(), http.StatusNotFound)
		return
	}
	if len(tok.PriceHistory) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.sparkline.Encode(w, tok.PriceHistory); err != nil {
		slog.Warn("Sparkline encode failed", slog.String("token", tok.ID), slog.Any("error", err))
	}
}

func (h *Hub) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", slog.Any("error", err))
	}
}
