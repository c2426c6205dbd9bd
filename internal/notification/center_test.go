package notification

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trenches/internal/domain"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestFromMarketEvent(t *testing.T) {
	n, ok := FromMarketEvent(domain.MarketEvent{
		Type: domain.EventNewToken, TokenID: "x1", TokenName: "Based Doge", TokenTicker: "BASED",
	})
	require.True(t, ok)
	assert.Equal(t, "NEW TOKEN DETECTED", n.Title)
	assert.Equal(t, "Based Doge ($BASED) just launched!", n.Message)
	assert.Equal(t, "x1", n.TokenID)

	n, ok = FromMarketEvent(domain.MarketEvent{
		Type: domain.EventMigration, TokenID: "x2", TokenName: "Moon Cat", TokenTicker: "MOONC",
	})
	require.True(t, ok)
	assert.Equal(t, "MIGRATION!", n.Title)
	assert.Equal(t, "Moon Cat ($MOONC) hit $1.00!", n.Message)

	_, ok = FromMarketEvent(domain.MarketEvent{Type: "rug"})
	assert.False(t, ok)
}

func TestAdd_AssignsIDs(t *testing.T) {
	c := NewCenter()
	n := c.Add(domain.Notification{Title: "hi"}, t0)

	_, err := uuid.Parse(n.ID)
	assert.NoError(t, err)
	assert.Equal(t, t0.UnixMilli(), n.CreatedAtMs)
	assert.False(t, n.Read)
}

func TestCaps(t *testing.T) {
	c := NewCenter()
	for i := 0; i < HistoryLimit+5; i++ {
		c.Add(domain.Notification{Title: strconv.Itoa(i)}, t0)
	}

	h := c.History()
	require.Len(t, h, HistoryLimit)
	assert.Equal(t, "5", h[0].Title)

	v := c.Visible()
	require.Len(t, v, VisibleLimit)
	assert.Equal(t, strconv.Itoa(HistoryLimit+4), v[VisibleLimit-1].Title)
}

func TestPrune(t *testing.T) {
	c := NewCenter()
	c.Add(domain.Notification{Title: "old"}, t0)
	c.Add(domain.Notification{Title: "new"}, t0.Add(3*time.Second))

	c.Prune(t0.Add(3999 * time.Millisecond))
	assert.Len(t, c.Visible(), 2)

	c.Prune(t0.Add(4 * time.Second))
	v := c.Visible()
	require.Len(t, v, 1)
	assert.Equal(t, "new", v[0].Title)
	assert.Len(t, c.History(), 2, "history is not pruned")
}

func TestDismissAndRead(t *testing.T) {
	c := NewCenter()
	a := c.Add(domain.Notification{Title: "a"}, t0)
	c.Add(domain.Notification{Title: "b"}, t0)

	c.Dismiss(a.ID)
	v := c.Visible()
	require.Len(t, v, 1)
	assert.Equal(t, "b", v[0].Title)

	assert.Equal(t, 2, c.Unread())
	c.MarkAllRead()
	assert.Zero(t, c.Unread())

	c.Clear()
	assert.Empty(t, c.History())
	assert.Empty(t, c.Visible())
}

func TestFromTradeAndQuest(t *testing.T) {
	n := FromTrade(domain.TradeRecord{
		TokenID: "x", TokenTicker: "PEPE", Side: domain.SideSell,
		AmountSOL: decimal.RequireFromString("1.234"), AmountTokens: decimal.NewFromInt(4400),
	})
	assert.Equal(t, "Sold 4400 $PEPE for 1.23 SOL", n.Message)
	assert.Equal(t, domain.NotifyTrade, n.Type)

	q := FromQuest(domain.Quest{Title: "Whale Alert", Reward: 10, Icon: "🐳"})
	assert.Equal(t, "Whale Alert unlocked: +10 SOL", q.Message)
	assert.Equal(t, domain.NotifyQuestComplete, q.Type)
}
