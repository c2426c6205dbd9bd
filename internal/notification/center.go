// Package notification turns market and player activity into toasts.
package notification

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"trenches/internal/domain"
)

const (
	// HistoryLimit caps the notification history.
	HistoryLimit = 50
	// VisibleLimit caps the toasts shown at once.
	VisibleLimit = 3
	// ToastTTL is how long a toast stays visible.
	ToastTTL = 4 * time.Second
)

// Center keeps the notification history and the visible toast stack.
// It is safe for concurrent use.
type Center struct {
	mu      sync.RWMutex
	history []domain.Notification
	visible []domain.Notification
	newID   func() string
}

// NewCenter creates an empty center.
func NewCenter() *Center {
	return &Center{newID: uuid.NewString}
}

// Add stamps n with an id and time, appends it to the history and pushes it
// onto the toast stack.
func (c *Center) Add(n domain.Notification, now time.Time) domain.Notification {
	n.ID = c.newID()
	n.CreatedAtMs = now.UnixMilli()
	n.Read = false

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = appendCapped(c.history, n, HistoryLimit)
	c.visible = appendCapped(c.visible, n, VisibleLimit)
	return n
}

// FromMarketEvent converts a simulator event. ok is false for event types
// that have no toast.
func FromMarketEvent(ev domain.MarketEvent) (n domain.Notification, ok bool) {
	switch ev.Type {
	case domain.EventNewToken:
		return domain.Notification{
			Type:    domain.NotifyNewToken,
			Title:   "NEW TOKEN DETECTED",
			Message: fmt.Sprintf("%s ($%s) just launched!", ev.TokenName, ev.TokenTicker),
			Icon:    "🆕",
			TokenID: ev.TokenID,
		}, true
	case domain.EventMigration:
		return domain.Notification{
			Type:    domain.NotifyMigration,
			Title:   "MIGRATION!",
			Message: fmt.Sprintf("%s ($%s) hit $1.00!", ev.TokenName, ev.TokenTicker),
			Icon:    "🚀",
			TokenID: ev.TokenID,
		}, true
	}
	return domain.Notification{}, false
}

// FromQuest builds the toast for a completed quest.
func FromQuest(q domain.Quest) domain.Notification {
	msg := q.Title + " unlocked"
	if q.Reward > 0 {
		msg = fmt.Sprintf("%s unlocked: +%g SOL", q.Title, q.Reward)
	}
	return domain.Notification{
		Type:    domain.NotifyQuestComplete,
		Title:   "QUEST COMPLETE!",
		Message: msg,
		Icon:    q.Icon,
	}
}

// FromTrade builds the toast for a filled trade.
func FromTrade(rec domain.TradeRecord) domain.Notification {
	verb := "Bought"
	if rec.Side == domain.SideSell {
		verb = "Sold"
	}
	return domain.Notification{
		Type:    domain.NotifyTrade,
		Title:   "TRADE FILLED",
		Message: fmt.Sprintf("%s %s $%s for %s SOL", verb, rec.AmountTokens.StringFixed(0), rec.TokenTicker, rec.AmountSOL.StringFixed(2)),
		Icon:    "💸",
		TokenID: rec.TokenID,
	}
}

// FromClaim builds the toast for a faucet claim.
func FromClaim(amount string) domain.Notification {
	return domain.Notification{
		Type:    domain.NotifyClaim,
		Title:   "SOL CLAIMED",
		Message: fmt.Sprintf("+%s SOL added to your balance", amount),
		Icon:    "🪂",
	}
}

// Prune drops toasts older than ToastTTL.
func (c *Center) Prune(now time.Time) {
	cutoff := now.Add(-ToastTTL).UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.visible[:0]
	for _, n := range c.visible {
		if n.CreatedAtMs > cutoff {
			kept = append(kept, n)
		}
	}
	c.visible = kept
}

// Dismiss removes the toast with id.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.visible {
		if n.ID == id {
			c.visible = append(c.visible[:i:i], c.visible[i+1:]...)
			return
		}
	}
}

// MarkAllRead flags every notification in the history as read.
func (c *Center) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.history {
		c.history[i].Read = true
	}
}

// Clear drops history and toasts.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.visible = nil
}

// Visible returns the current toasts, oldest first.
func (c *Center) Visible() []domain.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Notification(nil), c.visible...)
}

// History returns every retained notification, oldest first.
func (c *Center) History() []domain.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Notification(nil), c.history...)
}

// Unread counts unread notifications.
func (c *Center) Unread() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, h := range c.history {
		if !h.Read {
			n++
		}
	}
	return n
}

func appendCapped(list []domain.Notification, n domain.Notification, limit int) []domain.Notification {
	drop := max(len(list)+1-limit, 0)
	out := make([]domain.Notification, 0, len(list)-drop+1)
	out = append(out, list[drop:]...)
	return append(out, n)
}
