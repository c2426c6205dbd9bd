package domain

import "context"

// Storage keys for persisted player state.
const (
	PortfolioStateKey = "trenches_portfolio"
	QuestStateKey     = "trenches_quests"
)

// StateStore persists opaque JSON blobs under fixed keys.
type StateStore interface {
	// SaveState writes data under key, replacing any previous value.
	SaveState(ctx context.Context, key string, data []byte) error
	// LoadState returns ErrStateNotFound when key was never saved.
	LoadState(ctx context.Context, key string) ([]byte, error)
	// DeleteState removes key; deleting a missing key is not an error.
	DeleteState(ctx context.Context, key string) error
}

// EventJournal keeps an append-only record of market events.
type EventJournal interface {
	AppendEvents(ctx context.Context, events []MarketEvent) error
	RecentEvents(ctx context.Context, limit int) ([]MarketEvent, error)
}

// Store is a persistence backend providing both contracts.
type Store interface {
	StateStore
	EventJournal
	Close() error
}
