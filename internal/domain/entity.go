package domain

import (
	"time"
)

// StateRecord is a persisted key/value blob (portfolio, quests)
type StateRecord struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     []byte    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarketEventRecord is one journaled market event
type MarketEventRecord struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type        string    `gorm:"index" json:"type"`
	TokenID     string    `gorm:"index" json:"token_id"`
	TokenName   string    `json:"token_name"`
	TokenTicker string    `json:"token_ticker"`
	TimestampMs int64     `gorm:"index" json:"timestamp"`
	Payload     []byte    `json:"payload"` // JSON-encoded MarketEvent.Data
	CreatedAt   time.Time `json:"created_at"`
}
