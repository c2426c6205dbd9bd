package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"trenches/internal/domain"
)

// SQLite persists player state and the market event journal in a single
// SQLite file through GORM (pure Go driver).
type SQLite struct {
	db *gorm.DB
}

// NewSQLite opens (or creates) the database at path and migrates the schema.
func NewSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&domain.StateRecord{}, &domain.MarketEventRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// ======================================================================================
// State Operations
// ======================================================================================

// SaveState upserts a state blob.
func (s *SQLite) SaveState(ctx context.Context, key string, data []byte) error {
	rec := domain.StateRecord{Key: key, Value: data}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return domain.NewStorageError("save_state", err)
	}
	return nil
}

// LoadState returns the blob stored under key.
func (s *SQLite) LoadState(ctx context.Context, key string) ([]byte, error) {
	var rec domain.StateRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("load_state", err)
	}
	return rec.Value, nil
}

// DeleteState removes key.
func (s *SQLite) DeleteState(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.StateRecord{}).Error
	if err != nil {
		return domain.NewStorageError("delete_state", err)
	}
	return nil
}

// ======================================================================================
// Journal Operations
// ======================================================================================

// AppendEvents stores events in one transaction.
func (s *SQLite) AppendEvents(ctx context.Context, events []domain.MarketEvent) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]domain.MarketEventRecord, 0, len(events))
	for _, ev := range events {
		rec, err := toRecord(ev)
		if err != nil {
			return domain.NewFatalStorageError("append_events", err)
		}
		records = append(records, rec)
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return domain.NewStorageError("append_events", err)
	}
	return nil
}

// RecentEvents returns up to limit events, oldest first.
func (s *SQLite) RecentEvents(ctx context.Context, limit int) ([]domain.MarketEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	var records []domain.MarketEventRecord
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, domain.NewStorageError("recent_events", err)
	}
	slices.Reverse(records)

	events := make([]domain.MarketEvent, 0, len(records))
	for _, rec := range records {
		ev, err := fromRecord(rec)
		if err != nil {
			return nil, domain.NewFatalStorageError("recent_events", fmt.Errorf("event %d: %w", rec.ID, err))
		}
		events = append(events, ev)
	}
	return events, nil
}

// Close closes the underlying connection pool.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(ev domain.MarketEvent) (domain.MarketEventRecord, error) {
	rec := domain.MarketEventRecord{
		Type:        string(ev.Type),
		TokenID:     ev.TokenID,
		TokenName:   ev.TokenName,
		TokenTicker: ev.TokenTicker,
		TimestampMs: ev.TimestampMs,
	}
	if len(ev.Data) > 0 {
		payload, err := json.Marshal(ev.Data)
		if err != nil {
			return rec, fmt.Errorf("failed to marshal event data: %w", err)
		}
		rec.Payload = payload
	}
	return rec, nil
}

func fromRecord(rec domain.MarketEventRecord) (domain.MarketEvent, error) {
	ev := domain.MarketEvent{
		Type:        domain.EventType(rec.Type),
		TokenID:     rec.TokenID,
		TokenName:   rec.TokenName,
		TokenTicker: rec.TokenTicker,
		TimestampMs: rec.TimestampMs,
	}
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &ev.Data); err != nil {
			return ev, err
		}
	}
	return ev, nil
}
