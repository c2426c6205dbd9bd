package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"trenches/internal/domain"
)

const (
	redisPrefix    = "trenches:"
	redisEventsKey = redisPrefix + "events"
)

// Redis implements the state store and event journal on a Redis server.
// State blobs are plain string keys; the journal is a capped list, newest first.
type Redis struct {
	client     *redis.Client
	journalCap int64
}

// NewRedis connects to addr and verifies the connection with PING.
func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Redis{client: client, journalCap: JournalCapacity}, nil
}

// SaveState writes data under key with no expiry.
func (r *Redis) SaveState(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, redisPrefix+key, data, 0).Err(); err != nil {
		return domain.NewStorageError("save_state", err)
	}
	return nil
}

// LoadState returns the blob stored under key.
func (r *Redis) LoadState(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("load_state", err)
	}
	return data, nil
}

// DeleteState removes key.
func (r *Redis) DeleteState(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisPrefix+key).Err(); err != nil {
		return domain.NewStorageError("delete_state", err)
	}
	return nil
}

// AppendEvents pushes events and trims the journal in one pipeline.
func (r *Redis) AppendEvents(ctx context.Context, events []domain.MarketEvent) error {
	if len(events) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(events))
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			return domain.NewFatalStorageError("append_events", err)
		}
		values = append(values, b)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, redisEventsKey, values...)
		pipe.LTrim(ctx, redisEventsKey, 0, r.journalCap-1)
		return nil
	})
	if err != nil {
		return domain.NewStorageError("append_events", err)
	}
	return nil
}

// RecentEvents returns up to limit events, oldest first.
func (r *Redis) RecentEvents(ctx context.Context, limit int) ([]domain.MarketEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, redisEventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, domain.NewStorageError("recent_events", err)
	}

	events := make([]domain.MarketEvent, len(raw))
	for i, s := range raw {
		// The list is newest first.
		if err := json.Unmarshal([]byte(s), &events[len(raw)-1-i]); err != nil {
			return nil, domain.NewFatalStorageError("recent_events", err)
		}
	}
	return events, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
