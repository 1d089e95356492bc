// Package cache provides a Redis-backed raw sheet cache shared between instances.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/source"
)

const keyPrefix = "flashquiz:raw:"

// Redis stores raw sheet bodies as JSON with an expiry equal to the cache TTL.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Key returns the Redis key for mode.
func Key(mode model.Mode) string {
	return keyPrefix + string(mode)
}

// GetRaw returns the cached entry for mode, or nil when absent or expired.
func (r *Redis) GetRaw(ctx context.Context, mode model.Mode) (*source.Entry, error) {
	raw, err := r.rdb.Get(ctx, Key(mode)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeEntry(raw)
}

// PutRaw stores the entry for mode.
func (r *Redis) PutRaw(ctx context.Context, mode model.Mode, e source.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, Key(mode), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// ClearRaw deletes the cached body of every mode.
func (r *Redis) ClearRaw(ctx context.Context) error {
	if err := r.rdb.Del(ctx, Key(model.ModePractice), Key(model.ModeVocab)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func decodeEntry(raw []byte) (*source.Entry, error) {
	var e source.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &e, nil
}
