// Package redisslot stores queue slots as Redis string values.
package redisslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds connection settings for the Redis slot.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Slot reads and overwrites one Redis key per slot key.
type Slot struct {
	client *redis.Client
	prefix string
}

// NewClient builds a go-redis client for cfg.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// New wraps an existing client. Keys are stored as prefix+key.
func New(client *redis.Client, prefix string) *Slot {
	return &Slot{client: client, prefix: prefix}
}

// Ping checks the connection.
func (s *Slot) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get implements queue.Slot.
func (s *Slot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", s.prefix+key, err)
	}
	return b, true, nil
}

// Put implements queue.Slot.
func (s *Slot) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.prefix+key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Slot) Close() error {
	return s.client.Close()
}
