package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/countdown/internal/config"
	"github.com/goodtune/countdown/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "countdown:deadline:"

// Store implements storage.DeadlineStore using Redis hashes.
type Store struct {
	client *redis.Client
	save   *redis.Script
}

var _ storage.DeadlineStore = (*Store)(nil)

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client: client,
		save:   redis.NewScript(saveDeadlineScript),
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Save replaces the deadline hash for identity.
func (s *Store) Save(ctx context.Context, identity string, record storage.Record) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	keys := []string{deadlineKey(identity)}
	args := []interface{}{record.DeadlineMillis, record.SetAtMillis}

	if err := s.save.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("save deadline: %w", err)
	}
	return nil
}

// Load returns the deadline hash for identity.
func (s *Store) Load(ctx context.Context, identity string) (*storage.Record, error) {
	if err := storage.CheckIdentity(identity); err != nil {
		return nil, err
	}

	data, err := s.client.HGetAll(ctx, deadlineKey(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("load deadline: %w", err)
	}

	return parseRecord(data)
}

// Delete removes the deadline hash for identity.
func (s *Store) Delete(ctx context.Context, identity string) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	if err := s.client.Del(ctx, deadlineKey(identity)).Err(); err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}

func deadlineKey(identity string) string {
	return keyPrefix + identity
}
