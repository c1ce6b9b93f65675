package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys so the history store can share a Redis
// instance with other applications.
const keyPrefix = "lore:history:"

// RedisStore implements Store on a Redis list per session.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds the connection settings for the Redis history store.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string
	// Password is optional.
	Password string
	// DB selects the logical database, 0 by default.
	DB int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("history: redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Append pushes the turn onto the session's list as a JSON document.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("history: marshal turn: %w", err)
	}
	if err := s.client.RPush(ctx, keyPrefix+sessionID, payload).Err(); err != nil {
		return fmt.Errorf("history: append to session %s: %w", sessionID, err)
	}
	return nil
}

// Turns reads the session's full transcript.
func (s *RedisStore) Turns(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, keyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history: read session %s: %w", sessionID, err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("history: decode turn in session %s: %w", sessionID, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Ping reports whether the Redis server is reachable. Used by readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("history: redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("history: close redis client: %w", err)
	}
	return nil
}
