package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultHistoryWindow is how many recent transcript messages collaborators
// see.
const DefaultHistoryWindow = 20

// HistoryStore keeps the rolling transcript for a conversation. The window
// excludes the message currently being processed; callers append it after
// the turn completes.
type HistoryStore interface {
	Append(ctx context.Context, userID, prospectPhone string, msgs ...ChatMessage) error
	Recent(ctx context.Context, userID, prospectPhone string) ([]ChatMessage, error)
}

// RedisHistoryStore keeps transcripts in Redis lists, trimmed to the window.
type RedisHistoryStore struct {
	redis  *redis.Client
	window int
	ttl    time.Duration
}

// NewRedisHistoryStore creates a Redis-backed history store. Zero window and
// ttl use the defaults.
func NewRedisHistoryStore(client *redis.Client, window int, ttl time.Duration) *RedisHistoryStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisHistoryStore{redis: client, window: window, ttl: ttl}
}

// Append implements HistoryStore.
func (s *RedisHistoryStore) Append(ctx context.Context, userID, prospectPhone string, msgs ...ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	key := historyKey(userID, prospectPhone)
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("conversation: encode history message: %w", err)
		}
		values = append(values, data)
	}

	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conversation: append history: %w", err)
	}
	return nil
}

// Recent implements HistoryStore.
func (s *RedisHistoryStore) Recent(ctx context.Context, userID, prospectPhone string) ([]ChatMessage, error) {
	raw, err := s.redis.LRange(ctx, historyKey(userID, prospectPhone), int64(-s.window), -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	out := make([]ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("conversation: decode history message: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

func historyKey(userID, prospectPhone string) string {
	return fmt.Sprintf("lead_history:%s:%s", userID, prospectPhone)
}

// MemoryHistoryStore is an in-memory HistoryStore for tests and local
// development.
type MemoryHistoryStore struct {
	mu     sync.RWMutex
	window int
	msgs   map[string][]ChatMessage
}

// NewMemoryHistoryStore creates an empty in-memory history store.
func NewMemoryHistoryStore(window int) *MemoryHistoryStore {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &MemoryHistoryStore{window: window, msgs: make(map[string][]ChatMessage)}
}

// Append implements HistoryStore.
func (s *MemoryHistoryStore) Append(_ context.Context, userID, prospectPhone string, msgs ...ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := historyKey(userID, prospectPhone)
	all := append(s.msgs[key], msgs...)
	if len(all) > s.window {
		all = all[len(all)-s.window:]
	}
	s.msgs[key] = all
	return nil
}

// Recent implements HistoryStore.
func (s *MemoryHistoryStore) Recent(_ context.Context, userID, prospectPhone string) ([]ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.msgs[historyKey(userID, prospectPhone)]
	out := make([]ChatMessage, len(stored))
	copy(out, stored)
	return out, nil
}
