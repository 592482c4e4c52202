package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStateTTL bounds how long an idle conversation is retained.
const DefaultStateTTL = 90 * 24 * time.Hour

// StateStore persists ConversationState per (userID, prospectPhone).
type StateStore interface {
	// Load returns the stored state, or a fresh empty state when none exists.
	Load(ctx context.Context, userID, prospectPhone string) (*ConversationState, error)
	Save(ctx context.Context, userID, prospectPhone string, state *ConversationState) error
}

// RedisStateStore keeps conversation state in Redis.
type RedisStateStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStateStore creates a Redis-backed state store. A zero ttl uses
// DefaultStateTTL.
func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStateStore{redis: client, ttl: ttl}
}

// Load implements StateStore.
func (s *RedisStateStore) Load(ctx context.Context, userID, prospectPhone string) (*ConversationState, error) {
	data, err := s.redis.Get(ctx, stateKey(userID, prospectPhone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ConversationState{}, nil
		}
		return nil, fmt.Errorf("conversation: load state: %w", err)
	}
	return DecodeState(data)
}

// Save implements StateStore.
func (s *RedisStateStore) Save(ctx context.Context, userID, prospectPhone string, state *ConversationState) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, stateKey(userID, prospectPhone), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: persist state: %w", err)
	}
	return nil
}

func stateKey(userID, prospectPhone string) string {
	return fmt.Sprintf("lead_state:%s:%s", userID, prospectPhone)
}

// MemoryStateStore is an in-memory StateStore for tests and local
// development.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string][]byte

	// FailSaves forces Save to error, for exercising persistence failure
	// handling in tests.
	FailSaves bool
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string][]byte)}
}

// Load implements StateStore.
func (s *MemoryStateStore) Load(_ context.Context, userID, prospectPhone string) (*ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.states[stateKey(userID, prospectPhone)]
	if !ok {
		return &ConversationState{}, nil
	}
	return DecodeState(data)
}

// Save implements StateStore.
func (s *MemoryStateStore) Save(_ context.Context, userID, prospectPhone string, state *ConversationState) error {
	if s.FailSaves {
		return errors.New("conversation: persist state: store unavailable")
	}
	data, err := EncodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey(userID, prospectPhone)] = data
	return nil
}
