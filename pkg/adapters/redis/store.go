// Package redis provides Redis-backed adapters for multi-replica
// deployments: durable session storage and a distributed session lock.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/kursio/weft/pkg/domain"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "weft:"

// Store implements ports.StateStore on Redis. Session states are stored as
// JSON values with an optional TTL; a sorted-set index keyed by expiry time
// backs List, with expired members removed lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// StoreOption configures the store.
type StoreOption func(*Store)

// WithTTL sets an expiry on stored sessions. Zero means no expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) sessionKey(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "sessions"
}

// Save serializes and stores the state, refreshing the index entry.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}

	if err := s.client.Set(ctx, s.sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sessionID, err)
	}

	// Score is the expiry instant; 0 marks a session that never expires.
	var score float64
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID}).Err(); err != nil {
		return fmt.Errorf("index session %s: %w", sessionID, err)
	}
	return nil
}

// Load retrieves and deserializes the state.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	data, err := s.client.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Delete removes the state and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return s.client.ZRem(ctx, s.indexKey(), sessionID).Err()
}

// List returns the active session ids, lazily dropping expired index entries.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "(0", now).Err(); err != nil {
		return nil, fmt.Errorf("prune session index: %w", err)
	}
	return s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
}
