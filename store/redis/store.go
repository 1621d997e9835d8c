package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/marben/fractal_explorer/session"
)

const DefaultPrefix = "fractal:session:"

// Store implements session.Store using Redis.
// States are JSON strings; a sorted set indexes ids by expiry time.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// '#' never appears in a valid session id
func (s *Store) indexKey() string {
	return s.prefix + "#index"
}

// never-expiring sessions are indexed with a score far in the future
const noExpiryScore = 4102444800 // 2100-01-01

// Save writes the state and refreshes its expiry.
func (s *Store) Save(ctx context.Context, id string, st session.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(s.now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(id), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load reads a state, session.ErrNotFound if it is missing or expired.
func (s *Store) Load(ctx context.Context, id string) (session.State, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return session.State{}, session.ErrNotFound
		}
		return session.State{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var st session.State
	if err := json.Unmarshal(val, &st); err != nil {
		return session.State{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return st, nil
}

// Touch pushes the expiry of a stored session one TTL into the future.
func (s *Store) Touch(ctx context.Context, id string) error {
	if s.ttl <= 0 {
		n, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return fmt.Errorf("failed to check redis key: %w", err)
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return nil
	}

	ok, err := s.client.Expire(ctx, s.key(id), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh expiry: %w", err)
	}
	if !ok {
		return session.ErrNotFound
	}
	score := float64(s.now().Add(s.ttl).Unix())
	if err := s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id}).Err(); err != nil {
		return fmt.Errorf("failed to refresh redis index: %w", err)
	}
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live session ids, dropping expired ones from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", s.now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to clean redis index: %w", err)
	}

	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{Min: now, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list from redis: %w", err)
	}
	return ids, nil
}

var _ session.Store = (*Store)(nil)
