package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/simgym/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "simgym:experience:"

// Store implements ports.ExperienceStore using Redis.
// Each episode is a JSON string; a sorted set scored by episode number indexes them.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for saved episodes.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
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
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(episode int) string {
	return s.prefix + domain.EpisodeName(episode)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Save writes the episode and indexes it in one pipeline.
func (s *Store) Save(ctx context.Context, episode int, records []domain.Experience) error {
	if records == nil {
		records = []domain.Experience{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal experiences: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(episode), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(episode),
		Member: strconv.Itoa(episode),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the records of an episode.
func (s *Store) Load(ctx context.Context, episode int) ([]domain.Experience, error) {
	val, err := s.client.Get(ctx, s.key(episode)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrEpisodeNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	records := []domain.Experience{}
	if err := json.Unmarshal([]byte(val), &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal episode %d: %w", episode, err)
	}
	return records, nil
}

// List returns indexed episodes in ascending order.
// Entries whose data expired are pruned from the index lazily.
func (s *Store) List(ctx context.Context) ([]int, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	episodes := make([]int, 0, len(members))
	if len(members) == 0 {
		return episodes, nil
	}

	pipe := s.client.Pipeline()
	exists := make([]*backend.IntCmd, len(members))
	for i, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil, fmt.Errorf("corrupt episode index entry %q: %w", m, err)
		}
		exists[i] = pipe.Exists(ctx, s.key(n))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check episodes: %w", err)
	}

	var expired []any
	for i, m := range members {
		if exists[i].Val() == 0 {
			expired = append(expired, m)
			continue
		}
		n, _ := strconv.Atoi(m)
		episodes = append(episodes, n)
	}
	if len(expired) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired episodes: %w", err)
		}
	}
	return episodes, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
