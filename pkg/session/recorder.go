package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/simgym/internal/logging"
	"github.com/aretw0/simgym/pkg/domain"
	"github.com/aretw0/simgym/pkg/ports"
)

// lockKey is the distributed lock guarding episode saves.
const lockKey = "episode_end"

// Observer receives recorder events, typically to update metrics.
type Observer interface {
	Buffered(n int)
	EpisodeSaved(episode, records int)
}

// Status is a point-in-time view of the recorder.
type Status struct {
	Episode  int `json:"episode"`
	Buffered int `json:"buffered"`
}

// Recorder buffers experiences and persists them once per episode.
// Safe for concurrent use.
type Recorder struct {
	store ports.ExperienceStore

	mu      sync.Mutex
	episode int
	buffer  []domain.Experience

	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	observer Observer
	logger   *slog.Logger
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithLocker enables distributed locking around saves.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(r *Recorder) {
		r.locker = locker
	}
}

// WithLockTTL sets how long a save lock may be held before it expires.
func WithLockTTL(ttl time.Duration) Option {
	return func(r *Recorder) {
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithStartEpisode sets the number of the first episode (default 1).
func WithStartEpisode(n int) Option {
	return func(r *Recorder) {
		r.episode = n
	}
}

// WithObserver registers an observer for buffer and save events.
func WithObserver(o Observer) Option {
	return func(r *Recorder) {
		r.observer = o
	}
}

// WithLogger configures a logger for the Recorder.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a Recorder persisting to store.
func NewRecorder(store ports.ExperienceStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		episode: 1,
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one experience to the current episode and returns the buffer size.
func (r *Recorder) Record(exp domain.Experience) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, exp)
	n := len(r.buffer)
	if r.observer != nil {
		r.observer.Buffered(n)
	}
	return n
}

// EndEpisode saves the buffered experiences under the current episode number,
// clears the buffer and advances the counter. It returns the saved episode.
// On failure nothing is cleared, so the call can be repeated.
func (r *Recorder) EndEpisode(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, lockKey, r.lockTTL)
		if err != nil {
			return 0, fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				r.logger.Warn("Failed to release distributed lock (will expire via TTL)", "err", err)
			}
		}()
	}

	episode := r.episode
	records := r.buffer
	if records == nil {
		records = []domain.Experience{}
	}

	if err := r.store.Save(ctx, episode, records); err != nil {
		return 0, fmt.Errorf("failed to save episode %d: %w", episode, err)
	}

	r.logger.Info("Episode saved", "episode", episode, "records", len(records))
	r.buffer = nil
	r.episode++
	if r.observer != nil {
		r.observer.EpisodeSaved(episode, len(records))
		r.observer.Buffered(0)
	}
	return episode, nil
}

// Snapshot reports the current episode number and buffer size.
func (r *Recorder) Snapshot() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{Episode: r.episode, Buffered: len(r.buffer)}
}

// SetEpisode overrides the current episode number. The buffer is kept.
func (r *Recorder) SetEpisode(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episode = n
}

// Store returns the underlying experience store.
func (r *Recorder) Store() ports.ExperienceStore {
	return r.store
}
