package state

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/herobans/internal/domain/model"
	"github.com/okian/herobans/pkg/logger"
	"github.com/okian/herobans/pkg/metrics"
)

const defaultSubscriberBuffer = 8

// Cache persists the last stored record between runs.
type Cache interface {
	Load(ctx context.Context) (any, error)
	Save(ctx context.Context, s model.State) error
}

// Store is the shared record. All access goes through one mutex so that
// readers never observe a partially written record.
type Store struct {
	mu    sync.Mutex
	state model.State
	subs  map[string]chan model.State

	cache  Cache
	clock  func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithCache enables persistence of every write.
func WithCache(c Cache) Option {
	return func(s *Store) {
		s.cache = c
	}
}

// WithClock overrides the time source used to stamp updatedAt.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore builds a store holding defaults, replaced by the cached record
// when a cache is configured and readable.
func NewStore(ctx context.Context, opts ...Option) *Store {
	s := &Store{
		subs:   make(map[string]chan model.State),
		clock:  time.Now,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state = Default(s.clock())
	if s.cache == nil {
		return s
	}

	raw, err := s.cache.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug(ctx, "no state cache yet")
	case err != nil:
		metrics.RecordStateCacheError("load")
		s.logger.Debug(ctx, "state cache unreadable; using defaults", logger.Error(err))
	default:
		s.state = Sanitize(raw, s.clock())
		s.logger.Info(ctx, "state restored from cache",
			logger.String("team1", s.state.Team1.Ban),
			logger.String("team2", s.state.Team2.Ban),
		)
	}
	return s
}

// Get returns a copy of the current record.
func (s *Store) Get(_ context.Context) model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the whole record with the sanitized payload and returns the
// stored copy. updatedAt strictly increases across calls.
func (s *Store) Set(ctx context.Context, payload any) model.State {
	next := Sanitize(payload, s.clock())

	s.mu.Lock()
	defer s.mu.Unlock()

	if next.UpdatedAt <= s.state.UpdatedAt {
		next.UpdatedAt = s.state.UpdatedAt + 1
	}
	s.state = next
	metrics.RecordStateWrite()

	if s.cache != nil {
		if err := s.cache.Save(context.WithoutCancel(ctx), next); err != nil {
			metrics.RecordStateCacheError("save")
			s.logger.Warn(ctx, "state cache write failed", logger.Error(err))
		}
	}

	s.publishLocked(next)
	return next
}

// Subscribe registers a receiver of every stored record. The current record
// is delivered first. A subscriber whose buffer is full when a write happens
// is dropped and its channel closed. Cancel is safe to call more than once.
func (s *Store) Subscribe(buffer int) (<-chan model.State, func()) {
	if buffer < 1 {
		buffer = defaultSubscriberBuffer
	}
	id := uuid.NewString()
	ch := make(chan model.State, buffer)

	s.mu.Lock()
	ch <- s.state
	s.subs[id] = ch
	metrics.UpdateLiveSubscribers(len(s.subs))
	s.mu.Unlock()

	return ch, func() { s.unsubscribe(id) }
}

// Subscribers returns the number of live subscribers.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close disconnects every subscriber.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	metrics.UpdateLiveSubscribers(0)
}

func (s *Store) unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
		metrics.UpdateLiveSubscribers(len(s.subs))
	}
}

func (s *Store) publishLocked(st model.State) {
	for id, ch := range s.subs {
		select {
		case ch <- st:
			metrics.RecordLiveMessage()
		default:
			delete(s.subs, id)
			close(ch)
			metrics.RecordLiveDropped()
		}
	}
	metrics.UpdateLiveSubscribers(len(s.subs))
}
