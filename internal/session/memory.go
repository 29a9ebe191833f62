package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zhzsx/creepMiner/internal/metrics"
)

const sweepInterval = time.Minute

type record struct {
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps sessions in a mutex-guarded map. Expired entries are
// evicted on access and by a background sweep ticker.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*record
	ttl      time.Duration
	clock    clockwork.Clock
	done     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates a store with the given sliding-expiry TTL and starts
// the background sweep loop.
func NewMemoryStore(ttl time.Duration, clock clockwork.Clock) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*record),
		ttl:      ttl,
		clock:    clock,
		done:     make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	s.mu.Lock()
	s.sessions[token] = &record{createdAt: now, expiresAt: now.Add(s.ttl)}
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(size))
	return token, nil
}

func (s *MemoryStore) Valid(_ context.Context, token string) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[token]
	if !ok {
		return false
	}
	if now.After(rec.expiresAt) {
		delete(s.sessions, token)
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		return false
	}

	rec.expiresAt = now.Add(s.ttl)
	return true
}

func (s *MemoryStore) Destroy(_ context.Context, token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(size))
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := s.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.clock.Now()
	swept := 0

	s.mu.Lock()
	for token, rec := range s.sessions {
		if now.After(rec.expiresAt) {
			delete(s.sessions, token)
			swept++
		}
	}
	size := len(s.sessions)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(size))
	if swept > 0 {
		slog.Debug("Swept expired sessions", "count", swept, "remaining", size)
	}
}
