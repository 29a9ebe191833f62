package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// NewStore selects the session backend: Redis when redisURL is set, the
// in-memory store otherwise.
func NewStore(ctx context.Context, redisURL string, ttl time.Duration, clock clockwork.Clock) (Store, error) {
	if redisURL != "" {
		store, err := NewRedisStore(ctx, redisURL, ttl)
		if err != nil {
			return nil, err
		}
		slog.Info("Using Redis session store")
		return store, nil
	}

	slog.Info("Using in-memory session store", "ttl", ttl)
	return NewMemoryStore(ttl, clock), nil
}
