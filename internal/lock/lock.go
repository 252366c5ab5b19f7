package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker holds keyed locks. Each holder passes its own token; Unlock only
// releases the key while it is still held with that token, so a holder that
// outlived its TTL cannot free the next holder's lock.
type Locker interface {
	Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
	Close() error
}

func NewToken() string {
	return uuid.NewString()
}

// Acquire retries Lock until it succeeds, wait elapses or ctx ends.
func Acquire(ctx context.Context, l Locker, key, token string, ttl, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	backoff := 10 * time.Millisecond
	for {
		ok, err := l.Lock(ctx, key, token, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().Add(backoff).After(deadline) {
			return ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}
}

// Local is a process-wide keyed lock used when no Redis is configured.
// Expired entries are treated as free, the same as a Redis key TTL.
type Local struct {
	mu   sync.Mutex
	held map[string]localHold
}

type localHold struct {
	token   string
	expires time.Time
}

func NewLocal() *Local {
	return &Local{held: make(map[string]localHold)}
}

func (l *Local) Lock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && time.Now().Before(h.expires) {
		return false, nil
	}
	l.held[key] = localHold{token: token, expires: time.Now().Add(ttl)}
	return true, nil
}

func (l *Local) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
	return nil
}

func (l *Local) Close() error { return nil }
