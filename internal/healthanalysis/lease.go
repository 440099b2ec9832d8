package healthanalysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"feedback-backend/internal/shared/telemetry"
)

// Lease guards against two concurrent runs for the same week. Acquire returns
// a release func on success and ErrRunInProgress when the week is taken.
type Lease interface {
	Acquire(ctx context.Context, weekStart time.Time) (func(), error)
}

// MemoryLease is an in-process lease for single-instance deployments and tests.
type MemoryLease struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewMemoryLease constructs an empty MemoryLease.
func NewMemoryLease() *MemoryLease {
	return &MemoryLease{held: make(map[string]bool)}
}

func (l *MemoryLease) Acquire(ctx context.Context, weekStart time.Time) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := weekStart.UTC().Format("2006-01-02")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, ErrRunInProgress
	}
	l.held[key] = true
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, nil
}

// RedisLease coordinates runs across instances with SET NX EX. The TTL bounds
// how long a crashed run can block the week.
type RedisLease struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisLease wraps an established Redis client.
func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLease{Client: client, TTL: ttl}
}

func (l *RedisLease) Acquire(ctx context.Context, weekStart time.Time) (func(), error) {
	key := "healthanalysis:run:" + weekStart.UTC().Format("2006-01-02")
	token := uuid.NewString()

	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lease: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	release := func() {
		// Delete only if we still own the lease; an expired lease may have
		// been re-acquired by a newer run.
		current, err := l.Client.Get(context.Background(), key).Result()
		if err == nil && current == token {
			if err := l.Client.Del(context.Background(), key).Err(); err != nil {
				telemetry.Warn("lease.release", map[string]any{"key": key, "error": err.Error()})
			}
		}
	}
	return release, nil
}
