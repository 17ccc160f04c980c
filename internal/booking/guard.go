package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const submitGuardKeyPrefix = "booking:submit:"

// SubmitGuard keeps an identical booking from being in flight twice. Acquire
// returns ErrDuplicateSubmission when key is already held; the returned
// release func must be called once the remote call settles.
type SubmitGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is the single-process SubmitGuard.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrDuplicateSubmission
	}
	g.held[key] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the guard across replicas with SET NX PX. The TTL bounds
// how long a crashed holder can block the key.
type RedisGuard struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("hospital.internal.booking.guard"),
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := g.tracer.Start(ctx, "booking.submit_guard.acquire")
	defer span.End()

	redisKey := submitGuardKeyPrefix + key
	owner := uuid.NewString()
	ok, err := g.redis.SetNX(ctx, redisKey, owner, g.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("booking: acquire submit guard: %w", err)
	}
	span.SetAttributes(attribute.Bool("booking.guard.acquired", ok))
	if !ok {
		return nil, ErrDuplicateSubmission
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, g.redis, []string{redisKey}, owner).Err()
		})
	}, nil
}
