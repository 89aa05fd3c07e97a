package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"speeddating/app/models"
)

const (
	lockKeyPrefix  = "lock:session:"
	statsKeyPrefix = "stats:"
	lockRetryDelay = 25 * time.Millisecond
)

// ErrLockNotAcquired is returned when the context ends before the lock is taken
var ErrLockNotAcquired = errors.New("session lock not acquired")

// Options configures the Redis client
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Service owns the Redis client shared by the session lock and the stats counters
type Service struct {
	client *redis.Client
}

// NewService creates a new Redis service instance and checks the connection
func NewService(ctx context.Context, opts Options) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,
		// Timeout settings
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	slog.Info("redis connected", "addr", opts.Addr, "db", opts.DB)

	return &Service{client: client}, nil
}

// NewServiceFromClient wraps an existing client
func NewServiceFromClient(client *redis.Client) *Service {
	return &Service{client: client}
}

// Ping checks the connection
func (r *Service) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *Service) Close() error {
	return r.client.Close()
}

// GetClient returns the Redis client for advanced operations
func (r *Service) GetClient() *redis.Client {
	return r.client
}

// releaseScript deletes the lock key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a per-session mutex shared by every instance pointing at the same Redis.
// A holder that dies releases the lock when the TTL expires.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker creates a Locker whose keys expire after ttl
func NewLocker(svc *Service, ttl time.Duration) *Locker {
	return &Locker{client: svc.client, ttl: ttl}
}

// Lock blocks until the session lock is held or ctx is done
func (l *Locker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctxErr)
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				slog.Warn("failed to release session lock", "session_id", sessionID, "error", err)
			}
		})
	}, nil
}

// Stats keeps operational counters in Redis so every instance reports the same totals
type Stats struct {
	client *redis.Client
}

// NewStats creates a Redis-backed stats recorder
func NewStats(svc *Service) *Stats {
	return &Stats{client: svc.client}
}

// Add increments the named counter. Counter failures are logged, never returned.
func (s *Stats) Add(ctx context.Context, name string, delta int64) {
	if err := s.client.IncrBy(ctx, statsKeyPrefix+name, delta).Err(); err != nil {
		slog.Warn("failed to increment counter", "counter", name, "error", err)
	}
}

// Snapshot reads every known counter, reporting missing ones as zero
func (s *Stats) Snapshot(ctx context.Context) (map[string]int64, error) {
	keys := make([]string, len(models.StatNames))
	for i, name := range models.StatNames {
		keys[i] = statsKeyPrefix + name
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}

	out := make(map[string]int64, len(models.StatNames))
	for i, name := range models.StatNames {
		out[name] = 0
		raw, ok := values[i].(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counter %s holds %q: %w", name, raw, err)
		}
		out[name] = n
	}
	return out, nil
}
