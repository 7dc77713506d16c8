package ratelimit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
)

const (
	defaultKeyPrefix         = "marketplace-mirror:limiter:"
	defaultFallbackFraction  = 0.5
	redisHealthCheckInterval = 10 * time.Second
)

// Config describes one rate limited upstream
type Config struct {
	// Name identifies the upstream; processes sharing a name share the distributed budget
	Name              string
	RequestsPerSecond float64
	Burst             int
	KeyPrefix         string
	// LocalFallbackMultiplier scales the local rate used while Redis is unreachable
	LocalFallbackMultiplier float64
}

// Limiter blocks callers until a request to the upstream is allowed
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	// Wait blocks until a token is acquired or ctx is done
	Wait(ctx context.Context) error

	// Close releases the resources held by the limiter
	Close() error
}

// localLimiter is a per-process token bucket
type localLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter creates a per-process limiter
func NewLocalLimiter(cfg Config) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &localLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}, nil
}

func (l *localLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

func (l *localLimiter) Close() error {
	return nil
}

// distributedLimiter shares one GCRA budget across processes through Redis and
// falls back to a local token bucket while Redis is unreachable
type distributedLimiter struct {
	config      Config
	key         string
	limit       redis_rate.Limit
	redis       adapter.RedisClient
	distributed adapter.RedisRateLimiter
	preFilter   *rate.Limiter
	local       *rate.Limiter
	clock       adapter.Clock

	redisAvailable atomic.Bool
	mu             sync.Mutex
	lastHealthTry  time.Time
	closeOnce      sync.Once
}

// NewDistributedLimiter creates a limiter backed by Redis
func NewDistributedLimiter(ctx context.Context, cfg Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(pingCtx); err != nil {
		redisAvailable = false
		logger.Warn("Redis unavailable, will use local fallback", zap.String("limiter", cfg.Name), zap.Error(err))
	}

	localRate := max(cfg.RequestsPerSecond*cfg.LocalFallbackMultiplier, 0.1)

	l := &distributedLimiter{
		config:      cfg,
		key:         cfg.KeyPrefix + cfg.Name,
		limit:       redisLimit(cfg.RequestsPerSecond, cfg.Burst),
		redis:       rc,
		distributed: rc.NewRateLimiter(),
		preFilter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		local:       rate.NewLimiter(rate.Limit(localRate), cfg.Burst),
		clock:       clock,
	}
	l.redisAvailable.Store(redisAvailable)
	l.lastHealthTry = clock.Now()

	logger.Info("Distributed rate limiter initialized",
		zap.String("limiter", cfg.Name),
		zap.Float64("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", cfg.Burst),
		zap.Bool("redis_available", redisAvailable),
	)

	return l, nil
}

func (l *distributedLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !l.redisAvailable.Load() {
			l.checkRedisHealth(ctx)
		}

		if !l.redisAvailable.Load() {
			return l.local.Wait(ctx)
		}

		allowed, retryAfter, err := l.tryDistributed(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.markUnavailable(err)
			continue
		}
		if allowed {
			return nil
		}

		// 50-150% of retryAfter spreads out competing processes
		jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
		if err := l.clock.Sleep(ctx, jitter); err != nil {
			return err
		}
	}
}

// tryDistributed takes one token from the shared budget
func (l *distributedLimiter) tryDistributed(ctx context.Context) (bool, time.Duration, error) {
	// The local pre-filter keeps this process from hammering Redis
	if err := l.preFilter.Wait(ctx); err != nil {
		return false, 0, err
	}

	res, err := l.distributed.Allow(ctx, l.key, l.limit)
	if err != nil {
		return false, 0, err
	}
	if res.Allowed == 0 {
		logger.Debug("Rate limit token unavailable, waiting",
			zap.String("limiter", l.config.Name),
			zap.Duration("retry_after", res.RetryAfter),
		)
		retryAfter := res.RetryAfter
		if retryAfter <= 0 {
			retryAfter = 100 * time.Millisecond
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

func (l *distributedLimiter) markUnavailable(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.redisAvailable.Swap(false) {
		logger.Warn("Redis rate limiter error, falling back to local",
			zap.String("limiter", l.config.Name),
			zap.Error(err),
		)
	}
	l.lastHealthTry = l.clock.Now()
}

// checkRedisHealth pings Redis at most once per health check interval
func (l *distributedLimiter) checkRedisHealth(ctx context.Context) {
	l.mu.Lock()
	if l.clock.Since(l.lastHealthTry) < redisHealthCheckInterval {
		l.mu.Unlock()
		return
	}
	l.lastHealthTry = l.clock.Now()
	l.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.redis.Ping(pingCtx); err != nil {
		return
	}
	if !l.redisAvailable.Swap(true) {
		logger.Info("Redis connection restored", zap.String("limiter", l.config.Name))
	}
}

func (l *distributedLimiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if closeErr := l.redis.Close(); closeErr != nil {
			logger.Warn("Error closing Redis connection", zap.Error(closeErr))
			err = closeErr
		}
	})
	return err
}

// redisLimit converts a fractional per-second rate into a GCRA limit
func redisLimit(rps float64, burst int) redis_rate.Limit {
	if rps >= 1 {
		return redis_rate.Limit{Rate: int(math.Floor(rps)), Burst: burst, Period: time.Second}
	}
	return redis_rate.Limit{Rate: 1, Burst: burst, Period: time.Duration(float64(time.Second) / rps)}
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(int(math.Ceil(cfg.RequestsPerSecond)), 1)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = defaultFallbackFraction
	}
	return nil
}
