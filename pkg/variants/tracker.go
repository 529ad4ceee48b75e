// Package variants estimates how many distinct context variants each host
// produces, using Redis HyperLogLogs.
//
// The policy reports every emitted context hash through Observe, which never
// blocks: observations go into a bounded buffer and are dropped when it is
// full. Run flushes the buffer periodically with one pipelined PFADD per host.
// A steadily growing estimate points at a context dimension that defeats
// variant sharing.
package variants

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
)

// ErrTrackerClosed is returned by Run once the tracker has already run.
var ErrTrackerClosed = errors.New("variant tracker closed")

// KeyPrefix starts the HyperLogLog key of every host.
const KeyPrefix = "http-cache:variants:"

const (
	defaultFlushInterval = 5 * time.Second
	defaultBufferSize    = 4096
	shutdownFlushTimeout = 5 * time.Second
)

type observation struct {
	host string
	hash string
}

// Tracker records context hashes per host.
type Tracker struct {
	redis         *redis.Client
	queue         chan observation
	flushInterval time.Duration
	logger        zerolog.Logger

	running atomic.Bool
	closed  atomic.Bool
}

// NewTracker creates a Tracker. Zero flush interval and buffer size fall
// back to defaults.
func NewTracker(redisClient *redis.Client, cfg config.Redis, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}

	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}

	return &Tracker{
		redis:         redisClient,
		queue:         make(chan observation, size),
		flushInterval: interval,
		logger:        logger,
	}
}

// Key returns the HyperLogLog key of host.
func Key(host string) string {
	return KeyPrefix + host
}

// Observe records a hash for host. It never blocks.
func (t *Tracker) Observe(host, hash string) {
	if t.closed.Load() {
		VariantsDropped.Inc()
		return
	}

	select {
	case t.queue <- observation{host: host, hash: hash}:
		VariantObservations.Inc()
	default:
		VariantsDropped.Inc()
	}
}

// Run flushes buffered observations every flush interval until ctx is done,
// then flushes once more and closes the tracker. It may only be called once.
func (t *Tracker) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrTrackerClosed
	}
	defer t.closed.Store(true)

	ticker := time.NewTicker(t.flushInterval)
	defer ticker.Stop()

	t.logger.Info().Dur("flush_interval", t.flushInterval).Msg("Variant tracker started")

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			err := t.Flush(flushCtx)
			cancel()
			if err != nil {
				t.logger.Warn().Err(err).Msg("Final variant flush failed")
			}
			t.logger.Info().Msg("Variant tracker stopped")
			return nil
		case <-ticker.C:
			if err := t.Flush(ctx); err != nil {
				t.logger.Warn().Err(err).Msg("Variant flush failed")
			}
		}
	}
}

// Flush writes everything currently buffered to Redis.
func (t *Tracker) Flush(ctx context.Context) error {
	batch := t.drain()
	if len(batch) == 0 {
		return nil
	}

	pipe := t.redis.Pipeline()
	for host, hashes := range batch {
		pipe.PFAdd(ctx, Key(host), hashes...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		FlushErrors.Inc()
		if dropped := t.requeue(batch); dropped > 0 {
			t.logger.Warn().Int("dropped", dropped).Msg("Variant buffer full, observations lost")
		}
		return fmt.Errorf("redis pfadd: %w", err)
	}

	t.logger.Debug().Int("hosts", len(batch)).Msg("Variant observations flushed")
	return nil
}

// Estimate returns the approximate number of distinct hashes seen for host.
func (t *Tracker) Estimate(ctx context.Context, host string) (int64, error) {
	n, err := t.redis.PFCount(ctx, Key(host)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis pfcount: %w", err)
	}
	return n, nil
}

// Reset forgets the observations of host.
func (t *Tracker) Reset(ctx context.Context, host string) error {
	if err := t.redis.Del(ctx, Key(host)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Pending returns the number of buffered observations.
func (t *Tracker) Pending() int {
	return len(t.queue)
}

// drain empties the buffer without blocking, grouping hashes by host.
func (t *Tracker) drain() map[string][]interface{} {
	batch := make(map[string][]interface{})
	for {
		select {
		case o := <-t.queue:
			batch[o.host] = append(batch[o.host], o.hash)
		default:
			return batch
		}
	}
}

// requeue puts a failed batch back without blocking. Observations that no
// longer fit are counted as dropped; the count is returned.
func (t *Tracker) requeue(batch map[string][]interface{}) int {
	dropped := 0
	for host, hashes := range batch {
		for _, hash := range hashes {
			select {
			case t.queue <- observation{host: host, hash: hash.(string)}:
			default:
				dropped++
			}
		}
	}
	VariantsDropped.Add(float64(dropped))
	return dropped
}
