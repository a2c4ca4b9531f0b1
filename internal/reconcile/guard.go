package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sheep1986/apex-sub005/internal/calls"
	"github.com/sheep1986/apex-sub005/internal/events"
	"github.com/sheep1986/apex-sub005/pkg/logging"
)

const duplicateCachePrefix = "callsync:evt:"

// processedChecker is the slice of the event log the guard reads.
type processedChecker interface {
	WasProcessed(ctx context.Context, keys ...string) (bool, error)
}

// Guard decides whether an event is a duplicate delivery before any
// mutation runs. It is deliberately read-only: the mutations themselves
// are merge-upserts, so a guard miss is wasted work, never corruption.
type Guard struct {
	calls  calls.Repository
	log    processedChecker
	cache  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewGuard builds a duplicate guard. cache may be nil; the Redis fast
// path is an optimization over the event-log lookup, not a requirement.
func NewGuard(callRepo calls.Repository, eventLog processedChecker, cache *redis.Client, ttl time.Duration, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Guard{calls: callRepo, log: eventLog, cache: cache, ttl: ttl, logger: logger}
}

// IsDuplicate reports whether this event has already been applied.
//
// Events with no usable identifiers are never duplicates. A call-started
// event is checked against the call store instead of the event log: an
// existing record for the call id means a duplicate start, except when
// that record is failed, in which case the provider is restarting the
// call and the event must go through. Store errors degrade to "not a
// duplicate"; reprocessing is safe, dropping a live event is not.
func (g *Guard) IsDuplicate(ctx context.Context, evt events.Event) bool {
	keys := evt.DedupeKeys()
	if len(keys) == 0 {
		return false
	}

	if evt.Type == events.TypeCallStarted && evt.CallID() != "" {
		rec, err := g.calls.FindByAnyID(ctx, evt.CallID())
		if err != nil {
			if !errors.Is(err, calls.ErrCallNotFound) {
				g.logger.Warn("duplicate guard: call lookup failed", "call_id", evt.CallID(), "error", err)
			}
			return false
		}
		if rec.Status == calls.StatusFailed {
			g.logger.Info("call restart detected, reprocessing start event",
				"call_id", evt.CallID(), "previous_status", rec.Status)
			return false
		}
		return true
	}

	if g.cacheHit(ctx, keys) {
		return true
	}

	processed, err := g.log.WasProcessed(ctx, keys...)
	if err != nil {
		g.logger.Warn("duplicate guard: event log lookup failed", "event_key", evt.LogKey(), "error", err)
		return false
	}
	return processed
}

// MarkSeen records the event's keys in the duplicate cache. Best effort.
func (g *Guard) MarkSeen(ctx context.Context, evt events.Event) {
	if g.cache == nil {
		return
	}
	for _, key := range evt.DedupeKeys() {
		if err := g.cache.Set(ctx, duplicateCachePrefix+key, "1", g.ttl).Err(); err != nil {
			g.logger.Warn("duplicate cache write failed", "event_key", key, "error", err)
			return
		}
	}
}

func (g *Guard) cacheHit(ctx context.Context, keys []string) bool {
	if g.cache == nil {
		return false
	}
	for _, key := range keys {
		val, err := g.cache.Get(ctx, duplicateCachePrefix+key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				g.logger.Warn("duplicate cache read failed", "event_key", key, "error", err)
			}
			continue
		}
		if val != "" {
			return true
		}
	}
	return false
}
