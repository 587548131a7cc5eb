package domain

import (
	"context"
	"time"
)

// PriceCache stores the most recent best-price snapshot per market. It is an
// ephemeral cache of remote order-book state: entries expire and are rebuilt
// from the chain at any time, so a consumer must treat a miss (ErrNotFound)
// as "not yet observed", not as an empty book.
type PriceCache interface {
	SetBestPrices(ctx context.Context, marketID uint64, prices BestPrices, ts time.Time) error
	GetBestPrices(ctx context.Context, marketID uint64) (BestPrices, time.Time, error)
}

// MarketCache stores recently observed market projections with a TTL so a
// failed registry read can fall back to the previous snapshot instead of
// blanking the page section.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id uint64) (Market, error)
	Invalidate(ctx context.Context, id uint64) error
}

// Signal bus channels. Price ticks, market set changes, and action lifecycle
// updates each travel on their own channel so consumers can subscribe
// selectively.
const (
	ChannelPrices  = "prices"
	ChannelMarkets = "markets"
	ChannelActions = "actions"
)

// SignalBus is a fire-and-forget pub/sub channel used to push view updates
// (fresh best prices, action outcomes) to connected WebSocket clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter answers whether a keyed request fits within a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager hands out short-lived exclusive locks so work like market
// discovery runs on one daemon instance at a time when several share a
// backing store. Acquire returns ErrLockHeld when another holder has the key.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
