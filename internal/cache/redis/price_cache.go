package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polypredict/dashd/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each market's
// top of book is stored at key "prices:{marketID}" with fields "bid", "ask",
// and "ts" (Unix nanosecond observation timestamp). Keys expire with the
// client's TTL; a miss means "not observed recently", not an empty book.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: c.TTL()}
}

func priceKey(marketID uint64) string {
	return "prices:" + strconv.FormatUint(marketID, 10)
}

// SetBestPrices stores the latest best bid/ask snapshot for a market.
func (pc *PriceCache) SetBestPrices(ctx context.Context, marketID uint64, prices domain.BestPrices, ts time.Time) error {
	key := priceKey(marketID)
	fields := map[string]interface{}{
		"bid": strconv.FormatUint(prices.Bid, 10),
		"ask": strconv.FormatUint(prices.Ask, 10),
		"ts":  strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, pc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set prices for market %d: %w", marketID, err)
	}
	return nil
}

// GetBestPrices retrieves the latest snapshot and its observation time for a
// market. It returns domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetBestPrices(ctx context.Context, marketID uint64) (domain.BestPrices, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(marketID)).Result()
	if err != nil {
		return domain.BestPrices{}, time.Time{}, fmt.Errorf("redis: get prices for market %d: %w", marketID, err)
	}
	if len(vals) == 0 {
		return domain.BestPrices{}, time.Time{}, domain.ErrNotFound
	}

	bid, err := strconv.ParseUint(vals["bid"], 10, 64)
	if err != nil {
		return domain.BestPrices{}, time.Time{}, fmt.Errorf("redis: parse bid for market %d: %w", marketID, err)
	}
	ask, err := strconv.ParseUint(vals["ask"], 10, 64)
	if err != nil {
		return domain.BestPrices{}, time.Time{}, fmt.Errorf("redis: parse ask for market %d: %w", marketID, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.BestPrices{}, time.Time{}, fmt.Errorf("redis: parse ts for market %d: %w", marketID, err)
	}

	return domain.BestPrices{Bid: bid, Ask: ask}, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
