// Package view aggregates raw contract reads into the page-level view-models
// the HTTP and WebSocket surfaces serve: the market list, the market detail
// panel, and the trader profile. Reads go to the chain first and fall back to
// the last cached snapshot so a flaky RPC node degrades a section instead of
// blanking it.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/polypredict/dashd/internal/domain"
)

// ChainReader is the read-only slice of the contract registry the aggregator
// consumes. *contracts.Registry satisfies it.
type ChainReader interface {
	Market(ctx context.Context, id uint64) (domain.Market, error)
	Admin(ctx context.Context) (string, error)
	BestPrices(ctx context.Context, marketID uint64) (domain.BestPrices, error)
	Position(ctx context.Context, trader string, marketID uint64) (*big.Int, error)
	UserOrders(ctx context.Context, trader string) ([]uint64, error)
	Order(ctx context.Context, orderID uint64) (domain.Order, error)
	AvailableBalance(ctx context.Context, trader string) (*big.Int, error)
}

// DiscoveryBounds caps the sequential market id scan. The registry has no
// enumeration read, so discovery probes ids upward from StartID until it has
// seen MaxConsecutiveFailures misses in a row or found MaxMarkets markets.
type DiscoveryBounds struct {
	StartID                uint64
	MaxMarkets             uint64
	MaxConsecutiveFailures int
}

// MarketFilter controls which market states the list view includes. The zero
// value matches the default list: active markets only.
type MarketFilter struct {
	IncludeResolved  bool
	IncludeCancelled bool
}

func (f MarketFilter) keep(m domain.Market) bool {
	switch m.Status {
	case domain.MarketStatusResolved:
		return f.IncludeResolved
	case domain.MarketStatusCancelled:
		return f.IncludeCancelled
	default:
		return true
	}
}

// PriceUpdate is the payload published on domain.ChannelPrices after every
// refresh.
type PriceUpdate struct {
	MarketID   uint64    `json:"market_id"`
	Bid        uint64    `json:"bid"`
	Ask        uint64    `json:"ask"`
	ObservedAt time.Time `json:"observed_at"`
}

// Aggregator builds view-models from contract reads, keeps the snapshot
// caches warm, and signals the bus when fresh data lands.
type Aggregator struct {
	reader  ChainReader
	markets domain.MarketCache
	prices  domain.PriceCache
	bus     domain.SignalBus
	bounds  DiscoveryBounds
	logger  *slog.Logger

	mu    sync.RWMutex
	known []uint64 // discovered market ids, ascending
}

// NewAggregator wires an aggregator. bus may be nil when nothing consumes
// push updates (readonly CLI usage).
func NewAggregator(reader ChainReader, markets domain.MarketCache, prices domain.PriceCache, bus domain.SignalBus, bounds DiscoveryBounds, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		reader:  reader,
		markets: markets,
		prices:  prices,
		bus:     bus,
		bounds:  bounds,
		logger:  logger.With("component", "view"),
	}
}

// DiscoverMarkets probes the registry for markets and returns everything it
// found, ascending by id. Found markets are written through to the market
// cache. Any read failure counts as a miss; a hit resets the miss streak.
// The scan can under-enumerate when the id space has gaps wider than the
// failure threshold.
func (a *Aggregator) DiscoverMarkets(ctx context.Context) ([]domain.Market, error) {
	var (
		found     []domain.Market
		misses    int
		id        = a.bounds.StartID
		maxFound  = a.bounds.MaxMarkets
		maxMisses = a.bounds.MaxConsecutiveFailures
	)

	for uint64(len(found)) < maxFound && misses < maxMisses {
		if err := ctx.Err(); err != nil {
			return found, err
		}

		m, err := a.reader.Market(ctx, id)
		if err != nil {
			misses++
			if errors.Is(err, domain.ErrNotFound) {
				a.logger.Debug("market probe miss", "id", id, "streak", misses)
			} else {
				a.logger.Warn("market probe failed", "id", id, "error", err)
			}
			id++
			continue
		}

		misses = 0
		found = append(found, m)
		if cacheErr := a.markets.Set(ctx, m); cacheErr != nil {
			a.logger.Warn("market cache write failed", "id", id, "error", cacheErr)
		}
		id++
	}

	ids := make([]uint64, len(found))
	for i, m := range found {
		ids[i] = m.ID
	}

	a.mu.Lock()
	changed := !equalIDs(a.known, ids)
	a.known = ids
	a.mu.Unlock()

	a.logger.Info("market discovery complete", "found", len(found), "last_probed", id-1)
	if changed {
		a.publish(ctx, domain.ChannelMarkets, found)
	}
	return found, nil
}

// KnownMarketIDs returns the ids from the last discovery pass.
func (a *Aggregator) KnownMarketIDs() []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]uint64, len(a.known))
	copy(out, a.known)
	return out
}

// Markets returns the market list view, filtered by f. It serves from the
// last discovery pass, falling back to a fresh scan when none has run yet.
func (a *Aggregator) Markets(ctx context.Context, f MarketFilter) ([]domain.Market, error) {
	ids := a.KnownMarketIDs()
	if len(ids) == 0 {
		discovered, err := a.DiscoverMarkets(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Market, 0, len(discovered))
		for _, m := range discovered {
			if f.keep(m) {
				out = append(out, m)
			}
		}
		return out, nil
	}

	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		m, err := a.marketWithFallback(ctx, id)
		if err != nil {
			a.logger.Warn("market read failed, dropping from list", "id", id, "error", err)
			continue
		}
		if f.keep(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarketDetail assembles the market detail view. The market, the best
// prices, and (when trader is non-empty) the trader's position and balance
// are fetched concurrently; prices and trader fields degrade independently
// while a market that can be neither read nor served from cache fails the
// whole view.
func (a *Aggregator) MarketDetail(ctx context.Context, marketID uint64, trader string) (domain.MarketView, error) {
	var mv domain.MarketView

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m, err := a.marketWithFallback(gctx, marketID)
		if err != nil {
			return err
		}
		mv.Market = m
		return nil
	})

	g.Go(func() error {
		mv.Prices = a.bestPricesWithFallback(gctx, marketID)
		return nil
	})

	if trader != "" {
		g.Go(func() error {
			pos, err := a.reader.Position(gctx, trader, marketID)
			if err != nil {
				a.logger.Warn("position read failed", "market_id", marketID, "error", err)
				return nil
			}
			mv.Position = pos
			return nil
		})
		g.Go(func() error {
			bal, err := a.reader.AvailableBalance(gctx, trader)
			if err != nil {
				a.logger.Warn("balance read failed", "error", err)
				return nil
			}
			mv.Balance = bal
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return domain.MarketView{}, err
	}
	return mv, nil
}

// Profile assembles the trader profile view: available balance, full order
// history newest-first, and non-flat positions for the distinct markets the
// orders touch. Individual order reads that fail are skipped rather than
// failing the page.
func (a *Aggregator) Profile(ctx context.Context, trader string) (domain.ProfileView, error) {
	if trader == "" {
		return domain.ProfileView{}, domain.ErrNotConnected
	}

	pv := domain.ProfileView{Address: trader, FetchedAt: time.Now().UTC()}

	balance, err := a.reader.AvailableBalance(ctx, trader)
	if err != nil {
		return domain.ProfileView{}, err
	}
	pv.Balance = balance

	ids, err := a.reader.UserOrders(ctx, trader)
	if err != nil {
		return domain.ProfileView{}, err
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		o, err := a.reader.Order(ctx, id)
		if err != nil {
			a.logger.Warn("order read failed, skipping", "order_id", id, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	// Newest first; the stable sort preserves chain enumeration order for
	// orders created in the same block.
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	pv.Orders = orders

	pv.Positions = a.positions(ctx, trader, orders)
	return pv, nil
}

// positions reads the trader's position for every distinct market in orders,
// dropping flat positions and failed reads.
func (a *Aggregator) positions(ctx context.Context, trader string, orders []domain.Order) []domain.Position {
	seen := make(map[uint64]bool)
	var marketIDs []uint64
	for _, o := range orders {
		if !seen[o.MarketID] {
			seen[o.MarketID] = true
			marketIDs = append(marketIDs, o.MarketID)
		}
	}

	results := make([]*domain.Position, len(marketIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, marketID := range marketIDs {
		g.Go(func() error {
			amount, err := a.reader.Position(gctx, trader, marketID)
			if err != nil {
				a.logger.Warn("position read failed, skipping", "market_id", marketID, "error", err)
				return nil
			}
			p := domain.Position{MarketID: marketID, Amount: amount}
			if !p.IsFlat() {
				results[i] = &p
			}
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	positions := make([]domain.Position, 0, len(results))
	for _, p := range results {
		if p != nil {
			positions = append(positions, *p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].MarketID < positions[j].MarketID })
	return positions
}

// IsAdmin reports whether the given address is the contract admin.
func (a *Aggregator) IsAdmin(ctx context.Context, address string) (bool, error) {
	if address == "" {
		return false, nil
	}
	admin, err := a.reader.Admin(ctx)
	if err != nil {
		return false, err
	}
	return equalAddress(admin, address), nil
}

// RefreshBestPrices re-reads the top of book for every known market, updates
// the price cache, and publishes a PriceUpdate per market. Markets whose
// read fails keep their previous snapshot.
func (a *Aggregator) RefreshBestPrices(ctx context.Context) error {
	now := time.Now().UTC()
	for _, id := range a.KnownMarketIDs() {
		bp, err := a.reader.BestPrices(ctx, id)
		if err != nil {
			a.logger.Warn("best price refresh failed", "market_id", id, "error", err)
			continue
		}
		if err := a.prices.SetBestPrices(ctx, id, bp, now); err != nil {
			a.logger.Warn("price cache write failed", "market_id", id, "error", err)
		}
		a.publish(ctx, domain.ChannelPrices, PriceUpdate{MarketID: id, Bid: bp.Bid, Ask: bp.Ask, ObservedAt: now})
	}
	return ctx.Err()
}

// RefreshAfter re-reads exactly the view sections a confirmed action can
// have changed. It is called once per confirmed action.
func (a *Aggregator) RefreshAfter(ctx context.Context, kind domain.ActionKind, trader string, marketID uint64) {
	switch kind {
	case domain.ActionDeposit:
		// Balance is always read fresh; nothing cached to touch.

	case domain.ActionPlaceLimitOrder, domain.ActionPlaceMarketOrder, domain.ActionCancelOrder, domain.ActionClaimProfit:
		if marketID == 0 {
			return
		}
		bp, err := a.reader.BestPrices(ctx, marketID)
		if err != nil {
			a.logger.Warn("post-action price refresh failed", "market_id", marketID, "error", err)
			return
		}
		now := time.Now().UTC()
		if err := a.prices.SetBestPrices(ctx, marketID, bp, now); err != nil {
			a.logger.Warn("price cache write failed", "market_id", marketID, "error", err)
		}
		a.publish(ctx, domain.ChannelPrices, PriceUpdate{MarketID: marketID, Bid: bp.Bid, Ask: bp.Ask, ObservedAt: now})

	case domain.ActionCreateMarket:
		if _, err := a.DiscoverMarkets(ctx); err != nil {
			a.logger.Warn("post-create rediscovery failed", "error", err)
		}

	case domain.ActionResolveMarket, domain.ActionCancelMarket:
		if marketID == 0 {
			return
		}
		if err := a.markets.Invalidate(ctx, marketID); err != nil {
			a.logger.Warn("market cache invalidate failed", "market_id", marketID, "error", err)
		}
		m, err := a.reader.Market(ctx, marketID)
		if err != nil {
			a.logger.Warn("post-action market refresh failed", "market_id", marketID, "error", err)
			return
		}
		if err := a.markets.Set(ctx, m); err != nil {
			a.logger.Warn("market cache write failed", "market_id", marketID, "error", err)
		}
		a.publish(ctx, domain.ChannelMarkets, []domain.Market{m})
	}
}

// marketWithFallback reads a market from the chain, writing through to the
// cache on success and serving the cached snapshot when the read fails.
func (a *Aggregator) marketWithFallback(ctx context.Context, id uint64) (domain.Market, error) {
	m, err := a.reader.Market(ctx, id)
	if err == nil {
		if cacheErr := a.markets.Set(ctx, m); cacheErr != nil {
			a.logger.Warn("market cache write failed", "id", id, "error", cacheErr)
		}
		return m, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Market{}, err
	}

	cached, cacheErr := a.markets.Get(ctx, id)
	if cacheErr != nil {
		return domain.Market{}, err // original read error is the useful one
	}
	a.logger.Warn("serving stale market snapshot", "id", id, "error", err)
	return cached, nil
}

// bestPricesWithFallback reads the top of book, falling back to the cached
// snapshot and then to the empty book.
func (a *Aggregator) bestPricesWithFallback(ctx context.Context, marketID uint64) domain.BestPrices {
	bp, err := a.reader.BestPrices(ctx, marketID)
	if err == nil {
		if cacheErr := a.prices.SetBestPrices(ctx, marketID, bp, time.Now().UTC()); cacheErr != nil {
			a.logger.Warn("price cache write failed", "market_id", marketID, "error", cacheErr)
		}
		return bp
	}
	a.logger.Warn("best price read failed", "market_id", marketID, "error", err)

	cached, _, cacheErr := a.prices.GetBestPrices(ctx, marketID)
	if cacheErr != nil {
		return domain.EmptyBook()
	}
	return cached
}

func (a *Aggregator) publish(ctx context.Context, channel string, payload interface{}) {
	if a.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("payload marshal failed", "channel", channel, "error", err)
		return
	}
	if err := a.bus.Publish(ctx, channel, data); err != nil {
		a.logger.Warn("bus publish failed", "channel", channel, "error", err)
	}
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
