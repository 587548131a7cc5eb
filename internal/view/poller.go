package view

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/polypredict/dashd/internal/domain"
)

// discoveryLockKey guards discovery scans across daemon instances sharing
// one Redis.
const discoveryLockKey = "discovery"

// Poller drives the background refresh loop: best prices every tick, with a
// full market rediscovery folded in every RediscoverEvery ticks so newly
// created markets show up without a restart.
type Poller struct {
	agg             *Aggregator
	interval        time.Duration
	rediscoverEvery int
	locks           domain.LockManager // optional
	logger          *slog.Logger
}

// NewPoller builds a poller around the aggregator. locks may be nil, in
// which case every instance scans independently.
func NewPoller(agg *Aggregator, interval time.Duration, rediscoverEvery int, locks domain.LockManager, logger *slog.Logger) *Poller {
	if rediscoverEvery < 1 {
		rediscoverEvery = 1
	}
	return &Poller{
		agg:             agg,
		interval:        interval,
		rediscoverEvery: rediscoverEvery,
		locks:           locks,
		logger:          logger.With("component", "poller"),
	}
}

// discover runs one discovery scan under the cross-instance lock when one is
// configured. A held lock means a sibling instance is already scanning.
func (p *Poller) discover(ctx context.Context) {
	if p.locks != nil {
		unlock, err := p.locks.Acquire(ctx, discoveryLockKey, p.interval)
		if errors.Is(err, domain.ErrLockHeld) {
			p.logger.Debug("discovery lock held elsewhere, skipping scan")
			return
		}
		if err != nil {
			p.logger.Warn("discovery lock acquire failed, scanning anyway", "error", err)
		} else {
			defer unlock()
		}
	}
	if _, err := p.agg.DiscoverMarkets(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("market discovery failed", "error", err)
	}
}

// Run performs an initial discovery and then refreshes on the configured
// interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.discover(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.interval, "rediscover_every", p.rediscoverEvery)

	tick := 0
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			tick++
			if tick%p.rediscoverEvery == 0 {
				p.discover(ctx)
			}
			if err := p.agg.RefreshBestPrices(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("price refresh failed", "error", err)
			}
		}
	}
}
