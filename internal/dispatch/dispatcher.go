// Package dispatch serializes state-changing contract calls. Every action
// runs the same lifecycle: validate, submit, surface the transaction hash,
// wait for the receipt, then trigger exactly one targeted view refresh.
// Only one action may be in flight at a time; a second dispatch is rejected
// with domain.ErrActionInFlight instead of queueing.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polypredict/dashd/internal/domain"
)

// PendingTx is a submitted transaction: hash immediately, Wait until mined.
type PendingTx interface {
	Hash() string
	Wait(ctx context.Context) error
}

// Writer is the write surface of the contract registry.
type Writer interface {
	Deposit(ctx context.Context, value *big.Int) (PendingTx, error)
	PlaceLimitOrder(ctx context.Context, marketID uint64, isBuy bool, price uint64, amount *big.Int) (PendingTx, error)
	PlaceMarketOrder(ctx context.Context, marketID uint64, isBuy bool, amount *big.Int) (PendingTx, error)
	CancelOrder(ctx context.Context, orderID uint64) (PendingTx, error)
	ClaimProfit(ctx context.Context, marketID uint64) (PendingTx, error)
	CreateMarket(ctx context.Context, question string, outcomes []string, duration time.Duration) (PendingTx, error)
	ResolveMarket(ctx context.Context, marketID, outcomeIndex uint64) (PendingTx, error)
	CancelMarket(ctx context.Context, marketID uint64) (PendingTx, error)
}

// MarketReader is the read slice used for advisory preconditions on admin
// actions. The contracts enforce the real rules; checking here turns a
// doomed transaction into an immediate, gas-free failure.
type MarketReader interface {
	Market(ctx context.Context, id uint64) (domain.Market, error)
	Admin(ctx context.Context) (string, error)
}

// Refresher receives exactly one callback per confirmed action.
type Refresher interface {
	RefreshAfter(ctx context.Context, kind domain.ActionKind, trader string, marketID uint64)
}

// Identity exposes the current signing identity.
type Identity interface {
	Address() string
	Connected() bool
}

// Notifier is told about terminal action outcomes. May be nil.
type Notifier interface {
	ActionFinished(ctx context.Context, result domain.ActionResult)
}

// Dispatcher runs actions one at a time.
type Dispatcher struct {
	writer    Writer
	reader    MarketReader
	refresher Refresher
	identity  Identity
	notifier  Notifier
	bus       domain.SignalBus
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight bool
}

// NewDispatcher wires a dispatcher. notifier and bus may be nil.
func NewDispatcher(writer Writer, reader MarketReader, refresher Refresher, identity Identity, notifier Notifier, bus domain.SignalBus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		writer:    writer,
		reader:    reader,
		refresher: refresher,
		identity:  identity,
		notifier:  notifier,
		bus:       bus,
		logger:    logger.With("component", "dispatch"),
	}
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// DepositRequest funds the trader's token manager balance.
type DepositRequest struct {
	AmountWei *big.Int
}

func (r DepositRequest) validate() error {
	if r.AmountWei == nil || r.AmountWei.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// PlaceLimitOrderRequest places a resting order at a fixed-point price.
type PlaceLimitOrderRequest struct {
	MarketID uint64
	Side     domain.OrderSide
	Price    uint64
	Amount   *big.Int
}

func (r PlaceLimitOrderRequest) validate() error {
	if r.MarketID == 0 {
		return fmt.Errorf("market id is required: %w", domain.ErrInvalidInput)
	}
	if r.Side != domain.OrderSideBuy && r.Side != domain.OrderSideSell {
		return fmt.Errorf("side must be buy or sell: %w", domain.ErrInvalidInput)
	}
	if r.Price == 0 || r.Price > domain.MaxPrice {
		return fmt.Errorf("price must be in (0, %d]: %w", domain.MaxPrice, domain.ErrInvalidInput)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// PlaceMarketOrderRequest crosses the book at the best available price.
type PlaceMarketOrderRequest struct {
	MarketID uint64
	Side     domain.OrderSide
	Amount   *big.Int
}

func (r PlaceMarketOrderRequest) validate() error {
	if r.MarketID == 0 {
		return fmt.Errorf("market id is required: %w", domain.ErrInvalidInput)
	}
	if r.Side != domain.OrderSideBuy && r.Side != domain.OrderSideSell {
		return fmt.Errorf("side must be buy or sell: %w", domain.ErrInvalidInput)
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// CreateMarketRequest registers a new market. Admin only.
type CreateMarketRequest struct {
	Question string
	Outcomes []string
	Duration time.Duration
}

func (r CreateMarketRequest) validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("question is required: %w", domain.ErrInvalidInput)
	}
	if len(r.Outcomes) < 2 {
		return fmt.Errorf("at least two outcomes are required: %w", domain.ErrInvalidInput)
	}
	for _, o := range r.Outcomes {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("outcomes must be non-empty: %w", domain.ErrInvalidInput)
		}
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive: %w", domain.ErrInvalidInput)
	}
	return nil
}

// ResolveMarketRequest settles a market on a winning outcome. Admin only.
type ResolveMarketRequest struct {
	MarketID     uint64
	OutcomeIndex uint64
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

// Deposit dispatches a deposit of the given wei amount.
func (d *Dispatcher) Deposit(ctx context.Context, req DepositRequest) (domain.ActionResult, error) {
	if err := req.validate(); err != nil {
		return d.rejected(ctx, domain.ActionDeposit, err)
	}
	return d.run(ctx, domain.ActionDeposit, 0, func(ctx context.Context) (PendingTx, error) {
		return d.writer.Deposit(ctx, req.AmountWei)
	})
}

// PlaceLimitOrder dispatches a funded limit order.
func (d *Dispatcher) PlaceLimitOrder(ctx context.Context, req PlaceLimitOrderRequest) (domain.ActionResult, error) {
	if err := req.validate(); err != nil {
		return d.rejected(ctx, domain.ActionPlaceLimitOrder, err)
	}
	return d.run(ctx, domain.ActionPlaceLimitOrder, req.MarketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.PlaceLimitOrder(ctx, req.MarketID, req.Side.IsBuy(), req.Price, req.Amount)
	})
}

// PlaceMarketOrder dispatches a funded market order.
func (d *Dispatcher) PlaceMarketOrder(ctx context.Context, req PlaceMarketOrderRequest) (domain.ActionResult, error) {
	if err := req.validate(); err != nil {
		return d.rejected(ctx, domain.ActionPlaceMarketOrder, err)
	}
	return d.run(ctx, domain.ActionPlaceMarketOrder, req.MarketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.PlaceMarketOrder(ctx, req.MarketID, req.Side.IsBuy(), req.Amount)
	})
}

// CancelOrder dispatches a cancel for one resting order. marketID scopes the
// post-confirmation refresh and may be 0 when unknown.
func (d *Dispatcher) CancelOrder(ctx context.Context, orderID, marketID uint64) (domain.ActionResult, error) {
	if orderID == 0 {
		return d.rejected(ctx, domain.ActionCancelOrder, fmt.Errorf("order id is required: %w", domain.ErrInvalidInput))
	}
	return d.run(ctx, domain.ActionCancelOrder, marketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.CancelOrder(ctx, orderID)
	})
}

// ClaimProfit dispatches a winnings claim for a resolved market.
func (d *Dispatcher) ClaimProfit(ctx context.Context, marketID uint64) (domain.ActionResult, error) {
	if marketID == 0 {
		return d.rejected(ctx, domain.ActionClaimProfit, fmt.Errorf("market id is required: %w", domain.ErrInvalidInput))
	}
	return d.run(ctx, domain.ActionClaimProfit, marketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.ClaimProfit(ctx, marketID)
	})
}

// CreateMarket dispatches market creation.
func (d *Dispatcher) CreateMarket(ctx context.Context, req CreateMarketRequest) (domain.ActionResult, error) {
	if err := req.validate(); err != nil {
		return d.rejected(ctx, domain.ActionCreateMarket, err)
	}
	if err := d.requireAdmin(ctx); err != nil {
		return d.rejected(ctx, domain.ActionCreateMarket, err)
	}
	return d.run(ctx, domain.ActionCreateMarket, 0, func(ctx context.Context) (PendingTx, error) {
		return d.writer.CreateMarket(ctx, req.Question, req.Outcomes, req.Duration)
	})
}

// ResolveMarket dispatches market resolution after checking that the market
// exists, has passed its end time, and the outcome index is in range.
func (d *Dispatcher) ResolveMarket(ctx context.Context, req ResolveMarketRequest) (domain.ActionResult, error) {
	if req.MarketID == 0 {
		return d.rejected(ctx, domain.ActionResolveMarket, fmt.Errorf("market id is required: %w", domain.ErrInvalidInput))
	}
	if err := d.requireAdmin(ctx); err != nil {
		return d.rejected(ctx, domain.ActionResolveMarket, err)
	}

	m, err := d.reader.Market(ctx, req.MarketID)
	if err != nil {
		return d.rejected(ctx, domain.ActionResolveMarket, err)
	}
	if m.Status != domain.MarketStatusActive {
		return d.rejected(ctx, domain.ActionResolveMarket,
			fmt.Errorf("market %d is %s: %w", req.MarketID, m.Status, domain.ErrInvalidInput))
	}
	if !m.Ended(time.Now()) {
		return d.rejected(ctx, domain.ActionResolveMarket,
			fmt.Errorf("market %d: %w", req.MarketID, domain.ErrMarketNotEnded))
	}
	if req.OutcomeIndex >= uint64(len(m.Outcomes)) {
		return d.rejected(ctx, domain.ActionResolveMarket,
			fmt.Errorf("outcome index %d out of range for %d outcomes: %w",
				req.OutcomeIndex, len(m.Outcomes), domain.ErrInvalidInput))
	}

	return d.run(ctx, domain.ActionResolveMarket, req.MarketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.ResolveMarket(ctx, req.MarketID, req.OutcomeIndex)
	})
}

// CancelMarket dispatches a market cancellation, refunding all participants.
func (d *Dispatcher) CancelMarket(ctx context.Context, marketID uint64) (domain.ActionResult, error) {
	if marketID == 0 {
		return d.rejected(ctx, domain.ActionCancelMarket, fmt.Errorf("market id is required: %w", domain.ErrInvalidInput))
	}
	if err := d.requireAdmin(ctx); err != nil {
		return d.rejected(ctx, domain.ActionCancelMarket, err)
	}
	return d.run(ctx, domain.ActionCancelMarket, marketID, func(ctx context.Context) (PendingTx, error) {
		return d.writer.CancelMarket(ctx, marketID)
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (d *Dispatcher) requireAdmin(ctx context.Context) error {
	admin, err := d.reader.Admin(ctx)
	if err != nil {
		return fmt.Errorf("checking admin: %w", err)
	}
	if !strings.EqualFold(admin, d.identity.Address()) {
		return domain.ErrNotAdmin
	}
	return nil
}

// run executes the submit-wait-refresh lifecycle under the single-flight
// guard.
func (d *Dispatcher) run(ctx context.Context, kind domain.ActionKind, marketID uint64, submit func(ctx context.Context) (PendingTx, error)) (domain.ActionResult, error) {
	if !d.identity.Connected() {
		return d.rejected(ctx, kind, domain.ErrNotConnected)
	}
	if err := d.acquire(); err != nil {
		return d.rejected(ctx, kind, err)
	}
	defer d.release()

	result := domain.ActionResult{
		ID:    uuid.NewString(),
		Kind:  kind,
		State: domain.ActionStateSubmitting,
	}
	d.publish(ctx, result)
	d.logger.Info("action submitting", "id", result.ID, "kind", kind)

	tx, err := submit(ctx)
	if err != nil {
		return d.failed(ctx, result, err)
	}

	result.TxHash = tx.Hash()
	result.State = domain.ActionStateAwaitingConf
	d.publish(ctx, result)
	d.logger.Info("action awaiting confirmation", "id", result.ID, "kind", kind, "tx", result.TxHash)

	if err := tx.Wait(ctx); err != nil {
		return d.failed(ctx, result, err)
	}

	result.State = domain.ActionStateSucceeded
	d.publish(ctx, result)
	d.logger.Info("action succeeded", "id", result.ID, "kind", kind, "tx", result.TxHash)
	if d.notifier != nil {
		d.notifier.ActionFinished(ctx, result)
	}

	d.refresher.RefreshAfter(ctx, kind, d.identity.Address(), marketID)
	return result, nil
}

// rejected produces a failed result for an action that never reached the
// network.
func (d *Dispatcher) rejected(ctx context.Context, kind domain.ActionKind, err error) (domain.ActionResult, error) {
	result := domain.ActionResult{
		ID:    uuid.NewString(),
		Kind:  kind,
		State: domain.ActionStateFailed,
		Error: normalizeError(err),
	}
	d.publish(ctx, result)
	d.logger.Warn("action rejected", "kind", kind, "error", err)
	return result, err
}

func (d *Dispatcher) failed(ctx context.Context, result domain.ActionResult, err error) (domain.ActionResult, error) {
	result.State = domain.ActionStateFailed
	result.Error = normalizeError(err)
	d.publish(ctx, result)
	d.logger.Warn("action failed", "id", result.ID, "kind", result.Kind, "tx", result.TxHash, "error", err)
	if d.notifier != nil {
		d.notifier.ActionFinished(ctx, result)
	}
	return result, err
}

func (d *Dispatcher) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight {
		return domain.ErrActionInFlight
	}
	d.inFlight = true
	return nil
}

func (d *Dispatcher) release() {
	d.mu.Lock()
	d.inFlight = false
	d.mu.Unlock()
}

func (d *Dispatcher) publish(ctx context.Context, result domain.ActionResult) {
	if d.bus == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		d.logger.Error("action result marshal failed", "error", err)
		return
	}
	if err := d.bus.Publish(ctx, domain.ChannelActions, payload); err != nil {
		d.logger.Warn("action publish failed", "error", err)
	}
}

// normalizeError renders the message shown to the user, preferring the
// contract's revert reason over the raw transport error.
func normalizeError(err error) string {
	if reason, ok := domain.RevertReason(err); ok {
		return reason
	}
	return err.Error()
}
