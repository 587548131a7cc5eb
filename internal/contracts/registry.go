// Package contracts binds the four deployed contracts behind typed Go
// methods. Reads return domain types; writes return a PendingTx whose Wait
// blocks until the transaction is mined and reports on-chain failure.
//
// The exchange handle is special: its address may be omitted from the
// configuration, in which case it is derived once through the facade's
// getExchangeAddress lookup and memoized.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/polypredict/dashd/internal/domain"
)

// Backend is the slice of ethclient.Client the registry needs: contract
// calls, transaction submission, and receipt lookups.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// TxSigner produces signed-transaction options for write calls. A read-only
// wallet session returns domain.ErrNotConnected here.
type TxSigner interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Addresses holds the hex addresses of the deployed contracts. Exchange may
// be empty; Facade must then be set so the address can be derived on demand.
type Addresses struct {
	Market       string
	Exchange     string
	TokenManager string
	Facade       string
}

// Registry exposes typed access to the contract suite.
type Registry struct {
	backend Backend
	signer  TxSigner
	logger  *slog.Logger

	market       *bind.BoundContract
	tokenManager *bind.BoundContract
	facade       *bind.BoundContract // nil when no facade address configured

	mu   sync.Mutex
	exch *bind.BoundContract // lazily bound, guarded by mu
}

// NewRegistry binds the configured contract addresses against the backend.
func NewRegistry(addrs Addresses, backend Backend, signer TxSigner, logger *slog.Logger) (*Registry, error) {
	if addrs.Market == "" || addrs.TokenManager == "" {
		return nil, errors.New("contracts: market and token manager addresses are required")
	}
	if addrs.Exchange == "" && addrs.Facade == "" {
		return nil, errors.New("contracts: need an exchange address or a facade to derive it from")
	}

	r := &Registry{
		backend:      backend,
		signer:       signer,
		logger:       logger.With("component", "contracts"),
		market:       bindAt(addrs.Market, marketABI, backend),
		tokenManager: bindAt(addrs.TokenManager, tokenManagerABI, backend),
	}
	if addrs.Facade != "" {
		r.facade = bindAt(addrs.Facade, facadeABI, backend)
	}
	if addrs.Exchange != "" {
		r.exch = bindAt(addrs.Exchange, exchangeABI, backend)
	}
	return r, nil
}

func bindAt(addr string, contractABI abi.ABI, backend Backend) *bind.BoundContract {
	return bind.NewBoundContract(common.HexToAddress(addr), contractABI, backend, backend, backend)
}

// exchange returns the bound exchange contract, deriving its address through
// the facade on first use.
func (r *Registry) exchange(ctx context.Context) (*bind.BoundContract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exch != nil {
		return r.exch, nil
	}

	var out []interface{}
	if err := r.facade.Call(&bind.CallOpts{Context: ctx}, &out, "getExchangeAddress"); err != nil {
		return nil, fmt.Errorf("contracts: deriving exchange address: %w", err)
	}
	addr := out[0].(common.Address)
	r.exch = bind.NewBoundContract(addr, exchangeABI, r.backend, r.backend, r.backend)
	r.logger.Info("exchange address derived", "address", addr.Hex())
	return r.exch, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Market fetches a market by id. A revert (unknown id) maps to
// domain.ErrNotFound so callers can distinguish gaps from transport trouble.
func (r *Registry) Market(ctx context.Context, id uint64) (domain.Market, error) {
	var out []interface{}
	err := r.market.Call(&bind.CallOpts{Context: ctx}, &out, "getMarket", new(big.Int).SetUint64(id))
	if err != nil {
		if _, reverted := revertReason(err); reverted || strings.Contains(err.Error(), "execution reverted") {
			return domain.Market{}, fmt.Errorf("contracts: market %d: %w", id, domain.ErrNotFound)
		}
		return domain.Market{}, fmt.Errorf("contracts: market %d: %w", id, err)
	}

	return domain.Market{
		ID:                   id,
		Question:             out[0].(string),
		Outcomes:             out[1].([]string),
		EndTime:              time.Unix(out[2].(*big.Int).Int64(), 0).UTC(),
		Status:               domain.MarketStatus(out[3].(uint8)),
		ResolvedOutcomeIndex: out[4].(*big.Int).Uint64(),
		Creator:              out[5].(common.Address).Hex(),
		CreatedAt:            time.Unix(out[6].(*big.Int).Int64(), 0).UTC(),
	}, nil
}

// Admin returns the admin address, preferring the facade's view.
func (r *Registry) Admin(ctx context.Context) (string, error) {
	target := r.facade
	if target == nil {
		target = r.market
	}
	var out []interface{}
	if err := target.Call(&bind.CallOpts{Context: ctx}, &out, "admin"); err != nil {
		return "", fmt.Errorf("contracts: admin: %w", err)
	}
	return out[0].(common.Address).Hex(), nil
}

// BestPrices returns the top of book for a market. A market with no resting
// orders comes back as the empty book {bid: 0, ask: MaxPrice}.
func (r *Registry) BestPrices(ctx context.Context, marketID uint64) (domain.BestPrices, error) {
	exch, err := r.exchange(ctx)
	if err != nil {
		return domain.BestPrices{}, err
	}
	var out []interface{}
	if err := exch.Call(&bind.CallOpts{Context: ctx}, &out, "getBestPrices", new(big.Int).SetUint64(marketID)); err != nil {
		return domain.BestPrices{}, fmt.Errorf("contracts: best prices for market %d: %w", marketID, err)
	}
	return domain.BestPrices{
		Bid: out[0].(*big.Int).Uint64(),
		Ask: out[1].(*big.Int).Uint64(),
	}, nil
}

// Position returns the trader's signed token position in a market.
func (r *Registry) Position(ctx context.Context, trader string, marketID uint64) (*big.Int, error) {
	exch, err := r.exchange(ctx)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	err = exch.Call(&bind.CallOpts{Context: ctx}, &out, "getPosition",
		common.HexToAddress(trader), new(big.Int).SetUint64(marketID))
	if err != nil {
		return nil, fmt.Errorf("contracts: position in market %d: %w", marketID, err)
	}
	return out[0].(*big.Int), nil
}

// UserOrders returns the ids of every order the trader has ever placed.
func (r *Registry) UserOrders(ctx context.Context, trader string) ([]uint64, error) {
	exch, err := r.exchange(ctx)
	if err != nil {
		return nil, err
	}
	var out []interface{}
	if err := exch.Call(&bind.CallOpts{Context: ctx}, &out, "getUserOrders", common.HexToAddress(trader)); err != nil {
		return nil, fmt.Errorf("contracts: orders for %s: %w", trader, err)
	}
	raw := out[0].([]*big.Int)
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

// Order fetches a single order by id.
func (r *Registry) Order(ctx context.Context, orderID uint64) (domain.Order, error) {
	exch, err := r.exchange(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	var out []interface{}
	if err := exch.Call(&bind.CallOpts{Context: ctx}, &out, "getOrder", new(big.Int).SetUint64(orderID)); err != nil {
		return domain.Order{}, fmt.Errorf("contracts: order %d: %w", orderID, err)
	}
	return domain.Order{
		ID:        out[0].(*big.Int).Uint64(),
		MarketID:  out[1].(*big.Int).Uint64(),
		Side:      domain.SideFromIsBuy(out[2].(bool)),
		Price:     out[3].(*big.Int).Uint64(),
		Amount:    out[4].(*big.Int),
		Filled:    out[5].(*big.Int),
		IsActive:  out[6].(bool),
		IsSettled: out[7].(bool),
		CreatedAt: time.Unix(out[8].(*big.Int).Int64(), 0).UTC(),
		Trader:    out[9].(common.Address).Hex(),
	}, nil
}

// AvailableBalance returns the trader's free (unlocked) deposit balance in wei.
func (r *Registry) AvailableBalance(ctx context.Context, trader string) (*big.Int, error) {
	var out []interface{}
	if err := r.tokenManager.Call(&bind.CallOpts{Context: ctx}, &out, "getAvailableBalance", common.HexToAddress(trader)); err != nil {
		return nil, fmt.Errorf("contracts: balance for %s: %w", trader, err)
	}
	return out[0].(*big.Int), nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// PendingTx is a submitted transaction. Hash is available immediately; Wait
// blocks until it is mined and returns an error if it reverted on-chain.
type PendingTx struct {
	tx      *types.Transaction
	backend bind.DeployBackend
}

// Hash returns the transaction hash as a 0x-prefixed hex string.
func (p *PendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

// Wait blocks until the transaction is mined.
func (p *PendingTx) Wait(ctx context.Context) error {
	receipt, err := bind.WaitMined(ctx, p.backend, p.tx)
	if err != nil {
		return fmt.Errorf("contracts: waiting for %s: %w", p.tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("contracts: transaction %s reverted on-chain", p.tx.Hash().Hex())
	}
	return nil
}

// Deposit sends native currency into the token manager's balance ledger.
func (r *Registry) Deposit(ctx context.Context, value *big.Int) (*PendingTx, error) {
	return r.transact(ctx, r.tokenManager, "deposit", value, "deposit")
}

// PlaceLimitOrder places a resting order at the given fixed-point price,
// funding it from the wallet in the same transaction.
func (r *Registry) PlaceLimitOrder(ctx context.Context, marketID uint64, isBuy bool, price uint64, amount *big.Int) (*PendingTx, error) {
	return r.transact(ctx, r.tokenManager, "place limit order", nil, "placeOrderWithFunds",
		new(big.Int).SetUint64(marketID), isBuy, new(big.Int).SetUint64(price), amount)
}

// PlaceMarketOrder places an order that crosses the book at the best
// available price.
func (r *Registry) PlaceMarketOrder(ctx context.Context, marketID uint64, isBuy bool, amount *big.Int) (*PendingTx, error) {
	return r.transact(ctx, r.tokenManager, "place market order", nil, "placeMarketOrderWithFunds",
		new(big.Int).SetUint64(marketID), isBuy, amount)
}

// CancelOrder cancels a resting order and releases its locked funds.
func (r *Registry) CancelOrder(ctx context.Context, orderID uint64) (*PendingTx, error) {
	exch, err := r.exchange(ctx)
	if err != nil {
		return nil, err
	}
	return r.transact(ctx, exch, "cancel order", nil, "cancelOrder", new(big.Int).SetUint64(orderID))
}

// ClaimProfit settles the caller's winnings for a resolved market.
func (r *Registry) ClaimProfit(ctx context.Context, marketID uint64) (*PendingTx, error) {
	return r.transact(ctx, r.tokenManager, "claim profit", nil, "claimProfit", new(big.Int).SetUint64(marketID))
}

// CreateMarket registers a new market open for the given duration from now.
// Admin only; the contract enforces the restriction.
func (r *Registry) CreateMarket(ctx context.Context, question string, outcomes []string, duration time.Duration) (*PendingTx, error) {
	if err := r.requireFacade(); err != nil {
		return nil, err
	}
	return r.transact(ctx, r.facade, "create market", nil, "createMarket",
		question, outcomes, big.NewInt(int64(duration.Seconds())))
}

// ResolveMarket settles a market on the winning outcome index. Admin only.
func (r *Registry) ResolveMarket(ctx context.Context, marketID, outcomeIndex uint64) (*PendingTx, error) {
	if err := r.requireFacade(); err != nil {
		return nil, err
	}
	return r.transact(ctx, r.facade, "resolve market", nil, "resolveMarket",
		new(big.Int).SetUint64(marketID), new(big.Int).SetUint64(outcomeIndex))
}

// CancelMarket voids a market and refunds all participants. Admin only.
func (r *Registry) CancelMarket(ctx context.Context, marketID uint64) (*PendingTx, error) {
	if err := r.requireFacade(); err != nil {
		return nil, err
	}
	return r.transact(ctx, r.facade, "cancel market", nil, "cancelMarket", new(big.Int).SetUint64(marketID))
}

func (r *Registry) requireFacade() error {
	if r.facade == nil {
		return errors.New("contracts: facade address not configured")
	}
	return nil
}

func (r *Registry) transact(ctx context.Context, bound *bind.BoundContract, op string, value *big.Int, method string, args ...interface{}) (*PendingTx, error) {
	opts, err := r.signer.TransactOpts(ctx)
	if err != nil {
		return nil, err
	}
	opts.Value = value

	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		if reason, ok := revertReason(err); ok {
			return nil, fmt.Errorf("contracts: %s: %w", op, &domain.RevertError{Reason: reason})
		}
		return nil, fmt.Errorf("contracts: %s: %w", op, err)
	}

	r.logger.Info("transaction submitted", "op", op, "tx", tx.Hash().Hex())
	return &PendingTx{tx: tx, backend: r.backend}, nil
}

// revertReason extracts a human-readable revert reason from an RPC error.
// Preference order: ABI-encoded revert data carried on rpc.DataError, then
// the "execution reverted: ..." suffix some nodes put in the message.
func revertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		switch data := dataErr.ErrorData().(type) {
		case string:
			if b, decErr := hexutil.Decode(data); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(b); unpackErr == nil {
					return reason, true
				}
			}
		case []byte:
			if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
				return reason, true
			}
		}
	}

	const marker = "execution reverted:"
	if msg := err.Error(); strings.Contains(msg, marker) {
		if reason := strings.TrimSpace(msg[strings.Index(msg, marker)+len(marker):]); reason != "" {
			return reason, true
		}
	}
	return "", false
}
