package dispatch

import (
	"context"
	"math/big"
	"time"

	"github.com/polypredict/dashd/internal/contracts"
)

// registryWriter adapts *contracts.Registry to the Writer interface. The
// indirection exists because Go does not treat a *contracts.PendingTx return
// as the PendingTx interface across method signatures.
type registryWriter struct {
	r *contracts.Registry
}

// NewRegistryWriter wraps the contract registry as a Writer.
func NewRegistryWriter(r *contracts.Registry) Writer {
	return registryWriter{r: r}
}

var _ Writer = registryWriter{}

func (w registryWriter) Deposit(ctx context.Context, value *big.Int) (PendingTx, error) {
	tx, err := w.r.Deposit(ctx, value)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) PlaceLimitOrder(ctx context.Context, marketID uint64, isBuy bool, price uint64, amount *big.Int) (PendingTx, error) {
	tx, err := w.r.PlaceLimitOrder(ctx, marketID, isBuy, price, amount)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) PlaceMarketOrder(ctx context.Context, marketID uint64, isBuy bool, amount *big.Int) (PendingTx, error) {
	tx, err := w.r.PlaceMarketOrder(ctx, marketID, isBuy, amount)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) CancelOrder(ctx context.Context, orderID uint64) (PendingTx, error) {
	tx, err := w.r.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) ClaimProfit(ctx context.Context, marketID uint64) (PendingTx, error) {
	tx, err := w.r.ClaimProfit(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) CreateMarket(ctx context.Context, question string, outcomes []string, duration time.Duration) (PendingTx, error) {
	tx, err := w.r.CreateMarket(ctx, question, outcomes, duration)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) ResolveMarket(ctx context.Context, marketID, outcomeIndex uint64) (PendingTx, error) {
	tx, err := w.r.ResolveMarket(ctx, marketID, outcomeIndex)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (w registryWriter) CancelMarket(ctx context.Context, marketID uint64) (PendingTx, error) {
	tx, err := w.r.CancelMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
