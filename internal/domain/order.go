package domain

import (
	"math/big"
	"time"
)

// OrderSide indicates whether an order takes the long (buy) or short (sell)
// side of a market.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// SideFromIsBuy converts the contract's boolean side flag into an OrderSide.
func SideFromIsBuy(isBuy bool) OrderSide {
	if isBuy {
		return OrderSideBuy
	}
	return OrderSideSell
}

// IsBuy converts the side back into the contract's boolean encoding.
func (s OrderSide) IsBuy() bool {
	return s == OrderSideBuy
}

// Order is a read-only projection of a resting or filled order on the
// exchange contract. Amounts are passed through from the chain unmodified;
// the aggregator never fabricates a record where Filled exceeds Amount.
type Order struct {
	ID        uint64    `json:"id"`
	MarketID  uint64    `json:"market_id"`
	Side      OrderSide `json:"side"`
	Price     uint64    `json:"price"` // fixed-point price ticks, 0..MaxPrice
	Amount    *big.Int  `json:"amount"`
	Filled    *big.Int  `json:"filled"`
	IsActive  bool      `json:"is_active"`
	IsSettled bool      `json:"is_settled"`
	CreatedAt time.Time `json:"created_at"`
	Trader    string    `json:"trader"`
}

// DisplayStatus derives the label the profile page shows for an order:
// settled orders take precedence, then resting ones, then fully executed or
// cancelled ones.
func (o Order) DisplayStatus() string {
	switch {
	case o.IsSettled:
		return "settled"
	case o.IsActive:
		return "active"
	default:
		return "completed"
	}
}
