package domain

import (
	"math/big"
	"time"
)

// MarketView is the aggregated view-model behind the market detail page. Its
// fields are fetched by independent reads and may therefore reflect slightly
// different chain heights; there is no cross-field snapshot guarantee.
type MarketView struct {
	Market   Market     `json:"market"`
	Prices   BestPrices `json:"prices"`
	Position *big.Int   `json:"position,omitempty"` // nil when no session is connected
	Balance  *big.Int   `json:"balance,omitempty"`  // available balance in wei, nil when disconnected
}

// ProfileView is the aggregated view-model behind the profile page: the
// connected trader's balance, full order history (most recent first), and
// non-flat positions.
type ProfileView struct {
	Address   string     `json:"address"`
	Balance   *big.Int   `json:"balance"`
	Orders    []Order    `json:"orders"`
	Positions []Position `json:"positions"`
	FetchedAt time.Time  `json:"fetched_at"`
}
