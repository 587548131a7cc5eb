package domain

import "math/big"

// Position is the net signed exposure of a trader in one market as reported
// by the exchange contract. Positive is long, negative is short, zero is
// flat. It is recomputed from chain state on every read and never stored
// beyond the current view snapshot.
type Position struct {
	MarketID uint64   `json:"market_id"`
	Amount   *big.Int `json:"amount"`
}

// IsFlat reports whether the position carries no exposure. Flat positions are
// omitted from profile summaries because they carry no signal.
func (p Position) IsFlat() bool {
	return p.Amount == nil || p.Amount.Sign() == 0
}

// IsLong reports positive exposure.
func (p Position) IsLong() bool {
	return p.Amount != nil && p.Amount.Sign() > 0
}
