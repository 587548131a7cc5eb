package domain

// MaxPrice is the upper bound of the exchange's fixed-point price range.
// A price of MaxPrice corresponds to an implied probability of 100%.
const MaxPrice uint64 = 1_000_000

// BestPrices holds the most competitive resting buy and sell prices of one
// market's order book. The exchange encodes an empty ask side as MaxPrice and
// an empty bid side as zero.
type BestPrices struct {
	Bid uint64 `json:"bid"`
	Ask uint64 `json:"ask"`
}

// EmptyBook returns the BestPrices value the exchange reports for a market
// with no resting orders.
func EmptyBook() BestPrices {
	return BestPrices{Bid: 0, Ask: MaxPrice}
}

// HasBid reports whether any buy order is resting.
func (bp BestPrices) HasBid() bool { return bp.Bid > 0 }

// HasAsk reports whether any sell order is resting.
func (bp BestPrices) HasAsk() bool { return bp.Ask < MaxPrice }
