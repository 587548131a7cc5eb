package domain

import "time"

// MarketStatus mirrors the on-chain lifecycle enum of the market registry
// contract. The numeric values match the contract's encoding and must not be
// reordered.
type MarketStatus uint8

const (
	MarketStatusActive    MarketStatus = 0
	MarketStatusResolved  MarketStatus = 1
	MarketStatusCancelled MarketStatus = 2
)

// String returns the human-readable status label used by the page shells.
func (s MarketStatus) String() string {
	switch s {
	case MarketStatusActive:
		return "active"
	case MarketStatusResolved:
		return "resolved"
	case MarketStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Market is a read-only projection of one prediction market held by the
// external registry contract. The daemon never mutates a market; it only
// observes lifecycle transitions made by the contract admin.
type Market struct {
	ID                   uint64       `json:"id"`
	Question             string       `json:"question"`
	Outcomes             []string     `json:"outcomes"`
	EndTime              time.Time    `json:"end_time"`
	Status               MarketStatus `json:"status"`
	ResolvedOutcomeIndex uint64       `json:"resolved_outcome_index"`
	Creator              string       `json:"creator"`
	CreatedAt            time.Time    `json:"created_at"`
}

// Ended reports whether the market's trading window has passed at the given
// wall-clock instant. This is advisory only; the contract holds the
// authoritative check and may disagree if clocks drift.
func (m Market) Ended(now time.Time) bool {
	return !now.Before(m.EndTime)
}

// ResolvedOutcome returns the label of the winning outcome. The second return
// is false unless the market is resolved and the index is in range.
func (m Market) ResolvedOutcome() (string, bool) {
	if m.Status != MarketStatusResolved {
		return "", false
	}
	if m.ResolvedOutcomeIndex >= uint64(len(m.Outcomes)) {
		return "", false
	}
	return m.Outcomes[m.ResolvedOutcomeIndex], true
}
