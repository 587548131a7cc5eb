package domain

// ActionKind identifies a state-changing operation dispatched against the
// contracts. The aggregator uses it to decide which view sections a
// confirmed action must refresh.
type ActionKind string

const (
	ActionDeposit          ActionKind = "deposit"
	ActionPlaceLimitOrder  ActionKind = "place_limit_order"
	ActionPlaceMarketOrder ActionKind = "place_market_order"
	ActionCancelOrder      ActionKind = "cancel_order"
	ActionClaimProfit      ActionKind = "claim_profit"
	ActionCreateMarket     ActionKind = "create_market"
	ActionResolveMarket    ActionKind = "resolve_market"
	ActionCancelMarket     ActionKind = "cancel_market"
)

// ActionState is the lifecycle state of one action invocation.
type ActionState string

const (
	ActionStateSubmitting   ActionState = "submitting"
	ActionStateAwaitingConf ActionState = "awaiting_confirmation"
	ActionStateSucceeded    ActionState = "succeeded"
	ActionStateFailed       ActionState = "failed"
)

// ActionResult is the terminal outcome of one dispatched action. Error holds
// the normalized failure message (contract revert reason when available) and
// is empty on success.
type ActionResult struct {
	ID     string      `json:"id"` // invocation id, unique per dispatch
	Kind   ActionKind  `json:"kind"`
	State  ActionState `json:"state"`
	TxHash string      `json:"tx_hash,omitempty"`
	Error  string      `json:"error,omitempty"`
}
