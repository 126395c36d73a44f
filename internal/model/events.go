package model

// EventType identifies an audit record kind.
type EventType string

const (
	EventPoolCreated       EventType = "pool_created"
	EventLiquidityProvided EventType = "liquidity_provided"
	EventLiquidityRemoved  EventType = "liquidity_removed"
	EventSwapCompleted     EventType = "swap_completed"
	EventFeeCollected      EventType = "fee_collected"
	EventFeeBurned         EventType = "fee_burned"
	EventSwapFeeUpdated    EventType = "swap_fee_updated"
	EventProviderUpdated   EventType = "provider_profile_updated"
)

// Event is an append-only audit record produced after an exchange operation
// commits. Amounts are string-encoded base units; fields that do not apply
// to a given event type stay empty.
type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	Actor  string    `json:"actor"`
	PoolID uint64    `json:"pool_id,omitempty"`

	AssetIn  string `json:"asset_in,omitempty"`
	AssetOut string `json:"asset_out,omitempty"`
	AmountIn string `json:"amount_in,omitempty"`
	// AmountOut doubles as the second liquidity amount on provide/remove.
	AmountOut  string `json:"amount_out,omitempty"`
	PositionID uint64 `json:"position_id,omitempty"`
	FeeBps     uint32 `json:"fee_bps,omitempty"`
	// Fee is the swap fee in output-asset units; FeeReward is its value in
	// the reward asset, the quantity the 80/3/17 split applies to.
	Fee       string `json:"fee,omitempty"`
	FeeReward string `json:"fee_reward,omitempty"`

	Timestamp int64 `json:"ts"`
}
