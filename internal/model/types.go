package model

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// MinimumAmount is the floor, in base units, for swap inputs and liquidity
// contributions.
const MinimumAmount = 100

// Pool is a shared reserve of two assets backing swaps between them.
// Identity is the unordered (AssetA, AssetB) pair; at most one pool exists
// per pair. Pool ids start at 1; 0 means "not found" or "already exists".
type Pool struct {
	ID          uint64         `json:"id"`
	AssetA      common.Address `json:"asset_a"`
	AssetB      common.Address `json:"asset_b"`
	PositionIDs []uint64       `json:"position_ids"`
}

// Position is one provider's claim on a pool's reserves. The sum of
// BalanceA/BalanceB across a pool's live positions equals the pool's
// externally held reserves, within the accepted rounding drift.
type Position struct {
	ID       uint64         `json:"id"`
	PoolID   uint64         `json:"pool_id"`
	BalanceA math.Int       `json:"balance_a"`
	BalanceB math.Int       `json:"balance_b"`
	Owner    common.Address `json:"owner"`
}

// Provider is an account that has contributed liquidity. Providers are
// created lazily on first provision and never deleted; reward balances are
// always denominated in the platform reward asset.
type Provider struct {
	Addr         common.Address `json:"addr"`
	TotalEarned  math.Int       `json:"total_earned"`
	Withdrawable math.Int       `json:"withdrawable"`
	AutoStake    bool           `json:"auto_stake"`
	PositionIDs  []uint64       `json:"position_ids"`
}

// PoolSize is the summed reserves of a pool's live positions.
type PoolSize struct {
	TotalA math.Int `json:"total_a"`
	TotalB math.Int `json:"total_b"`
}
