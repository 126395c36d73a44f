package exchange

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"afriswap/internal/model"
)

// SwapMode identifies which leg, if either, moves the native asset.
type SwapMode string

const (
	// ModeNativeIn: the input is the call's attached native value.
	ModeNativeIn SwapMode = "native_in"
	// ModeNativeOut: the output is native value sent to the caller.
	ModeNativeOut SwapMode = "native_out"
	// ModeTokenToken: both legs move fungible tokens.
	ModeTokenToken SwapMode = "token_token"
)

// SwapRequest describes one swap. Value is the native amount attached to
// the call; it must equal AmountIn when the input asset is native and be
// zero otherwise.
type SwapRequest struct {
	Caller   common.Address
	AssetIn  common.Address
	AssetOut common.Address
	AmountIn math.Int
	Value    math.Int
}

// SwapResult is the committed outcome of a swap. AmountOut is what the
// caller received; the pool additionally gave up Fee units of the output
// asset, whose value was split into the reward buckets.
type SwapResult struct {
	PoolID         uint64
	Mode           SwapMode
	AssetIn        common.Address
	AssetOut       common.Address
	AmountIn       math.Int
	AmountOut      math.Int
	Fee            math.Int
	ProviderReward math.Int
	Timestamp      int64
}

// Swap executes one swap at the oracle price. The call either commits in
// full or leaves no trace: validation first, then all bookkeeping (fee
// split, proportional redistribution across the pool's positions), and only
// then the asset movements, with a journal unwinding the bookkeeping if a
// transfer fails.
func (e *Engine) Swap(req SwapRequest) (SwapResult, error) {
	if err := e.begin(); err != nil {
		return SwapResult{}, err
	}
	defer e.end()

	// Checks.
	if req.AssetIn == (common.Address{}) || req.AssetOut == (common.Address{}) || req.AssetIn == req.AssetOut {
		return SwapResult{}, ErrInvalidAsset
	}
	if !validAmount(req.AmountIn) {
		return SwapResult{}, ErrInvalidAmount
	}
	if req.AmountIn.LT(math.NewInt(model.MinimumAmount)) {
		return SwapResult{}, ErrBelowMinimum
	}

	native := e.oracle.NativeAssetID()
	mode := ModeTokenToken
	switch {
	case req.AssetIn == native:
		mode = ModeNativeIn
		if req.Value.IsNil() || !req.Value.Equal(req.AmountIn) {
			return SwapResult{}, fmt.Errorf("%w: attached value must equal input amount", ErrInvalidAmount)
		}
	case req.AssetOut == native:
		mode = ModeNativeOut
		fallthrough
	default:
		if !req.Value.IsNil() && !req.Value.IsZero() {
			return SwapResult{}, fmt.Errorf("%w: unexpected attached value", ErrInvalidAmount)
		}
	}

	poolID := e.findPool(req.AssetIn, req.AssetOut)
	if poolID == 0 {
		return SwapResult{}, ErrPoolNotFound
	}
	pool := e.pools[poolID]

	amountOut, err := e.oracle.Estimate(req.AssetIn, req.AssetOut, req.AmountIn)
	if err != nil {
		return SwapResult{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	if !amountOut.IsPositive() {
		return SwapResult{}, ErrInsufficientPoolSize
	}

	// The fee is charged on top of the estimated output: the caller
	// receives amountOut, the pool gives up amountOut + fee.
	fee := amountOut.MulRaw(int64(e.params.SwapFeeBps)).QuoRaw(10_000)
	poolDebit := amountOut.Add(fee)

	size := e.poolSize(pool)
	outIsB := req.AssetOut == pool.AssetB
	sizeOut := size.TotalA
	if outIsB {
		sizeOut = size.TotalB
	}
	if sizeOut.LT(poolDebit) {
		return SwapResult{}, ErrInsufficientPoolSize
	}

	// Rewards are tracked in a single unit regardless of the swapped
	// assets, so convert the fee's value before splitting.
	rewardFee, err := e.oracle.Estimate(req.AssetOut, e.params.RewardAsset, fee)
	if err != nil {
		return SwapResult{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	providerReward, burnShare, platformShare := splitFee(rewardFee)

	// Effects.
	j := newJournal()
	e.accrueFees(j, burnShare, platformShare)
	e.aggregateAcrossPool(j, pool, outIsB, req.AmountIn, poolDebit, sizeOut, providerReward)

	// Interactions. The input leg is journaled so a failure paying out the
	// output leg hands the input back to the caller.
	if err := e.transferJournaled(j, req.AssetIn, req.Caller, e.params.Account, req.AmountIn); err != nil {
		j.revert()
		e.discardEvents()
		return SwapResult{}, err
	}
	if err := e.transfer(req.AssetOut, e.params.Account, req.Caller, amountOut); err != nil {
		j.revert()
		e.discardEvents()
		return SwapResult{}, err
	}

	res := SwapResult{
		PoolID:         poolID,
		Mode:           mode,
		AssetIn:        req.AssetIn,
		AssetOut:       req.AssetOut,
		AmountIn:       req.AmountIn,
		AmountOut:      amountOut,
		Fee:            fee,
		ProviderReward: providerReward,
		Timestamp:      e.now().UnixNano(),
	}

	if e.metrics != nil {
		e.metrics.SwapsTotal.WithLabelValues(string(mode)).Inc()
		f, _ := new(big.Float).SetInt(rewardFee.BigInt()).Float64()
		e.metrics.FeesAccrued.Add(f)
	}
	e.logger.Info("swap completed",
		zap.Uint64("pool_id", poolID),
		zap.String("mode", string(mode)),
		zap.String("caller", req.Caller.Hex()),
		zap.String("asset_in", req.AssetIn.Hex()),
		zap.String("asset_out", req.AssetOut.Hex()),
		zap.String("amount_in", req.AmountIn.String()),
		zap.String("amount_out", amountOut.String()),
		zap.String("fee", fee.String()),
	)
	e.emit(model.Event{
		Type:      model.EventSwapCompleted,
		Actor:     req.Caller.Hex(),
		PoolID:    poolID,
		AssetIn:   req.AssetIn.Hex(),
		AssetOut:  req.AssetOut.Hex(),
		AmountIn:  req.AmountIn.String(),
		AmountOut: amountOut.String(),
		FeeBps:    e.params.SwapFeeBps,
		Fee:       fee.String(),
		FeeReward: rewardFee.String(),
	})
	e.flushEvents()
	return res, nil
}

// splitFee divides a reward-denominated fee into the provider, burn, and
// platform buckets. The platform takes the remainder, so the three always
// sum exactly to the input.
func splitFee(fee math.Int) (providerReward, burnShare, platformShare math.Int) {
	providerReward = fee.MulRaw(providerRewardPercent).QuoRaw(100)
	burnShare = fee.MulRaw(burnPercent).QuoRaw(100)
	platformShare = fee.Sub(providerReward).Sub(burnShare)
	return providerReward, burnShare, platformShare
}
