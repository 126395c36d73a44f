package exchange

import (
	"math/big"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"afriswap/internal/model"
)

func TestSwapScenarioSmallAmounts(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)

	// Provide 200 X -> position (200, 400).
	posID, err := env.engine.Provide(alice, poolID, math.NewInt(200))
	require.NoError(t, err)

	// Swap 100 X: the oracle returns 200 Y, the pool holds 400 Y. At 20
	// bps the fee on 200 truncates to zero, so the position lands exactly
	// on (300, 200).
	res, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(100),
		Value:    math.ZeroInt(),
	})
	require.NoError(t, err)
	require.Equal(t, ModeTokenToken, res.Mode)
	require.Equal(t, "200", res.AmountOut.String())
	require.True(t, res.Fee.IsZero())

	pos, _ := env.engine.Position(posID)
	require.Equal(t, "300", pos.BalanceA.String())
	require.Equal(t, "200", pos.BalanceB.String())
}

func TestSwapChargesFeeOnTopOfOutput(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)

	posID, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)

	yBefore := env.bank.Balance(tokenY, bob)
	res, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(10_000),
		Value:    math.ZeroInt(),
	})
	require.NoError(t, err)

	// out = 20000, fee = 20000*20/10000 = 40; the caller receives the
	// full estimate and the pool gives up estimate + fee.
	require.Equal(t, "20000", res.AmountOut.String())
	require.Equal(t, "40", res.Fee.String())
	require.Equal(t, "20000", env.bank.Balance(tokenY, bob).Sub(yBefore).String())

	pos, _ := env.engine.Position(posID)
	require.Equal(t, "110000", pos.BalanceA.String())
	require.Equal(t, "179960", pos.BalanceB.String())

	// Fee value (Y->reward at 1:1) splits 80/3/17 with the platform
	// taking the remainder: 32 + 1 + 7 = 40.
	provider, _ := env.engine.Provider(alice)
	require.Equal(t, "32", provider.TotalEarned.String())
	require.Equal(t, "32", provider.Withdrawable.String())
	require.Equal(t, "1", env.engine.BurnablePool().String())
	require.Equal(t, "7", env.engine.PlatformProfit().String())
}

func TestSwapFeeSplitSumsExactly(t *testing.T) {
	for _, fee := range []int64{0, 1, 2, 3, 37, 40, 99, 100, 12345} {
		provider, burn, platform := splitFee(math.NewInt(fee))
		sum := provider.Add(burn).Add(platform)
		require.Equal(t, fee, sum.Int64(), "fee %d", fee)
		require.False(t, provider.IsNegative())
		require.False(t, burn.IsNegative())
		require.False(t, platform.IsNegative())
	}
}

func TestSwapNativeIn(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.engine.CreatePool(admin, nativeAsset, tokenY)
	require.NoError(t, err)
	_, err = env.engine.Provide(alice, id, math.NewInt(100_000))
	require.NoError(t, err)

	// Native input must carry a matching attached value.
	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  nativeAsset,
		AssetOut: tokenY,
		AmountIn: math.NewInt(1_000),
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	res, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  nativeAsset,
		AssetOut: tokenY,
		AmountIn: math.NewInt(1_000),
		Value:    math.NewInt(1_000),
	})
	require.NoError(t, err)
	require.Equal(t, ModeNativeIn, res.Mode)
	require.Equal(t, "2000", res.AmountOut.String())
}

func TestSwapNativeOut(t *testing.T) {
	env := newTestEnv(t)
	id, err := env.engine.CreatePool(admin, nativeAsset, tokenY)
	require.NoError(t, err)
	_, err = env.engine.Provide(alice, id, math.NewInt(100_000))
	require.NoError(t, err)

	nativeBefore := env.bank.Balance(nativeAsset, bob)
	res, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenY,
		AssetOut: nativeAsset,
		AmountIn: math.NewInt(2_000),
		Value:    math.ZeroInt(),
	})
	require.NoError(t, err)
	require.Equal(t, ModeNativeOut, res.Mode)
	require.Equal(t, "1000", res.AmountOut.String())
	require.Equal(t, "1000", env.bank.Balance(nativeAsset, bob).Sub(nativeBefore).String())
}

func TestSwapRejectsAttachedValueForTokenSwap(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)
	_, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)

	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(1_000),
		Value:    math.NewInt(1_000),
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSwapBelowMinimum(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)
	_, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)

	before, _ := env.engine.PoolSize(poolID)
	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(99),
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrBelowMinimum)

	after, _ := env.engine.PoolSize(poolID)
	require.True(t, before.TotalA.Equal(after.TotalA))
	require.True(t, before.TotalB.Equal(after.TotalB))
}

func TestSwapInsufficientPoolSize(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)

	// Pool holds 200 Y; a swap estimating 300 Y out must fail and leave
	// the pool untouched.
	_, err := env.engine.Provide(alice, poolID, math.NewInt(100))
	require.NoError(t, err)
	before, _ := env.engine.PoolSize(poolID)
	require.Equal(t, "200", before.TotalB.String())

	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(150),
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrInsufficientPoolSize)

	after, _ := env.engine.PoolSize(poolID)
	require.True(t, before.TotalA.Equal(after.TotalA))
	require.True(t, before.TotalB.Equal(after.TotalB))
}

func TestSwapRejectsOversizedAmount(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)
	_, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)

	// A parseable but enormous amount must fail cleanly instead of
	// blowing up the oracle's fixed-width arithmetic.
	huge := math.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 200))
	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: huge,
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrInvalidAmount)

	size, _ := env.engine.PoolSize(poolID)
	require.Equal(t, "100000", size.TotalA.String())
}

func TestSwapUnknownPool(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(1_000),
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrPoolNotFound)
}

func TestSwapInvalidAssets(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenX,
		AmountIn: math.NewInt(1_000),
		Value:    math.ZeroInt(),
	})
	require.ErrorIs(t, err, ErrInvalidAsset)
}

func TestSwapRedistributesProportionally(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)

	// Alice holds two thirds of the pool's output side, Bob one third.
	alicePos, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)
	bobPos, err := env.engine.Provide(bob, poolID, math.NewInt(50_000))
	require.NoError(t, err)

	sizeBefore, _ := env.engine.PoolSize(poolID)
	res, err := env.engine.Swap(SwapRequest{
		Caller:   carol,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(3_000),
		Value:    math.ZeroInt(),
	})
	require.NoError(t, err)

	ap, _ := env.engine.Position(alicePos)
	bp, _ := env.engine.Position(bobPos)

	// Input splits 2:1 across the positions.
	require.Equal(t, "102000", ap.BalanceA.String())
	require.Equal(t, "51000", bp.BalanceA.String())

	// Conservation: the output side dropped by at most the pool debit,
	// short by no more than positionCount-1 units of rounding drift.
	debit := res.AmountOut.Add(res.Fee)
	sizeAfter, _ := env.engine.PoolSize(poolID)
	removed := sizeBefore.TotalB.Sub(sizeAfter.TotalB)
	drift := debit.Sub(removed)
	require.False(t, drift.IsNegative())
	require.True(t, drift.LTE(math.NewInt(1)), "drift %s", drift)

	// Fee rewards credit both providers proportionally.
	aliceRec, _ := env.engine.Provider(alice)
	bobRec, _ := env.engine.Provider(bob)
	require.True(t, aliceRec.Withdrawable.GTE(bobRec.Withdrawable))
}

func TestSwapEmitsEvent(t *testing.T) {
	env := newTestEnv(t)
	poolID := env.createPool(t)
	_, err := env.engine.Provide(alice, poolID, math.NewInt(100_000))
	require.NoError(t, err)

	_, err = env.engine.Swap(SwapRequest{
		Caller:   bob,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(10_000),
		Value:    math.ZeroInt(),
	})
	require.NoError(t, err)

	recorded := env.sink.All()
	last := recorded[len(recorded)-1]
	require.Equal(t, model.EventSwapCompleted, last.Type)
	require.Equal(t, bob.Hex(), last.Actor)
	require.Equal(t, "10000", last.AmountIn)
	require.Equal(t, "20000", last.AmountOut)
	require.Equal(t, "40", last.Fee)
	require.Equal(t, "40", last.FeeReward)
	require.Equal(t, uint32(DefaultSwapFeeBps), last.FeeBps)
	require.NotZero(t, last.Timestamp)
}
