package exchange

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"afriswap/internal/model"
)

// Provide supplies amountA of the pool's asset A; the paired amount of asset
// B is derived from the oracle so the contribution is value-balanced at the
// current price. A provider holds at most one position per pool: a second
// deposit tops up the existing position. Returns the position id.
func (e *Engine) Provide(caller common.Address, poolID uint64, amountA math.Int) (uint64, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	// Checks.
	if !validAmount(amountA) {
		return 0, ErrInvalidAmount
	}
	if amountA.LT(math.NewInt(model.MinimumAmount)) {
		return 0, ErrBelowMinimum
	}
	pool, ok := e.pools[poolID]
	if !ok {
		return 0, ErrPoolNotFound
	}
	amountB, err := e.oracle.Estimate(pool.AssetA, pool.AssetB, amountA)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}

	// Effects.
	j := newJournal()
	provider := e.provider(j, caller)

	pos := e.positionFor(caller, poolID)
	if pos != nil {
		prevA, prevB := pos.BalanceA, pos.BalanceB
		pos.BalanceA = pos.BalanceA.Add(amountA)
		pos.BalanceB = pos.BalanceB.Add(amountB)
		j.record(func() {
			pos.BalanceA = prevA
			pos.BalanceB = prevB
		})
	} else {
		e.nextPositionID++
		pos = &model.Position{
			ID:       e.nextPositionID,
			PoolID:   poolID,
			BalanceA: amountA,
			BalanceB: amountB,
			Owner:    caller,
		}
		e.positions[pos.ID] = pos
		pool.PositionIDs = append(pool.PositionIDs, pos.ID)
		provider.PositionIDs = append(provider.PositionIDs, pos.ID)
		id := pos.ID
		j.record(func() {
			delete(e.positions, id)
			pool.PositionIDs = removeID(pool.PositionIDs, id)
			provider.PositionIDs = removeID(provider.PositionIDs, id)
		})
	}

	// Interactions: pull both legs from the provider. The first leg is
	// journaled so a failure on the second hands it back.
	if err := e.transferJournaled(j, pool.AssetA, caller, e.params.Account, amountA); err != nil {
		j.revert()
		e.discardEvents()
		return 0, err
	}
	if err := e.transfer(pool.AssetB, caller, e.params.Account, amountB); err != nil {
		j.revert()
		e.discardEvents()
		return 0, err
	}

	if e.metrics != nil {
		e.metrics.LiquidityOps.WithLabelValues("provide").Inc()
	}
	e.logger.Info("liquidity provided",
		zap.Uint64("pool_id", poolID),
		zap.Uint64("position_id", pos.ID),
		zap.String("provider", caller.Hex()),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
	)
	e.emit(model.Event{
		Type:       model.EventLiquidityProvided,
		Actor:      caller.Hex(),
		PoolID:     poolID,
		PositionID: pos.ID,
		AssetIn:    pool.AssetA.Hex(),
		AssetOut:   pool.AssetB.Hex(),
		AmountIn:   amountA.String(),
		AmountOut:  amountB.String(),
	})
	e.flushEvents()
	return pos.ID, nil
}

// Remove closes a position and returns both balances to its owner. Only the
// owning provider may remove a position.
func (e *Engine) Remove(caller common.Address, positionID uint64) (math.Int, math.Int, error) {
	if err := e.begin(); err != nil {
		return math.ZeroInt(), math.ZeroInt(), err
	}
	defer e.end()

	// Checks.
	pos, ok := e.positions[positionID]
	if !ok {
		return math.ZeroInt(), math.ZeroInt(), ErrPositionNotFound
	}
	if pos.Owner != caller {
		return math.ZeroInt(), math.ZeroInt(), ErrUnauthorized
	}
	pool := e.pools[pos.PoolID]
	provider := e.providers[caller]
	amountA, amountB := pos.BalanceA, pos.BalanceB

	// Effects: delist everywhere, then delete the arena entry. No zombie
	// zero-valued entries survive a removal.
	j := newJournal()
	prevPoolList := append([]uint64(nil), pool.PositionIDs...)
	prevProviderList := append([]uint64(nil), provider.PositionIDs...)
	pool.PositionIDs = removeID(pool.PositionIDs, positionID)
	provider.PositionIDs = removeID(provider.PositionIDs, positionID)
	delete(e.positions, positionID)
	j.record(func() {
		pool.PositionIDs = prevPoolList
		provider.PositionIDs = prevProviderList
		e.positions[positionID] = pos
	})

	// Interactions: hand both balances back. The first payout is journaled
	// so a failure on the second pulls it back in.
	if err := e.transferJournaled(j, pool.AssetA, e.params.Account, caller, amountA); err != nil {
		j.revert()
		e.discardEvents()
		return math.ZeroInt(), math.ZeroInt(), err
	}
	if err := e.transfer(pool.AssetB, e.params.Account, caller, amountB); err != nil {
		j.revert()
		e.discardEvents()
		return math.ZeroInt(), math.ZeroInt(), err
	}

	if e.metrics != nil {
		e.metrics.LiquidityOps.WithLabelValues("remove").Inc()
	}
	e.logger.Info("liquidity removed",
		zap.Uint64("pool_id", pos.PoolID),
		zap.Uint64("position_id", positionID),
		zap.String("provider", caller.Hex()),
		zap.String("amount_a", amountA.String()),
		zap.String("amount_b", amountB.String()),
	)
	e.emit(model.Event{
		Type:       model.EventLiquidityRemoved,
		Actor:      caller.Hex(),
		PoolID:     pos.PoolID,
		PositionID: positionID,
		AssetIn:    pool.AssetA.Hex(),
		AssetOut:   pool.AssetB.Hex(),
		AmountIn:   amountA.String(),
		AmountOut:  amountB.String(),
	})
	e.flushEvents()
	return amountA, amountB, nil
}

// PoolSize sums both balances over the pool's live positions. This is the
// read the swap router uses to check available liquidity.
func (e *Engine) PoolSize(poolID uint64) (model.PoolSize, error) {
	pool, ok := e.pools[poolID]
	if !ok {
		return model.PoolSize{}, ErrPoolNotFound
	}
	return e.poolSize(pool), nil
}

func (e *Engine) poolSize(pool *model.Pool) model.PoolSize {
	size := model.PoolSize{TotalA: math.ZeroInt(), TotalB: math.ZeroInt()}
	for _, id := range pool.PositionIDs {
		pos, ok := e.positions[id]
		if !ok {
			continue
		}
		size.TotalA = size.TotalA.Add(pos.BalanceA)
		size.TotalB = size.TotalB.Add(pos.BalanceB)
	}
	return size
}

// aggregateAcrossPool rewrites every position in the pool after a swap:
// each position absorbs its share of deltaIn (asset flowing into the pool),
// gives up its share of deltaOut (asset flowing out), and its owner is
// credited its share of feeReward. A position's share is its output-side
// balance over sizeOutBefore, the pool's pre-swap output-side total, with
// truncating integer division: across the pool up to len(positions)-1 base
// units of each applied quantity are dropped. That residual is intentional
// rounding drift and is never redistributed or reconciled. outIsB says which
// pool asset is the output side. A zero sizeOutBefore is a no-op; it can
// only occur right after pool creation, and swaps against such a pool have
// already failed the liquidity check.
func (e *Engine) aggregateAcrossPool(j *journal, pool *model.Pool, outIsB bool, deltaIn, deltaOut, sizeOutBefore, feeReward math.Int) {
	if sizeOutBefore.IsZero() {
		return
	}
	for _, id := range pool.PositionIDs {
		pos, ok := e.positions[id]
		if !ok {
			continue
		}
		outBal := pos.BalanceA
		if outIsB {
			outBal = pos.BalanceB
		}
		shareIn := outBal.Mul(deltaIn).Quo(sizeOutBefore)
		shareOut := outBal.Mul(deltaOut).Quo(sizeOutBefore)
		shareFee := outBal.Mul(feeReward).Quo(sizeOutBefore)

		p := pos
		prevA, prevB := p.BalanceA, p.BalanceB
		if outIsB {
			p.BalanceA = p.BalanceA.Add(shareIn)
			p.BalanceB = p.BalanceB.Sub(shareOut)
		} else {
			p.BalanceB = p.BalanceB.Add(shareIn)
			p.BalanceA = p.BalanceA.Sub(shareOut)
		}
		j.record(func() {
			p.BalanceA = prevA
			p.BalanceB = prevB
		})

		if shareFee.IsPositive() {
			owner := e.provider(j, p.Owner)
			prevEarned, prevWithdrawable := owner.TotalEarned, owner.Withdrawable
			owner.TotalEarned = owner.TotalEarned.Add(shareFee)
			owner.Withdrawable = owner.Withdrawable.Add(shareFee)
			j.record(func() {
				owner.TotalEarned = prevEarned
				owner.Withdrawable = prevWithdrawable
			})
		}
	}
}

// positionFor returns the caller's open position in the pool, nil if none.
func (e *Engine) positionFor(owner common.Address, poolID uint64) *model.Position {
	provider, ok := e.providers[owner]
	if !ok {
		return nil
	}
	for _, id := range provider.PositionIDs {
		if pos, ok := e.positions[id]; ok && pos.PoolID == poolID {
			return pos
		}
	}
	return nil
}

func removeID(ids []uint64, id uint64) []uint64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
