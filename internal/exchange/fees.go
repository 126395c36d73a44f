package exchange

import (
	"fmt"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"afriswap/internal/model"
)

// accrueFees credits the burn and platform buckets for one swap. The
// provider share is credited position by position during redistribution.
func (e *Engine) accrueFees(j *journal, burnShare, platformShare math.Int) {
	prevBurn, prevProfit := e.burnablePool, e.platformProfit
	e.burnablePool = e.burnablePool.Add(burnShare)
	e.platformProfit = e.platformProfit.Add(platformShare)
	j.record(func() {
		e.burnablePool = prevBurn
		e.platformProfit = prevProfit
	})
}

// PlatformProfit is the accrued platform share, in the reward asset.
func (e *Engine) PlatformProfit() math.Int {
	return e.platformProfit
}

// BurnablePool is the accrued burn share, in the reward asset.
func (e *Engine) BurnablePool() math.Int {
	return e.burnablePool
}

// Withdraw pays out platform earnings to a recipient. Admin only; fails
// with ErrInsufficientBalance when amount exceeds the accrued profit.
func (e *Engine) Withdraw(caller common.Address, amount math.Int, recipient common.Address) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if caller != e.params.Admin {
		return ErrUnauthorized
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.GT(e.platformProfit) {
		return ErrInsufficientBalance
	}

	j := newJournal()
	prev := e.platformProfit
	e.platformProfit = e.platformProfit.Sub(amount)
	j.record(func() { e.platformProfit = prev })

	if err := e.transfer(e.params.RewardAsset, e.params.Account, recipient, amount); err != nil {
		j.revert()
		e.discardEvents()
		return err
	}

	e.logger.Info("platform earnings withdrawn",
		zap.String("recipient", recipient.Hex()),
		zap.String("amount", amount.String()),
	)
	e.emit(model.Event{
		Type:      model.EventFeeCollected,
		Actor:     caller.Hex(),
		AssetOut:  e.params.RewardAsset.Hex(),
		AmountOut: amount.String(),
	})
	e.flushEvents()
	return nil
}

// Burn destroys accrued burnable fees. Admin only. The requested amount is
// validated against the accrued total, but a burn always consumes the whole
// balance atomically; the burnable pool is reset to zero, never partially
// decremented.
func (e *Engine) Burn(caller common.Address, amount math.Int) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if caller != e.params.Admin {
		return ErrUnauthorized
	}
	if !validAmount(amount) {
		return ErrInvalidAmount
	}
	if amount.GT(e.burnablePool) {
		return ErrInsufficientBalance
	}

	j := newJournal()
	burned := e.burnablePool
	e.burnablePool = math.ZeroInt()
	j.record(func() { e.burnablePool = burned })

	if err := e.bank.Burn(e.params.RewardAsset, e.params.Account, burned); err != nil {
		j.revert()
		e.discardEvents()
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	e.logger.Info("accrued fees burned", zap.String("amount", burned.String()))
	e.emit(model.Event{
		Type:      model.EventFeeBurned,
		Actor:     caller.Hex(),
		AssetOut:  e.params.RewardAsset.Hex(),
		AmountOut: burned.String(),
	})
	e.flushEvents()
	return nil
}

// ClaimRewards pays out the caller's withdrawable reward balance and zeroes
// it. TotalEarned is a lifetime counter and is left untouched.
func (e *Engine) ClaimRewards(caller common.Address) (math.Int, error) {
	if err := e.begin(); err != nil {
		return math.ZeroInt(), err
	}
	defer e.end()

	provider, ok := e.providers[caller]
	if !ok {
		return math.ZeroInt(), ErrUnauthorized
	}
	if !provider.Withdrawable.IsPositive() {
		return math.ZeroInt(), ErrInsufficientBalance
	}

	j := newJournal()
	claimed := provider.Withdrawable
	provider.Withdrawable = math.ZeroInt()
	j.record(func() { provider.Withdrawable = claimed })

	if err := e.transfer(e.params.RewardAsset, e.params.Account, caller, claimed); err != nil {
		j.revert()
		e.discardEvents()
		return math.ZeroInt(), err
	}

	e.logger.Info("rewards claimed",
		zap.String("provider", caller.Hex()),
		zap.String("amount", claimed.String()),
	)
	e.emit(model.Event{
		Type:      model.EventProviderUpdated,
		Actor:     caller.Hex(),
		AssetOut:  e.params.RewardAsset.Hex(),
		AmountOut: claimed.String(),
	})
	e.flushEvents()
	return claimed, nil
}

// SetAutoStake flips the caller's auto-stake preference. The caller must
// already be a registered provider.
func (e *Engine) SetAutoStake(caller common.Address, on bool) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	provider, ok := e.providers[caller]
	if !ok {
		return ErrUnauthorized
	}
	provider.AutoStake = on

	e.emit(model.Event{
		Type:  model.EventProviderUpdated,
		Actor: caller.Hex(),
	})
	e.flushEvents()
	return nil
}
