package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"afriswap/internal/model"
)

const (
	// DefaultSwapFeeBps is the default swap fee: 20 bps = 0.20% of the
	// estimated output.
	DefaultSwapFeeBps = 20

	// MaxSwapFeeBps bounds administrative fee updates: the fee must stay
	// strictly inside (0%, 10%).
	MaxSwapFeeBps = 1000

	// Fee split, in percent of the reward-denominated fee value.
	providerRewardPercent = 80
	burnPercent           = 3
	// Platform profit takes the remainder (17%), so the three buckets
	// always sum to the whole fee.
)

// Params is the static configuration of an exchange engine.
type Params struct {
	// Admin is the single identity allowed to create pools, update the
	// swap fee, withdraw platform earnings, and burn accrued fees.
	Admin common.Address

	// Account holds the exchange's pooled reserves and accrued fees at
	// the bank.
	Account common.Address

	// RewardAsset denominates provider rewards, platform profit, and the
	// burnable pool, regardless of which assets were swapped.
	RewardAsset common.Address

	SwapFeeBps uint32
}

func (p Params) validate() error {
	if p.Admin == (common.Address{}) {
		return fmt.Errorf("admin address is required")
	}
	if p.Account == (common.Address{}) {
		return fmt.Errorf("exchange account is required")
	}
	if p.RewardAsset == (common.Address{}) {
		return fmt.Errorf("reward asset is required")
	}
	if p.SwapFeeBps == 0 || p.SwapFeeBps >= MaxSwapFeeBps {
		return fmt.Errorf("swap fee %d bps outside (0, %d)", p.SwapFeeBps, MaxSwapFeeBps)
	}
	return nil
}

// SetSwapFee updates the swap fee. Admin only; the new fee must be strictly
// inside (0, MaxSwapFeeBps) or ErrInvalidFee is returned.
func (e *Engine) SetSwapFee(caller common.Address, bps uint32) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	if caller != e.params.Admin {
		return ErrUnauthorized
	}
	if bps == 0 || bps >= MaxSwapFeeBps {
		return fmt.Errorf("%w: %d bps outside (0, %d)", ErrInvalidFee, bps, MaxSwapFeeBps)
	}

	old := e.params.SwapFeeBps
	e.params.SwapFeeBps = bps
	e.logger.Info("swap fee updated",
		zap.Uint32("old_bps", old),
		zap.Uint32("new_bps", bps),
	)
	e.emit(model.Event{
		Type:   model.EventSwapFeeUpdated,
		Actor:  caller.Hex(),
		FeeBps: bps,
	})
	e.flushEvents()
	return nil
}

// SwapFeeBps reports the current swap fee.
func (e *Engine) SwapFeeBps() uint32 {
	return e.params.SwapFeeBps
}
