package main

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"afriswap/internal/bank"
	"afriswap/internal/events"
	"afriswap/internal/exchange"
	"afriswap/internal/oracle"
)

// runDemo walks one full exchange lifecycle in memory: pool creation,
// liquidity provision, a token swap, a native swap, a reward claim, and a
// fee burn, logging the ledger state along the way.
func runDemo(cmd *cobra.Command, _ []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var (
		native   = common.HexToAddress("0x0000000000000000000000000000000000000001")
		reward   = common.HexToAddress("0x0000000000000000000000000000000000000002")
		tokenX   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
		tokenY   = common.HexToAddress("0x00000000000000000000000000000000000000bb")
		admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
		account  = common.HexToAddress("0x00000000000000000000000000000000000000ee")
		provider = common.HexToAddress("0x0000000000000000000000000000000000000011")
		trader   = common.HexToAddress("0x0000000000000000000000000000000000000022")
	)

	priceOracle, err := oracle.NewStatic(native, []oracle.Rate{
		{AssetIn: tokenX, AssetOut: tokenY, Num: math.NewInt(2), Den: math.NewInt(1)},
		{AssetIn: native, AssetOut: tokenY, Num: math.NewInt(4), Den: math.NewInt(1)},
		{AssetIn: tokenY, AssetOut: reward, Num: math.NewInt(1), Den: math.NewInt(1)},
	})
	if err != nil {
		return err
	}

	assetBank := bank.NewInMemory()
	million := math.NewInt(1_000_000)
	assetBank.Mint(tokenX, provider, million)
	assetBank.Mint(tokenY, provider, million)
	assetBank.Mint(native, provider, million)
	assetBank.Mint(tokenX, trader, million)
	assetBank.Mint(native, trader, million)
	assetBank.Mint(reward, account, million)

	sink := events.NewMemory()
	engine, err := exchange.New(exchange.Config{
		Params: exchange.Params{
			Admin:       admin,
			Account:     account,
			RewardAsset: reward,
			SwapFeeBps:  exchange.DefaultSwapFeeBps,
		},
		Oracle: priceOracle,
		Bank:   assetBank,
		Sink:   sink,
		Logger: logger.Named("exchange"),
	})
	if err != nil {
		return err
	}

	poolXY, err := engine.CreatePool(admin, tokenX, tokenY)
	if err != nil {
		return err
	}
	poolNativeY, err := engine.CreatePool(admin, native, tokenY)
	if err != nil {
		return err
	}

	if _, err := engine.Provide(provider, poolXY, math.NewInt(10_000)); err != nil {
		return err
	}
	if _, err := engine.Provide(provider, poolNativeY, math.NewInt(10_000)); err != nil {
		return err
	}

	if _, err := engine.Swap(exchange.SwapRequest{
		Caller:   trader,
		AssetIn:  tokenX,
		AssetOut: tokenY,
		AmountIn: math.NewInt(500),
		Value:    math.ZeroInt(),
	}); err != nil {
		return err
	}
	if _, err := engine.Swap(exchange.SwapRequest{
		Caller:   trader,
		AssetIn:  native,
		AssetOut: tokenY,
		AmountIn: math.NewInt(500),
		Value:    math.NewInt(500),
	}); err != nil {
		return err
	}

	if _, err := engine.ClaimRewards(provider); err != nil {
		return err
	}
	if engine.BurnablePool().IsPositive() {
		if err := engine.Burn(admin, engine.BurnablePool()); err != nil {
			return err
		}
	}

	sizeXY, _ := engine.PoolSize(poolXY)
	sizeNY, _ := engine.PoolSize(poolNativeY)
	record, _ := engine.Provider(provider)
	logger.Info("demo finished",
		zap.String("pool_xy_total_a", sizeXY.TotalA.String()),
		zap.String("pool_xy_total_b", sizeXY.TotalB.String()),
		zap.String("pool_native_y_total_a", sizeNY.TotalA.String()),
		zap.String("pool_native_y_total_b", sizeNY.TotalB.String()),
		zap.String("provider_total_earned", record.TotalEarned.String()),
		zap.String("platform_profit", engine.PlatformProfit().String()),
		zap.Int("audit_events", len(sink.All())),
	)
	return nil
}
