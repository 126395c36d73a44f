package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"afriswap/internal/bank"
	"afriswap/internal/config"
	"afriswap/internal/events"
	"afriswap/internal/events/postgres"
	"afriswap/internal/exchange"
	"afriswap/internal/metrics"
	"afriswap/internal/oracle"
	"afriswap/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:          "afriswapd",
		Short:        "Oracle-priced AMM exchange daemon",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the exchange API server",
		RunE:  runServer,
	}

	runCmd.Flags().String("listen", ":8080", "HTTP listen address")
	runCmd.Flags().String("admin", "", "administrator address")
	runCmd.Flags().String("account", "", "exchange reserve account address")
	runCmd.Flags().String("native-asset", "", "native asset address")
	runCmd.Flags().String("reward-asset", "", "reward asset address")
	runCmd.Flags().Uint32("swap-fee-bps", exchange.DefaultSwapFeeBps, "swap fee in basis points")
	runCmd.Flags().StringSlice("oracle-rate", nil, "oracle rates assetIn:assetOut:num:den (comma-separated)")
	runCmd.Flags().StringSlice("mint", nil, "seed balances asset:account:amount (comma-separated)")
	runCmd.Flags().String("events-out", "./data/events.jsonl", "audit events JSONL path")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN for the audit event store")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted end-to-end scenario against an in-memory bank",
		RunE:  runDemo,
	}
	demoCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(demoCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := loadParams(cfg)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(cfg.NativeAsset) {
		return fmt.Errorf("native-asset address is required")
	}

	rates := make([]oracle.Rate, 0, len(cfg.OracleRates))
	for _, spec := range cfg.OracleRates {
		rate, err := oracle.ParseRate(spec)
		if err != nil {
			return err
		}
		rates = append(rates, rate)
	}
	priceOracle, err := oracle.NewStatic(common.HexToAddress(cfg.NativeAsset), rates)
	if err != nil {
		return err
	}

	assetBank := bank.NewInMemory()
	mintSpecs, _ := cmd.Flags().GetStringSlice("mint")
	if err := seedBalances(assetBank, mintSpecs); err != nil {
		return err
	}

	var sinks events.Multi
	if cfg.EventsOut != "" {
		sinks = append(sinks, events.NewJsonlSink(cfg.EventsOut))
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
	}
	var sink events.Sink = sinks
	if len(sinks) == 0 {
		sink = events.Nop{}
	}

	registry := prometheus.NewRegistry()
	metricSet := metrics.NewSet(registry)

	engine, err := exchange.New(exchange.Config{
		Params:  params,
		Oracle:  priceOracle,
		Bank:    assetBank,
		Sink:    sink,
		Metrics: metricSet,
		Logger:  logger.Named("exchange"),
	})
	if err != nil {
		return err
	}

	logger.Info("exchange start",
		zap.String("listen", cfg.ListenAddr),
		zap.String("admin", params.Admin.Hex()),
		zap.String("reward_asset", params.RewardAsset.Hex()),
		zap.Uint32("swap_fee_bps", params.SwapFeeBps),
		zap.Int("oracle_rates", len(rates)),
		zap.String("events_out", cfg.EventsOut),
		zap.Bool("postgres", cfg.PgDSN != ""),
	)

	srv := server.New(cfg.ListenAddr, engine, metricSet, registry, logger.Named("http"))
	return srv.Run(ctx)
}

func loadParams(cfg config.Config) (exchange.Params, error) {
	if !common.IsHexAddress(cfg.Admin) {
		return exchange.Params{}, fmt.Errorf("admin address is required")
	}
	if !common.IsHexAddress(cfg.Account) {
		return exchange.Params{}, fmt.Errorf("account address is required")
	}
	if !common.IsHexAddress(cfg.RewardAsset) {
		return exchange.Params{}, fmt.Errorf("reward-asset address is required")
	}
	return exchange.Params{
		Admin:       common.HexToAddress(cfg.Admin),
		Account:     common.HexToAddress(cfg.Account),
		RewardAsset: common.HexToAddress(cfg.RewardAsset),
		SwapFeeBps:  cfg.SwapFeeBps,
	}, nil
}

// seedBalances applies "asset:account:amount" mint entries to the bank.
func seedBalances(b *bank.InMemory, specs []string) error {
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return fmt.Errorf("mint %q: want asset:account:amount", spec)
		}
		if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[1]) {
			return fmt.Errorf("mint %q: bad address", spec)
		}
		amount, ok := math.NewIntFromString(parts[2])
		if !ok || !amount.IsPositive() {
			return fmt.Errorf("mint %q: bad amount", spec)
		}
		b.Mint(common.HexToAddress(parts[0]), common.HexToAddress(parts[1]), amount)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
