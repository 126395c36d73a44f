package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ListenAddr string

	Admin       string
	Account     string
	NativeAsset string
	RewardAsset string
	SwapFeeBps  uint32

	// OracleRates are "assetIn:assetOut:num:den" entries for the static
	// price oracle.
	OracleRates []string

	EventsOut string
	PgDSN     string
	LogLevel  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AFRISWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("swap-fee-bps", uint32(20))
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		ListenAddr:  v.GetString("listen"),
		Admin:       v.GetString("admin"),
		Account:     v.GetString("account"),
		NativeAsset: v.GetString("native-asset"),
		RewardAsset: v.GetString("reward-asset"),
		SwapFeeBps:  v.GetUint32("swap-fee-bps"),
		OracleRates: getStringSlice(v, "oracle-rate"),
		EventsOut:   v.GetString("events-out"),
		PgDSN:       v.GetString("pg-dsn"),
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
