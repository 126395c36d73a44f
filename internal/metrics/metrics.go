package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set holds the exchange's prometheus collectors. Big-integer amounts are
// exported as float64 approximations; exact values live in the audit stream.
type Set struct {
	SwapsTotal   *prometheus.CounterVec
	SwapFailures prometheus.Counter
	LiquidityOps *prometheus.CounterVec
	PoolsCreated prometheus.Counter
	FeesAccrued  prometheus.Counter
}

// NewSet creates the collectors and registers them on reg.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		SwapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afriswap",
			Name:      "swaps_total",
			Help:      "Completed swaps by mode.",
		}, []string{"mode"}),
		SwapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "afriswap",
			Name:      "swap_failures_total",
			Help:      "Swap calls rejected or rolled back.",
		}),
		LiquidityOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "afriswap",
			Name:      "liquidity_ops_total",
			Help:      "Liquidity provisions and removals.",
		}, []string{"op"}),
		PoolsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "afriswap",
			Name:      "pools_created_total",
			Help:      "Pools registered since start.",
		}),
		FeesAccrued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "afriswap",
			Name:      "fees_accrued_total",
			Help:      "Approximate swap fees accrued, in reward-asset base units.",
		}),
	}
	reg.MustRegister(s.SwapsTotal, s.SwapFailures, s.LiquidityOps, s.PoolsCreated, s.FeesAccrued)
	return s
}
