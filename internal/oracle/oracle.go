package oracle

import (
	"fmt"
	"strings"
	"sync"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// Oracle supplies exchange-rate estimates between asset identifiers. The
// estimate is best effort; freshness is the oracle's responsibility, not the
// caller's.
type Oracle interface {
	Estimate(assetIn, assetOut common.Address, amountIn math.Int) (math.Int, error)
	NativeAssetID() common.Address
}

// Rate is a directed exchange rate: amountOut = amountIn * Num / Den.
type Rate struct {
	AssetIn  common.Address
	AssetOut common.Address
	Num      math.Int
	Den      math.Int
}

type pair struct {
	in  common.Address
	out common.Address
}

// Static is a fixed rate-table Oracle. Setting a rate for (A, B) also
// installs the reciprocal for (B, A). Same-asset estimates are identity.
type Static struct {
	mu     sync.RWMutex
	native common.Address
	rates  map[pair]Rate
}

// NewStatic builds a static oracle with the given native asset and rates.
func NewStatic(native common.Address, rates []Rate) (*Static, error) {
	s := &Static{
		native: native,
		rates:  make(map[pair]Rate, 2*len(rates)),
	}
	for _, r := range rates {
		if err := s.SetRate(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SetRate installs a directed rate and its reciprocal.
func (s *Static) SetRate(r Rate) error {
	if r.AssetIn == r.AssetOut {
		return fmt.Errorf("rate for identical assets %s", r.AssetIn)
	}
	if r.Num.IsNil() || r.Den.IsNil() || !r.Num.IsPositive() || !r.Den.IsPositive() {
		return fmt.Errorf("rate %s -> %s must be positive", r.AssetIn, r.AssetOut)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[pair{r.AssetIn, r.AssetOut}] = r
	s.rates[pair{r.AssetOut, r.AssetIn}] = Rate{
		AssetIn:  r.AssetOut,
		AssetOut: r.AssetIn,
		Num:      r.Den,
		Den:      r.Num,
	}
	return nil
}

// Estimate converts amountIn at the configured rate, truncating toward zero.
func (s *Static) Estimate(assetIn, assetOut common.Address, amountIn math.Int) (math.Int, error) {
	if assetIn == assetOut {
		return amountIn, nil
	}
	s.mu.RLock()
	r, ok := s.rates[pair{assetIn, assetOut}]
	s.mu.RUnlock()
	if !ok {
		return math.ZeroInt(), fmt.Errorf("no rate for %s -> %s", assetIn, assetOut)
	}
	return amountIn.Mul(r.Num).Quo(r.Den), nil
}

func (s *Static) NativeAssetID() common.Address {
	return s.native
}

// ParseRate parses "assetIn:assetOut:num:den" into a Rate. Used by config
// loading for --oracle-rate entries.
func ParseRate(spec string) (Rate, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 4 {
		return Rate{}, fmt.Errorf("rate %q: want assetIn:assetOut:num:den", spec)
	}
	if !common.IsHexAddress(parts[0]) || !common.IsHexAddress(parts[1]) {
		return Rate{}, fmt.Errorf("rate %q: bad asset address", spec)
	}
	num, ok := math.NewIntFromString(parts[2])
	if !ok {
		return Rate{}, fmt.Errorf("rate %q: bad numerator", spec)
	}
	den, ok := math.NewIntFromString(parts[3])
	if !ok {
		return Rate{}, fmt.Errorf("rate %q: bad denominator", spec)
	}
	return Rate{
		AssetIn:  common.HexToAddress(parts[0]),
		AssetOut: common.HexToAddress(parts[1]),
		Num:      num,
		Den:      den,
	}, nil
}
