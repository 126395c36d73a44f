package exchange

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"afriswap/internal/model"
)

// CreatePool registers a pool for the unordered (assetA, assetB) pair and
// returns its id. Creation is idempotent: if a pool for the pair already
// exists the call is a no-op returning 0, not an error. Admin only.
func (e *Engine) CreatePool(caller, assetA, assetB common.Address) (uint64, error) {
	if err := e.begin(); err != nil {
		return 0, err
	}
	defer e.end()

	if caller != e.params.Admin {
		return 0, ErrUnauthorized
	}
	if assetA == (common.Address{}) || assetB == (common.Address{}) || assetA == assetB {
		return 0, ErrInvalidAsset
	}
	if e.findPool(assetA, assetB) != 0 {
		return 0, nil
	}

	e.nextPoolID++
	pool := &model.Pool{
		ID:     e.nextPoolID,
		AssetA: assetA,
		AssetB: assetB,
	}
	e.pools[pool.ID] = pool
	e.poolByPair[[2]common.Address{assetA, assetB}] = pool.ID

	if e.metrics != nil {
		e.metrics.PoolsCreated.Inc()
	}
	e.logger.Info("pool created",
		zap.Uint64("pool_id", pool.ID),
		zap.String("asset_a", assetA.Hex()),
		zap.String("asset_b", assetB.Hex()),
	)
	e.emit(model.Event{
		Type:     model.EventPoolCreated,
		Actor:    caller.Hex(),
		PoolID:   pool.ID,
		AssetIn:  assetA.Hex(),
		AssetOut: assetB.Hex(),
	})
	e.flushEvents()
	return pool.ID, nil
}

// FindPool resolves the pool id for an asset pair, 0 if absent. The pair is
// unordered, so both orderings are checked. Unrestricted.
func (e *Engine) FindPool(assetA, assetB common.Address) uint64 {
	return e.findPool(assetA, assetB)
}

func (e *Engine) findPool(assetA, assetB common.Address) uint64 {
	if id, ok := e.poolByPair[[2]common.Address{assetA, assetB}]; ok {
		return id
	}
	if id, ok := e.poolByPair[[2]common.Address{assetB, assetA}]; ok {
		return id
	}
	return 0
}

// Pool returns a copy of a pool record.
func (e *Engine) Pool(id uint64) (model.Pool, bool) {
	pool, ok := e.pools[id]
	if !ok {
		return model.Pool{}, false
	}
	out := *pool
	out.PositionIDs = append([]uint64(nil), pool.PositionIDs...)
	return out, true
}

// Pools lists every pool, ordered by id.
func (e *Engine) Pools() []model.Pool {
	out := make([]model.Pool, 0, len(e.pools))
	for id := uint64(1); id <= e.nextPoolID; id++ {
		if pool, ok := e.pools[id]; ok {
			p := *pool
			p.PositionIDs = append([]uint64(nil), pool.PositionIDs...)
			out = append(out, p)
		}
	}
	return out
}
