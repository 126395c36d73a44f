package exchange

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"afriswap/internal/bank"
	"afriswap/internal/events"
	"afriswap/internal/metrics"
	"afriswap/internal/model"
	"afriswap/internal/oracle"
)

// Engine is the exchange core: pool registry, liquidity ledger, fee
// distributor, and swap router behind a single entry surface.
//
// Execution model: one call at a time. Callers are expected to serialize
// (the HTTP layer funnels every request through one queue); on top of that,
// every entry point holds a call-scoped busy flag so that a bank transfer
// hook re-invoking the engine mid-call is rejected with ErrReentrantCall
// instead of observing half-applied state. Within a call the order is
// checks, then effects, then interactions: internal bookkeeping is fully
// applied before any bank transfer runs, and a journal unwinds it all if a
// transfer still fails.
type Engine struct {
	busy   atomic.Bool
	logger *zap.Logger

	oracle  oracle.Oracle
	bank    bank.Bank
	sink    events.Sink
	metrics *metrics.Set

	params Params

	// Arenas. All cross-references are ids, never pointers, so deleting a
	// position can not leave a dangling reference.
	pools      map[uint64]*model.Pool
	poolByPair map[[2]common.Address]uint64
	positions  map[uint64]*model.Position
	providers  map[common.Address]*model.Provider

	nextPoolID     uint64
	nextPositionID uint64

	// Fee distributor totals, denominated in the reward asset.
	platformProfit math.Int
	burnablePool   math.Int

	// Events buffered during the current call, flushed on commit only.
	pending []model.Event

	now func() time.Time
}

// Config wires an Engine's collaborators.
type Config struct {
	Params  Params
	Oracle  oracle.Oracle
	Bank    bank.Bank
	Sink    events.Sink
	Metrics *metrics.Set
	Logger  *zap.Logger
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Params.validate(); err != nil {
		return nil, err
	}
	if cfg.Oracle == nil {
		return nil, errors.New("oracle is required")
	}
	if cfg.Bank == nil {
		return nil, errors.New("bank is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Engine{
		logger:         cfg.Logger,
		oracle:         cfg.Oracle,
		bank:           cfg.Bank,
		sink:           cfg.Sink,
		metrics:        cfg.Metrics,
		params:         cfg.Params,
		pools:          make(map[uint64]*model.Pool),
		poolByPair:     make(map[[2]common.Address]uint64),
		positions:      make(map[uint64]*model.Position),
		providers:      make(map[common.Address]*model.Provider),
		platformProfit: math.ZeroInt(),
		burnablePool:   math.ZeroInt(),
		now:            time.Now,
	}, nil
}

// begin claims the call-scoped guard. A nested call from a transfer hook
// finds the flag set and is rejected.
func (e *Engine) begin() error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	e.pending = e.pending[:0]
	return nil
}

func (e *Engine) end() {
	e.busy.Store(false)
}

// emit buffers an audit event for the current call. Events only reach the
// sink once the call commits.
func (e *Engine) emit(ev model.Event) {
	ev.ID = uuid.NewString()
	ev.Timestamp = e.now().UnixNano()
	e.pending = append(e.pending, ev)
}

// flushEvents delivers the buffered events after a successful call. Sink
// failures are logged, never surfaced: the operation has already committed.
func (e *Engine) flushEvents() {
	if len(e.pending) == 0 {
		return
	}
	batch := make([]model.Event, len(e.pending))
	copy(batch, e.pending)
	e.pending = e.pending[:0]
	if err := e.sink.PutEventBatch(batch); err != nil {
		e.logger.Warn("event sink write failed",
			zap.Int("events", len(batch)),
			zap.Error(err),
		)
	}
}

// discardEvents drops buffered events after a failed call.
func (e *Engine) discardEvents() {
	e.pending = e.pending[:0]
}

// maxAmountBits bounds accepted amounts so the oracle and fee arithmetic
// stays inside math.Int's 256-bit range.
const maxAmountBits = 128

// validAmount reports whether an externally supplied amount is positive and
// small enough for the downstream multiplications.
func validAmount(amount math.Int) bool {
	return !amount.IsNil() && amount.IsPositive() && amount.BigInt().BitLen() <= maxAmountBits
}

// transfer runs a bank transfer, mapping any collaborator failure to
// ErrTransferFailed.
func (e *Engine) transfer(asset, from, to common.Address, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := e.bank.Transfer(asset, from, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// transferJournaled runs a bank transfer and records a compensating reverse
// transfer in the journal, so a later failure in the same call hands the
// moved asset back. The final transfer of a call does not need this; only
// legs that another leg can still fail behind do.
func (e *Engine) transferJournaled(j *journal, asset, from, to common.Address, amount math.Int) error {
	if err := e.transfer(asset, from, to, amount); err != nil {
		return err
	}
	j.record(func() {
		if amount.IsZero() {
			return
		}
		if err := e.bank.Transfer(asset, to, from, amount); err != nil {
			e.logger.Error("compensating transfer failed",
				zap.String("asset", asset.Hex()),
				zap.String("holder", to.Hex()),
				zap.String("amount", amount.String()),
				zap.Error(err),
			)
		}
	})
	return nil
}

// provider returns the record for addr, lazily creating it. Creation is
// journaled so a later failure removes the empty record again.
func (e *Engine) provider(j *journal, addr common.Address) *model.Provider {
	p, ok := e.providers[addr]
	if ok {
		return p
	}
	p = &model.Provider{
		Addr:         addr,
		TotalEarned:  math.ZeroInt(),
		Withdrawable: math.ZeroInt(),
	}
	e.providers[addr] = p
	j.record(func() { delete(e.providers, addr) })
	return p
}

// Provider returns a copy of a provider record.
func (e *Engine) Provider(addr common.Address) (model.Provider, bool) {
	p, ok := e.providers[addr]
	if !ok {
		return model.Provider{}, false
	}
	out := *p
	out.PositionIDs = append([]uint64(nil), p.PositionIDs...)
	return out, true
}

// Position returns a copy of a position record.
func (e *Engine) Position(id uint64) (model.Position, bool) {
	p, ok := e.positions[id]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}
