package bank

import (
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// Bank is the fungible-asset transfer collaborator consumed by the exchange.
// Failures are non-exceptional and must be surfaced to the caller, never
// swallowed.
type Bank interface {
	Transfer(asset, from, to common.Address, amount math.Int) error
	Burn(asset, from common.Address, amount math.Int) error
	Balance(asset, account common.Address) math.Int
}

// TransferHook observes completed transfers. Hooks run after balances have
// moved and may call back into arbitrary code, which is exactly why the
// exchange carries a re-entry guard.
type TransferHook func(asset, from, to common.Address, amount math.Int)

// InMemory is a process-local Bank keeping per-asset, per-account balances.
type InMemory struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]math.Int
	hook     TransferHook
}

func NewInMemory() *InMemory {
	return &InMemory{
		balances: make(map[common.Address]map[common.Address]math.Int),
	}
}

// SetHook installs a transfer hook. Passing nil removes it.
func (b *InMemory) SetHook(hook TransferHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hook = hook
}

// Mint credits an account out of thin air. Test and demo setup only.
func (b *InMemory) Mint(asset, to common.Address, amount math.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(asset, to, amount)
}

// Transfer moves amount of asset between accounts. It fails when the source
// balance is insufficient and leaves balances untouched on failure.
func (b *InMemory) Transfer(asset, from, to common.Address, amount math.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer of negative amount %s", amount)
	}
	b.mu.Lock()
	bal := b.balance(asset, from)
	if bal.LT(amount) {
		b.mu.Unlock()
		return fmt.Errorf("insufficient %s balance: have %s, need %s", asset, bal, amount)
	}
	b.balances[asset][from] = bal.Sub(amount)
	b.credit(asset, to, amount)
	hook := b.hook
	b.mu.Unlock()

	if hook != nil {
		hook(asset, from, to, amount)
	}
	return nil
}

// Burn destroys amount of asset held by from.
func (b *InMemory) Burn(asset, from common.Address, amount math.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("burn of negative amount %s", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(asset, from)
	if bal.LT(amount) {
		return fmt.Errorf("insufficient %s balance: have %s, need %s", asset, bal, amount)
	}
	b.balances[asset][from] = bal.Sub(amount)
	return nil
}

// Balance reports the held amount, zero for unknown accounts.
func (b *InMemory) Balance(asset, account common.Address) math.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(asset, account)
}

func (b *InMemory) balance(asset, account common.Address) math.Int {
	accounts, ok := b.balances[asset]
	if !ok {
		return math.ZeroInt()
	}
	bal, ok := accounts[account]
	if !ok {
		return math.ZeroInt()
	}
	return bal
}

func (b *InMemory) credit(asset, to common.Address, amount math.Int) {
	accounts, ok := b.balances[asset]
	if !ok {
		accounts = make(map[common.Address]math.Int)
		b.balances[asset] = accounts
	}
	bal, ok := accounts[to]
	if !ok {
		bal = math.ZeroInt()
	}
	accounts[to] = bal.Add(amount)
}
