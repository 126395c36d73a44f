package bank

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	asset = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	anna  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	ben   = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

func TestTransferMovesBalances(t *testing.T) {
	b := NewInMemory()
	b.Mint(asset, anna, math.NewInt(1_000))

	require.NoError(t, b.Transfer(asset, anna, ben, math.NewInt(400)))
	require.Equal(t, math.NewInt(600), b.Balance(asset, anna))
	require.Equal(t, math.NewInt(400), b.Balance(asset, ben))
}

func TestTransferInsufficientLeavesBalances(t *testing.T) {
	b := NewInMemory()
	b.Mint(asset, anna, math.NewInt(100))

	err := b.Transfer(asset, anna, ben, math.NewInt(101))
	require.Error(t, err)
	require.Equal(t, math.NewInt(100), b.Balance(asset, anna))
	require.True(t, b.Balance(asset, ben).IsZero())

	require.Error(t, b.Transfer(asset, anna, ben, math.NewInt(-1)))
}

func TestTransferHookFiresAfterMove(t *testing.T) {
	b := NewInMemory()
	b.Mint(asset, anna, math.NewInt(100))

	var seen math.Int
	b.SetHook(func(hookAsset, from, to common.Address, amount math.Int) {
		require.Equal(t, asset, hookAsset)
		require.Equal(t, anna, from)
		require.Equal(t, ben, to)
		// Balances have already moved when the hook runs.
		seen = b.Balance(asset, ben)
	})

	require.NoError(t, b.Transfer(asset, anna, ben, math.NewInt(30)))
	require.Equal(t, math.NewInt(30), seen)

	b.SetHook(nil)
	require.NoError(t, b.Transfer(asset, anna, ben, math.NewInt(10)))
	require.Equal(t, math.NewInt(30), seen)
}

func TestBurn(t *testing.T) {
	b := NewInMemory()
	b.Mint(asset, anna, math.NewInt(50))

	require.NoError(t, b.Burn(asset, anna, math.NewInt(20)))
	require.Equal(t, math.NewInt(30), b.Balance(asset, anna))

	require.Error(t, b.Burn(asset, anna, math.NewInt(31)))
	require.Equal(t, math.NewInt(30), b.Balance(asset, anna))
}

func TestBalanceUnknownAccount(t *testing.T) {
	b := NewInMemory()
	require.True(t, b.Balance(asset, ben).IsZero())
}
