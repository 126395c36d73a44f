package server

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"afriswap/internal/bank"
	"afriswap/internal/events"
	"afriswap/internal/exchange"
	"afriswap/internal/oracle"
)

var (
	nativeAsset = common.HexToAddress("0x0000000000000000000000000000000000000001")
	rewardAsset = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenX      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenY      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	admin       = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	reserveAcct = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	alice       = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

type testServer struct {
	srv *Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	priceOracle, err := oracle.NewStatic(nativeAsset, []oracle.Rate{
		{AssetIn: tokenX, AssetOut: tokenY, Num: math.NewInt(2), Den: math.NewInt(1)},
		{AssetIn: tokenY, AssetOut: rewardAsset, Num: math.NewInt(1), Den: math.NewInt(1)},
	})
	require.NoError(t, err)

	b := bank.NewInMemory()
	funded := math.NewInt(10_000_000)
	for _, acct := range []common.Address{alice, bob} {
		b.Mint(tokenX, acct, funded)
		b.Mint(tokenY, acct, funded)
	}
	b.Mint(rewardAsset, reserveAcct, funded)

	engine, err := exchange.New(exchange.Config{
		Params: exchange.Params{
			Admin:       admin,
			Account:     reserveAcct,
			RewardAsset: rewardAsset,
			SwapFeeBps:  exchange.DefaultSwapFeeBps,
		},
		Oracle: priceOracle,
		Bank:   b,
		Sink:   events.NewMemory(),
	})
	require.NoError(t, err)

	return &testServer{srv: New("127.0.0.1:0", engine, nil, nil, zap.NewNop())}
}

func (ts *testServer) do(t *testing.T, method, path string, from common.Address, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if from != (common.Address{}) {
		req.Header.Set("X-Caller", from.Hex())
	}
	rec := httptest.NewRecorder()
	ts.srv.http.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createPool(t *testing.T) uint64 {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/v1/admin/pools", admin, map[string]string{
		"asset_a": tokenX.Hex(),
		"asset_b": tokenY.Hex(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotZero(t, resp["pool_id"])
	return resp["pool_id"]
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePool(t *testing.T) {
	ts := newTestServer(t)
	poolID := ts.createPool(t)

	rec := ts.do(t, http.MethodGet, "/v1/pools", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pools []poolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pools))
	require.Len(t, pools, 1)
	require.Equal(t, poolID, pools[0].Pool.ID)

	rec = ts.do(t, http.MethodGet, "/v1/pools/99", common.Address{}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePoolForbiddenForNonAdmin(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/admin/pools", alice, map[string]string{
		"asset_a": tokenX.Hex(),
		"asset_b": tokenY.Hex(),
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProvideAndSwapFlow(t *testing.T) {
	ts := newTestServer(t)
	poolID := ts.createPool(t)

	rec := ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id":  poolID,
		"amount_a": "1000000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var provided map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &provided))
	positionID := provided["position_id"]
	require.NotZero(t, positionID)

	rec = ts.do(t, http.MethodPost, "/v1/swap", bob, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": "10000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var swapped swapResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &swapped))
	require.Equal(t, "20000", swapped.AmountOut)
	require.Equal(t, "40", swapped.Fee)
	require.Equal(t, poolID, swapped.PoolID)

	rec = ts.do(t, http.MethodGet, "/v1/providers/"+alice.Hex(), common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/rewards/claim", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var claimed map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claimed))
	require.Equal(t, "32", claimed["claimed"])
}

func TestRemovePosition(t *testing.T) {
	ts := newTestServer(t)
	poolID := ts.createPool(t)

	rec := ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id":  poolID,
		"amount_a": "100000",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var provided map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &provided))

	// Only the owner can remove.
	rec = ts.do(t, http.MethodDelete, "/v1/positions/1", bob, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/v1/positions/1", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var removed map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	require.Equal(t, "100000", removed["amount_a"])
	require.Equal(t, "200000", removed["amount_b"])

	rec = ts.do(t, http.MethodDelete, "/v1/positions/1", alice, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallerHeaderRequired(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/v1/swap", common.Address{}, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": "10000",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := newTestServer(t)
	poolID := ts.createPool(t)

	// Unknown pool on provide.
	rec := ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id":  uint64(99),
		"amount_a": "100000",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Below the swap minimum.
	rec = ts.do(t, http.MethodPost, "/v1/swap", bob, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": "10",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Pool too small for the estimated output.
	rec = ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id":  poolID,
		"amount_a": "100",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/v1/swap", bob, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": "100000",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Unknown fields are rejected.
	rec = ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id": poolID,
		"bogus":   true,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOversizedAmountDoesNotWedgeServer(t *testing.T) {
	ts := newTestServer(t)
	poolID := ts.createPool(t)

	rec := ts.do(t, http.MethodPost, "/v1/liquidity", alice, map[string]any{
		"pool_id":  poolID,
		"amount_a": "100000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// A parseable 201-bit amount is rejected cleanly.
	huge := new(big.Int).Lsh(big.NewInt(1), 200).String()
	rec = ts.do(t, http.MethodPost, "/v1/swap", bob, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": huge,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// And the server still serves the next request.
	rec = ts.do(t, http.MethodPost, "/v1/swap", bob, map[string]string{
		"asset_in":  tokenX.Hex(),
		"asset_out": tokenY.Hex(),
		"amount_in": "10000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAdminFeeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/admin/fee", admin, map[string]uint32{"bps": 50})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/admin/fee", alice, map[string]uint32{"bps": 50})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/v1/admin/fee", admin, map[string]uint32{"bps": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
