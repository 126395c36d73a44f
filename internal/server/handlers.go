package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"afriswap/internal/exchange"
	"afriswap/internal/model"
)

// caller resolves the acting identity from the X-Caller header. The demo
// deployment trusts the fronting proxy for authentication.
func caller(r *http.Request) (common.Address, error) {
	raw := r.Header.Get("X-Caller")
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("missing or malformed X-Caller header")
	}
	return common.HexToAddress(raw), nil
}

func decodeBody(r *http.Request, into any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}

func parseAmount(raw string) (math.Int, error) {
	amount, ok := math.NewIntFromString(raw)
	if !ok {
		return math.ZeroInt(), fmt.Errorf("malformed amount %q", raw)
	}
	return amount, nil
}

type swapRequest struct {
	AssetIn  string `json:"asset_in"`
	AssetOut string `json:"asset_out"`
	AmountIn string `json:"amount_in"`
	Value    string `json:"value,omitempty"`
}

type swapResponse struct {
	PoolID    uint64 `json:"pool_id"`
	Mode      string `json:"mode"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Fee       string `json:"fee"`
	Timestamp int64  `json:"ts"`
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !common.IsHexAddress(req.AssetIn) || !common.IsHexAddress(req.AssetOut) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed asset address"})
		return
	}
	amountIn, err := parseAmount(req.AmountIn)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	value := math.ZeroInt()
	if req.Value != "" {
		if value, err = parseAmount(req.Value); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	var res exchange.SwapResult
	s.withEngine(func() {
		res, err = s.engine.Swap(exchange.SwapRequest{
			Caller:   from,
			AssetIn:  common.HexToAddress(req.AssetIn),
			AssetOut: common.HexToAddress(req.AssetOut),
			AmountIn: amountIn,
			Value:    value,
		})
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.SwapFailures.Inc()
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, swapResponse{
		PoolID:    res.PoolID,
		Mode:      string(res.Mode),
		AmountIn:  res.AmountIn.String(),
		AmountOut: res.AmountOut.String(),
		Fee:       res.Fee.String(),
		Timestamp: res.Timestamp,
	})
}

type provideRequest struct {
	PoolID  uint64 `json:"pool_id"`
	AmountA string `json:"amount_a"`
}

func (s *Server) handleProvide(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req provideRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amountA, err := parseAmount(req.AmountA)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var positionID uint64
	s.withEngine(func() {
		positionID, err = s.engine.Provide(from, req.PoolID, amountA)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"position_id": positionID})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed position id"})
		return
	}

	var amountA, amountB math.Int
	s.withEngine(func() {
		amountA, amountB, err = s.engine.Remove(from, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount_a": amountA.String(),
		"amount_b": amountB.String(),
	})
}

type poolResponse struct {
	Pool   model.Pool `json:"pool"`
	TotalA string     `json:"total_a"`
	TotalB string     `json:"total_b"`
}

func (s *Server) handleListPools(w http.ResponseWriter, _ *http.Request) {
	var out []poolResponse
	s.withEngine(func() {
		pools := s.engine.Pools()
		out = make([]poolResponse, 0, len(pools))
		for _, pool := range pools {
			size, err := s.engine.PoolSize(pool.ID)
			if err != nil {
				continue
			}
			out = append(out, poolResponse{Pool: pool, TotalA: size.TotalA.String(), TotalB: size.TotalB.String()})
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed pool id"})
		return
	}
	var (
		pool model.Pool
		size model.PoolSize
		ok   bool
	)
	s.withEngine(func() {
		if pool, ok = s.engine.Pool(id); ok {
			size, _ = s.engine.PoolSize(id)
		}
	})
	if !ok {
		writeError(w, exchange.ErrPoolNotFound)
		return
	}
	writeJSON(w, http.StatusOK, poolResponse{Pool: pool, TotalA: size.TotalA.String(), TotalB: size.TotalB.String()})
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["addr"]
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed provider address"})
		return
	}
	var (
		provider model.Provider
		ok       bool
	)
	s.withEngine(func() {
		provider, ok = s.engine.Provider(common.HexToAddress(raw))
	})
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "provider not found"})
		return
	}
	writeJSON(w, http.StatusOK, provider)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var claimed math.Int
	s.withEngine(func() {
		claimed, err = s.engine.ClaimRewards(from)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"claimed": claimed.String()})
}

type autoStakeRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleAutoStake(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req autoStakeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withEngine(func() {
		err = s.engine.SetAutoStake(from, req.Enabled)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createPoolRequest struct {
	AssetA string `json:"asset_a"`
	AssetB string `json:"asset_b"`
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req createPoolRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !common.IsHexAddress(req.AssetA) || !common.IsHexAddress(req.AssetB) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed asset address"})
		return
	}
	var id uint64
	s.withEngine(func() {
		id, err = s.engine.CreatePool(from, common.HexToAddress(req.AssetA), common.HexToAddress(req.AssetB))
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"pool_id": id})
}

type setFeeRequest struct {
	Bps uint32 `json:"bps"`
}

func (s *Server) handleSetFee(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req setFeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withEngine(func() {
		err = s.engine.SetSwapFee(from, req.Bps)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type withdrawRequest struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req withdrawRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if !common.IsHexAddress(req.Recipient) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed recipient address"})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withEngine(func() {
		err = s.engine.Withdraw(from, amount, common.HexToAddress(req.Recipient))
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type burnRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	from, err := caller(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req burnRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.withEngine(func() {
		err = s.engine.Burn(from, amount)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
