package api

import (
	"net/http"

	"github.com/tonroute/tonroute-go/amm"
	"github.com/tonroute/tonroute-go/registry"
)

type quoteLiquidityRequest struct {
	Network     string `json:"network"`
	PoolAddress string `json:"poolAddress"`
	Operation   string `json:"operation"`
	Amount      string `json:"amount"`
}

type quoteLiquidityResponse struct {
	Operation   string `json:"operation"`
	PoolAddress string `json:"poolAddress"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	LPAmount    string `json:"lpAmount"`
	ShareBps    uint32 `json:"shareBps"`
}

func (h *handlers) quoteLiquidity(w http.ResponseWriter, r *http.Request) {
	var req quoteLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		respError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.PoolAddress == "" {
		respError(w, http.StatusBadRequest, "poolAddress is required")
		return
	}

	snap, _, err := h.snapshot(req.Network)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}
	pool, ok := snap.PoolByAddress(req.PoolAddress)
	if !ok {
		reportErr(w, amm.ErrPoolNotFound)
		return
	}
	t0, _ := snap.TokenByID(pool.Token0)
	t1, _ := snap.TokenByID(pool.Token1)

	var lq *amm.LiquidityQuote
	switch amm.Operation(req.Operation) {
	case amm.OpAdd:
		// Deposits are led by the token0 leg.
		amount, perr := parseAmount(req.Amount, t0.Decimals)
		if perr != nil {
			respError(w, http.StatusBadRequest, perr.Error())
			return
		}
		lq, err = amm.QuoteAdd(pool, amount)
	case amm.OpRemove:
		// LP amounts travel as raw units.
		amount, perr := parseAmount(req.Amount, 0)
		if perr != nil {
			respError(w, http.StatusBadRequest, perr.Error())
			return
		}
		lq, err = amm.QuoteRemove(pool, amount)
	default:
		respError(w, http.StatusBadRequest, "operation must be add or remove")
		return
	}
	if err != nil {
		if err == amm.ErrInvalidAmount {
			respError(w, http.StatusBadRequest, err.Error())
			return
		}
		reportErr(w, err)
		return
	}

	respJSON(w, quoteLiquidityResponse{
		Operation:   string(lq.Operation),
		PoolAddress: lq.PoolAddress,
		Amount0:     formatAmount(lq.Amount0, t0.Decimals),
		Amount1:     formatAmount(lq.Amount1, t1.Decimals),
		LPAmount:    lq.LPAmount.String(),
		ShareBps:    lq.ShareBps,
	})
}

type positionInfoResponse struct {
	PoolAddress string `json:"poolAddress"`
	PoolType    string `json:"poolType"`
	Token0      string `json:"token0"`
	Token1      string `json:"token1"`
	Reserve0    string `json:"reserve0"`
	Reserve1    string `json:"reserve1"`
	LPSupply    string `json:"lpSupply"`
	FeeBps      uint16 `json:"feeBps"`
}

func (h *handlers) positionInfo(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	snap, _, err := h.snapshot(query.Get("network"))
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}
	poolAddress := query.Get("pool")
	if poolAddress == "" {
		respError(w, http.StatusBadRequest, "pool query parameter is required")
		return
	}

	info, err := amm.Position(snap, poolAddress)
	if err != nil {
		reportErr(w, err)
		return
	}

	var t0, t1 registry.Token
	if pool, ok := snap.PoolByAddress(poolAddress); ok {
		t0, _ = snap.TokenByID(pool.Token0)
		t1, _ = snap.TokenByID(pool.Token1)
	}
	lpSupply := "0"
	if info.LPSupply != nil {
		lpSupply = info.LPSupply.String()
	}
	respJSON(w, positionInfoResponse{
		PoolAddress: info.PoolAddress,
		PoolType:    info.Curve,
		Token0:      info.Token0Symbol,
		Token1:      info.Token1Symbol,
		Reserve0:    formatAmount(info.Reserve0, t0.Decimals),
		Reserve1:    formatAmount(info.Reserve1, t1.Decimals),
		LPSupply:    lpSupply,
		FeeBps:      info.FeeBps,
	})
}
