package api

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tonroute/tonroute-go/chains/ton"
	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/router"
)

type quoteSwapRequest struct {
	Network    string   `json:"network"`
	BaseToken  string   `json:"baseToken"`
	QuoteToken string   `json:"quoteToken"`
	Amount     string   `json:"amount"`
	Side       string   `json:"side"`
	Slippage   *float64 `json:"slippage"`
}

type quoteSwapResponse struct {
	QuoteID      string    `json:"quoteId"`
	Network      string    `json:"network"`
	Route        []hopView `json:"route"`
	AmountIn     string    `json:"amountIn"`
	AmountOut    string    `json:"amountOut"`
	AmountOutMin string    `json:"amountOutMin,omitempty"`
	AmountInMax  string    `json:"amountInMax,omitempty"`
	PriceImpact  float64   `json:"priceImpact"`
	GasEstimate  string    `json:"gasEstimate"`
	Slippage     float64   `json:"slippage"`
	TTL          int64     `json:"ttl"`
}

func (h *handlers) quoteSwap(w http.ResponseWriter, r *http.Request) {
	var req quoteSwapRequest
	if err := decodeBody(r, &req); err != nil {
		respError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.BaseToken == "" || req.QuoteToken == "" {
		respError(w, http.StatusBadRequest, "baseToken and quoteToken are required")
		return
	}

	snap, network, err := h.snapshot(req.Network)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	side, err := engine.ParseSide(req.Side)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	slippagePct := float64(h.deps.DefaultSlippageBps) / 100
	if req.Slippage != nil {
		slippagePct = *req.Slippage
	}
	slippageBps, err := slippageToBps(slippagePct)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	base, baseOK := resolveToken(snap, req.BaseToken)
	quoteTok, quoteOK := resolveToken(snap, req.QuoteToken)
	if !baseOK || !quoteOK {
		// Unknown tokens cannot be routed; same outcome as a disconnected pair.
		routesMissed.Inc()
		reportErr(w, router.ErrNoRoute)
		return
	}

	// The amount is denominated in the base token for both sides: exact
	// input when selling it, exact output when buying it.
	amount, err := parseAmount(req.Amount, base.Decimals)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	tokenIn, tokenOut := base.ID, quoteTok.ID
	if side == engine.SideBuy {
		tokenIn, tokenOut = quoteTok.ID, base.ID
	}

	route, err := router.Find(snap, tokenIn, tokenOut, amount, side)
	if err != nil {
		if errors.Is(err, router.ErrNoRoute) {
			routesMissed.Inc()
		}
		reportErr(w, err)
		return
	}
	routesFound.Inc()

	gas := h.estimateGas(r.Context(), network, len(route.Hops))
	q, err := h.deps.Store.Create(network, route, slippageBps, gas, h.deps.QuoteTTL)
	if err != nil {
		reportErr(w, err)
		return
	}

	inTok, _ := snap.TokenByID(route.TokenIn())
	outTok, _ := snap.TokenByID(route.TokenOut())

	resp := quoteSwapResponse{
		QuoteID:     q.ID,
		Network:     string(network),
		Route:       hopViews(snap, route.Hops),
		AmountIn:    formatAmount(q.AmountIn, inTok.Decimals),
		AmountOut:   formatAmount(q.AmountOut, outTok.Decimals),
		PriceImpact: q.PriceImpact,
		GasEstimate: q.GasEstimate.String(),
		Slippage:    slippagePct,
		TTL:         q.ExpiresAt.Unix(),
	}
	if q.AmountOutMin != nil {
		resp.AmountOutMin = formatAmount(q.AmountOutMin, outTok.Decimals)
	}
	if q.AmountInMax != nil {
		resp.AmountInMax = formatAmount(q.AmountInMax, inTok.Decimals)
	}

	log.Debug().
		Str("quote_id", q.ID).
		Str("side", string(side)).
		Int("hops", len(route.Hops)).
		Msg("quote issued")
	respJSON(w, resp)
}

type executeQuoteRequest struct {
	Network       string   `json:"network"`
	WalletAddress string   `json:"walletAddress"`
	QuoteID       string   `json:"quoteId"`
	MaxSlippage   *float64 `json:"maxSlippage"`
	GasLimit      string   `json:"gasLimit"`
	PriorityFee   string   `json:"priorityFee"`
}

type executeQuoteResponse struct {
	QuoteID        string    `json:"quoteId"`
	TxHash         string    `json:"txHash"`
	Network        string    `json:"network"`
	Hops           []hopView `json:"hops"`
	AmountIn       string    `json:"executedAmountIn"`
	AmountOut      string    `json:"executedAmountOut"`
	ExecutionPrice string    `json:"executionPrice"`
	PriceImpact    float64   `json:"priceImpact"`
	Fee            string    `json:"fee"`
	GasUsed        string    `json:"gasUsed"`
	GasCost        string    `json:"gasCost"`
	ExecutedAt     time.Time `json:"executedAt"`
}

func (h *handlers) executeQuote(w http.ResponseWriter, r *http.Request) {
	var req executeQuoteRequest
	if err := decodeBody(r, &req); err != nil {
		respError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.QuoteID == "" {
		respError(w, http.StatusBadRequest, "quoteId is required")
		return
	}

	wallet, err := ton.ValidateAddress(req.WalletAddress)
	if err != nil {
		respError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Default to the tolerance the quote was created with.
	var maxSlippageBps uint32
	if req.MaxSlippage != nil {
		if maxSlippageBps, err = slippageToBps(*req.MaxSlippage); err != nil {
			respError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		q, err := h.deps.Store.Get(req.QuoteID)
		if err != nil {
			reportErr(w, err)
			return
		}
		maxSlippageBps = q.SlippageBps
	}

	res, err := h.deps.Exec.Execute(r.Context(), req.QuoteID, maxSlippageBps, wallet)
	if err != nil {
		reportErr(w, err)
		return
	}

	snap, _, snapErr := h.snapshot(string(res.Network))
	if snapErr != nil {
		reportErr(w, snapErr)
		return
	}
	inTok, _ := snap.TokenByID(res.Hops[0].TokenIn)
	outTok, _ := snap.TokenByID(res.Hops[len(res.Hops)-1].TokenOut)

	// Pool fees are charged per hop on that hop's input; the headline figure
	// applies the summed rate to the route input.
	var feeBps int64
	for _, hop := range res.Hops {
		if pool, ok := snap.PoolByID(hop.PoolID); ok {
			feeBps += int64(pool.FeeBps)
		}
	}
	fee := new(big.Int).Mul(res.AmountIn, big.NewInt(feeBps))
	fee.Div(fee, big.NewInt(10000))

	log.Info().
		Str("quote_id", res.QuoteID).
		Str("tx_hash", res.TxHash).
		Msg("quote executed")
	respJSON(w, executeQuoteResponse{
		QuoteID:        res.QuoteID,
		TxHash:         res.TxHash,
		Network:        string(res.Network),
		Hops:           hopViews(snap, res.Hops),
		AmountIn:       formatAmount(res.AmountIn, inTok.Decimals),
		AmountOut:      formatAmount(res.AmountOut, outTok.Decimals),
		ExecutionPrice: formatPrice(res.AmountIn, inTok.Decimals, res.AmountOut, outTok.Decimals),
		PriceImpact:    res.PriceImpact,
		Fee:            formatAmount(fee, inTok.Decimals),
		GasUsed:        res.GasUsed.String(),
		GasCost:        formatAmount(res.GasUsed, tonDecimals),
		ExecutedAt:     res.ExecutedAt,
	})
}
