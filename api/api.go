// Package api provides the HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/execution"
	"github.com/tonroute/tonroute-go/feed"
	"github.com/tonroute/tonroute-go/quote"
	"github.com/tonroute/tonroute-go/registry"
	"github.com/tonroute/tonroute-go/router"
)

// Gas cost fallback when no backend estimator is reachable, in nanotons.
const (
	gasBase   = 10_000_000
	gasPerHop = 25_000_000
)

// tonDecimals scales nanoton gas figures to TON for display.
const tonDecimals = 9

// GasEstimator asks a chain backend for the gas cost of an n-hop swap.
type GasEstimator interface {
	EstimateGas(ctx context.Context, hops int) (*big.Int, error)
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Registries map[engine.Network]*registry.Registry
	Store      *quote.Store
	Exec       *execution.Engine
	Gas        map[engine.Network]GasEstimator
	Feeds      map[engine.Network]*feed.Processor

	QuoteTTL           time.Duration
	DefaultSlippageBps uint32
}

type handlers struct {
	deps Deps
}

// NewRouter builds the route table. Rate limiting, CORS and request logging
// wrap this handler at the server level, not here, so tests hit the routes
// directly.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps}

	r := httprouter.New()
	r.HandlerFunc(http.MethodPost, "/router/quote-swap", h.quoteSwap)
	r.HandlerFunc(http.MethodPost, "/router/execute-quote", h.executeQuote)
	r.HandlerFunc(http.MethodPost, "/amm/quote-liquidity", h.quoteLiquidity)
	r.HandlerFunc(http.MethodGet, "/amm/position-info", h.positionInfo)
	r.HandlerFunc(http.MethodGet, "/chains/status", h.chainStatus)
	r.HandlerFunc(http.MethodGet, "/chains/tokens", h.chainTokens)
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// snapshot resolves the network parameter to a registry snapshot.
func (h *handlers) snapshot(networkParam string) (*registry.Snapshot, engine.Network, error) {
	network, err := engine.ParseNetwork(networkParam)
	if err != nil {
		return nil, "", err
	}
	reg, ok := h.deps.Registries[network]
	if !ok {
		return nil, "", fmt.Errorf("network %q is not served", network)
	}
	return reg.Snapshot(), network, nil
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}

// slippageToBps converts a percentage (0-50, fractions allowed) to basis
// points, rejecting out-of-range values.
func slippageToBps(pct float64) (uint32, error) {
	if pct < 0 || pct > 50 {
		return 0, fmt.Errorf("slippage must be between 0 and 50 percent, got %g", pct)
	}
	return uint32(pct * 100), nil
}

func (h *handlers) estimateGas(ctx context.Context, network engine.Network, hops int) *big.Int {
	if est, ok := h.deps.Gas[network]; ok {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if gas, err := est.EstimateGas(ctx, hops); err == nil {
			return gas
		}
	}
	return big.NewInt(gasBase + gasPerHop*int64(hops))
}

// resolveToken accepts a symbol or an address.
func resolveToken(snap *registry.Snapshot, ref string) (registry.Token, bool) {
	if t, ok := snap.TokenBySymbol(ref); ok {
		return t, true
	}
	for _, t := range snap.Tokens() {
		if t.Address == ref {
			return t, true
		}
	}
	return registry.Token{}, false
}

type hopView struct {
	PoolAddress string  `json:"poolAddress"`
	PoolType    string  `json:"poolType"`
	TokenIn     string  `json:"tokenIn"`
	TokenOut    string  `json:"tokenOut"`
	AmountIn    string  `json:"amountIn"`
	AmountOut   string  `json:"amountOut"`
	PriceImpact float64 `json:"priceImpact"`
}

// hopViews renders hops with amounts scaled by each leg's token decimals.
func hopViews(snap *registry.Snapshot, hops []router.Hop) []hopView {
	views := make([]hopView, len(hops))
	for i, hop := range hops {
		tin, _ := snap.TokenByID(hop.TokenIn)
		tout, _ := snap.TokenByID(hop.TokenOut)
		views[i] = hopView{
			PoolAddress: hop.PoolAddress,
			PoolType:    string(hop.Curve),
			TokenIn:     hop.TokenInSymbol,
			TokenOut:    hop.TokenOutSymbol,
			AmountIn:    formatAmount(hop.AmountIn, tin.Decimals),
			AmountOut:   formatAmount(hop.AmountOut, tout.Decimals),
			PriceImpact: hop.PriceImpact,
		}
	}
	return views
}
