// Package execution drives consumed quotes to settlement: it re-prices the
// stored route against fresh reserves, enforces the quote's slippage bound,
// consumes the quote exactly once and hands the trade to the chain backend.
package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/tonroute/tonroute-go/curve"
	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/quote"
	"github.com/tonroute/tonroute-go/registry"
	"github.com/tonroute/tonroute-go/router"
)

var (
	// ErrSlippageExceeded is returned when fresh reserves price the route
	// outside the quote's bound. The quote is left unconsumed.
	ErrSlippageExceeded = errors.New("price moved beyond slippage tolerance")
	// ErrRouteGone is returned when a pool of the quoted route no longer
	// exists in the current snapshot.
	ErrRouteGone = errors.New("quoted route is no longer available")
	// ErrSettlementFailed is returned when the chain backend rejects the
	// trade or stays unreachable through all retries. The quote stays
	// consumed; the caller must request a new one.
	ErrSettlementFailed = errors.New("settlement failed")
	// ErrSettlementTimeout is returned when the backend does not answer
	// within the settlement deadline.
	ErrSettlementTimeout = errors.New("settlement timed out")
)

// ErrUpstream marks transient backend failures worth retrying. Chain
// clients wrap their network-level errors with it.
var ErrUpstream = errors.New("upstream unavailable")

// SnapshotSource yields a consistent point-in-time view of a network's pools.
type SnapshotSource interface {
	Snapshot(network engine.Network) (*registry.Snapshot, error)
}

// SettleRequest carries everything the chain backend needs to submit a swap.
// AmountOutMin bounds SELL trades; AmountInMax bounds BUY trades.
type SettleRequest struct {
	Network      engine.Network
	Wallet       string
	Route        *router.Route
	AmountIn     *big.Int
	AmountOutMin *big.Int
	AmountInMax  *big.Int
}

// SettleResult is the backend's acknowledgement of a submitted swap.
type SettleResult struct {
	TxHash  string
	GasUsed *big.Int
}

// Settlement submits priced swaps to a chain backend.
type Settlement interface {
	Settle(ctx context.Context, req SettleRequest) (*SettleResult, error)
}

// Result is the outcome of a settled quote.
type Result struct {
	QuoteID     string         `json:"quoteId"`
	TxHash      string         `json:"txHash"`
	Hops        []router.Hop   `json:"hops"`
	AmountIn    *big.Int       `json:"amountIn"`
	AmountOut   *big.Int       `json:"amountOut"`
	PriceImpact float64        `json:"priceImpact"`
	GasUsed     *big.Int       `json:"gasUsed"`
	ExecutedAt  time.Time      `json:"executedAt"`
	Network     engine.Network `json:"network"`
}

// Engine executes quotes. Safe for concurrent use.
type Engine struct {
	store      *quote.Store
	source     SnapshotSource
	settlement Settlement

	settleTimeout time.Duration
	retryAttempts uint
	retryDelay    time.Duration
}

// Option adjusts an Engine.
type Option func(*Engine)

// WithSettleTimeout bounds each settlement attempt.
func WithSettleTimeout(d time.Duration) Option {
	return func(e *Engine) { e.settleTimeout = d }
}

// WithRetry sets the transient-failure retry policy.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(e *Engine) {
		e.retryAttempts = attempts
		e.retryDelay = delay
	}
}

// NewEngine wires an execution engine over the quote store, a snapshot
// source for fresh reserves and the chain settlement backend.
func NewEngine(store *quote.Store, source SnapshotSource, settlement Settlement, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		source:        source,
		settlement:    settlement,
		settleTimeout: 10 * time.Second,
		retryAttempts: 3,
		retryDelay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute settles the quote against current reserves. maxSlippageBps bounds
// how far the repriced amounts may deviate from the quoted ones. The gate
// runs before consumption, so a rejected execution leaves the quote usable
// until it expires; any settlement outcome after consumption does not.
func (e *Engine) Execute(ctx context.Context, quoteID string, maxSlippageBps uint32, wallet string) (*Result, error) {
	q, err := e.store.Get(quoteID)
	if err != nil {
		return nil, err
	}

	snap, err := e.source.Snapshot(q.Network)
	if err != nil {
		return nil, err
	}

	hops, amountIn, amountOut, err := e.reprice(snap, q)
	if err != nil {
		return nil, err
	}
	if err := checkBound(q, maxSlippageBps, amountIn, amountOut); err != nil {
		return nil, err
	}

	if _, err := e.store.Consume(quoteID); err != nil {
		return nil, err
	}

	req := SettleRequest{
		Network:      q.Network,
		Wallet:       wallet,
		Route:        q.Route,
		AmountIn:     amountIn,
		AmountOutMin: q.AmountOutMin,
		AmountInMax:  q.AmountInMax,
	}
	res, err := e.settle(ctx, req)
	if err != nil {
		settlementFailures.Inc()
		log.Error().Err(err).Str("quote_id", quoteID).Msg("settlement failed after consume")
		return nil, err
	}

	executed.Inc()
	return &Result{
		QuoteID:     q.ID,
		TxHash:      res.TxHash,
		Hops:        hops,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		PriceImpact: compoundImpact(hops),
		GasUsed:     res.GasUsed,
		ExecutedAt:  time.Now().UTC(),
		Network:     q.Network,
	}, nil
}

// compoundImpact folds per-hop impacts into the route-level figure.
func compoundImpact(hops []router.Hop) float64 {
	remaining := 1.0
	for _, h := range hops {
		remaining *= 1 - h.PriceImpact/100
	}
	impact := (1 - remaining) * 100
	if impact < 0 {
		return 0
	}
	if impact > 100 {
		return 100
	}
	return impact
}

// reprice walks the quoted pool sequence against the snapshot's reserves.
// SELL routes roll the fixed input forward; BUY routes roll the fixed output
// backward to find the input now required.
func (e *Engine) reprice(snap *registry.Snapshot, q *quote.Quote) ([]router.Hop, *big.Int, *big.Int, error) {
	stored := q.Route.Hops
	hops := make([]router.Hop, len(stored))

	pools := make([]registry.Pool, len(stored))
	for i, h := range stored {
		pool, ok := snap.PoolByID(h.PoolID)
		if !ok || !pool.Tradable() {
			return nil, nil, nil, ErrRouteGone
		}
		pools[i] = pool
	}

	if q.Side == engine.SideBuy {
		amount := new(big.Int).Set(q.AmountOut)
		for i := len(stored) - 1; i >= 0; i-- {
			in, err := curve.AmountIn(pools[i], stored[i].TokenIn, stored[i].TokenOut, amount)
			if err != nil {
				return nil, nil, nil, err
			}
			hops[i] = freshHop(stored[i], pools[i], in, amount)
			amount = in
		}
		return hops, amount, new(big.Int).Set(q.AmountOut), nil
	}

	amount := new(big.Int).Set(q.AmountIn)
	for i, h := range stored {
		out, err := curve.AmountOut(pools[i], h.TokenIn, h.TokenOut, amount)
		if err != nil {
			return nil, nil, nil, err
		}
		hops[i] = freshHop(h, pools[i], amount, out)
		amount = out
	}
	return hops, new(big.Int).Set(q.AmountIn), amount, nil
}

func freshHop(stored router.Hop, pool registry.Pool, in, out *big.Int) router.Hop {
	h := stored
	h.AmountIn = in
	h.AmountOut = out
	if impact, err := curve.PriceImpact(pool, stored.TokenIn, stored.TokenOut, in, out); err == nil {
		h.PriceImpact = impact
	}
	return h
}

// checkBound compares the repriced amounts against the quoted ones under the
// caller's tolerance. The quote's own bound still travels to settlement as
// the on-chain floor; this gate is the off-chain one.
func checkBound(q *quote.Quote, maxSlippageBps uint32, amountIn, amountOut *big.Int) error {
	divisor := big.NewInt(10000)
	bps := new(big.Int).SetUint64(uint64(maxSlippageBps))

	if q.Side == engine.SideBuy {
		// ceil(quoted amountIn * (10000 + bps) / 10000)
		limit := new(big.Int).Add(divisor, bps)
		limit.Mul(limit, q.AmountIn)
		max, rem := new(big.Int).QuoRem(limit, divisor, new(big.Int))
		if rem.Sign() != 0 {
			max.Add(max, big.NewInt(1))
		}
		if amountIn.Cmp(max) > 0 {
			slippageRejections.Inc()
			return ErrSlippageExceeded
		}
		return nil
	}

	// floor(quoted amountOut * (10000 - bps) / 10000)
	limit := new(big.Int).Sub(divisor, bps)
	limit.Mul(limit, q.AmountOut)
	min := limit.Div(limit, divisor)
	if amountOut.Cmp(min) < 0 {
		slippageRejections.Inc()
		return ErrSlippageExceeded
	}
	return nil
}

// settle submits the trade, retrying transient upstream failures only. A
// deadline overrun is terminal: the backend may have accepted the trade, so
// a blind resubmit could double-spend.
func (e *Engine) settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	var res *SettleResult
	err := retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, e.settleTimeout)
			defer cancel()

			var err error
			res, err = e.settlement.Settle(attemptCtx, req)
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return retry.Unrecoverable(ErrSettlementTimeout)
			}
			return err
		},
		retry.Attempts(e.retryAttempts),
		retry.Delay(e.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrUpstream)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("retrying settlement")
		}),
	)
	if err != nil {
		if errors.Is(err, ErrSettlementTimeout) {
			return nil, ErrSettlementTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}
	return res, nil
}
