package quote

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/router"
)

// maxSlippageBps caps the accepted slippage at 50 percent.
const maxSlippageBps = 5000

// DefaultRetention is how long an expired quote record is kept so that a
// late caller sees ErrExpired rather than ErrNotFound.
const DefaultRetention = time.Hour

type entry struct {
	quote    Quote
	consumed bool
}

// Store issues quotes and enforces their lifecycle. All state transitions
// happen under a single mutex so consumption is exactly-once even under
// concurrent callers.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*entry
	retention time.Duration
	now       func() time.Time
}

// Option adjusts a Store.
type Option func(*Store)

// WithClock substitutes the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store with the default expired-record retention.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:   map[string]*entry{},
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create prices a quote from a found route and registers it under a fresh id.
// slippageBps is the caller's tolerance in basis points, at most 5000. The
// ttl must be positive so the expiry is strictly in the future.
func (s *Store) Create(network engine.Network, route *router.Route, slippageBps uint32, gasEstimate *big.Int, ttl time.Duration) (*Quote, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	if slippageBps > maxSlippageBps {
		return nil, ErrInvalidSlippage
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	q := Quote{
		ID:          uuid.NewString(),
		Network:     network,
		Route:       route,
		Side:        route.Side,
		AmountIn:    route.AmountIn,
		AmountOut:   route.AmountOut,
		SlippageBps: slippageBps,
		PriceImpact: route.PriceImpact,
		GasEstimate: gasEstimate,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	q.AmountOutMin, q.AmountInMax = slippageBounds(route, route.Side, slippageBps)

	s.mu.Lock()
	s.entries[q.ID] = &entry{quote: q}
	s.mu.Unlock()

	quotesCreated.Inc()
	quotesLive.Inc()
	return &q, nil
}

// Get returns the quote for id. Expired quotes stay addressable until the
// sweeper reclaims them, so a stale id reports ErrExpired, not ErrNotFound.
func (s *Store) Get(id string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	q := e.quote
	if q.Expired(s.now()) {
		return nil, ErrExpired
	}
	return &q, nil
}

// Consume atomically marks the quote as used and returns it. At most one
// call per id ever succeeds; every later call gets ErrAlreadyConsumed.
func (s *Store) Consume(id string) (*Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.quote.Expired(s.now()) {
		return nil, ErrExpired
	}
	if e.consumed {
		return nil, ErrAlreadyConsumed
	}
	e.consumed = true

	quotesConsumed.Inc()
	q := e.quote
	return &q, nil
}

// Sweep drops records that have been expired for longer than the retention
// window and returns how many were removed.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.quote.ExpiresAt.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		quotesSwept.Add(float64(removed))
		quotesLive.Sub(float64(removed))
	}
	return removed
}

// RunSweeper sweeps on the given interval until the context is cancelled.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired quotes")
			}
		}
	}
}

// Len reports the number of held records, expired tombstones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
