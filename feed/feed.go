// Package feed keeps a registry synchronized with a pool-state stream. The
// stream delivers one full snapshot on subscribe and sequence-numbered diffs
// afterwards; processing is decoupled from the transport so the same logic
// serves websockets, replay files and tests.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tonroute/tonroute-go/engine"
	"github.com/tonroute/tonroute-go/registry"
)

// Event is the wrapper object received from the stream server.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"`
}

type poolPayload struct {
	ID       uint64 `json:"id"`
	Address  string `json:"address"`
	Token0   uint64 `json:"token0"`
	Token1   uint64 `json:"token1"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
	FeeBps   uint16 `json:"feeBps"`
	Curve    string `json:"curve"`
	Amp      uint64 `json:"amp,omitempty"`
	LPSupply string `json:"lpSupply,omitempty"`
}

type fullPayload struct {
	Chain  engine.ChainSummary `json:"chain"`
	Tokens []registry.Token    `json:"tokens"`
	Pools  []poolPayload       `json:"pools"`
}

type reserveUpdate struct {
	PoolID   uint64 `json:"poolId"`
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`
}

type diffPayload struct {
	FromSeqno uint64              `json:"fromSeqno"`
	Chain     engine.ChainSummary `json:"chain"`
	Updated   []reserveUpdate     `json:"updated"`
	Added     []poolPayload       `json:"added"`
	Removed   []uint64            `json:"removed"`
}

// ErrDiffBeforeFull is returned when a diff arrives before any full snapshot.
var ErrDiffBeforeFull = errors.New("received diff before full state")

// Processor applies stream events to a registry. Messages are consumed by a
// single goroutine in stream order; Seqno and Synced may be read from any
// goroutine.
type Processor struct {
	reg       *registry.Registry
	lastSeqno atomic.Uint64
	synced    atomic.Bool
	logger    zerolog.Logger
}

// NewProcessor returns a processor feeding the given registry.
func NewProcessor(reg *registry.Registry, logger zerolog.Logger) *Processor {
	return &Processor{reg: reg, logger: logger}
}

// Seqno reports the chain sequence number of the last applied event.
func (p *Processor) Seqno() uint64 {
	return p.lastSeqno.Load()
}

// Synced reports whether a full snapshot has been applied yet.
func (p *Processor) Synced() bool {
	return p.synced.Load()
}

// ProcessMessage applies one raw stream message to the registry.
func (p *Processor) ProcessMessage(rawData json.RawMessage) error {
	start := time.Now()

	var event Event
	if err := json.Unmarshal(rawData, &event); err != nil {
		return fmt.Errorf("failed to unmarshal stream event: %w", err)
	}

	switch event.Type {
	case "full":
		return p.handleFull(event, start)
	case "diff":
		return p.handleDiff(event, start)
	default:
		return fmt.Errorf("unknown stream event type: %q", event.Type)
	}
}

func (p *Processor) handleFull(event Event, start time.Time) error {
	var payload fullPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal full payload: %w", err)
	}

	for _, t := range payload.Tokens {
		if err := p.reg.AddToken(t); err != nil && !errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("failed to register token %q: %w", t.Symbol, err)
		}
	}
	for _, raw := range payload.Pools {
		if err := p.upsertPool(raw); err != nil {
			return err
		}
	}

	p.lastSeqno.Store(payload.Chain.Seqno)
	p.synced.Store(true)
	p.logApplied("full", payload.Chain.Seqno, len(payload.Pools), event.SentAt, start)
	return nil
}

func (p *Processor) handleDiff(event Event, start time.Time) error {
	var payload diffPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal diff payload: %w", err)
	}

	if !p.synced.Load() {
		return fmt.Errorf("%w: diff from seqno %d", ErrDiffBeforeFull, payload.FromSeqno)
	}
	lastSeqno := p.lastSeqno.Load()
	if payload.FromSeqno != lastSeqno {
		p.logger.Warn().
			Uint64("last_seqno", lastSeqno).
			Uint64("diff_from_seqno", payload.FromSeqno).
			Msg("out-of-order diff discarded; waiting for resync")
		return nil
	}

	for _, u := range payload.Updated {
		update, err := parseUpdate(u)
		if err != nil {
			return err
		}
		if err := p.reg.SetReserves(update); err != nil {
			if errors.Is(err, registry.ErrUnknownPool) {
				p.logger.Warn().Uint64("pool_id", u.PoolID).Msg("reserve update for unknown pool")
				continue
			}
			return err
		}
	}
	for _, raw := range payload.Added {
		if err := p.upsertPool(raw); err != nil {
			return err
		}
	}
	for _, id := range payload.Removed {
		p.reg.RemovePool(id)
	}

	p.lastSeqno.Store(payload.Chain.Seqno)
	p.logApplied("diff", payload.Chain.Seqno, len(payload.Updated), event.SentAt, start)
	return nil
}

func (p *Processor) upsertPool(raw poolPayload) error {
	pool, err := parsePool(raw)
	if err != nil {
		return err
	}
	err = p.reg.AddPool(pool)
	if errors.Is(err, registry.ErrDuplicate) {
		return p.reg.SetReserves(engine.PoolUpdate{
			PoolID:   pool.ID,
			Reserve0: pool.Reserve0,
			Reserve1: pool.Reserve1,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to register pool %q: %w", raw.Address, err)
	}
	return nil
}

func parsePool(raw poolPayload) (registry.Pool, error) {
	r0, err := parseAmount(raw.Reserve0)
	if err != nil {
		return registry.Pool{}, fmt.Errorf("pool %q reserve0: %w", raw.Address, err)
	}
	r1, err := parseAmount(raw.Reserve1)
	if err != nil {
		return registry.Pool{}, fmt.Errorf("pool %q reserve1: %w", raw.Address, err)
	}
	pool := registry.Pool{
		ID:       raw.ID,
		Address:  raw.Address,
		Token0:   raw.Token0,
		Token1:   raw.Token1,
		Reserve0: r0,
		Reserve1: r1,
		FeeBps:   raw.FeeBps,
		Curve:    engine.CurveType(raw.Curve),
		Amp:      raw.Amp,
	}
	if raw.LPSupply != "" {
		if pool.LPSupply, err = parseAmount(raw.LPSupply); err != nil {
			return registry.Pool{}, fmt.Errorf("pool %q lpSupply: %w", raw.Address, err)
		}
	}
	return pool, nil
}

func parseUpdate(u reserveUpdate) (engine.PoolUpdate, error) {
	r0, err := parseAmount(u.Reserve0)
	if err != nil {
		return engine.PoolUpdate{}, fmt.Errorf("pool %d reserve0: %w", u.PoolID, err)
	}
	r1, err := parseAmount(u.Reserve1)
	if err != nil {
		return engine.PoolUpdate{}, fmt.Errorf("pool %d reserve1: %w", u.PoolID, err)
	}
	return engine.PoolUpdate{PoolID: u.PoolID, Reserve0: r0, Reserve1: r1}, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func (p *Processor) logApplied(eventType string, seqno uint64, changed int, sentAt int64, start time.Time) {
	transport := start.Sub(time.Unix(0, sentAt))
	p.logger.Debug().
		Str("type", eventType).
		Uint64("seqno", seqno).
		Int("pools", changed).
		Int64("latency_transport_ms", transport.Milliseconds()).
		Int64("latency_proc_ms", time.Since(start).Milliseconds()).
		Msg("stream event applied")
}
