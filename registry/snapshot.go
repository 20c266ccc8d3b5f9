package registry

import "github.com/tonroute/tonroute-go/engine"

// Snapshot provides fast, indexed, read-only access to one consistent state
// of the registry. It owns all of its memory; the live Registry can keep
// mutating while any number of snapshots are in use.
type Snapshot struct {
	network engine.Network

	tokens []Token
	pools  []Pool

	adjacency   [][]int
	edgeTargets []int
	edgePools   [][]int

	tokenToIndex  map[uint64]int
	poolToIndex   map[uint64]int
	symbolToToken map[string]uint64
}

// Network returns the network this snapshot was taken from.
func (s *Snapshot) Network() engine.Network {
	return s.network
}

// TokenByID retrieves a token by its handle.
func (s *Snapshot) TokenByID(id uint64) (Token, bool) {
	index, ok := s.tokenToIndex[id]
	if !ok {
		return Token{}, false
	}
	return s.tokens[index], true
}

// TokenBySymbol retrieves a token by its per-network-unique symbol.
func (s *Snapshot) TokenBySymbol(symbol string) (Token, bool) {
	id, ok := s.symbolToToken[symbol]
	if !ok {
		return Token{}, false
	}
	return s.TokenByID(id)
}

// PoolByID retrieves a pool by its handle.
func (s *Snapshot) PoolByID(id uint64) (Pool, bool) {
	index, ok := s.poolToIndex[id]
	if !ok {
		return Pool{}, false
	}
	return s.pools[index], true
}

// PoolByAddress retrieves a pool by its on-chain address.
func (s *Snapshot) PoolByAddress(address string) (Pool, bool) {
	for _, index := range s.poolToIndex {
		if s.pools[index].Address == address {
			return s.pools[index], true
		}
	}
	return Pool{}, false
}

// PoolsBetween returns every pool whose pair is exactly {a, b}.
func (s *Snapshot) PoolsBetween(a, b uint64) []Pool {
	fromIndex, ok := s.tokenToIndex[a]
	if !ok {
		return nil
	}
	toIndex, ok := s.tokenToIndex[b]
	if !ok {
		return nil
	}

	var out []Pool
	for _, edgeIndex := range s.adjacency[fromIndex] {
		if s.edgeTargets[edgeIndex] != toIndex {
			continue
		}
		for _, poolIndex := range s.edgePools[edgeIndex] {
			out = append(out, s.pools[poolIndex])
		}
	}
	return out
}

// PoolsContaining returns every pool one of whose sides is the given token.
func (s *Snapshot) PoolsContaining(tokenID uint64) []Pool {
	tokenIndex, ok := s.tokenToIndex[tokenID]
	if !ok {
		return nil
	}

	seen := make(map[uint64]struct{})
	var out []Pool
	for _, edgeIndex := range s.adjacency[tokenIndex] {
		for _, poolIndex := range s.edgePools[edgeIndex] {
			p := s.pools[poolIndex]
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Tokens returns a defensive copy of all registered tokens.
func (s *Snapshot) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Graph accessors used by the route finder. Indices are only meaningful
// within this snapshot.

// NumTokens is the vertex count of the graph.
func (s *Snapshot) NumTokens() int {
	return len(s.tokens)
}

// TokenIndex resolves a token handle to its vertex index.
func (s *Snapshot) TokenIndex(tokenID uint64) (int, bool) {
	i, ok := s.tokenToIndex[tokenID]
	return i, ok
}

// TokenAt returns the token at a vertex index.
func (s *Snapshot) TokenAt(index int) Token {
	return s.tokens[index]
}

// Edges returns the edge indices leaving a vertex.
func (s *Snapshot) Edges(tokenIndex int) []int {
	return s.adjacency[tokenIndex]
}

// EdgeTarget returns the vertex an edge points at.
func (s *Snapshot) EdgeTarget(edgeIndex int) int {
	return s.edgeTargets[edgeIndex]
}

// EdgePools returns the pool indices serving an edge.
func (s *Snapshot) EdgePools(edgeIndex int) []int {
	return s.edgePools[edgeIndex]
}

// PoolAt returns the pool at a pool index.
func (s *Snapshot) PoolAt(index int) Pool {
	return s.pools[index]
}
