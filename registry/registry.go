package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/tonroute/tonroute-go/engine"
)

var (
	// ErrUnknownToken is returned when a pool references a token that was never registered.
	ErrUnknownToken = errors.New("unknown token")
	// ErrDuplicate is returned when a token or pool with the same identity already exists.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUnknownPool is returned when an update names a pool that is not registered.
	ErrUnknownPool = errors.New("unknown pool")
)

// Registry manages tokens, pools, and the token adjacency graph for one
// network. Core data is stored in slices addressed by integer handles for
// cache-friendly access and cheap snapshotting; maps exist only for
// index retrieval.
//
// All methods are safe for concurrent use. The quoting path never reads the
// live structures directly; it takes a Snapshot.
type Registry struct {
	mu sync.RWMutex

	network engine.Network

	// Lookups for fast index retrieval.
	tokenToIndex  map[uint64]int
	poolToIndex   map[uint64]int
	symbolToToken map[string]uint64

	// Core data stored in slices (index-addressed).
	tokens []Token
	pools  []Pool

	// Graph: adjacency[tokenIndex] lists edge indices; edgeTargets[edge] is
	// the target token index; edgePools[edge] lists pool indices serving
	// that token pair.
	adjacency   [][]int
	edgeTargets []int
	edgePools   [][]int

	danglingEdgeCount   int
	compactionThreshold int
}

// New creates a new, properly initialized graph-based registry.
func New(network engine.Network, compactionThreshold int) *Registry {
	if compactionThreshold <= 0 {
		compactionThreshold = 1000
	}
	return &Registry{
		network:             network,
		tokenToIndex:        make(map[uint64]int),
		poolToIndex:         make(map[uint64]int),
		symbolToToken:       make(map[string]uint64),
		tokens:              make([]Token, 0),
		pools:               make([]Pool, 0),
		adjacency:           make([][]int, 0),
		edgeTargets:         make([]int, 0),
		edgePools:           make([][]int, 0),
		compactionThreshold: compactionThreshold,
	}
}

// Network returns the network this registry serves.
func (r *Registry) Network() engine.Network {
	return r.network
}

// AddToken registers a token. Symbols are unique per network and tokens are
// immutable after registration.
func (r *Registry) AddToken(t Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tokenToIndex[t.ID]; exists {
		return fmt.Errorf("%w: token id %d", ErrDuplicate, t.ID)
	}
	if _, exists := r.symbolToToken[t.Symbol]; exists {
		return fmt.Errorf("%w: token symbol %q", ErrDuplicate, t.Symbol)
	}

	index := len(r.tokens)
	r.tokens = append(r.tokens, t)
	r.tokenToIndex[t.ID] = index
	r.symbolToToken[t.Symbol] = t.ID
	r.adjacency = append(r.adjacency, nil)
	return nil
}

// AddPool registers a pool and wires both directed edges between its tokens.
func (r *Registry) AddPool(p Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.poolToIndex[p.ID]; exists {
		return fmt.Errorf("%w: pool id %d", ErrDuplicate, p.ID)
	}
	if _, exists := r.tokenToIndex[p.Token0]; !exists {
		return fmt.Errorf("%w: token %d referenced by pool %d", ErrUnknownToken, p.Token0, p.ID)
	}
	if _, exists := r.tokenToIndex[p.Token1]; !exists {
		return fmt.Errorf("%w: token %d referenced by pool %d", ErrUnknownToken, p.Token1, p.ID)
	}

	poolIndex := len(r.pools)
	r.pools = append(r.pools, p.Clone())
	r.poolToIndex[p.ID] = poolIndex

	r.addEdge(p.Token0, p.Token1, poolIndex)
	r.addEdge(p.Token1, p.Token0, poolIndex)
	return nil
}

// SetReserves replaces a pool's reserves. This is the mutation path of the
// external registry feed; the quoting path only ever reads snapshots.
func (r *Registry) SetReserves(update engine.PoolUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, exists := r.poolToIndex[update.PoolID]
	if !exists {
		return fmt.Errorf("%w: pool id %d", ErrUnknownPool, update.PoolID)
	}
	if update.Reserve0 != nil {
		r.pools[index].Reserve0 = new(big.Int).Set(update.Reserve0)
	}
	if update.Reserve1 != nil {
		r.pools[index].Reserve1 = new(big.Int).Set(update.Reserve1)
	}
	return nil
}

// RemovePool performs a logical deletion of a pool by removing it from all
// edges. If an edge's pool list becomes empty, that edge is marked as
// dangling; the graph compacts once enough edges dangle.
func (r *Registry) RemovePool(poolID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	poolIndexToRemove, exists := r.poolToIndex[poolID]
	if !exists {
		return
	}

	for edgeIndex, poolList := range r.edgePools {
		if len(poolList) == 0 {
			continue
		}

		newPoolList := poolList[:0] // in-place slice reuse
		wasRemoved := false
		for _, pIndex := range poolList {
			if pIndex != poolIndexToRemove {
				newPoolList = append(newPoolList, pIndex)
			} else {
				wasRemoved = true
			}
		}

		if wasRemoved {
			r.edgePools[edgeIndex] = newPoolList
			if len(newPoolList) == 0 {
				r.danglingEdgeCount++
			}
		}
	}

	delete(r.poolToIndex, poolID)

	if r.danglingEdgeCount > r.compactionThreshold {
		r.compact()
	}
}

// addEdge creates or updates a directed edge from a source token to a target
// token, associating it with the given pool index. Caller holds the lock.
func (r *Registry) addEdge(fromTokenID, toTokenID uint64, poolIndex int) {
	fromIndex := r.tokenToIndex[fromTokenID]
	toTokenIndex := r.tokenToIndex[toTokenID]

	// Search for an existing edge from the source to the target token.
	for _, edgeIndex := range r.adjacency[fromIndex] {
		if r.edgeTargets[edgeIndex] == toTokenIndex {
			for _, existingPoolIndex := range r.edgePools[edgeIndex] {
				if existingPoolIndex == poolIndex {
					return // pool already associated with this edge
				}
			}
			r.edgePools[edgeIndex] = append(r.edgePools[edgeIndex], poolIndex)
			return
		}
	}

	// No edge exists yet, create one.
	newEdgeIndex := len(r.edgeTargets)
	r.edgeTargets = append(r.edgeTargets, toTokenIndex)
	r.edgePools = append(r.edgePools, []int{poolIndex})
	r.adjacency[fromIndex] = append(r.adjacency[fromIndex], newEdgeIndex)
}

// compact rebuilds the edge structures to physically remove dangling entries.
// Token and pool slices keep their indices so outstanding handles stay valid.
// Caller holds the lock.
func (r *Registry) compact() {
	if r.danglingEdgeCount == 0 {
		return
	}

	oldToNewEdgeIndex := make(map[int]int, len(r.edgeTargets)-r.danglingEdgeCount)
	newEdgeTargets := make([]int, 0, len(r.edgeTargets))
	newEdgePools := make([][]int, 0, len(r.edgePools))

	for readIdx, poolList := range r.edgePools {
		if len(poolList) > 0 { // live edge?
			newIdx := len(newEdgeTargets)
			oldToNewEdgeIndex[readIdx] = newIdx
			newEdgeTargets = append(newEdgeTargets, r.edgeTargets[readIdx])
			newEdgePools = append(newEdgePools, poolList)
		}
	}

	newAdjacency := make([][]int, len(r.adjacency))
	for tokenIdx, oldAdj := range r.adjacency {
		newAdj := make([]int, 0, len(oldAdj))
		for _, oldEdgeIdx := range oldAdj {
			if newEdgeIdx, ok := oldToNewEdgeIndex[oldEdgeIdx]; ok {
				newAdj = append(newAdj, newEdgeIdx)
			}
		}
		newAdjacency[tokenIdx] = newAdj
	}

	r.edgeTargets = newEdgeTargets
	r.edgePools = newEdgePools
	r.adjacency = newAdjacency
	r.danglingEdgeCount = 0
}

// Snapshot returns a deep-copied, immutable view of the registry. One
// routing/pricing operation uses exactly one snapshot, so concurrent feed
// updates never produce a torn read mid-computation.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tokensCopy := make([]Token, len(r.tokens))
	copy(tokensCopy, r.tokens)

	poolsCopy := make([]Pool, len(r.pools))
	for i, p := range r.pools {
		poolsCopy[i] = p.Clone()
	}

	adjacencyCopy := make([][]int, len(r.adjacency))
	for i, adj := range r.adjacency {
		if adj == nil {
			continue
		}
		adjCopy := make([]int, len(adj))
		copy(adjCopy, adj)
		adjacencyCopy[i] = adjCopy
	}

	edgeTargetsCopy := make([]int, len(r.edgeTargets))
	copy(edgeTargetsCopy, r.edgeTargets)

	edgePoolsCopy := make([][]int, len(r.edgePools))
	for i, poolList := range r.edgePools {
		listCopy := make([]int, len(poolList))
		copy(listCopy, poolList)
		edgePoolsCopy[i] = listCopy
	}

	tokenToIndex := make(map[uint64]int, len(r.tokenToIndex))
	for k, v := range r.tokenToIndex {
		tokenToIndex[k] = v
	}
	poolToIndex := make(map[uint64]int, len(r.poolToIndex))
	for k, v := range r.poolToIndex {
		poolToIndex[k] = v
	}
	symbolToToken := make(map[string]uint64, len(r.symbolToToken))
	for k, v := range r.symbolToToken {
		symbolToToken[k] = v
	}

	return &Snapshot{
		network:       r.network,
		tokens:        tokensCopy,
		pools:         poolsCopy,
		adjacency:     adjacencyCopy,
		edgeTargets:   edgeTargetsCopy,
		edgePools:     edgePoolsCopy,
		tokenToIndex:  tokenToIndex,
		poolToIndex:   poolToIndex,
		symbolToToken: symbolToToken,
	}
}
