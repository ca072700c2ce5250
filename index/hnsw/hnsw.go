// Package hnsw implements a Hierarchical Navigable Small World graph for
// approximate nearest neighbor search.
//
// The graph stores each vector as a node on a stack of layers: every node
// lives on layer 0, exponentially fewer on each layer above. Searches descend
// greedily from the sparse top layers and finish with a bounded beam search
// on layer 0.
//
// Distances are computed as 1 - dot(a, b), which is cosine distance provided
// every vector is L2-normalized before Insert and Search. Passing
// unnormalized vectors does not fail; it silently degrades result quality.
//
// Insert is single-writer: concurrent inserts must be serialized by the
// caller. Once built, any number of goroutines may Search concurrently.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/seekgo/distance"
	"github.com/hupe1980/seekgo/internal/searcher"
	"github.com/hupe1980/seekgo/internal/visited"
)

const (
	// DefaultM is the default number of links created per node and layer.
	DefaultM = 16

	// DefaultEFConstruction is the default beam width during Insert.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default beam width during Search.
	DefaultEFSearch = 50

	// minimumM is the smallest usable M; below it the layer multiplier
	// 1/ln(M) degenerates.
	minimumM = 2

	// mmax0Multiplier relates the layer-0 connection cap to M.
	mmax0Multiplier = 2
)

// ErrDimensionMismatch indicates a vector whose length does not match the
// dimensionality fixed by the first inserted vector.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Result is a single nearest-neighbor hit.
type Result struct {
	// DocID is the document the matched vector belongs to.
	DocID uint32
	// Distance is 1 - dot(query, vector); in [0, 2] for unit vectors.
	Distance float32
}

// Options represents the options for configuring the graph.
type Options struct {
	// M is the number of links created per node and layer. MMax0, the
	// layer-0 cap, is derived as 2*M.
	M int

	// EFConstruction is the candidate beam width used while inserting.
	// Larger values build a better graph more slowly.
	EFConstruction int

	// EFSearch is the candidate beam width used while searching. The
	// effective width of a query is max(EFSearch, k).
	EFSearch int

	// RandomSeed pins the layer-assignment RNG for reproducible graphs.
	// Nil seeds from the global RNG.
	RandomSeed *int64
}

// DefaultOptions is the default configuration of a graph.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
}

// Index is a layered proximity graph over L2-normalized vectors.
type Index struct {
	opts Options

	// nodes is the arena. A node's index in this slice is its identity
	// everywhere in the graph; nodes are never removed.
	nodes []Node

	// entryPoint is the arena index searches start from. Meaningful only
	// when the arena is non-empty; always a node on maxLayer.
	entryPoint uint32
	maxLayer   int32

	// dims is fixed by the first inserted vector.
	dims int

	// levelMult is 1/ln(M), the multiplier of the exponential layer draw.
	levelMult float64
	mmax0     int

	rng *rand.Rand

	// scratchPool recycles per-query heaps and visited sets so concurrent
	// searches share no state.
	scratchPool sync.Pool
}

// New creates an empty graph.
func New(optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < minimumM {
		return nil, fmt.Errorf("m must be >= %d, got %d", minimumM, opts.M)
	}

	if opts.EFConstruction < 1 {
		return nil, fmt.Errorf("ef construction must be positive, got %d", opts.EFConstruction)
	}

	if opts.EFSearch < 1 {
		return nil, fmt.Errorf("ef search must be positive, got %d", opts.EFSearch)
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	h := &Index{
		opts:      opts,
		maxLayer:  -1,
		levelMult: 1 / math.Log(float64(opts.M)),
		mmax0:     opts.M * mmax0Multiplier,
		rng:       rng,
	}

	h.scratchPool.New = func() any {
		return &scratch{
			candidates: searcher.NewPriorityQueue(false),
			results:    searcher.NewPriorityQueue(true),
			visited:    visited.New(len(h.nodes)),
		}
	}

	return h, nil
}

// SetParams replaces M, EFConstruction, and EFSearch on an empty graph. It
// fails once nodes exist: M fixes the connection caps and layer distribution
// of every node already inserted.
func (h *Index) SetParams(m, efConstruction, efSearch int) error {
	if len(h.nodes) > 0 {
		return fmt.Errorf("cannot change parameters of a graph with %d nodes", len(h.nodes))
	}

	if m < minimumM {
		return fmt.Errorf("m must be >= %d, got %d", minimumM, m)
	}

	if efConstruction < 1 {
		return fmt.Errorf("ef construction must be positive, got %d", efConstruction)
	}

	if efSearch < 1 {
		return fmt.Errorf("ef search must be positive, got %d", efSearch)
	}

	h.opts.M = m
	h.opts.EFConstruction = efConstruction
	h.opts.EFSearch = efSearch
	h.levelMult = 1 / math.Log(float64(m))
	h.mmax0 = m * mmax0Multiplier

	return nil
}

// scratch bundles the per-query working state.
type scratch struct {
	candidates *searcher.PriorityQueue
	results    *searcher.PriorityQueue
	visited    *visited.Set
}

func (h *Index) acquireScratch() *scratch {
	s := h.scratchPool.Get().(*scratch)
	s.candidates.Reset()
	s.results.Reset()
	s.visited.Reset()

	return s
}

func (h *Index) releaseScratch(s *scratch) {
	h.scratchPool.Put(s)
}

// randomLayer draws a node's top layer from the standard exponentially
// decaying HNSW level distribution: floor(-ln(U) * mL).
func (h *Index) randomLayer() int32 {
	return int32(math.Floor(-math.Log(h.rng.Float64()) * h.levelMult))
}

// maxConnections returns the degree cap at the given layer.
func (h *Index) maxConnections(layer int) int {
	if layer == 0 {
		return h.mmax0
	}

	return h.opts.M
}

func (h *Index) dist(a, b []float32) float32 {
	return distance.DotDistance(a, b)
}

// Insert adds a vector under the given document ID and returns the node's
// arena index. The vector must be L2-normalized and match the
// dimensionality of the first inserted vector. Duplicate document IDs are
// allowed; each Insert creates an independent node.
func (h *Index) Insert(docID uint32, vector []float32) (uint32, error) {
	if len(vector) == 0 {
		return 0, fmt.Errorf("vector must not be empty")
	}

	if h.dims != 0 && len(vector) != h.dims {
		return 0, &ErrDimensionMismatch{Expected: h.dims, Actual: len(vector)}
	}

	layer := h.randomLayer()

	node := Node{
		DocID:       docID,
		MaxLayer:    layer,
		Connections: make([][]uint32, layer+1),
		Vector:      slices.Clone(vector),
	}

	id := uint32(len(h.nodes))
	h.nodes = append(h.nodes, node)

	if id == 0 {
		h.entryPoint = 0
		h.maxLayer = layer
		h.dims = len(vector)

		return id, nil
	}

	ep := h.entryPoint
	epDist := h.dist(vector, h.nodes[ep].Vector)

	// Descend through the layers above the new node's top, hill-climbing to
	// a good entry point for the linking phase.
	for l := h.maxLayer; l > layer; l-- {
		ep, epDist = h.searchLayerGreedy(vector, ep, epDist, int(l))
	}

	s := h.acquireScratch()
	defer h.releaseScratch(s)

	// Link the node on every layer it participates in, nearest candidates
	// first.
	for l := min(layer, h.maxLayer); l >= 0; l-- {
		h.searchLayer(s, vector, ep, epDist, int(l), h.opts.EFConstruction)

		neighbors := selectNeighbors(s.results, h.maxConnections(int(l)))
		h.nodes[id].Connections[l] = neighbors

		for _, n := range neighbors {
			h.addConnection(n, id, int(l))
		}

		if len(neighbors) > 0 {
			ep = neighbors[0]
			epDist = h.dist(vector, h.nodes[ep].Vector)
		}
	}

	if layer > h.maxLayer {
		h.maxLayer = layer
		h.entryPoint = id
	}

	return id, nil
}

// addConnection adds a back-edge target -> source at the given layer,
// re-selecting target's neighbor set when the cap is exceeded. The pruned
// set is the nearest maxConn of all current neighbors, so the new edge
// itself may be dropped.
func (h *Index) addConnection(target, source uint32, layer int) {
	node := &h.nodes[target]
	conns := append(node.Connections[layer], source)

	maxConn := h.maxConnections(layer)
	if len(conns) > maxConn {
		pq := searcher.NewPriorityQueue(true)
		for _, c := range conns {
			pq.Push(searcher.Candidate{Node: c, Distance: h.dist(node.Vector, h.nodes[c].Vector)})
		}

		conns = selectNeighbors(pq, maxConn)
	}

	node.Connections[layer] = conns
}

// selectNeighbors keeps the m nearest candidates, nearest first. It
// consumes the queue. This is the plain nearest-first selection, not the
// diversity heuristic from the HNSW paper.
func selectNeighbors(results *searcher.PriorityQueue, m int) []uint32 {
	n := results.Len()

	keep := m
	if n < keep {
		keep = n
	}

	out := make([]uint32, keep)

	// The max-heap pops farthest first, so the last keep pops are the
	// nearest, landing in ascending order.
	for i := n - 1; i >= 0; i-- {
		c, _ := results.Pop()
		if i < keep {
			out[i] = c.Node
		}
	}

	return out
}

// searchLayerGreedy hill-climbs toward the query on one layer: it moves to
// the best strictly closer neighbor until none exists, returning a local
// optimum and its distance.
func (h *Index) searchLayerGreedy(query []float32, ep uint32, epDist float32, layer int) (uint32, float32) {
	for {
		improved := false

		node := &h.nodes[ep]
		if layer < len(node.Connections) {
			for _, n := range node.Connections[layer] {
				if d := h.dist(query, h.nodes[n].Vector); d < epDist {
					ep = n
					epDist = d
					improved = true
				}
			}
		}

		if !improved {
			return ep, epDist
		}
	}
}

// searchLayer runs a bounded beam search on one layer, filling s.results
// with up to ef candidates as a max-heap (farthest on top). Expansion stops
// once the nearest unexpanded candidate is farther than the worst kept
// result.
func (h *Index) searchLayer(s *scratch, query []float32, ep uint32, epDist float32, layer, ef int) {
	s.candidates.Reset()
	s.results.Reset()
	s.visited.Reset()

	s.visited.Visit(ep)
	s.candidates.Push(searcher.Candidate{Node: ep, Distance: epDist})
	s.results.Push(searcher.Candidate{Node: ep, Distance: epDist})

	for s.candidates.Len() > 0 {
		c, _ := s.candidates.Pop()

		if worst, _ := s.results.Top(); c.Distance > worst.Distance {
			break
		}

		node := &h.nodes[c.Node]
		if layer >= len(node.Connections) {
			continue
		}

		for _, n := range node.Connections[layer] {
			if s.visited.Visited(n) {
				continue
			}

			s.visited.Visit(n)

			d := h.dist(query, h.nodes[n].Vector)

			worst, _ := s.results.Top()
			if s.results.Len() < ef || d < worst.Distance {
				s.candidates.Push(searcher.Candidate{Node: n, Distance: d})
				s.results.PushBounded(searcher.Candidate{Node: n, Distance: d}, ef)
			}
		}
	}
}

// Search returns the approximate k nearest neighbors of the query, sorted
// ascending by distance. The query must be L2-normalized. An empty graph
// or k <= 0 yields an empty result; k beyond the node count returns every
// node.
func (h *Index) Search(query []float32, k int) ([]Result, error) {
	if len(h.nodes) == 0 || k <= 0 {
		return nil, nil
	}

	if len(query) != h.dims {
		return nil, &ErrDimensionMismatch{Expected: h.dims, Actual: len(query)}
	}

	ep := h.entryPoint
	epDist := h.dist(query, h.nodes[ep].Vector)

	for l := h.maxLayer; l >= 1; l-- {
		ep, epDist = h.searchLayerGreedy(query, ep, epDist, int(l))
	}

	ef := h.opts.EFSearch
	if k > ef {
		ef = k
	}

	s := h.acquireScratch()
	defer h.releaseScratch(s)

	h.searchLayer(s, query, ep, epDist, 0, ef)

	n := s.results.Len()

	keep := k
	if n < keep {
		keep = n
	}

	out := make([]Result, keep)

	for i := n - 1; i >= 0; i-- {
		c, _ := s.results.Pop()
		if i < keep {
			out[i] = Result{DocID: h.nodes[c.Node].DocID, Distance: c.Distance}
		}
	}

	return out, nil
}

// Len returns the number of nodes in the graph.
func (h *Index) Len() int {
	return len(h.nodes)
}

// Dims returns the vector dimensionality, 0 before the first Insert.
func (h *Index) Dims() int {
	return h.dims
}

// MaxLayer returns the highest populated layer, -1 when empty.
func (h *Index) MaxLayer() int32 {
	return h.maxLayer
}

// EntryPoint returns the arena index searches start from. Meaningful only
// when Len() > 0.
func (h *Index) EntryPoint() uint32 {
	return h.entryPoint
}

// NodeAt returns a read-only view of the node at the given arena index.
func (h *Index) NodeAt(i uint32) (*Node, bool) {
	if int(i) >= len(h.nodes) {
		return nil, false
	}

	return &h.nodes[i], true
}
