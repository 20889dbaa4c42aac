// Package hnsw implements an approximate nearest-neighbor index based on
// Hierarchical Navigable Small World graphs.
package hnsw

import (
	"context"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/fission/distance"
	"github.com/hupe1980/fission/index"
	"github.com/hupe1980/fission/internal/queue"
)

// Compile-time check to ensure HNSW satisfies the index interface.
var _ index.VectorIndex = (*HNSW)(nil)

// Options represents the options for configuring HNSW.
type Options struct {
	// Dimension is the fixed vector dimensionality. 0 infers it from the
	// first inserted vector.
	Dimension int

	// M specifies the number of established connections for every new element
	// during construction. The bottom layer allows 2*M.
	M int

	// EFConstruction is the size of the dynamic candidate list while inserting.
	EFConstruction int

	// EF is the size of the dynamic candidate list while querying.
	// Larger values improve recall at the cost of query time.
	EF int

	// Heuristic enables the diversity heuristic for neighbor selection.
	Heuristic bool

	// Metric selects the distance function.
	Metric distance.Metric

	// Seed drives level assignment so graphs are reproducible.
	Seed int64
}

var DefaultOptions = Options{
	M:              16,
	EFConstruction: 200,
	EF:             64,
	Heuristic:      true,
	Metric:         distance.MetricL2,
	Seed:           1,
}

type node struct {
	id    uint64
	vec   []float32
	links [][]uint32
}

// HNSW represents the Hierarchical Navigable Small World graph.
type HNSW struct {
	mu sync.RWMutex

	opts      Options
	distFn    distance.Func
	normalize bool
	dimension int
	mmax      int     // max connections on upper layers
	mmax0     int     // max connections on layer 0
	ml        float64 // level generation factor

	nodes    []*node
	ep       uint32
	maxLevel int
	ids      map[uint64]struct{}
	rng      *rand.Rand
	closed   bool
}

// New creates a new HNSW graph.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.M < 2 {
		// 1 / log(1) is undefined
		opts.M = 2
	}
	if opts.EF < 1 {
		opts.EF = 1
	}
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}

	distFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &HNSW{
		opts:      opts,
		distFn:    distFn,
		normalize: opts.Metric != distance.MetricL2,
		dimension: opts.Dimension,
		mmax:      opts.M,
		mmax0:     2 * opts.M,
		ml:        1 / math.Log(float64(opts.M)),
		ids:       make(map[uint64]struct{}),
		rng:       rand.New(rand.NewSource(opts.Seed)), // nolint gosec
	}, nil
}

// Insert adds vec to the graph under id.
func (h *HNSW) Insert(_ context.Context, id uint64, vec []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return index.ErrClosed
	}
	if err := index.CheckDimension(h.dimension, vec); err != nil {
		return err
	}
	if _, ok := h.ids[id]; ok {
		return index.ErrDuplicateID
	}

	v := h.prepare(vec)
	if h.dimension == 0 {
		h.dimension = len(v)
	}

	level := int(math.Floor(-math.Log(1-h.rng.Float64()) * h.ml))
	n := &node{id: id, vec: v, links: make([][]uint32, level+1)}
	h.ids[id] = struct{}{}

	if len(h.nodes) == 0 {
		h.nodes = append(h.nodes, n)
		h.ep = 0
		h.maxLevel = level
		return nil
	}

	offset := uint32(len(h.nodes))

	cur, curDist := h.descend(v, level)

	for l := min(level, h.maxLevel); l >= 0; l-- {
		candidates := h.searchLayer(v, cur, curDist, h.opts.EFConstruction, l)
		selected := h.selectNeighbours(candidates, h.opts.M)

		n.links[l] = make([]uint32, len(selected))
		for i, c := range selected {
			n.links[l][i] = uint32(c.ID)
		}

		cur, curDist = uint32(candidates[0].ID), candidates[0].Distance
	}

	h.nodes = append(h.nodes, n)

	for l := min(level, h.maxLevel); l >= 0; l-- {
		for _, nb := range n.links[l] {
			h.link(nb, offset, l)
		}
	}

	if level > h.maxLevel {
		h.ep = offset
		h.maxLevel = level
	}

	return nil
}

// Nearest returns the approximate closest entry to q.
func (h *HNSW) Nearest(_ context.Context, q []float32) (index.SearchResult, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return index.SearchResult{}, false, index.ErrClosed
	}
	if len(h.nodes) == 0 {
		return index.SearchResult{}, false, nil
	}
	if err := index.CheckDimension(h.dimension, q); err != nil {
		return index.SearchResult{}, false, err
	}

	query := h.prepare(q)
	cur, curDist := h.descend(query, 0)
	found := h.searchLayer(query, cur, curDist, h.opts.EF, 0)

	return index.SearchResult{
		ID:       h.nodes[found[0].ID].id,
		Distance: found[0].Distance,
	}, true, nil
}

// Len returns the number of nodes in the graph.
func (h *HNSW) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Close drops the graph.
func (h *HNSW) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.nodes, h.ids = nil, nil
	return nil
}

// descend walks greedily from the entry point down to the layer just above
// target and returns the closest node found.
func (h *HNSW) descend(q []float32, target int) (uint32, float32) {
	cur := h.ep
	curDist := h.distFn(q, h.nodes[cur].vec)

	for l := h.maxLevel; l > target; l-- {
		changed := true
		for changed {
			changed = false

			links := h.nodes[cur].links
			if l >= len(links) {
				break
			}

			for _, nb := range links[l] {
				if d := h.distFn(q, h.nodes[nb].vec); d < curDist {
					cur, curDist = nb, d
					changed = true
				}
			}
		}
	}

	return cur, curDist
}

// searchLayer returns up to ef candidates on layer level, closest first.
func (h *HNSW) searchLayer(q []float32, ep uint32, epDist float32, ef, level int) []queue.Item {
	visited := bitset.New(uint(len(h.nodes)))
	visited.Set(uint(ep))

	start := queue.Item{ID: uint64(ep), Distance: epDist}

	candidates := queue.NewMin(ef)
	candidates.Push(start)

	results := queue.NewMax(ef + 1)
	results.Push(start)

	for candidates.Len() > 0 {
		c, _ := candidates.Pop()

		worst, _ := results.Top()
		if c.Distance > worst.Distance {
			break
		}

		links := h.nodes[c.ID].links
		if level >= len(links) {
			continue
		}

		for _, nb := range links[level] {
			if visited.Test(uint(nb)) {
				continue
			}
			visited.Set(uint(nb))

			d := h.distFn(q, h.nodes[nb].vec)

			worst, _ = results.Top()
			if results.Len() < ef || d < worst.Distance {
				item := queue.Item{ID: uint64(nb), Distance: d}
				candidates.Push(item)
				results.Push(item)

				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	out := make([]queue.Item, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = results.Pop()
	}

	return out
}

// selectNeighbours picks up to m items from candidates (sorted closest
// first). With the heuristic enabled a candidate is preferred only when it is
// closer to the base than to every already selected neighbour; pruned
// candidates fill any remaining slots.
func (h *HNSW) selectNeighbours(candidates []queue.Item, m int) []queue.Item {
	if len(candidates) <= m || !h.opts.Heuristic {
		return candidates[:min(m, len(candidates))]
	}

	selected := make([]queue.Item, 0, m)
	pruned := make([]queue.Item, 0, len(candidates))

	for _, c := range candidates {
		if len(selected) >= m {
			break
		}

		keep := true
		for _, s := range selected {
			if h.distFn(h.nodes[c.ID].vec, h.nodes[s.ID].vec) < c.Distance {
				keep = false
				break
			}
		}

		if keep {
			selected = append(selected, c)
		} else {
			pruned = append(pruned, c)
		}
	}

	for _, p := range pruned {
		if len(selected) >= m {
			break
		}
		selected = append(selected, p)
	}

	return selected
}

// link adds a connection from -> to on level and shrinks the neighbour list
// when it exceeds the layer's capacity.
func (h *HNSW) link(from, to uint32, level int) {
	maxConns := h.mmax
	if level == 0 {
		maxConns = h.mmax0
	}

	n := h.nodes[from]
	n.links[level] = append(n.links[level], to)

	if len(n.links[level]) <= maxConns {
		return
	}

	items := make([]queue.Item, len(n.links[level]))
	for i, id := range n.links[level] {
		items[i] = queue.Item{ID: uint64(id), Distance: h.distFn(n.vec, h.nodes[id].vec)}
	}

	slices.SortFunc(items, func(a, b queue.Item) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	selected := h.selectNeighbours(items, maxConns)

	n.links[level] = n.links[level][:0]
	for _, s := range selected {
		n.links[level] = append(n.links[level], uint32(s.ID))
	}
}

func (h *HNSW) prepare(v []float32) []float32 {
	if h.normalize {
		if n, ok := distance.NormalizeL2Copy(v); ok {
			return n
		}
	}
	return slices.Clone(v)
}
