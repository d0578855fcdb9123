package knn

import (
	"container/heap"
	"iter"
	"math"
	"sort"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

// Item is one ranked result: a shape id and its exact distance to the
// query geometry.
type Item struct {
	ID       provider.ShapeId
	Distance float64
}

// bestKHeap is a bounded max-heap by exact distance (worst on top), ties
// broken by descending ShapeId so that, when a tie must be evicted, the
// smaller id is the one kept — matching the ascending-ShapeId tie-break of
// the final sorted result.
//
// Grounded on the bounded top-k merge in the teacher's pkg/search/hybrid.go
// (CachedHybridSearch bounds ranked candidates to a requested k).
type bestKHeap []Item

func (h bestKHeap) Len() int { return len(h) }
func (h bestKHeap) Less(i, j int) bool {
	if h[i].Distance != h[j].Distance {
		return h[i].Distance > h[j].Distance
	}
	return h[i].ID > h[j].ID
}
func (h bestKHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *bestKHeap) Push(x any)   { *h = append(*h, x.(Item)) }
func (h *bestKHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Refiner implements component E: it consumes an ApproxIterator's lazy
// stream, computes exact distances, and maintains a bounded best-k buffer
// with a sound early-termination criterion.
type Refiner struct {
	k             int
	maxCandidates int
	buf           bestKHeap
	prov          provider.Provider
	query         geom2d.Geometry
}

// NewRefiner creates a refiner for k results, with an optional cap on the
// number of exact-distance evaluations (0 = unbounded).
func NewRefiner(prov provider.Provider, query geom2d.Geometry, k int, maxCandidates int) *Refiner {
	return &Refiner{k: k, maxCandidates: maxCandidates, prov: prov, query: query}
}

func (r *Refiner) worst() float64 {
	if len(r.buf) < r.k {
		return math.Inf(1)
	}
	return r.buf[0].Distance
}

// Consume pulls from it until the termination criterion fires: the next
// lower bound exceeds the worst confirmed exact distance while the buffer
// is already full, at which point no unseen shape can beat it because lb
// values are non-decreasing. An optional candidate cap makes this an
// approximate early stop instead of an exact one.
func (r *Refiner) Consume(it *ApproxIterator) {
	evaluated := 0
	for {
		if r.maxCandidates > 0 && evaluated >= r.maxCandidates {
			return
		}
		id, lb, ok := it.Next()
		if !ok {
			return
		}
		if lb > r.worst() && len(r.buf) == r.k {
			return
		}

		g, found := r.prov.Get(id)
		if !found {
			continue
		}
		evaluated++
		d := r.query.DistanceTo(g)

		if len(r.buf) < r.k {
			heap.Push(&r.buf, Item{ID: id, Distance: d})
		} else if top := r.buf[0]; d < top.Distance || (d == top.Distance && id < top.ID) {
			heap.Pop(&r.buf)
			heap.Push(&r.buf, Item{ID: id, Distance: d})
		}
	}
}

// Result returns the buffer sorted by exact distance ascending, ties broken
// by ascending ShapeId.
func (r *Refiner) Result() []Item {
	out := make([]Item, len(r.buf))
	copy(out, r.buf)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TrueKNN is the eager convenience form of the Index::true_knn external
// interface: k nearest neighbours of q in idx, exactly ranked.
//
// Go idiom note: the source spec phrases this as an Index method
// (Index::true_knn); here it is a free function taking *bvh.Index to avoid
// an import cycle between bvh (which the approximate iterator must reach
// into for Node internals) and knn (which implements the query surface) —
// the same reason sort.Sort takes an Interface rather than being a method
// of every sortable type.
func TrueKNN(idx *bvh.Index, q geom2d.Geometry, k int, maxCandidates int) ([]Item, error) {
	if k < 0 {
		return nil, bvh.ErrInvalidParameter
	}
	if k == 0 || idx.Root() == nil {
		return []Item{}, nil
	}

	r := NewRefiner(idx.Provider(), q, k, maxCandidates)
	it := NewApproxIterator(idx, q)
	r.Consume(it)
	return r.Result(), nil
}

// TrueKNNLazy yields the same ranked result as TrueKNN one entry at a time.
// It requires internal buffering equal to k, since the final rank of the
// first result is not known until the refiner has terminated.
func TrueKNNLazy(idx *bvh.Index, q geom2d.Geometry, k int, maxCandidates int) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		items, err := TrueKNN(idx, q, k, maxCandidates)
		if err != nil {
			return
		}
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}
