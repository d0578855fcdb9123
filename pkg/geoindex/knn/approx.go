// Package knn implements the lazy approximate-nearest iterator (component
// D) and the true-kNN refiner (component E) built on top of a bvh.Index.
//
// The iterator is grounded on the container/heap-based candidate priority
// queue in the teacher's pkg/hnsw/search.go (a best-first graph search) and
// on the lazy-decrease-key priority-queue idiom from the sibling pack's
// dijkstra implementation, generalized from a graph-neighbour frontier to a
// BVH node/shape frontier.
package knn

import (
	"container/heap"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

type entryKind int

const (
	nodeKind entryKind = iota
	shapeKind
)

// heapEntry is a single frontier element: either a BVH node or a shape id,
// ordered by lower-bound distance ascending; ties broken by kind (nodes
// before shapes) then by insertion order.
type heapEntry struct {
	lb   float64
	kind entryKind
	node *bvh.Node
	id   provider.ShapeId
	seq  int
}

type entryHeap []heapEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].lb != h[j].lb {
		return h[i].lb < h[j].lb
	}
	if h[i].kind != h[j].kind {
		return h[i].kind < h[j].kind
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(heapEntry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// ApproxIterator produces (ShapeId, lowerBound) pairs in non-decreasing
// order of lower-bound distance to a fixed query geometry, per component D.
// Its lifetime is a single query; dropping it releases the heap promptly.
type ApproxIterator struct {
	heap      entryHeap
	queryBBox enclosure.BBox
	prov      provider.Provider
	seq       int
}

// NewApproxIterator starts a fresh best-first traversal of idx for query q.
func NewApproxIterator(idx *bvh.Index, q geom2d.Geometry) *ApproxIterator {
	it := &ApproxIterator{
		queryBBox: q.BBox(),
		prov:      idx.Provider(),
	}
	if root := idx.Root(); root != nil {
		it.pushNode(root)
	}
	return it
}

func (it *ApproxIterator) pushNode(n *bvh.Node) {
	lb := enclosure.DistanceLowerBound(n.Enclosure, it.queryBBox)
	heap.Push(&it.heap, heapEntry{lb: lb, kind: nodeKind, node: n, seq: it.nextSeq()})
}

func (it *ApproxIterator) pushShape(id provider.ShapeId, lb float64) {
	heap.Push(&it.heap, heapEntry{lb: lb, kind: shapeKind, id: id, seq: it.nextSeq()})
}

func (it *ApproxIterator) nextSeq() int {
	it.seq++
	return it.seq
}

// Next pops and expands frontier entries until a shape is ready to yield.
// ok is false once the stream is exhausted — every shape in the provider
// has then been yielded exactly once.
func (it *ApproxIterator) Next() (id provider.ShapeId, lowerBound float64, ok bool) {
	for it.heap.Len() > 0 {
		e := heap.Pop(&it.heap).(heapEntry)

		switch e.kind {
		case shapeKind:
			return e.id, e.lb, true
		default:
			switch e.node.Kind {
			case bvh.LeafNode:
				for _, shapeID := range e.node.Ids {
					g, found := it.prov.Get(shapeID)
					if !found {
						continue
					}
					shapeEnc := enclosure.FromBBox(g.BBox(), enclosure.Rect)
					lb := enclosure.DistanceLowerBound(shapeEnc, it.queryBBox)
					it.pushShape(shapeID, lb)
				}
			case bvh.InternalNode:
				for _, child := range e.node.Children {
					it.pushNode(child)
				}
			}
		}
	}
	return 0, 0, false
}
