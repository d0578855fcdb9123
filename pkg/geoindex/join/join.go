// Package join implements the spatial join driver (component F): applying
// the true-kNN refiner independently per left geometry against a right-side
// BVH index, as a lazy pull-driven stream.
//
// Grounded on the per-item independent search loop in the teacher's
// pkg/hnsw/batch.go and the streaming filtered search in
// pkg/search/filter.go, both adapted from a flat vector batch to a
// provider-iteration-order geometry stream.
package join

import (
	"iter"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/knn"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

// Mode selects how left elements with no right-side match are handled.
type Mode int

const (
	// Inner drops left elements whose top-k is empty (only possible when
	// the right index is empty).
	Inner Mode = iota
	// Left emits every left element, with an empty list when there is no
	// match.
	Left
)

// Result is one join output record: a left id and its ranked top-k matches
// against the right index.
type Result struct {
	LeftID provider.ShapeId
	Items  []knn.Item
}

// Join returns a lazy stream over left, each element paired with its exact
// top-k against rightIndex. Consuming one output triggers exactly one
// refinement pass; no materialisation of the full result is required.
//
// Self-join (left and rightIndex backed by the same provider) is supported
// with no automatic exclusion of the identity match — callers who need to
// drop it should request k+1 and discard the self match, the documented
// idiom from the Data Model.
func Join(left provider.Provider, rightIndex *bvh.Index, k int, how Mode) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		for id := range left.IDs() {
			g, ok := left.Get(id)
			if !ok {
				continue
			}

			items, err := knn.TrueKNN(rightIndex, g, k, 0)
			if err != nil {
				return
			}

			if len(items) == 0 && how == Inner {
				continue
			}

			if !yield(Result{LeftID: id, Items: items}) {
				return
			}
		}
	}
}
