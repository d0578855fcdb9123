// Package provider implements the shape-provider capability set: a uniform,
// read-only, random-access view over a collection of geometries keyed by an
// opaque identifier.
//
// Grounded on the namespace-scoped storage maps of the teacher's server
// (per-namespace map[string]*hnsw.Index and map[uint64]map[string]any
// metadata) generalized into a standalone, dependency-free collection view.
package provider

import (
	"iter"
	"sort"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
)

// ShapeId is the opaque key a provider maps to a Geometry. It is stable for
// the life of a provider.
type ShapeId uint64

// Provider is a thin, read-only adaptor over any mapping-like input (array,
// hash map, tabular column). It is safe for concurrent reads.
type Provider interface {
	// Len returns the number of shapes.
	Len() int
	// Get returns the geometry for id in O(1) expected, or ok=false if id
	// is not present.
	Get(id ShapeId) (geom2d.Geometry, bool)
	// IDs iterates every id the provider holds, in a stable order.
	IDs() iter.Seq[ShapeId]
}

// SliceProvider adapts a plain slice of geometries; ids are slice indices.
type SliceProvider struct {
	shapes []geom2d.Geometry
}

// NewSliceProvider wraps shapes, keying each by its index.
func NewSliceProvider(shapes []geom2d.Geometry) *SliceProvider {
	return &SliceProvider{shapes: shapes}
}

// Len implements Provider.
func (p *SliceProvider) Len() int { return len(p.shapes) }

// Get implements Provider.
func (p *SliceProvider) Get(id ShapeId) (geom2d.Geometry, bool) {
	if id >= ShapeId(len(p.shapes)) {
		return nil, false
	}
	return p.shapes[id], true
}

// IDs implements Provider, yielding 0..Len()-1 in order.
func (p *SliceProvider) IDs() iter.Seq[ShapeId] {
	return func(yield func(ShapeId) bool) {
		for i := range p.shapes {
			if !yield(ShapeId(i)) {
				return
			}
		}
	}
}

// MapProvider adapts a map keyed by caller-chosen ShapeId values, such as a
// dataframe row index or an externally assigned identifier.
type MapProvider struct {
	shapes  map[ShapeId]geom2d.Geometry
	ordered []ShapeId // cached sorted ids, for deterministic iteration
}

// NewMapProvider wraps shapes. The map is copied into a sorted id order so
// that IDs() is deterministic across calls and across builds.
func NewMapProvider(shapes map[ShapeId]geom2d.Geometry) *MapProvider {
	ordered := make([]ShapeId, 0, len(shapes))
	for id := range shapes {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return &MapProvider{shapes: shapes, ordered: ordered}
}

// Len implements Provider.
func (p *MapProvider) Len() int { return len(p.shapes) }

// Get implements Provider.
func (p *MapProvider) Get(id ShapeId) (geom2d.Geometry, bool) {
	g, ok := p.shapes[id]
	return g, ok
}

// IDs implements Provider, yielding ids in ascending order.
func (p *MapProvider) IDs() iter.Seq[ShapeId] {
	return func(yield func(ShapeId) bool) {
		for _, id := range p.ordered {
			if !yield(id) {
				return
			}
		}
	}
}
