// Package bvh implements the BVH index (component C): a bulk, top-down
// bounding-volume hierarchy built over a shape provider via a deterministic
// k-means-style (DKMeans) split, immutable once built.
package bvh

import (
	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

// NodeKind distinguishes a Leaf from an Internal node.
type NodeKind int

const (
	// LeafNode owns a non-empty set of shape ids directly.
	LeafNode NodeKind = iota
	// InternalNode owns an ordered list of child nodes.
	InternalNode
)

// Node is an index tree node: either a Leaf (owns ShapeIds) or an Internal
// node (owns child nodes). Both carry the combined enclosure of what they
// own. Fields are exported because the node shape is part of the data
// model the index publishes (§3 of the design notes), not a hidden detail —
// the approximate-nearest traversal in pkg/geoindex/knn walks it directly.
type Node struct {
	Kind      NodeKind
	Enclosure enclosure.Enclosure

	Ids      []provider.ShapeId // meaningful when Kind == LeafNode
	Children []*Node            // meaningful when Kind == InternalNode
}

// BuildParams configures Build. Zero-value fields are NOT defaulted — use
// DefaultBuildParams and override as needed.
type BuildParams struct {
	LeafCapacity     int
	MaxFanout        int
	MinFanout        int
	KMeansMaxIters   int
	EnclosureKind    enclosure.Kind
	RNGSeed          uint64
}

// DefaultBuildParams returns the default build configuration.
func DefaultBuildParams() BuildParams {
	return BuildParams{
		LeafCapacity:   8,
		MaxFanout:      16,
		MinFanout:      2,
		KMeansMaxIters: 8,
		EnclosureKind:  enclosure.Rect,
		RNGSeed:        0,
	}
}

func (p BuildParams) validate() error {
	if p.LeafCapacity < 1 {
		return ErrInvalidParameter
	}
	if p.MaxFanout < 2 {
		return ErrInvalidParameter
	}
	if p.MinFanout < 1 || p.MinFanout > p.MaxFanout {
		return ErrInvalidParameter
	}
	// A split only ever runs on len(items) > LeafCapacity items, i.e. at
	// least LeafCapacity+1; MinFanout above that is unsatisfiable since a
	// non-empty cluster needs at least one item each.
	if p.MinFanout > p.LeafCapacity+1 {
		return ErrInvalidParameter
	}
	return nil
}

// Index is an immutable, built BVH over a shape provider.
type Index struct {
	root     *Node
	prov     provider.Provider
	params   BuildParams
	size     int
}

// Root returns the tree's root node, or nil for an empty index.
func (idx *Index) Root() *Node { return idx.root }

// Provider returns the provider the index was built over.
func (idx *Index) Provider() provider.Provider { return idx.prov }

// Params returns the BuildParams the index was built with.
func (idx *Index) Params() BuildParams { return idx.params }

// Len returns the number of shapes indexed.
func (idx *Index) Len() int { return idx.size }

// Depth returns the tree's depth (0 for an empty index, 1 for a single
// leaf), useful for the fan-out/finite-depth invariants and for stats.
func (idx *Index) Depth() int {
	return nodeDepth(idx.root)
}

func nodeDepth(n *Node) int {
	if n == nil {
		return 0
	}
	if n.Kind == LeafNode {
		return 1
	}
	maxChild := 0
	for _, c := range n.Children {
		if d := nodeDepth(c); d > maxChild {
			maxChild = d
		}
	}
	return maxChild + 1
}
