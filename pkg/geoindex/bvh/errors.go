package bvh

import "errors"

// Sentinel errors, following the corpus's convention of plain
// errors.New("pkgname: ...") values rather than custom error types.
var (
	// ErrInvalidParameter covers malformed BuildParams (leaf_capacity < 1,
	// max_fanout < 2, min_fanout < 1, min_fanout > max_fanout, min_fanout >
	// leaf_capacity+1) and a negative k passed to knn.TrueKNN.
	ErrInvalidParameter = errors.New("bvh: invalid parameter")

	// ErrNonFinite is returned at build time when a shape's bbox contains
	// NaN or infinite coordinates; the index cannot host non-finite bboxes.
	ErrNonFinite = errors.New("bvh: non-finite coordinate in shape bbox")
)
