package bvh

import (
	"math"
	"math/rand"
	"sort"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

// shapeItem is the per-shape working state the build algorithm threads
// through seeding, assignment and recursion: its bbox (for the enclosure)
// and centroid (for clustering).
type shapeItem struct {
	id       provider.ShapeId
	bbox     enclosure.BBox
	cx, cy   float64
}

// Build bulk-builds an Index over provider p using the DKMeans top-down
// split. An empty provider yields an empty (non-error) index, per the
// EmptyProvider policy.
//
// The k-means++ seeding and bounded Lloyd iteration follow
// internal/quantization/utils.go's KMeansPlusPlus, and the cluster
// assignment loop follows pkg/ivf/index.go's Train / findNearestCentroid,
// both generalized from N-dimensional float32 vectors to 2D shape
// centroids, plus a balance guard IVF never needed (an inverted list can
// sit empty; a BVH leaf cannot).
func Build(p provider.Provider, params BuildParams) (*Index, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	items := make([]shapeItem, 0, p.Len())
	for id := range p.IDs() {
		g, ok := p.Get(id)
		if !ok {
			continue
		}
		bb := g.BBox()
		if !validBBox(bb) {
			return nil, ErrNonFinite
		}
		cx, cy := centroidOf(bb)
		items = append(items, shapeItem{id: id, bbox: bb, cx: cx, cy: cy})
	}

	if len(items) == 0 {
		return &Index{prov: p, params: params}, nil
	}

	rng := rand.New(rand.NewSource(int64(params.RNGSeed)))
	root, err := buildNode(items, params, rng)
	if err != nil {
		return nil, err
	}

	return &Index{root: root, prov: p, params: params, size: len(items)}, nil
}

func validBBox(b enclosure.BBox) bool {
	return b.Valid()
}

func centroidOf(b enclosure.BBox) (float64, float64) {
	return b.Center()
}

func enclosureOfBBox(b enclosure.BBox, kind enclosure.Kind) enclosure.Enclosure {
	return enclosure.FromBBox(b, kind)
}

// buildNode recurses the DKMeans split over items, emitting a Leaf once
// |items| <= params.LeafCapacity.
func buildNode(items []shapeItem, params BuildParams, rng *rand.Rand) (*Node, error) {
	if len(items) <= params.LeafCapacity {
		return makeLeaf(items, params.EnclosureKind), nil
	}

	clusters := dkmeansSplit(items, params, rng)

	children := make([]*Node, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 0 {
			continue
		}
		child, err := buildNode(cluster, params, rng)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	enc := children[0].Enclosure
	for _, c := range children[1:] {
		enc = enclosure.Combine(enc, c.Enclosure)
	}

	return &Node{Kind: InternalNode, Enclosure: enc, Children: children}, nil
}

func makeLeaf(items []shapeItem, kind enclosure.Kind) *Node {
	ids := make([]provider.ShapeId, len(items))
	enc := enclosureOfBBox(items[0].bbox, kind)
	ids[0] = items[0].id
	for i, it := range items[1:] {
		ids[i+1] = it.id
		enc = enclosure.Combine(enc, enclosureOfBBox(it.bbox, kind))
	}
	return &Node{Kind: LeafNode, Enclosure: enc, Ids: ids}
}

const kmeansSampleSize = 64

// dkmeansSplit partitions items into between params.MinFanout and
// params.MaxFanout non-empty clusters, following spec steps 3-5:
// deterministic k-means++-style seeding, bounded Lloyd re-assignment, and a
// balance guard against empty clusters with a sorted-partition fallback.
func dkmeansSplit(items []shapeItem, params BuildParams, rng *rand.Rand) [][]shapeItem {
	b := params.MaxFanout
	if b > len(items) {
		b = len(items)
	}
	// validate() rejects MinFanout > LeafCapacity+1, and dkmeansSplit only
	// ever runs on len(items) > LeafCapacity, so MinFanout <= len(items)
	// always holds here; raising b still respects the len(items) cap above.
	if b < params.MinFanout {
		b = params.MinFanout
	}

	seeds := seedCentroids(items, b, rng)
	assignment := lloydAssign(items, seeds, params.KMeansMaxIters)
	clusters := groupByAssignment(items, assignment, b)

	reseeds := 0
	for hasEmptyCluster(clusters) && reseeds < params.MaxFanout {
		clusters = reseedEmptyCluster(items, clusters, seeds)
		assignment = assignmentFromClusters(items, clusters)
		seeds = recomputeCentroids(items, assignment, b)
		assignment = lloydAssign(items, seeds, 1)
		clusters = groupByAssignment(items, assignment, b)
		reseeds++
	}

	if hasEmptyCluster(clusters) {
		clusters = sortedPartitionFallback(items, b)
	}

	return clusters
}

// seedCentroids picks b seed centroids: the first by medoid-of-sample, the
// rest by farthest-point-from-nearest-seed, both deterministic given rng's
// seed and the items' order.
func seedCentroids(items []shapeItem, b int, rng *rand.Rand) [][2]float64 {
	seeds := make([][2]float64, 0, b)

	sample := items
	if len(items) > kmeansSampleSize {
		idxs := rng.Perm(len(items))[:kmeansSampleSize]
		sample = make([]shapeItem, kmeansSampleSize)
		for i, idx := range idxs {
			sample[i] = items[idx]
		}
	}

	first := medoid(sample)
	seeds = append(seeds, [2]float64{first.cx, first.cy})

	for len(seeds) < b {
		bestIdx := -1
		bestDistSq := -1.0
		for i, it := range items {
			nearest := math.Inf(1)
			for _, s := range seeds {
				d := sqDist(it.cx, it.cy, s[0], s[1])
				if d < nearest {
					nearest = d
				}
			}
			if nearest > bestDistSq {
				bestDistSq = nearest
				bestIdx = i
			}
		}
		seeds = append(seeds, [2]float64{items[bestIdx].cx, items[bestIdx].cy})
	}

	return seeds
}

// medoid returns the item minimising the sum of squared distances to every
// other item in the sample.
func medoid(sample []shapeItem) shapeItem {
	bestIdx := 0
	bestSum := math.Inf(1)
	for i, a := range sample {
		sum := 0.0
		for j, b := range sample {
			if i == j {
				continue
			}
			sum += sqDist(a.cx, a.cy, b.cx, b.cy)
		}
		if sum < bestSum {
			bestSum = sum
			bestIdx = i
		}
	}
	return sample[bestIdx]
}

func sqDist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x1-x2, y1-y2
	return dx*dx + dy*dy
}

// lloydAssign runs up to maxIters rounds of nearest-seed reassignment,
// terminating early when an iteration produces no change, per spec step 4.
func lloydAssign(items []shapeItem, seeds [][2]float64, maxIters int) []int {
	assignment := make([]int, len(items))
	for i, it := range items {
		assignment[i] = nearestSeed(it, seeds)
	}

	for iter := 1; iter < maxIters; iter++ {
		seeds = recomputeCentroids(items, assignment, len(seeds))
		changed := false
		for i, it := range items {
			next := nearestSeed(it, seeds)
			if next != assignment[i] {
				assignment[i] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return assignment
}

// nearestSeed returns the index of the closest seed, breaking ties toward
// the smaller index for determinism.
func nearestSeed(it shapeItem, seeds [][2]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, s := range seeds {
		d := sqDist(it.cx, it.cy, s[0], s[1])
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func recomputeCentroids(items []shapeItem, assignment []int, b int) [][2]float64 {
	sumX := make([]float64, b)
	sumY := make([]float64, b)
	count := make([]int, b)
	for i, it := range items {
		c := assignment[i]
		sumX[c] += it.cx
		sumY[c] += it.cy
		count[c]++
	}
	seeds := make([][2]float64, b)
	for c := 0; c < b; c++ {
		if count[c] == 0 {
			continue // left as the zero centroid; reseeding handles emptiness
		}
		seeds[c] = [2]float64{sumX[c] / float64(count[c]), sumY[c] / float64(count[c])}
	}
	return seeds
}

func groupByAssignment(items []shapeItem, assignment []int, b int) [][]shapeItem {
	clusters := make([][]shapeItem, b)
	for i, it := range items {
		c := assignment[i]
		clusters[c] = append(clusters[c], it)
	}
	return clusters
}

func assignmentFromClusters(items []shapeItem, clusters [][]shapeItem) []int {
	idToCluster := make(map[provider.ShapeId]int, len(items))
	for c, cluster := range clusters {
		for _, it := range cluster {
			idToCluster[it.id] = c
		}
	}
	assignment := make([]int, len(items))
	for i, it := range items {
		assignment[i] = idToCluster[it.id]
	}
	return assignment
}

func hasEmptyCluster(clusters [][]shapeItem) bool {
	for _, c := range clusters {
		if len(c) == 0 {
			return true
		}
	}
	return false
}

// reseedEmptyCluster implements the balance guard: find the first empty
// cluster and the largest cluster, then split the largest cluster's two
// most distant members into the empty slot and the largest slot.
func reseedEmptyCluster(items []shapeItem, clusters [][]shapeItem, seeds [][2]float64) [][]shapeItem {
	emptyIdx := -1
	largestIdx := 0
	for i, c := range clusters {
		if len(c) == 0 && emptyIdx == -1 {
			emptyIdx = i
		}
		if len(c) > len(clusters[largestIdx]) {
			largestIdx = i
		}
	}
	if emptyIdx == -1 || len(clusters[largestIdx]) < 2 {
		return clusters
	}

	largest := clusters[largestIdx]
	p1, p2 := farthestPair(largest)

	// Reassign the largest cluster's members to whichever of the two new
	// seeds they are nearer to; everything else is untouched here (the
	// caller redoes a full assignment pass immediately after).
	newA := make([]shapeItem, 0, len(largest))
	newB := make([]shapeItem, 0, len(largest))
	for _, it := range largest {
		dA := sqDist(it.cx, it.cy, p1.cx, p1.cy)
		dB := sqDist(it.cx, it.cy, p2.cx, p2.cy)
		if dA <= dB {
			newA = append(newA, it)
		} else {
			newB = append(newB, it)
		}
	}

	out := make([][]shapeItem, len(clusters))
	copy(out, clusters)
	out[largestIdx] = newA
	out[emptyIdx] = newB
	return out
}

func farthestPair(items []shapeItem) (shapeItem, shapeItem) {
	bestI, bestJ := 0, 1
	bestDist := -1.0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			d := sqDist(items[i].cx, items[i].cy, items[j].cx, items[j].cy)
			if d > bestDist {
				bestDist = d
				bestI, bestJ = i, j
			}
		}
	}
	return items[bestI], items[bestJ]
}

// sortedPartitionFallback is the degenerate-case fallback: a deterministic,
// arbitrary but balanced partition by centroid sort order (x then y).
func sortedPartitionFallback(items []shapeItem, b int) [][]shapeItem {
	sorted := make([]shapeItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].cx != sorted[j].cx {
			return sorted[i].cx < sorted[j].cx
		}
		if sorted[i].cy != sorted[j].cy {
			return sorted[i].cy < sorted[j].cy
		}
		return sorted[i].id < sorted[j].id
	})

	clusters := make([][]shapeItem, b)
	base := len(sorted) / b
	rem := len(sorted) % b
	idx := 0
	for c := 0; c < b; c++ {
		n := base
		if c < rem {
			n++
		}
		clusters[c] = sorted[idx : idx+n]
		idx += n
	}
	return clusters
}
