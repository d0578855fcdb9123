package knn

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

func buildPoints(t *testing.T, coords [][2]float64, params bvh.BuildParams) (*bvh.Index, *provider.SliceProvider) {
	t.Helper()
	shapes := make([]geom2d.Geometry, len(coords))
	for i, c := range coords {
		shapes[i] = geom2d.Point{X: c[0], Y: c[1]}
	}
	p := provider.NewSliceProvider(shapes)
	idx, err := bvh.Build(p, params)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return idx, p
}

// S1 — points on a line.
func TestTrueKNN_PointsOnALine(t *testing.T) {
	idx, _ := buildPoints(t, [][2]float64{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}, bvh.DefaultBuildParams())

	got, err := TrueKNN(idx, geom2d.Point{X: 1.4, Y: 0}, 2, 0)
	if err != nil {
		t.Fatalf("TrueKNN failed: %v", err)
	}

	want := []Item{{ID: 1, Distance: 0.4}, {ID: 2, Distance: 0.6}}
	assertItemsApprox(t, want, got)
}

// S2 — tie breaking by ascending ShapeId.
func TestTrueKNN_TieBreaking(t *testing.T) {
	idx, _ := buildPoints(t, [][2]float64{{0, 0}, {1, 0}, {-1, 0}}, bvh.DefaultBuildParams())

	got, err := TrueKNN(idx, geom2d.Point{X: 0, Y: 0}, 2, 0)
	if err != nil {
		t.Fatalf("TrueKNN failed: %v", err)
	}

	want := []Item{{ID: 0, Distance: 0}, {ID: 1, Distance: 1}}
	assertItemsApprox(t, want, got)
}

// S3 — k greater than n.
func TestTrueKNN_KGreaterThanN(t *testing.T) {
	idx, _ := buildPoints(t, [][2]float64{{0, 0}, {1, 0}, {2, 0}}, bvh.DefaultBuildParams())

	got, err := TrueKNN(idx, geom2d.Point{X: 0, Y: 0}, 10, 0)
	if err != nil {
		t.Fatalf("TrueKNN failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected all 3 shapes, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Distance > got[i].Distance {
			t.Errorf("result not sorted ascending: %+v", got)
		}
	}
}

// S4 — polygon vs polygon.
func TestTrueKNN_PolygonVsPolygon(t *testing.T) {
	unitSquare := func(x0, y0 float64) geom2d.Polygon {
		return geom2d.Polygon{Points: []geom2d.Point{
			{X: x0, Y: y0}, {X: x0 + 1, Y: y0}, {X: x0 + 1, Y: y0 + 1}, {X: x0, Y: y0 + 1},
		}}
	}

	shapes := []geom2d.Geometry{unitSquare(0, 0), unitSquare(2, 0)}
	p := provider.NewSliceProvider(shapes)
	idx, err := bvh.Build(p, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	query := unitSquare(0.5, 0.5)
	// Note: unitSquare(0.5,0.5) spans [0.5,1.5]x[0.5,1.5]; matches the
	// scenario's query square at that offset.
	got, err := TrueKNN(idx, query, 2, 0)
	if err != nil {
		t.Fatalf("TrueKNN failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(got), got)
	}
	if got[0].ID != 0 || math.Abs(got[0].Distance-0) > 1e-9 {
		t.Errorf("expected first result (0, 0.0), got %+v", got[0])
	}
	if got[1].ID != 1 || math.Abs(got[1].Distance-0.5) > 1e-9 {
		t.Errorf("expected second result (1, 0.5), got %+v", got[1])
	}
}

// S5/S7 — agreement with brute force, also exercised via the join package
// against random data.
func TestTrueKNN_AgreesWithBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	coords := make([][2]float64, 300)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 100, rng.Float64() * 100}
	}
	idx, p := buildPoints(t, coords, bvh.DefaultBuildParams())

	for q := 0; q < 20; q++ {
		query := geom2d.Point{X: rng.Float64() * 100, Y: rng.Float64() * 100}
		k := 1 + rng.Intn(10)

		got, err := TrueKNN(idx, query, k, 0)
		if err != nil {
			t.Fatalf("TrueKNN failed: %v", err)
		}
		want := bruteForceKNN(p, query, k)
		assertItemsApprox(t, want, got)
	}
}

func bruteForceKNN(p *provider.SliceProvider, q geom2d.Geometry, k int) []Item {
	all := make([]Item, 0, p.Len())
	for id := range p.IDs() {
		g, _ := p.Get(id)
		all = append(all, Item{ID: id, Distance: q.DistanceTo(g)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].ID < all[j].ID
	})
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// S6 — early termination: instrumented provider counting Get() calls.
type countingProvider struct {
	*provider.SliceProvider
	calls int
}

func (c *countingProvider) Get(id provider.ShapeId) (geom2d.Geometry, bool) {
	c.calls++
	return c.SliceProvider.Get(id)
}

func TestTrueKNN_EarlyTerminationIsSublinear(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 10000
	shapes := make([]geom2d.Geometry, n)
	for i := range shapes {
		shapes[i] = geom2d.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
	}
	base := provider.NewSliceProvider(shapes)
	idx, err := bvh.Build(base, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var totalCalls int
	const trials = 50
	for i := 0; i < trials; i++ {
		cp := &countingProvider{SliceProvider: base}
		query := geom2d.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}

		r := NewRefiner(cp, query, 1, 0)
		it := NewApproxIterator(idx, query)
		r.Consume(it)
		totalCalls += cp.calls
	}

	avg := float64(totalCalls) / float64(trials)
	// A linear scan would average ~n Get() calls; a sound branch-and-bound
	// traversal should need only a small fraction of that.
	if avg > n/4 {
		t.Errorf("average Get() calls %.1f not sub-linear for n=%d", avg, n)
	}
}

func assertItemsApprox(t *testing.T, want, got []Item) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("length mismatch: want %d got %d (want=%+v got=%+v)", len(want), len(got), want, got)
	}
	for i := range want {
		if want[i].ID != got[i].ID {
			t.Errorf("index %d: want id %d got %d", i, want[i].ID, got[i].ID)
			continue
		}
		if math.Abs(want[i].Distance-got[i].Distance) > 1e-6 {
			t.Errorf("index %d: want distance %v got %v", i, want[i].Distance, got[i].Distance)
		}
	}
}
