package join

import (
	"math/rand"
	"testing"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/knn"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

func randomPointProvider(rng *rand.Rand, n int, span float64) *provider.SliceProvider {
	shapes := make([]geom2d.Geometry, n)
	for i := range shapes {
		shapes[i] = geom2d.Point{X: rng.Float64() * span, Y: rng.Float64() * span}
	}
	return provider.NewSliceProvider(shapes)
}

// S5/S7 — join equivalence with per-row true_knn against the same index.
func TestJoin_AgreesWithTrueKNNPerRow(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	right := randomPointProvider(rng, 1000, 100)
	rightIdx, err := bvh.Build(right, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	left := randomPointProvider(rng, 100, 100)

	k := 5
	results := make(map[provider.ShapeId][]knn.Item)
	for r := range Join(left, rightIdx, k, Inner) {
		results[r.LeftID] = r.Items
	}

	if len(results) != left.Len() {
		t.Fatalf("expected %d join rows, got %d", left.Len(), len(results))
	}

	for id := range left.IDs() {
		g, _ := left.Get(id)
		want, err := knn.TrueKNN(rightIdx, g, k, 0)
		if err != nil {
			t.Fatalf("TrueKNN failed: %v", err)
		}
		got := results[id]
		if len(got) != len(want) {
			t.Fatalf("row %d: length mismatch want %d got %d", id, len(want), len(got))
		}
		for i := range want {
			if want[i].ID != got[i].ID || want[i].Distance != got[i].Distance {
				t.Errorf("row %d entry %d: want %+v got %+v", id, i, want[i], got[i])
			}
		}
	}
}

func TestJoin_InnerDropsEmptyOnEmptyRight(t *testing.T) {
	right := provider.NewSliceProvider(nil)
	rightIdx, err := bvh.Build(right, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	left := provider.NewSliceProvider([]geom2d.Geometry{geom2d.Point{X: 0, Y: 0}})

	var rows int
	for range Join(left, rightIdx, 3, Inner) {
		rows++
	}
	if rows != 0 {
		t.Errorf("expected inner join to drop empty rows, got %d rows", rows)
	}
}

func TestJoin_LeftModeKeepsEmptyRows(t *testing.T) {
	right := provider.NewSliceProvider(nil)
	rightIdx, err := bvh.Build(right, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	left := provider.NewSliceProvider([]geom2d.Geometry{geom2d.Point{X: 0, Y: 0}})

	var rows int
	for r := range Join(left, rightIdx, 3, Left) {
		rows++
		if len(r.Items) != 0 {
			t.Errorf("expected empty items for row with empty right index, got %+v", r.Items)
		}
	}
	if rows != 1 {
		t.Errorf("expected 1 row in left mode, got %d", rows)
	}
}

func TestJoin_StopsEarlyOnBreak(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	right := randomPointProvider(rng, 200, 50)
	rightIdx, err := bvh.Build(right, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	left := randomPointProvider(rng, 50, 50)

	var rows int
	for range Join(left, rightIdx, 3, Inner) {
		rows++
		if rows == 2 {
			break
		}
	}
	if rows != 2 {
		t.Errorf("expected exactly 2 rows pulled before break, got %d", rows)
	}
}
