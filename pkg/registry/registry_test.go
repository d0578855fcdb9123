package registry

import (
	"testing"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

func TestRegistry_Create(t *testing.T) {
	r := New()

	quota := Quota{MaxShapes: 10000, RateLimitQPS: 100}
	e, err := r.Create("parcels", quota)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if e.Name != "parcels" {
		t.Errorf("expected name 'parcels', got %q", e.Name)
	}
	if e.Quota.MaxShapes != 10000 {
		t.Errorf("expected MaxShapes 10000, got %d", e.Quota.MaxShapes)
	}
	if !e.IsActive {
		t.Error("expected entry to be active")
	}
}

func TestRegistry_CreateDuplicate(t *testing.T) {
	r := New()
	quota := DefaultQuota()

	if _, err := r.Create("parcels", quota); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := r.Create("parcels", quota); err == nil {
		t.Error("expected error creating duplicate entry")
	}
}

func TestRegistry_GetAndDelete(t *testing.T) {
	r := New()
	quota := DefaultQuota()

	if _, err := r.Create("parcels", quota); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	e, err := r.Get("parcels")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Name != "parcels" {
		t.Errorf("expected 'parcels', got %q", e.Name)
	}

	if err := r.Delete("parcels"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := r.Get("parcels"); err == nil {
		t.Error("expected error getting deleted entry")
	}
}

func TestRegistry_List(t *testing.T) {
	r := New()
	quota := DefaultQuota()

	r.Create("parcels", quota)
	r.Create("poi", quota)

	entries := r.List()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if r.Len() != 2 {
		t.Errorf("expected Len() 2, got %d", r.Len())
	}
}

func TestEntry_SetIndexAndCheckQuotas(t *testing.T) {
	r := New()
	e, err := r.Create("parcels", Quota{MaxShapes: 2, RateLimitQPS: 0})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	shapes := []geom2d.Geometry{
		geom2d.Point{X: 0, Y: 0},
		geom2d.Point{X: 1, Y: 1},
		geom2d.Point{X: 2, Y: 2},
	}
	prov := provider.NewSliceProvider(shapes)
	idx, err := bvh.Build(prov, bvh.DefaultBuildParams())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	e.SetIndex(idx, prov)

	if e.Index() == nil {
		t.Fatal("expected Index() to return the installed index")
	}
	if e.Usage.ShapeCount != 3 {
		t.Errorf("expected ShapeCount 3, got %d", e.Usage.ShapeCount)
	}

	if err := e.CheckShapeQuota(1); err == nil {
		t.Error("expected shape quota to be exceeded (3 already over max 2)")
	}
}

func TestEntry_CheckRateLimit(t *testing.T) {
	r := New()
	e, err := r.Create("parcels", Quota{RateLimitQPS: 2})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := e.CheckRateLimit(); err != nil {
		t.Errorf("first query should pass: %v", err)
	}
	if err := e.CheckRateLimit(); err != nil {
		t.Errorf("second query should pass: %v", err)
	}
	if err := e.CheckRateLimit(); err == nil {
		t.Error("expected third query within the same second to be rate limited")
	}
}

func TestEntry_SetActive(t *testing.T) {
	r := New()
	e, _ := r.Create("parcels", UnlimitedQuota())

	e.SetActive(false)
	if e.Active() {
		t.Error("expected entry to be inactive")
	}
	e.SetActive(true)
	if !e.Active() {
		t.Error("expected entry to be active again")
	}
}
