package rest

import (
	"testing"
	"time"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/knn"
)

func TestLRUCache_Basic(t *testing.T) {
	cache := NewLRUCache(2, 0) // capacity 2, no TTL

	cache.Put("key1", "value1")
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}

	val, found := cache.Get("key1")
	if !found {
		t.Error("Get() didn't find existing key")
	}
	if val != "value1" {
		t.Errorf("Get() = %v, want value1", val)
	}

	_, found = cache.Get("key2")
	if found {
		t.Error("Get() found non-existent key")
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	cache := NewLRUCache(2, 0)

	cache.Put("key1", "value1")
	cache.Put("key2", "value2")
	cache.Put("key3", "value3") // should evict key1

	if cache.Size() != 2 {
		t.Errorf("Size() = %d, want 2", cache.Size())
	}

	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have been evicted")
	}
	if _, found := cache.Get("key2"); !found {
		t.Error("key2 should still exist")
	}
	if _, found := cache.Get("key3"); !found {
		t.Error("key3 should still exist")
	}
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	cache := NewLRUCache(10, 10*time.Millisecond)
	cache.Put("key1", "value1")

	if _, found := cache.Get("key1"); !found {
		t.Fatal("expected key1 to be present immediately after Put")
	}

	time.Sleep(20 * time.Millisecond)

	if _, found := cache.Get("key1"); found {
		t.Error("expected key1 to have expired")
	}
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(10, 0)
	cache.Put("key1", "value1")

	cache.Get("key1")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("Hits = %d, want 1", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
}

func TestGenerateKNNQueryKey_Deterministic(t *testing.T) {
	bbox := enclosure.BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}

	k1 := GenerateKNNQueryKey("parcels", bbox, 5)
	k2 := GenerateKNNQueryKey("parcels", bbox, 5)
	if k1 != k2 {
		t.Errorf("expected identical keys for identical inputs, got %v and %v", k1, k2)
	}

	k3 := GenerateKNNQueryKey("parcels", bbox, 6)
	if k1 == k3 {
		t.Error("expected different keys for different k")
	}

	k4 := GenerateKNNQueryKey("poi", bbox, 5)
	if k1 == k4 {
		t.Error("expected different keys for different index names")
	}
}

func TestQueryCache_RoundTrip(t *testing.T) {
	qc := NewQueryCache(10, 0)
	bbox := enclosure.BBox{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	key := GenerateKNNQueryKey("parcels", bbox, 3)

	if _, found := qc.GetKNN(key); found {
		t.Fatal("expected cache miss before Put")
	}

	want := []knn.Item{{ID: 1, Distance: 0.5}, {ID: 2, Distance: 1.0}}
	qc.PutKNN(key, want)

	got, found := qc.GetKNN(key)
	if !found {
		t.Fatal("expected cache hit after Put")
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: want %+v, got %+v", i, want[i], got[i])
		}
	}

	qc.Clear()
	if qc.Size() != 0 {
		t.Errorf("expected cache cleared, size = %d", qc.Size())
	}
}
