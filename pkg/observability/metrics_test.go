package observability

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	// Create metrics once for all subtests; promauto registers against the
	// default registry and a second NewMetrics() call would panic on
	// duplicate registration.
	m := NewMetrics()

	t.Run("NewMetrics", func(t *testing.T) {
		if m == nil {
			t.Fatal("NewMetrics returned nil")
		}
		if m.RequestsTotal == nil {
			t.Error("RequestsTotal not initialized")
		}
		if m.BuildsTotal == nil {
			t.Error("BuildsTotal not initialized")
		}
		if m.KNNQueriesTotal == nil {
			t.Error("KNNQueriesTotal not initialized")
		}
		if m.CacheHits == nil {
			t.Error("CacheHits not initialized")
		}
	})

	t.Run("RecordRequest", func(t *testing.T) {
		m.RecordRequest("knn", "200", 10*time.Millisecond)
		m.RecordRequest("join", "500", 50*time.Millisecond)
		m.RecordError("knn", "bad_request")
	})

	t.Run("RecordBuild", func(t *testing.T) {
		m.RecordBuild("parcels", 10000, 7, 250*time.Millisecond)
		m.RecordBuild("poi", 500, 4, 15*time.Millisecond)
	})

	t.Run("RecordKNNQuery", func(t *testing.T) {
		m.RecordKNNQuery(42, 5, 2*time.Millisecond)
	})

	t.Run("RecordJoin", func(t *testing.T) {
		m.RecordJoin(1000, 3*time.Second)
	})

	t.Run("CacheMetrics", func(t *testing.T) {
		m.RecordCacheHit()
		m.RecordCacheMiss()
		m.UpdateCacheSize(128)
	})

	t.Run("RegistryAndSystemMetrics", func(t *testing.T) {
		m.UpdateIndexesTotal(3)
		m.UpdateGoroutineCount(64)
		m.UpdateMemoryUsage(1 << 20)
	})
}
