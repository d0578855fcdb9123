// Package registry tracks the set of named spatial indexes a server hosts,
// adapted from the teacher's tenant manager, trimmed to what a read-mostly
// spatial index registry actually needs: no storage-byte or dimension
// quotas, since a BVH has neither concept.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
)

// Quota bounds how large a named index may grow and how fast it may be
// queried.
type Quota struct {
	MaxShapes    int64
	RateLimitQPS int
}

// Usage tracks current resource usage for a named index.
type Usage struct {
	ShapeCount    int64
	LastQueryTime time.Time
	QueryCount    int64
}

// Entry is a single named, buildable spatial index together with its
// metadata and quota.
type Entry struct {
	Name      string
	Quota     Quota
	Usage     Usage
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
	Metadata  map[string]interface{}

	mu       sync.RWMutex
	index    *bvh.Index
	provider provider.Provider
}

// Registry handles index lifecycle and resource enforcement.
type Registry struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// Create registers a new named entry with the given quota. The entry
// starts with no built index; call SetIndex after building one.
func (r *Registry) Create(name string, quota Quota) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return nil, fmt.Errorf("registry: index %q already exists", name)
	}

	e := &Entry{
		Name:      name,
		Quota:     quota,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		IsActive:  true,
		Metadata:  make(map[string]interface{}),
	}

	r.entries[name] = e
	return e, nil
}

// Get retrieves a named entry.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[name]
	if !exists {
		return nil, fmt.Errorf("registry: index %q not found", name)
	}
	return e, nil
}

// Delete removes a named entry.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; !exists {
		return fmt.Errorf("registry: index %q not found", name)
	}
	delete(r.entries, name)
	return nil
}

// List returns all registered entries.
func (r *Registry) List() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// UpdateQuota replaces the quota for a named entry.
func (r *Registry) UpdateQuota(name string, quota Quota) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[name]
	if !exists {
		return fmt.Errorf("registry: index %q not found", name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.Quota = quota
	e.UpdatedAt = time.Now()
	return nil
}

// CheckShapeQuota reports whether adding count shapes would exceed quota.
func (e *Entry) CheckShapeQuota(count int64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.Quota.MaxShapes > 0 && e.Usage.ShapeCount+count > e.Quota.MaxShapes {
		return fmt.Errorf("registry: shape quota exceeded for %q: current=%d, requested=%d, max=%d",
			e.Name, e.Usage.ShapeCount, count, e.Quota.MaxShapes)
	}
	return nil
}

// CheckRateLimit applies a simple fixed-window-per-second query counter.
func (e *Entry) CheckRateLimit() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Quota.RateLimitQPS <= 0 {
		return nil
	}

	now := time.Now()
	if now.Sub(e.Usage.LastQueryTime) < time.Second {
		if e.Usage.QueryCount >= int64(e.Quota.RateLimitQPS) {
			return fmt.Errorf("registry: rate limit exceeded for %q: %d queries per second (max: %d)",
				e.Name, e.Usage.QueryCount, e.Quota.RateLimitQPS)
		}
	} else {
		e.Usage.QueryCount = 0
		e.Usage.LastQueryTime = now
	}

	e.Usage.QueryCount++
	return nil
}

// SetIndex atomically installs a newly built index and its backing
// provider, updating usage bookkeeping.
func (e *Entry) SetIndex(idx *bvh.Index, prov provider.Provider) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.index = idx
	e.provider = prov
	e.Usage.ShapeCount = int64(idx.Len())
	e.UpdatedAt = time.Now()
}

// Index returns the currently built index, or nil if none has been built
// yet.
func (e *Entry) Index() *bvh.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}

// Provider returns the backing provider for the currently built index.
func (e *Entry) Provider() provider.Provider {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.provider
}

// SetMetadata replaces the entry's free-form attribute bag, such as a
// decoded structpb.Struct from a build request.
func (e *Entry) SetMetadata(md map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Metadata = md
	e.UpdatedAt = time.Now()
}

// GetMetadata returns the entry's current attribute bag.
func (e *Entry) GetMetadata() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Metadata
}

// SetActive toggles whether the entry accepts queries.
func (e *Entry) SetActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.IsActive = active
	e.UpdatedAt = time.Now()
}

// Active reports whether the entry currently accepts queries.
func (e *Entry) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.IsActive
}

// DefaultQuota returns a conservative default quota.
func DefaultQuota() Quota {
	return Quota{
		MaxShapes:    10_000_000,
		RateLimitQPS: 1000,
	}
}

// UnlimitedQuota returns an unlimited quota.
func UnlimitedQuota() Quota {
	return Quota{MaxShapes: -1, RateLimitQPS: -1}
}
