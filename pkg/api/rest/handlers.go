package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/join"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/knn"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/provider"
	"github.com/geospatial-oss/geoindex/pkg/observability"
	"github.com/geospatial-oss/geoindex/pkg/registry"
)

// Handler serves the spatial index HTTP API over an in-process registry of
// named BVH indexes.
type Handler struct {
	reg     *registry.Registry
	cache   *QueryCache
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewHandler creates a new REST API handler.
func NewHandler(reg *registry.Registry, cache *QueryCache, metrics *observability.Metrics, logger *observability.Logger) *Handler {
	return &Handler{reg: reg, cache: cache, metrics: metrics, logger: logger}
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

// indexNameFromPath extracts the {name} segment from
// /v1/indexes/{name}/<rest...> and returns the remainder.
func indexNameFromPath(path, prefix string) (name string, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return parts[0], "", true
}

// RouteIndex dispatches /v1/indexes/{name}/{build,knn,join,stats} and
// DELETE /v1/indexes/{name}.
func (h *Handler) RouteIndex(w http.ResponseWriter, r *http.Request) {
	name, rest, ok := indexNameFromPath(r.URL.Path, "/v1/indexes/")
	if !ok {
		writeError(w, "index name required", http.StatusBadRequest)
		return
	}

	switch {
	case rest == "build" && r.Method == http.MethodPost:
		h.Build(w, r, name)
	case rest == "knn" && r.Method == http.MethodPost:
		h.KNN(w, r, name)
	case rest == "join" && r.Method == http.MethodPost:
		h.Join(w, r, name)
	case rest == "stats" && r.Method == http.MethodGet:
		h.Stats(w, r, name)
	case rest == "" && r.Method == http.MethodDelete:
		h.DeleteIndex(w, r, name)
	case rest == "" && r.Method == http.MethodPut:
		h.CreateIndex(w, r, name)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListIndexes handles GET /v1/indexes.
func (h *Handler) ListIndexes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := h.reg.List()
	out := make([]StatsResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, statsResponseFor(e))
	}
	writeJSON(w, out, http.StatusOK)
}

// CreateIndex handles PUT /v1/indexes/{name}, registering an empty named
// index with default quota.
func (h *Handler) CreateIndex(w http.ResponseWriter, r *http.Request, name string) {
	if _, err := h.reg.Create(name, registry.DefaultQuota()); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}
	h.metrics.UpdateIndexesTotal(h.reg.Len())
	writeJSON(w, StatsResponse{Name: name, Active: true}, http.StatusCreated)
}

// DeleteIndex handles DELETE /v1/indexes/{name}.
func (h *Handler) DeleteIndex(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.reg.Delete(name); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.metrics.UpdateIndexesTotal(h.reg.Len())
	w.WriteHeader(http.StatusNoContent)
}

// Build handles POST /v1/indexes/{name}/build.
func (h *Handler) Build(w http.ResponseWriter, r *http.Request, name string) {
	var req BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	shapes := make([]geom2d.Geometry, len(req.Shapes))
	for i, s := range req.Shapes {
		g, err := s.ToGeometry()
		if err != nil {
			writeError(w, fmt.Sprintf("shape %d: %v", i, err), http.StatusBadRequest)
			return
		}
		shapes[i] = g
	}

	entry, err := h.reg.Get(name)
	if err != nil {
		entry, err = h.reg.Create(name, registry.DefaultQuota())
		if err != nil {
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := entry.CheckShapeQuota(int64(len(shapes))); err != nil {
		writeError(w, err.Error(), http.StatusForbidden)
		return
	}

	prov := provider.NewSliceProvider(shapes)
	params := req.Params.ToBuildParams()

	var idx *bvh.Index
	start := time.Now()
	buildErr := h.logger.LogIndexOperation(name, "build", func() error {
		var err error
		idx, err = bvh.Build(prov, params)
		return err
	})
	took := time.Since(start)
	if buildErr != nil {
		h.metrics.RecordError("build", "bad_request")
		writeError(w, fmt.Sprintf("build failed: %v", buildErr), http.StatusBadRequest)
		return
	}

	entry.SetIndex(idx, prov)
	if req.Metadata != nil {
		entry.SetMetadata(req.Metadata.AsMap())
	}
	h.cache.Clear()
	h.metrics.RecordBuild(name, idx.Len(), idx.Depth(), took)

	writeJSON(w, BuildResponse{Index: name, Size: idx.Len(), Depth: idx.Depth(), Took: took.Seconds()}, http.StatusCreated)
}

// KNN handles POST /v1/indexes/{name}/knn.
func (h *Handler) KNN(w http.ResponseWriter, r *http.Request, name string) {
	var req KNNRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry, err := h.reg.Get(name)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	if !entry.Active() {
		writeError(w, fmt.Sprintf("index %q is inactive", name), http.StatusServiceUnavailable)
		return
	}
	if err := entry.CheckRateLimit(); err != nil {
		writeError(w, err.Error(), http.StatusTooManyRequests)
		return
	}

	idx := entry.Index()
	if idx == nil {
		writeError(w, fmt.Sprintf("index %q has not been built yet", name), http.StatusConflict)
		return
	}

	query, err := req.Query.ToGeometry()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cacheKey := GenerateKNNQueryKey(name, query.BBox(), req.K)
	if cached, found := h.cache.GetKNN(cacheKey); found {
		h.metrics.RecordCacheHit()
		writeJSON(w, KNNResponse{Results: itemsToDTO(cached), Cached: true}, http.StatusOK)
		return
	}
	h.metrics.RecordCacheMiss()

	start := time.Now()
	results, err := knn.TrueKNN(idx, query, req.K, req.MaxCandidates)
	latency := time.Since(start)
	if err != nil {
		h.metrics.RecordError("knn", "bad_request")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.cache.PutKNN(cacheKey, results)
	h.metrics.RecordKNNQuery(len(results), len(results), latency)

	writeJSON(w, KNNResponse{Results: itemsToDTO(results), Cached: false}, http.StatusOK)
}

// Join handles POST /v1/indexes/{name}/join: the named index is the right
// side; the request body supplies the left-side shapes inline.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request, name string) {
	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	entry, err := h.reg.Get(name)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	idx := entry.Index()
	if idx == nil {
		writeError(w, fmt.Sprintf("index %q has not been built yet", name), http.StatusConflict)
		return
	}

	mode := join.Inner
	if req.Mode == "left" {
		mode = join.Left
	}

	leftShapes := make([]geom2d.Geometry, len(req.Left))
	for i, s := range req.Left {
		g, err := s.ToGeometry()
		if err != nil {
			writeError(w, fmt.Sprintf("left shape %d: %v", i, err), http.StatusBadRequest)
			return
		}
		leftShapes[i] = g
	}
	leftProv := provider.NewSliceProvider(leftShapes)

	start := time.Now()
	rows := make([]JoinRowDTO, 0, len(leftShapes))
	for res := range join.Join(leftProv, idx, req.K, mode) {
		rows = append(rows, JoinRowDTO{LeftID: int(res.LeftID), Results: itemsToDTO(res.Items)})
	}
	h.metrics.RecordJoin(len(rows), time.Since(start))

	writeJSON(w, JoinResponse{Rows: rows}, http.StatusOK)
}

// Stats handles GET /v1/indexes/{name}/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, name string) {
	entry, err := h.reg.Get(name)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, statsResponseFor(entry), http.StatusOK)
}

func statsResponseFor(e *registry.Entry) StatsResponse {
	idx := e.Index()
	resp := StatsResponse{Name: e.Name, Active: e.Active(), IsBuilt: idx != nil}
	if idx != nil {
		resp.Size = idx.Len()
		resp.Depth = idx.Depth()
	}
	if md := e.GetMetadata(); len(md) > 0 {
		if s, err := structpb.NewStruct(md); err == nil {
			resp.Metadata = s
		}
	}
	return resp
}

func itemsToDTO(items []knn.Item) []ItemDTO {
	out := make([]ItemDTO, len(items))
	for i, it := range items {
		out[i] = ItemDTO{ID: uint64(it.ID), Distance: it.Distance}
	}
	return out
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}

// ParseIntQuery parses an integer query parameter.
func ParseIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
