package rest

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/bvh"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
	"github.com/geospatial-oss/geoindex/pkg/geoindex/geom2d"
)

// PointDTO is the wire representation of a 2D point.
type PointDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShapeDTO is the wire representation of a geometry: a point, a two-point
// segment, or a polygon ring, disambiguated by Kind.
type ShapeDTO struct {
	Kind   string     `json:"kind"`
	Points []PointDTO `json:"points"`
}

// ToGeometry converts a ShapeDTO into a geom2d.Geometry.
func (s ShapeDTO) ToGeometry() (geom2d.Geometry, error) {
	switch s.Kind {
	case "point":
		if len(s.Points) != 1 {
			return nil, fmt.Errorf("point shape requires exactly 1 point, got %d", len(s.Points))
		}
		return geom2d.Point{X: s.Points[0].X, Y: s.Points[0].Y}, nil
	case "segment":
		if len(s.Points) != 2 {
			return nil, fmt.Errorf("segment shape requires exactly 2 points, got %d", len(s.Points))
		}
		return geom2d.Segment{
			A: geom2d.Point{X: s.Points[0].X, Y: s.Points[0].Y},
			B: geom2d.Point{X: s.Points[1].X, Y: s.Points[1].Y},
		}, nil
	case "polygon":
		if len(s.Points) < 3 {
			return nil, fmt.Errorf("polygon shape requires at least 3 points, got %d", len(s.Points))
		}
		pts := make([]geom2d.Point, len(s.Points))
		for i, p := range s.Points {
			pts[i] = geom2d.Point{X: p.X, Y: p.Y}
		}
		return geom2d.Polygon{Points: pts}, nil
	default:
		return nil, fmt.Errorf("unknown shape kind %q (want point, segment, or polygon)", s.Kind)
	}
}

// BuildParamsDTO is the wire representation of bvh.BuildParams.
type BuildParamsDTO struct {
	LeafCapacity   int    `json:"leaf_capacity,omitempty"`
	MaxFanout      int    `json:"max_fanout,omitempty"`
	MinFanout      int    `json:"min_fanout,omitempty"`
	KMeansMaxIters int    `json:"kmeans_max_iters,omitempty"`
	EnclosureKind  string `json:"enclosure_kind,omitempty"`
	RNGSeed        uint64 `json:"rng_seed,omitempty"`
}

// ToBuildParams merges the DTO's set fields over bvh.DefaultBuildParams().
func (d BuildParamsDTO) ToBuildParams() bvh.BuildParams {
	p := bvh.DefaultBuildParams()
	if d.LeafCapacity != 0 {
		p.LeafCapacity = d.LeafCapacity
	}
	if d.MaxFanout != 0 {
		p.MaxFanout = d.MaxFanout
	}
	if d.MinFanout != 0 {
		p.MinFanout = d.MinFanout
	}
	if d.KMeansMaxIters != 0 {
		p.KMeansMaxIters = d.KMeansMaxIters
	}
	if d.EnclosureKind == "sphere" {
		p.EnclosureKind = enclosure.Sphere
	}
	if d.RNGSeed != 0 {
		p.RNGSeed = d.RNGSeed
	}
	return p
}

// BuildRequest is the body of POST /v1/indexes/{name}/build. Metadata is an
// arbitrary, caller-supplied attribute bag (dataset provenance, a source
// URI, a build label) stored alongside the index and echoed back by Stats;
// it is never interpreted by the build itself.
type BuildRequest struct {
	Shapes   []ShapeDTO       `json:"shapes"`
	Params   BuildParamsDTO   `json:"params,omitempty"`
	Metadata *structpb.Struct `json:"metadata,omitempty"`
}

// BuildResponse is the body returned from a successful build.
type BuildResponse struct {
	Index string  `json:"index"`
	Size  int     `json:"size"`
	Depth int     `json:"depth"`
	Took  float64 `json:"took_seconds"`
}

// KNNRequest is the body of POST /v1/indexes/{name}/knn.
type KNNRequest struct {
	Query         ShapeDTO `json:"query"`
	K             int      `json:"k"`
	MaxCandidates int      `json:"max_candidates,omitempty"`
}

// ItemDTO is the wire representation of a single knn.Item.
type ItemDTO struct {
	ID       uint64  `json:"id"`
	Distance float64 `json:"distance"`
}

// KNNResponse is the body returned from a successful kNN query.
type KNNResponse struct {
	Results []ItemDTO `json:"results"`
	Cached  bool      `json:"cached"`
}

// JoinRequest is the body of POST /v1/indexes/{name}/join.
type JoinRequest struct {
	Left []ShapeDTO `json:"left"`
	K    int        `json:"k"`
	Mode string     `json:"mode,omitempty"` // "inner" (default) or "left"
}

// JoinRowDTO is one row of a join response.
type JoinRowDTO struct {
	LeftID  int       `json:"left_id"`
	Results []ItemDTO `json:"results"`
}

// JoinResponse is the body returned from a successful join.
type JoinResponse struct {
	Rows []JoinRowDTO `json:"rows"`
}

// StatsResponse is the body returned from GET /v1/indexes/{name}/stats.
type StatsResponse struct {
	Name     string           `json:"name"`
	Size     int              `json:"size"`
	Depth    int              `json:"depth"`
	Active   bool             `json:"active"`
	IsBuilt  bool             `json:"is_built"`
	Metadata *structpb.Struct `json:"metadata,omitempty"`
}

// HealthResponse is the body returned from GET /v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
