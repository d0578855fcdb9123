// Package geom2d provides a minimal set of 2D geometries (Point, Segment,
// Polygon) implementing the Geometry contract the index core consumes.
//
// This is a stand-in for the real geometry library the core declares as an
// external collaborator: exact geometry math (robust polygon clipping,
// curved primitives, projections) is explicitly out of scope for the core,
// but something concrete has to satisfy bbox/distance for the engine to be
// exercised end to end.
package geom2d

import (
	"math"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
)

// Geometry is the contract the index core consumes from its geometry
// collaborator: a bounding box and an exact, symmetric, non-negative
// distance to another Geometry.
type Geometry interface {
	BBox() enclosure.BBox
	DistanceTo(other Geometry) float64
}

// Point is a single 2D coordinate.
type Point struct {
	X, Y float64
}

// BBox implements Geometry.
func (p Point) BBox() enclosure.BBox {
	return enclosure.BBox{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// DistanceTo implements Geometry via a type switch over the common shapes.
func (p Point) DistanceTo(other Geometry) float64 {
	switch o := other.(type) {
	case Point:
		return math.Hypot(p.X-o.X, p.Y-o.Y)
	case Segment:
		return pointToSegmentDistance(p, o.A, o.B)
	case Polygon:
		return o.DistanceTo(p)
	default:
		return genericDistance(p, other)
	}
}

// Segment is a straight line between two points.
type Segment struct {
	A, B Point
}

// BBox implements Geometry.
func (s Segment) BBox() enclosure.BBox {
	return enclosure.BBox{
		MinX: math.Min(s.A.X, s.B.X), MinY: math.Min(s.A.Y, s.B.Y),
		MaxX: math.Max(s.A.X, s.B.X), MaxY: math.Max(s.A.Y, s.B.Y),
	}
}

// DistanceTo implements Geometry.
func (s Segment) DistanceTo(other Geometry) float64 {
	switch o := other.(type) {
	case Point:
		return pointToSegmentDistance(o, s.A, s.B)
	case Segment:
		return segmentToSegmentDistance(s.A, s.B, o.A, o.B)
	case Polygon:
		return o.DistanceTo(s)
	default:
		return genericDistance(s, other)
	}
}

// Polygon is a simple closed ring of vertices; the closing edge from the
// last point back to the first is implicit.
type Polygon struct {
	Points []Point
}

// BBox implements Geometry.
func (pg Polygon) BBox() enclosure.BBox {
	if len(pg.Points) == 0 {
		return enclosure.BBox{}
	}
	b := enclosure.BBox{MinX: pg.Points[0].X, MinY: pg.Points[0].Y, MaxX: pg.Points[0].X, MaxY: pg.Points[0].Y}
	for _, p := range pg.Points[1:] {
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
	}
	return b
}

func (pg Polygon) edges() []Segment {
	n := len(pg.Points)
	if n < 2 {
		return nil
	}
	edges := make([]Segment, n)
	for i := 0; i < n; i++ {
		edges[i] = Segment{A: pg.Points[i], B: pg.Points[(i+1)%n]}
	}
	return edges
}

// DistanceTo implements Geometry. Overlapping or edge-touching polygons
// report 0 because their edges intersect; full containment with no edge
// crossing is additionally handled by a point-in-polygon check.
func (pg Polygon) DistanceTo(other Geometry) float64 {
	switch o := other.(type) {
	case Point:
		if pg.contains(o) {
			return 0
		}
		return pg.minEdgeDistance([]Point{o}, nil)
	case Segment:
		if pg.contains(o.A) || pg.contains(o.B) {
			return 0
		}
		return pg.minEdgeDistance(nil, []Segment{o})
	case Polygon:
		for _, v := range o.Points {
			if pg.contains(v) {
				return 0
			}
		}
		for _, v := range pg.Points {
			if o.contains(v) {
				return 0
			}
		}
		return pg.minEdgeDistance(nil, o.edges())
	default:
		return genericDistance(pg, other)
	}
}

func (pg Polygon) minEdgeDistance(points []Point, segs []Segment) float64 {
	edges := pg.edges()
	if len(edges) == 0 {
		// Degenerate polygon (0 or 1 vertex): fall back to point distance.
		if len(pg.Points) == 1 {
			best := math.Inf(1)
			for _, p := range points {
				best = math.Min(best, pointToSegmentDistance(p, pg.Points[0], pg.Points[0]))
			}
			for _, s := range segs {
				best = math.Min(best, pointToSegmentDistance(pg.Points[0], s.A, s.B))
			}
			return best
		}
		return math.Inf(1)
	}

	best := math.Inf(1)
	for _, e := range edges {
		for _, p := range points {
			best = math.Min(best, pointToSegmentDistance(p, e.A, e.B))
		}
		for _, s := range segs {
			best = math.Min(best, segmentToSegmentDistance(e.A, e.B, s.A, s.B))
		}
	}
	return best
}

// contains reports whether p lies inside (or on the boundary of) pg using
// the standard ray-casting test.
func (pg Polygon) contains(p Point) bool {
	n := len(pg.Points)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := pg.Points[i], pg.Points[j]
		if onSegment(vi, vj, p) {
			return true
		}
		if (vi.Y > p.Y) != (vj.Y > p.Y) {
			xIntersect := (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y) + vi.X
			if p.X < xIntersect {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(a, b, p Point) bool {
	cross := (p.X-a.X)*(b.Y-a.Y) - (p.Y-a.Y)*(b.X-a.X)
	if math.Abs(cross) > 1e-12 {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-1e-12 && p.X <= math.Max(a.X, b.X)+1e-12 &&
		p.Y >= math.Min(a.Y, b.Y)-1e-12 && p.Y <= math.Max(a.Y, b.Y)+1e-12
}

func pointToSegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Min(1, math.Max(0, t))
	cx, cy := a.X+t*dx, a.Y+t*dy
	return math.Hypot(p.X-cx, p.Y-cy)
}

// segmentToSegmentDistance returns 0 if the segments intersect (including
// touching endpoints), otherwise the minimum of the four endpoint-to-
// opposite-segment distances.
func segmentToSegmentDistance(a1, a2, b1, b2 Point) float64 {
	if segmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	d1 := pointToSegmentDistance(a1, b1, b2)
	d2 := pointToSegmentDistance(a2, b1, b2)
	d3 := pointToSegmentDistance(b1, a1, a2)
	d4 := pointToSegmentDistance(b2, a1, a2)
	return math.Min(math.Min(d1, d2), math.Min(d3, d4))
}

func orientation(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)

	if ((o1 > 0) != (o2 > 0)) && ((o3 > 0) != (o4 > 0)) {
		return true
	}
	if o1 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if o2 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	if o3 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if o4 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	return false
}

// genericDistance handles distance between any two Geometry values by
// falling back to their bounding boxes' own rectangle distance; used only
// for caller-supplied Geometry implementations outside Point/Segment/Polygon.
func genericDistance(a, b Geometry) float64 {
	ba, bb := a.BBox(), b.BBox()
	dx := math.Max(0, math.Max(ba.MinX-bb.MaxX, bb.MinX-ba.MaxX))
	dy := math.Max(0, math.Max(ba.MinY-bb.MaxY, bb.MinY-ba.MaxY))
	return math.Hypot(dx, dy)
}
