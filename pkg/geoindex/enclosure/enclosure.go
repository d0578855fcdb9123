// Package enclosure implements the bounding-geometry primitives used by the
// BVH index: axis-aligned rectangles and bounding spheres, combined into a
// single tagged variant so the index can be built with either kind without
// branching at every call site.
package enclosure

import "math"

// Kind selects which enclosure variant a built index uses.
type Kind int

const (
	// Rect bounds shapes with an axis-aligned rectangle.
	Rect Kind = iota
	// Sphere bounds shapes with a centre and radius.
	Sphere
)

func (k Kind) String() string {
	switch k {
	case Rect:
		return "rect"
	case Sphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// growEpsilon is the outward expansion applied on Combine to stay
// conservative under floating-point rounding, per the "grow, never shrink"
// rounding policy for enclosures.
const growEpsilon = 1e-9

// BBox is an axis-aligned rectangle, also the type every Geometry reports
// as its own bounding box.
type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Center returns the rectangle's centroid.
func (b BBox) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Valid reports whether every coordinate is finite and the rectangle is
// well-formed (min <= max on both axes).
func (b BBox) Valid() bool {
	if math.IsNaN(b.MinX) || math.IsNaN(b.MinY) || math.IsNaN(b.MaxX) || math.IsNaN(b.MaxY) {
		return false
	}
	if math.IsInf(b.MinX, 0) || math.IsInf(b.MinY, 0) || math.IsInf(b.MaxX, 0) || math.IsInf(b.MaxY, 0) {
		return false
	}
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// UnionBBox returns the smallest rectangle containing both inputs.
func UnionBBox(a, b BBox) BBox {
	return BBox{
		MinX: math.Min(a.MinX, b.MinX),
		MinY: math.Min(a.MinY, b.MinY),
		MaxX: math.Max(a.MaxX, b.MaxX),
		MaxY: math.Max(a.MaxY, b.MaxY),
	}
}

// Enclosure is the tagged Rect/Sphere variant. Only the fields for the
// active Kind are meaningful.
type Enclosure struct {
	Kind Kind

	// Rect fields.
	MinX, MinY, MaxX, MaxY float64

	// Sphere fields.
	CX, CY, R float64
}

// FromBBox builds the smallest enclosure of the given kind containing bbox.
func FromBBox(bbox BBox, kind Kind) Enclosure {
	switch kind {
	case Sphere:
		cx, cy := bbox.Center()
		dx, dy := bbox.MaxX-cx, bbox.MaxY-cy
		return Enclosure{Kind: Sphere, CX: cx, CY: cy, R: math.Hypot(dx, dy)}
	default:
		return Enclosure{Kind: Rect, MinX: bbox.MinX, MinY: bbox.MinY, MaxX: bbox.MaxX, MaxY: bbox.MaxY}
	}
}

// BBox returns the enclosure's own axis-aligned bounding box, used wherever
// an enclosure needs to be combined with a bare BBox.
func (e Enclosure) BBox() BBox {
	if e.Kind == Sphere {
		return BBox{MinX: e.CX - e.R, MinY: e.CY - e.R, MaxX: e.CX + e.R, MaxY: e.CY + e.R}
	}
	return BBox{MinX: e.MinX, MinY: e.MinY, MaxX: e.MaxX, MaxY: e.MaxY}
}

// Combine returns the smallest enclosure of a's kind containing both a and
// b, grown by growEpsilon to stay conservative under rounding. When a is a
// Sphere and b is a Rect, the result is the sphere circumscribing the union
// of both bounding boxes.
func Combine(a, b Enclosure) Enclosure {
	union := UnionBBox(a.BBox(), b.BBox())
	switch a.Kind {
	case Sphere:
		if b.Kind == Sphere {
			dx, dy := b.CX-a.CX, b.CY-a.CY
			d := math.Hypot(dx, dy)
			switch {
			case d+b.R <= a.R:
				return Enclosure{Kind: Sphere, CX: a.CX, CY: a.CY, R: a.R + growEpsilon}
			case d+a.R <= b.R:
				return Enclosure{Kind: Sphere, CX: b.CX, CY: b.CY, R: b.R + growEpsilon}
			}
			r := (d + a.R + b.R) / 2
			t := (r - a.R) / d
			return Enclosure{Kind: Sphere, CX: a.CX + dx*t, CY: a.CY + dy*t, R: r + growEpsilon}
		}
		cx, cy := union.Center()
		dx, dy := union.MaxX-cx, union.MaxY-cy
		return Enclosure{Kind: Sphere, CX: cx, CY: cy, R: math.Hypot(dx, dy) + growEpsilon}
	default:
		return Enclosure{
			Kind: Rect,
			MinX: union.MinX - growEpsilon, MinY: union.MinY - growEpsilon,
			MaxX: union.MaxX + growEpsilon, MaxY: union.MaxY + growEpsilon,
		}
	}
}

// rectRectDistance returns the axis-aligned distance between two rectangles,
// zero if they overlap or touch.
func rectRectDistance(a, b BBox) float64 {
	dx := math.Max(0, math.Max(a.MinX-b.MaxX, b.MinX-a.MaxX))
	dy := math.Max(0, math.Max(a.MinY-b.MaxY, b.MinY-a.MaxY))
	return math.Hypot(dx, dy)
}

// closestPointOnBBox returns the point within bbox nearest to (x, y).
func closestPointOnBBox(bbox BBox, x, y float64) (float64, float64) {
	cx := math.Min(math.Max(x, bbox.MinX), bbox.MaxX)
	cy := math.Min(math.Max(y, bbox.MinY), bbox.MaxY)
	return cx, cy
}

// DistanceLowerBound returns a value <= the true distance from any point
// inside e to any point of queryBBox, the geometry collaborator's own
// bounding box. Using queryBBox rather than the exact query geometry keeps
// the bound sound, since queryBBox contains the query geometry.
func DistanceLowerBound(e Enclosure, queryBBox BBox) float64 {
	if e.Kind == Sphere {
		px, py := closestPointOnBBox(queryBBox, e.CX, e.CY)
		d := math.Hypot(px-e.CX, py-e.CY)
		return math.Max(0, d-e.R)
	}
	return rectRectDistance(e.BBox(), queryBBox)
}
