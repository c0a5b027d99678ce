package geostat

import (
	"math"

	mat2d "github.com/flywave/go3d/float64/mat2"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Convex is the planar convex hull of a set of points, ignoring z.
type Convex struct {
	vertices []vec3d.T
	hull     []vec2d.T
	edges    []Edge
}

type Edge struct {
	Start vec2d.T
	End   vec2d.T
	// Normal is the unit normal pointing out of the hull.
	Normal vec2d.T
}

// rotation turns planar vectors by a fixed angle.
type rotation struct {
	m mat2d.T
}

func newRotation(degrees float64) rotation {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	var r rotation
	r.m[0][0] = c
	r.m[0][1] = -s
	r.m[1][0] = s
	r.m[1][1] = c
	return r
}

func (r rotation) apply(v vec2d.T) vec2d.T {
	r.m.TransformVec2(&v)
	return v
}

var quarterTurn = newRotation(90)

func NewConvex(vertices []vec3d.T) *Convex {
	return &Convex{vertices: vertices}
}

func (c *Convex) Rect() vec2d.Rect {
	r := vec2d.Rect{Min: vec2d.MaxVal, Max: vec2d.MinVal}
	hull := c.Hull()
	for i := range hull {
		r.Extend(&hull[i])
	}
	return r
}

// Hull returns the hull vertices in counter-clockwise order.
func (c *Convex) Hull() []vec2d.T {
	if c.hull == nil {
		if len(c.vertices) == 0 {
			c.hull = []vec2d.T{}
			return c.hull
		}
		minX, maxX := c.extremePoints()
		if minX == maxX {
			c.hull = []vec2d.T{minX}
			return c.hull
		}
		c.hull = append(c.quickHull(c.vertices, maxX, minX), c.quickHull(c.vertices, minX, maxX)...)
	}
	return c.hull
}

func (c *Convex) Edges() []Edge {
	if c.edges == nil {
		hull := c.Hull()
		var centre vec2d.T
		for _, p := range hull {
			centre[0] += p[0] / float64(len(hull))
			centre[1] += p[1] / float64(len(hull))
		}
		for i, start := range hull {
			end := hull[(i+1)%len(hull)]
			dir := vec2d.Sub(&end, &start)
			normal := quarterTurn.apply(dir)
			if l := math.Hypot(normal[0], normal[1]); l > 0 {
				normal = vec2d.T{normal[0] / l, normal[1] / l}
			}
			toCentre := vec2d.Sub(&centre, &start)
			if dot(normal, toCentre) > 0 {
				normal = vec2d.T{-normal[0], -normal[1]}
			}
			c.edges = append(c.edges, Edge{Start: start, End: end, Normal: normal})
		}
	}
	return c.edges
}

// Degenerate reports whether the points span no area, in which case
// Contains accepts everything.
func (c *Convex) Degenerate() bool {
	return len(c.Hull()) < 3
}

// Contains reports whether p lies inside the hull or on its boundary.
func (c *Convex) Contains(p vec2d.T) bool {
	if c.Degenerate() {
		return true
	}
	for _, e := range c.Edges() {
		rel := vec2d.Sub(&p, &e.Start)
		if dot(e.Normal, rel) > 1e-12*math.Max(1, math.Hypot(rel[0], rel[1])) {
			return false
		}
	}
	return true
}

func (c *Convex) quickHull(points []vec3d.T, start, end vec2d.T) []vec2d.T {
	left := c.leftOf(points, start, end)
	if len(left) == 0 {
		return []vec2d.T{end}
	}

	farthest := farthestPoint(left)

	next := make([]vec3d.T, 0, len(left))
	for p := range left {
		next = append(next, p)
	}

	return append(
		c.quickHull(next, farthest, end),
		c.quickHull(next, start, farthest)...)
}

func (c *Convex) extremePoints() (minX, maxX vec2d.T) {
	minX = vec2d.T{math.MaxFloat64, 0}
	maxX = vec2d.T{-math.MaxFloat64, 0}

	for _, p := range c.vertices {
		if p[0] < minX[0] || (p[0] == minX[0] && p[1] < minX[1]) {
			minX = vec2d.T{p[0], p[1]}
		}
		if maxX[0] < p[0] || (p[0] == maxX[0] && p[1] > maxX[1]) {
			maxX = vec2d.T{p[0], p[1]}
		}
	}
	return minX, maxX
}

// leftOf keeps the points strictly left of the directed line start->end,
// keyed to their (unnormalised) distance from it.
func (c *Convex) leftOf(points []vec3d.T, start, end vec2d.T) map[vec3d.T]float64 {
	ret := make(map[vec3d.T]float64)
	line := vec2d.Sub(&end, &start)
	for _, point := range points {
		p := vec2d.T{point[0], point[1]}
		rel := vec2d.Sub(&p, &start)
		if d := cross(line, rel); d > 0 {
			ret[vec3d.T{point[0], point[1], 0}] = d
		}
	}
	return ret
}

func farthestPoint(points map[vec3d.T]float64) (farthest vec2d.T) {
	best := -math.MaxFloat64
	for p, d := range points {
		if best < d || (best == d && (p[0] < farthest[0] || (p[0] == farthest[0] && p[1] < farthest[1]))) {
			best = d
			farthest = vec2d.T{p[0], p[1]}
		}
	}
	return farthest
}

func dot(lhs, rhs vec2d.T) float64 {
	return lhs[0]*rhs[0] + lhs[1]*rhs[1]
}

func cross(lhs, rhs vec2d.T) float64 {
	return lhs[0]*rhs[1] - lhs[1]*rhs[0]
}
