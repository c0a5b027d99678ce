package geostat

import (
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"
)

type Coordinates []vec3d.T

// Grid is a regular node grid spanning a bounding box, x varying fastest,
// then y, then z.
type Grid struct {
	Dims        [3]int
	Bounds      BoundingBox
	Coordinates Coordinates
	// outside flags nodes excluded from estimation.
	outside []bool
}

// NewGrid places dims[i] evenly spaced nodes on axis i from the box minimum
// to its maximum. An axis with a single node sits at the box centre.
func NewGrid(bounds BoundingBox, dims [3]int) (*Grid, error) {
	if bounds.Empty() {
		return nil, invalidInput("empty bounding box")
	}
	for i, d := range dims {
		if d < 1 {
			return nil, invalidInput("grid axis %d has %d nodes", i, d)
		}
	}
	xs := linspace(bounds.Min[0], bounds.Max[0], dims[0])
	ys := linspace(bounds.Min[1], bounds.Max[1], dims[1])
	zs := linspace(bounds.Min[2], bounds.Max[2], dims[2])

	g := &Grid{Dims: dims, Bounds: bounds}
	g.Coordinates = make(Coordinates, 0, dims[0]*dims[1]*dims[2])
	for _, z := range zs {
		for _, y := range ys {
			for _, x := range xs {
				g.Coordinates = append(g.Coordinates, vec3d.T{x, y, z})
			}
		}
	}
	return g, nil
}

// DimsForResolution returns the node counts giving roughly cell spacing on
// each axis of bounds. Flat axes get a single node.
func DimsForResolution(bounds BoundingBox, cell float64) [3]int {
	dims := [3]int{1, 1, 1}
	if !(cell > 0) {
		return dims
	}
	size := bounds.Size()
	for i := range size {
		if size[i] > 0 {
			dims[i] = int(size[i]/cell+0.5) + 1
		}
	}
	return dims
}

// NewPoints wraps arbitrary estimation locations as a 1-D grid.
func NewPoints(points []vec3d.T) *Grid {
	g := &Grid{Dims: [3]int{len(points), 1, 1}, Bounds: BoundingBox{Min: vec3d.MaxVal, Max: vec3d.MinVal}}
	g.Coordinates = append(Coordinates(nil), points...)
	for i := range g.Coordinates {
		g.Bounds.Extend(&g.Coordinates[i])
	}
	return g
}

func (g *Grid) Len() int {
	return len(g.Coordinates)
}

func (g *Grid) At(i int) vec3d.T {
	return g.Coordinates[i]
}

func (g *Grid) Index(ix, iy, iz int) int {
	return (iz*g.Dims[1]+iy)*g.Dims[0] + ix
}

// Masked reports whether node i is excluded from estimation.
func (g *Grid) Masked(i int) bool {
	return g.outside != nil && g.outside[i]
}

// MaskOutsideHull returns a copy of g, sharing its coordinates, with the
// nodes outside the planar convex hull of ps excluded, and how many were
// excluded. g keeps its own mask.
func (g *Grid) MaskOutsideHull(ps *PointSet) (*Grid, int) {
	hull := NewConvex(ps.Positions())
	ret := *g
	ret.outside = make([]bool, len(g.Coordinates))
	n := 0
	for i, c := range g.Coordinates {
		if g.Masked(i) || !hull.Contains(vec2d.T{c[0], c[1]}) {
			ret.outside[i] = true
			n++
		}
	}
	return &ret, n
}
