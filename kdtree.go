package geostat

import (
	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

type indexedPoint struct {
	pos   vec3d.T
	index int
}

func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.pos[d] - q.pos[d]
}

func (p indexedPoint) Dims() int { return 3 }

// Distance is squared, as kdtree expects.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	return pow2(p.pos[0]-q.pos[0]) + pow2(p.pos[1]-q.pos[1]) + pow2(p.pos[2]-q.pos[2])
}

type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p indexedPoints) Pivot(d kdtree.Dim) int {
	plane := pointPlane{indexedPoints: p, Dim: d}
	return kdtree.Partition(plane, kdtree.MedianOfRandoms(plane, 100))
}

type pointPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	return p.indexedPoints[i].pos[p.Dim] < p.indexedPoints[j].pos[p.Dim]
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// radiusIndex answers fixed-radius neighbour queries over a point set.
type radiusIndex struct {
	tree *kdtree.Tree
}

func newRadiusIndex(pos []vec3d.T) *radiusIndex {
	pts := make(indexedPoints, len(pos))
	for i := range pos {
		pts[i] = indexedPoint{pos: pos[i], index: i}
	}
	return &radiusIndex{tree: kdtree.New(pts, false)}
}

// within calls fn with the index of every point whose distance to q is at
// most r. Callers recheck the exact distance.
func (ri *radiusIndex) within(q vec3d.T, r float64, fn func(int)) {
	keeper := kdtree.NewDistKeeper(pow2(r) * (1 + 1e-9))
	ri.tree.NearestSet(keeper, indexedPoint{pos: q, index: -1})
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		fn(item.Comparable.(indexedPoint).index)
	}
}
