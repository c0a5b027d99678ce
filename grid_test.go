package geostat

import (
	"errors"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	a := assert.New(t)

	b := BoundingBox{Min: vec3d.T{0, 10, 0}, Max: vec3d.T{4, 12, 0}}
	g, err := NewGrid(b, [3]int{5, 3, 1})
	require.NoError(t, err)
	a.Equal(15, g.Len())

	a.Equal(vec3d.T{0, 10, 0}, g.At(0))
	a.Equal(vec3d.T{1, 10, 0}, g.At(1))
	a.Equal(vec3d.T{0, 11, 0}, g.At(5))
	a.Equal(vec3d.T{4, 12, 0}, g.At(14))
	a.Equal(g.At(7), g.At(g.Index(2, 1, 0)))
}

func TestNewGridSingleNodeAxis(t *testing.T) {
	b := BoundingBox{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{2, 4, 0}}
	g, err := NewGrid(b, [3]int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, vec3d.T{1, 2, 0}, g.At(0))
}

func TestNewGridInvalid(t *testing.T) {
	b := BoundingBox{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{2, 4, 0}}
	_, err := NewGrid(b, [3]int{0, 1, 1})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = NewGrid(BoundingBox{Min: vec3d.MaxVal, Max: vec3d.MinVal}, [3]int{1, 1, 1})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDimsForResolution(t *testing.T) {
	a := assert.New(t)
	b := BoundingBox{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{10, 5, 0}}

	a.Equal([3]int{11, 6, 1}, DimsForResolution(b, 1))
	a.Equal([3]int{3, 2, 1}, DimsForResolution(b, 5))
	a.Equal([3]int{1, 1, 1}, DimsForResolution(b, 0))
}

func TestMaskOutsideHull(t *testing.T) {
	a := assert.New(t)

	ps, err := NewPointSet(samplesOf("v",
		[]vec3d.T{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}},
		[]float64{1, 2, 3}))
	require.NoError(t, err)

	g, err := NewGrid(ps.Bounds(), [3]int{11, 11, 1})
	require.NoError(t, err)

	masked, n := g.MaskOutsideHull(ps)
	// nodes with x+y > 10 fall outside the triangle
	a.Equal(121-66, n)
	a.False(masked.Masked(g.Index(0, 0, 0)))
	a.False(masked.Masked(g.Index(5, 5, 0)))
	a.True(masked.Masked(g.Index(6, 5, 0)))
	a.True(masked.Masked(g.Index(10, 10, 0)))
	a.Equal(g.Coordinates, masked.Coordinates)

	for i := 0; i < g.Len(); i++ {
		a.False(g.Masked(i), "node %d", i)
	}
}

func TestNewPoints(t *testing.T) {
	a := assert.New(t)

	g := NewPoints([]vec3d.T{{1, 2, 0}, {-1, 5, 0}})
	a.Equal(2, g.Len())
	a.Equal([3]int{2, 1, 1}, g.Dims)
	a.Equal(vec3d.T{-1, 2, 0}, g.Bounds.Min)
	a.Equal(vec3d.T{1, 5, 0}, g.Bounds.Max)
}
