package geostat

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveGridMatchesEstimate(t *testing.T) {
	a := assert.New(t)
	ps := randomPointSet(t, 30, 8)
	kri, err := NewOrdinaryKriging(ps, "v", VariogramModel{Type: Exponential, Nugget: 0.05, Sill: 1, Range: 30}, nil)
	require.NoError(t, err)

	g, err := NewGrid(ps.Bounds(), [3]int{25, 20, 1})
	require.NoError(t, err)

	res, err := SolveGrid(context.Background(), kri, g, 4)
	require.NoError(t, err)
	a.Equal(MethodKriging, res.Method)
	require.Len(t, res.Estimates, g.Len())
	require.Len(t, res.Variances, g.Len())

	for _, i := range []int{0, 17, 250, g.Len() - 1} {
		est, err := kri.Estimate(g.At(i))
		require.NoError(t, err)
		a.Equal(est.Value, res.Estimates[i])
		a.Equal(est.Variance, res.Variances[i])
	}
}

func TestSolveGridMasked(t *testing.T) {
	a := assert.New(t)
	ps := triangle(t)
	idw, err := NewIDW(ps, "v", nil)
	require.NoError(t, err)

	full, err := NewGrid(ps.Bounds(), [3]int{3, 3, 1})
	require.NoError(t, err)
	g, n := full.MaskOutsideHull(ps)
	a.Equal(3, n)

	res, err := SolveGrid(context.Background(), idw, g, 0)
	require.NoError(t, err)
	a.Nil(res.Variances)
	a.Equal(10.0, res.Estimates[0])
	a.True(math.IsNaN(res.Estimates[g.Index(2, 2, 0)]))

	raster := res.Raster()
	a.Equal(NoData, raster[g.Index(2, 2, 0)])
	a.Equal(10.0, raster[0])
	a.Nil(res.VarianceRaster())
}

type failingEstimator struct {
	after int
}

func (f *failingEstimator) Method() Method { return MethodIDW }

func (f *failingEstimator) Estimate(p vec3d.T) (Estimate, error) {
	if p[0] >= float64(f.after) {
		return Estimate{}, ErrSingularSystem
	}
	return Estimate{Value: 1}, nil
}

func TestSolveGridError(t *testing.T) {
	b := BoundingBox{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{99, 9, 0}}
	g, err := NewGrid(b, [3]int{100, 10, 1})
	require.NoError(t, err)

	res, err := SolveGrid(context.Background(), &failingEstimator{after: 90}, g, 3)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrSingularSystem))
}

func TestSolveGridCancelled(t *testing.T) {
	ps := triangle(t)
	idw, err := NewIDW(ps, "v", nil)
	require.NoError(t, err)
	g, err := NewGrid(ps.Bounds(), [3]int{10, 10, 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := SolveGrid(ctx, idw, g, 2)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEstimationResultWriteCSV(t *testing.T) {
	a := assert.New(t)

	res := &EstimationResult{
		Method:    MethodKriging,
		Grid:      NewPoints([]vec3d.T{{0, 0, 0}, {1.5, 2, 0}}),
		Estimates: []float64{3, math.NaN()},
		Variances: []float64{0.25, math.NaN()},
	}
	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	a.Equal([]string{
		"x,y,z,estimate,variance",
		"0,0,0,3,0.25",
		"1.5,2,0,,",
	}, lines)
}

func TestEstimationResultCSVReadsBack(t *testing.T) {
	res := &EstimationResult{
		Method:    MethodIDW,
		Grid:      NewPoints([]vec3d.T{{0, 0, 1}, {2.5, -1, 1}}),
		Estimates: []float64{7, 0.125},
	}
	var buf bytes.Buffer
	require.NoError(t, res.WriteCSV(&buf))

	samples, err := LoadCSV(&buf, CSVOptions{Coordinates: []string{"x", "y", "z"}})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, vec3d.T{2.5, -1, 1}, samples[1].Pos)
	assert.Equal(t, map[string]float64{"estimate": 0.125}, samples[1].Values)
}
