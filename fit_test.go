package geostat

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticVariogram samples m exactly at the centres of n bins over maxLag.
func syntheticVariogram(m VariogramModel, maxLag float64, n int) *EmpiricalVariogram {
	ev := &EmpiricalVariogram{Attribute: "v", MaxLag: maxLag, Width: maxLag / float64(n), Bins: make([]Bin, n)}
	for k := range ev.Bins {
		lag := (float64(k) + 0.5) * ev.Width
		ev.Bins[k] = Bin{Lag: lag, MeanDistance: lag, Gamma: m.Gamma(lag), Count: 10 + k}
	}
	return ev
}

func TestFitVariogramRecoversModel(t *testing.T) {
	cases := []VariogramModel{
		{Type: Exponential, Nugget: 0.5, Sill: 3, Range: 40},
		{Type: Spherical, Nugget: 0.2, Sill: 1.5, Range: 60},
		{Type: Gaussian, Nugget: 0.1, Sill: 2, Range: 50},
		{Type: Exponential, Nugget: 0, Sill: 1, Range: 25},
	}
	for _, want := range cases {
		t.Run(string(want.Type), func(t *testing.T) {
			a := assert.New(t)
			ev := syntheticVariogram(want, 100, 20)

			got, err := FitVariogram(ev, want.Type, nil)
			require.NoError(t, err)
			a.Equal(want.Type, got.Type)
			a.InDelta(want.Nugget, got.Nugget, 1e-3)
			a.InDelta(want.Sill, got.Sill, 1e-3)
			a.InDelta(want.Range, got.Range, 1e-2)
			a.Less(WeightedError(ev, got), 1e-6)
		})
	}
}

func TestFitVariogramConstraints(t *testing.T) {
	for seed := int64(1); seed <= 8; seed++ {
		ps := randomPointSet(t, 150, seed)
		ev, err := NewEmpiricalVariogram(ps, "v", DefaultMaxLag(ps, 0), nil)
		require.NoError(t, err)

		for _, typ := range ModelTypes {
			m, err := FitVariogram(ev, typ, nil)
			if typ == Gaussian && errors.Is(err, ErrFitFailure) {
				continue
			}
			require.NoError(t, err, "seed %d %s", seed, typ)
			assert.GreaterOrEqual(t, m.Nugget, 0.0, "seed %d %s", seed, typ)
			assert.Greater(t, m.Sill, m.Nugget, "seed %d %s", seed, typ)
			assert.Greater(t, m.Range, 0.0, "seed %d %s", seed, typ)
			assert.LessOrEqual(t, m.Range, rangeCeiling*ev.MaxLag, "seed %d %s", seed, typ)
			assert.NoError(t, m.Validate())
		}
	}
}

func TestFitVariogramLinearTrend(t *testing.T) {
	// Bins rising linearly over the whole lag window leave the range
	// unidentified; the fit must still settle.
	ev := &EmpiricalVariogram{Attribute: "v", MaxLag: 100, Width: 5, Bins: make([]Bin, 20)}
	for k := range ev.Bins {
		lag := (float64(k) + 0.5) * ev.Width
		ev.Bins[k] = Bin{Lag: lag, MeanDistance: lag, Gamma: 0.1 + 0.02*lag, Count: 50}
	}
	for _, typ := range []ModelType{Spherical, Exponential} {
		m, err := FitVariogram(ev, typ, nil)
		require.NoError(t, err, "%s", typ)
		assert.NoError(t, m.Validate())
		assert.LessOrEqual(t, m.Range, rangeCeiling*ev.MaxLag)
	}
}

func TestFitAllOrdersByError(t *testing.T) {
	a := assert.New(t)
	ev := syntheticVariogram(VariogramModel{Type: Spherical, Nugget: 0.2, Sill: 1.5, Range: 60}, 100, 20)

	fits, err := FitAll(ev, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, fits)
	a.Equal(Spherical, fits[0].Type)
	for i := 1; i < len(fits); i++ {
		a.LessOrEqual(WeightedError(ev, fits[i-1]), WeightedError(ev, fits[i]))
	}
}

func TestFitVariogramTooFewBins(t *testing.T) {
	ev := syntheticVariogram(VariogramModel{Type: Spherical, Sill: 1, Range: 2}, 4, 5)
	for k := 2; k < len(ev.Bins); k++ {
		ev.Bins[k] = Bin{Lag: ev.Bins[k].Lag, Gamma: math.NaN(), MeanDistance: math.NaN()}
	}

	_, err := FitVariogram(ev, Spherical, nil)
	assert.True(t, errors.Is(err, ErrFitFailure), "got %v", err)
}

func TestFitVariogramNoVariance(t *testing.T) {
	ev := syntheticVariogram(VariogramModel{Type: Spherical, Sill: 1, Range: 2}, 4, 5)
	for k := range ev.Bins {
		ev.Bins[k].Gamma = 0
	}

	_, err := FitVariogram(ev, Spherical, nil)
	assert.True(t, errors.Is(err, ErrFitFailure), "got %v", err)
}

func TestFitVariogramInvalidInput(t *testing.T) {
	_, err := FitVariogram(nil, Spherical, nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	ev := syntheticVariogram(VariogramModel{Type: Spherical, Sill: 1, Range: 2}, 4, 5)
	_, err = FitVariogram(ev, "hole-effect", nil)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestFitBestPicksGeneratingFamily(t *testing.T) {
	a := assert.New(t)
	want := VariogramModel{Type: Exponential, Nugget: 0.5, Sill: 3, Range: 40}
	ev := syntheticVariogram(want, 100, 20)

	got, err := FitBest(ev, nil, nil)
	require.NoError(t, err)
	a.Equal(Exponential, got.Type)
	a.InDelta(want.Range, got.Range, 1e-2)
}

func TestFitBestAllFail(t *testing.T) {
	ev := syntheticVariogram(VariogramModel{Type: Spherical, Sill: 1, Range: 2}, 4, 2)

	_, err := FitBest(ev, nil, nil)
	assert.True(t, errors.Is(err, ErrFitFailure))
}
