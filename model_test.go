package geostat

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariogramModelGamma(t *testing.T) {
	a := assert.New(t)

	for _, typ := range ModelTypes {
		m := VariogramModel{Type: typ, Nugget: 0.5, Sill: 2.5, Range: 10}
		a.Equal(0.0, m.Gamma(0), "%s", typ)
		a.GreaterOrEqual(m.Gamma(1e-9), m.Nugget, "%s", typ)
		a.LessOrEqual(m.Gamma(1e6), m.Sill+1e-12, "%s", typ)

		prev := 0.0
		for h := 0.0; h <= 30; h += 0.25 {
			g := m.Gamma(h)
			a.GreaterOrEqual(g, prev, "%s at %g", typ, h)
			prev = g
		}
	}

	sph := VariogramModel{Type: Spherical, Nugget: 0.5, Sill: 2.5, Range: 10}
	a.InDelta(2.5, sph.Gamma(10), 1e-12)
	a.InDelta(2.5, sph.Gamma(25), 1e-12)
	a.InDelta(0.5+2*(0.75-0.0625), sph.Gamma(5), 1e-12)

	practical := 1 - math.Exp(-3)
	for _, typ := range []ModelType{Exponential, Gaussian} {
		m := VariogramModel{Type: typ, Nugget: 0.5, Sill: 2.5, Range: 10}
		a.InDelta(0.5+2*practical, m.Gamma(10), 1e-12, "%s", typ)
	}
}

func TestVariogramModelGradient(t *testing.T) {
	a := assert.New(t)

	const eps = 1e-6
	for _, typ := range ModelTypes {
		m := VariogramModel{Type: typ, Nugget: 0.3, Sill: 1.7, Range: 12}
		for _, h := range []float64{0.5, 3, 8, 11.5, 20} {
			g := m.Gradient(h)

			n := m
			n.Nugget += eps
			n.Sill += eps
			// moving nugget and sill together leaves the structured part fixed
			a.InDelta(1, (n.Gamma(h)-m.Gamma(h))/eps, 1e-6, "%s nugget+sill at %g", typ, h)
			a.InDelta(1, g[0]+g[1], 1e-12)

			r := m
			r.Range += eps
			a.InDelta((r.Gamma(h)-m.Gamma(h))/eps, g[2], 1e-5, "%s range at %g", typ, h)
		}
		a.Equal([3]float64{}, m.Gradient(0))
	}
}

func TestVariogramModelValidate(t *testing.T) {
	a := assert.New(t)

	a.NoError(VariogramModel{Type: Gaussian, Nugget: 0, Sill: 1, Range: 1}.Validate())

	bad := []VariogramModel{
		{Type: "cubic", Sill: 1, Range: 1},
		{Type: Spherical, Nugget: -1, Sill: 1, Range: 1},
		{Type: Spherical, Nugget: 1, Sill: 1, Range: 1},
		{Type: Spherical, Sill: 1, Range: 0},
		{Type: Spherical, Sill: 1, Range: math.NaN()},
		{Type: Spherical, Sill: 1, Range: math.Inf(1)},
	}
	for _, m := range bad {
		a.True(errors.Is(m.Validate(), ErrInvalidInput), "%v", m)
	}
}

func TestParseModelType(t *testing.T) {
	a := assert.New(t)

	typ, err := ParseModelType(" Exponential ")
	a.NoError(err)
	a.Equal(Exponential, typ)

	_, err = ParseModelType("linear")
	a.True(errors.Is(err, ErrInvalidInput))
}
