package geostat

import (
	"fmt"
	"math"
)

// Variogram maps a lag distance to semivariance.
type Variogram interface {
	Gamma(h float64) float64
}

// shape is the normalised structure of a model family: a value rising from 0
// at h=0 to 1 at (practical) range, and its derivative with respect to range.
type shape interface {
	value(h, r float64) float64
	rangeDerivative(h, r float64) float64
}

type sphericalShape struct{}

func (sphericalShape) value(h, r float64) float64 {
	if h >= r {
		return 1
	}
	x := h / r
	return 1.5*x - 0.5*pow3(x)
}

func (sphericalShape) rangeDerivative(h, r float64) float64 {
	if h >= r {
		return 0
	}
	return -1.5*h/pow2(r) + 1.5*pow3(h)/pow2(pow2(r))
}

type exponentialShape struct{}

func (exponentialShape) value(h, r float64) float64 {
	return 1 - math.Exp(-3*h/r)
}

func (exponentialShape) rangeDerivative(h, r float64) float64 {
	return -3 * h / pow2(r) * math.Exp(-3*h/r)
}

type gaussianShape struct{}

func (gaussianShape) value(h, r float64) float64 {
	return 1 - math.Exp(-3*pow2(h/r))
}

func (gaussianShape) rangeDerivative(h, r float64) float64 {
	return -6 * pow2(h) / pow3(r) * math.Exp(-3*pow2(h/r))
}

var shapes = map[ModelType]shape{
	Spherical:   sphericalShape{},
	Exponential: exponentialShape{},
	Gaussian:    gaussianShape{},
}

// VariogramModel is an isotropic single-structure model. Sill is the total
// sill, so the structured part contributes Sill-Nugget.
type VariogramModel struct {
	Type   ModelType `json:"type" yaml:"type"`
	Nugget float64   `json:"nugget" yaml:"nugget"`
	Sill   float64   `json:"sill" yaml:"sill"`
	Range  float64   `json:"range" yaml:"range"`
}

func (m VariogramModel) shape() shape {
	if s, ok := shapes[m.Type]; ok {
		return s
	}
	return sphericalShape{}
}

// Gamma is zero at the origin; the nugget applies to any positive lag.
func (m VariogramModel) Gamma(h float64) float64 {
	if h <= 0 {
		return 0
	}
	return m.Nugget + (m.Sill-m.Nugget)*m.shape().value(h, m.Range)
}

// Gradient returns the partial derivatives of Gamma(h) with respect to
// nugget, sill and range.
func (m VariogramModel) Gradient(h float64) [3]float64 {
	if h <= 0 {
		return [3]float64{}
	}
	s := m.shape()
	f := s.value(h, m.Range)
	return [3]float64{1 - f, f, (m.Sill - m.Nugget) * s.rangeDerivative(h, m.Range)}
}

// PartialSill is the structured contribution above the nugget.
func (m VariogramModel) PartialSill() float64 {
	return m.Sill - m.Nugget
}

func (m VariogramModel) Validate() error {
	if _, ok := shapes[m.Type]; !ok {
		return invalidInput("unknown variogram model %q", m.Type)
	}
	switch {
	case !(m.Nugget >= 0):
		return invalidInput("nugget %g must be >= 0", m.Nugget)
	case !(m.Sill > m.Nugget):
		return invalidInput("sill %g must exceed nugget %g", m.Sill, m.Nugget)
	case !(m.Range > 0) || math.IsInf(m.Range, 0):
		return invalidInput("range %g must be > 0", m.Range)
	}
	return nil
}

func (m VariogramModel) String() string {
	return fmt.Sprintf("%s(nugget=%.6g, sill=%.6g, range=%.6g)", m.Type, m.Nugget, m.Sill, m.Range)
}
