package geostat

import (
	"errors"
	"fmt"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultConditionLimit = 1e13
	DefaultMaxSamples     = 5000
)

type KrigingOptions struct {
	// ConditionLimit is the largest accepted condition number of the
	// kriging matrix.
	ConditionLimit float64
	// MaxSamples caps the size of the dense system.
	MaxSamples int
}

func (o *KrigingOptions) withDefaults() KrigingOptions {
	ret := KrigingOptions{ConditionLimit: DefaultConditionLimit, MaxSamples: DefaultMaxSamples}
	if o == nil {
		return ret
	}
	if o.ConditionLimit > 0 {
		ret.ConditionLimit = o.ConditionLimit
	}
	if o.MaxSamples > 0 {
		ret.MaxSamples = o.MaxSamples
	}
	return ret
}

// Estimate is the result at one location. Variance is NaN for estimators
// that do not produce one.
type Estimate struct {
	Value    float64
	Variance float64
	// Weights holds the kriging weights in sample order; nil for IDW.
	Weights []float64
	// Lagrange is the multiplier of the unbiasedness constraint.
	Lagrange float64
}

// Estimator is implemented by every solver. Implementations are safe for
// concurrent use once constructed.
type Estimator interface {
	Estimate(p vec3d.T) (Estimate, error)
	Method() Method
}

// OrdinaryKriging holds the factorised (n+1)x(n+1) ordinary kriging system
// for one attribute.
type OrdinaryKriging struct {
	pos    []vec3d.T
	values []float64
	model  Variogram
	index  map[vec3d.T]int
	lu     mat.LU
	cond   float64
}

// NewOrdinaryKriging builds and factorises the kriging matrix. The result is
// read-only and may be shared by any number of goroutines.
func NewOrdinaryKriging(ps *PointSet, attr string, model Variogram, opts *KrigingOptions) (*OrdinaryKriging, error) {
	o := opts.withDefaults()
	if ps == nil || ps.Len() == 0 {
		return nil, invalidInput("kriging needs at least 1 sample")
	}
	if model == nil {
		return nil, invalidInput("nil variogram model")
	}
	if vm, ok := model.(VariogramModel); ok {
		if err := vm.Validate(); err != nil {
			return nil, err
		}
	}
	if ps.Len() > o.MaxSamples {
		return nil, invalidInput("%d samples exceed the kriging limit of %d", ps.Len(), o.MaxSamples)
	}
	values, err := ps.Values(attr)
	if err != nil {
		return nil, err
	}

	kri := &OrdinaryKriging{
		pos:    ps.Positions(),
		values: values,
		model:  model,
		index:  make(map[vec3d.T]int, ps.Len()),
	}
	for i := range kri.pos {
		kri.index[kri.pos[i]] = i
	}

	n := len(kri.pos)
	k := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			g := model.Gamma(distance(&kri.pos[i], &kri.pos[j]))
			k.Set(i, j, g)
			k.Set(j, i, g)
		}
		k.Set(i, i, model.Gamma(0))
		k.Set(i, n, 1)
		k.Set(n, i, 1)
	}

	kri.lu.Factorize(k)
	kri.cond = kri.lu.Cond()
	if !(kri.cond <= o.ConditionLimit) {
		return nil, fmt.Errorf("%w: condition number %g exceeds %g", ErrSingularSystem, kri.cond, o.ConditionLimit)
	}
	return kri, nil
}

func (kri *OrdinaryKriging) Method() Method {
	return MethodKriging
}

// Cond is the condition number estimate of the factorised system.
func (kri *OrdinaryKriging) Cond() float64 {
	return kri.cond
}

func (kri *OrdinaryKriging) Estimate(p vec3d.T) (Estimate, error) {
	n := len(kri.pos)
	if i, ok := kri.index[p]; ok {
		w := make([]float64, n)
		w[i] = 1
		return Estimate{Value: kri.values[i], Variance: 0, Weights: w}, nil
	}

	rhs := make([]float64, n+1)
	for i := 0; i < n; i++ {
		rhs[i] = kri.model.Gamma(distance(&kri.pos[i], &p))
	}
	rhs[n] = 1

	var x mat.VecDense
	if err := kri.lu.SolveVecTo(&x, false, mat.NewVecDense(n+1, rhs)); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return Estimate{}, fmt.Errorf("%w: %v", ErrSingularSystem, err)
		}
		return Estimate{}, err
	}

	est := Estimate{Weights: make([]float64, n), Lagrange: x.AtVec(n)}
	for i := 0; i < n; i++ {
		w := x.AtVec(i)
		est.Weights[i] = w
		est.Value += w * kri.values[i]
		est.Variance += w * rhs[i]
	}
	est.Variance += est.Lagrange
	return est, nil
}

// Predict returns only the kriged value, NaN on failure.
func (kri *OrdinaryKriging) Predict(x, y, z float64) float64 {
	est, err := kri.Estimate(vec3d.T{x, y, z})
	if err != nil {
		return nan
	}
	return est.Value
}
