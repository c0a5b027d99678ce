package geostat

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/flywave/go-geostat/metrics"
)

const (
	DefaultMaxIterations = 1000
	DefaultFitTolerance  = 1e-6
	// rangeCeiling bounds the fitted range in units of the max lag.
	rangeCeiling = 10
	// convergeWindow is the number of iterations without a relative cost
	// improvement above the tolerance after which the fit is converged.
	convergeWindow = 10
)

type FitOptions struct {
	// MaxIterations bounds the number of optimizer iterations.
	MaxIterations int
	// Tolerance is the relative cost improvement below which the fit is
	// considered converged.
	Tolerance float64
	// ZeroNuggetStart starts the nugget at 0 instead of the first bin value.
	ZeroNuggetStart bool
}

func (o *FitOptions) withDefaults() FitOptions {
	ret := FitOptions{MaxIterations: DefaultMaxIterations, Tolerance: DefaultFitTolerance}
	if o == nil {
		return ret
	}
	if o.MaxIterations > 0 {
		ret.MaxIterations = o.MaxIterations
	}
	if o.Tolerance > 0 {
		ret.Tolerance = o.Tolerance
	}
	ret.ZeroNuggetStart = o.ZeroNuggetStart
	return ret
}

// WeightedError is the pair-count weighted squared error of m over the
// non-empty bins of ev.
func WeightedError(ev *EmpiricalVariogram, m Variogram) float64 {
	sum := 0.0
	for _, b := range ev.Bins {
		if b.Empty() {
			continue
		}
		sum += float64(b.Count) * pow2(m.Gamma(b.Lag)-b.Gamma)
	}
	return sum
}

// lsqProblem is the weighted least squares problem on lags scaled by the
// max lag and semivariances scaled by the largest bin value. The optimizer
// works on unconstrained u with
//
//	nugget = u0^2, partial sill = exp(u1), range = ceiling/(1+exp(-u2))
//
// so every u maps inside the admissible box.
type lsqProblem struct {
	shape  shape
	lags   []float64
	gammas []float64
	w      []float64
}

func (lp *lsqProblem) params(u []float64) (nugget, psill, r float64) {
	return u[0] * u[0], math.Exp(math.Min(u[1], 50)), rangeCeiling / (1 + math.Exp(-u[2]))
}

func (lp *lsqProblem) unparams(nugget, psill, r float64) []float64 {
	q := r / rangeCeiling
	return []float64{math.Sqrt(nugget), math.Log(psill), math.Log(q / (1 - q))}
}

func (lp *lsqProblem) cost(u []float64) float64 {
	nugget, psill, r := lp.params(u)
	sum := 0.0
	for k, h := range lp.lags {
		sum += lp.w[k] * pow2(nugget+psill*lp.shape.value(h, r)-lp.gammas[k])
	}
	return sum
}

func (lp *lsqProblem) grad(grad, u []float64) {
	nugget, psill, r := lp.params(u)
	var dn, ds, dr float64
	for k, h := range lp.lags {
		f := lp.shape.value(h, r)
		res := 2 * lp.w[k] * (nugget + psill*f - lp.gammas[k])
		dn += res
		ds += res * f
		dr += res * psill * lp.shape.rangeDerivative(h, r)
	}
	grad[0] = dn * 2 * u[0]
	grad[1] = ds * psill
	grad[2] = dr * r * (1 - r/rangeCeiling)
}

// FitVariogram fits a model of family typ to the non-empty bins of ev by
// minimising the pair-count weighted squared error with BFGS over bounded
// parameters.
func FitVariogram(ev *EmpiricalVariogram, typ ModelType, opts *FitOptions) (_ VariogramModel, err error) {
	o := opts.withDefaults()
	if ev == nil {
		return VariogramModel{}, invalidInput("nil empirical variogram")
	}
	s, ok := shapes[typ]
	if !ok {
		return VariogramModel{}, invalidInput("unknown variogram model %q", typ)
	}
	if !(ev.MaxLag > 0) {
		return VariogramModel{}, invalidInput("max lag %g", ev.MaxLag)
	}

	iters := 0
	defer func() { recordFit(typ, iters, err) }()

	bins := ev.NonEmpty()
	if len(bins) < 3 {
		return VariogramModel{}, fitFailure("%d non-empty bins, need at least 3", len(bins))
	}
	maxGamma := 0.0
	total := 0.0
	for _, b := range bins {
		maxGamma = math.Max(maxGamma, b.Gamma)
		total += float64(b.Count)
	}
	if !(maxGamma > 0) || !isFinite(maxGamma) {
		return VariogramModel{}, fitFailure("empirical variogram of %q has no variance", ev.Attribute)
	}
	lp := &lsqProblem{shape: s}
	for _, b := range bins {
		lp.lags = append(lp.lags, b.Lag/ev.MaxLag)
		lp.gammas = append(lp.gammas, b.Gamma/maxGamma)
		lp.w = append(lp.w, float64(b.Count)/total)
	}

	nugget := lp.gammas[0]
	if o.ZeroNuggetStart || nugget >= 1 {
		nugget = 0
	}
	// A start exactly on the nugget bound has a zero gradient in u0.
	nugget = math.Max(nugget, 1e-3)
	psill := math.Max(1-nugget, 1e-3)

	problem := optimize.Problem{Func: lp.cost, Grad: lp.grad}
	settings := &optimize.Settings{
		GradientThreshold: 1e-12,
		MajorIterations:   o.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-20,
			Relative:   o.Tolerance,
			Iterations: convergeWindow,
		},
	}
	res, err := optimize.Minimize(problem, lp.unparams(nugget, psill, 0.5), settings, &optimize.BFGS{})
	if res != nil {
		iters = res.Stats.MajorIterations
	}
	// A stalled line search means no further progress is possible at float
	// precision, so the best location found stands.
	switch {
	case res == nil:
		return VariogramModel{}, fitFailure("%s fit: %v", typ, err)
	case err != nil && !errors.Is(err, optimize.ErrNoProgress) && !errors.Is(err, optimize.ErrLinesearcherFailure):
		return VariogramModel{}, fitFailure("%s fit: %v", typ, err)
	case err == nil && res.Status.Early():
		return VariogramModel{}, fitFailure("%s fit did not converge in %d iterations: %v", typ, o.MaxIterations, res.Status)
	case math.IsNaN(res.F) || math.IsInf(res.F, 0):
		return VariogramModel{}, fitFailure("%s fit diverged", typ)
	}

	n, ps, r := lp.params(res.X)
	m := VariogramModel{Type: typ, Nugget: n * maxGamma, Sill: (n + ps) * maxGamma, Range: r * ev.MaxLag}
	if err := m.Validate(); err != nil {
		return VariogramModel{}, fitFailure("%s fit is degenerate: %v", typ, err)
	}
	return m, nil
}

// FitAll fits every family in types (all families when empty) and returns
// the successful fits ordered by increasing weighted error. It fails only
// when every family fails.
func FitAll(ev *EmpiricalVariogram, types []ModelType, opts *FitOptions) ([]VariogramModel, error) {
	if len(types) == 0 {
		types = ModelTypes
	}
	var fits []VariogramModel
	var errs []float64
	var lastErr error
	for _, t := range types {
		m, err := FitVariogram(ev, t, opts)
		if err != nil {
			lastErr = err
			continue
		}
		fits = append(fits, m)
		errs = append(errs, WeightedError(ev, m))
	}
	if len(fits) == 0 {
		return nil, lastErr
	}
	idx := make([]int, len(fits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return errs[idx[i]] < errs[idx[j]] })
	ret := make([]VariogramModel, len(fits))
	for i, k := range idx {
		ret[i] = fits[k]
	}
	return ret, nil
}

// FitBest returns the fit with the lowest weighted error among types.
func FitBest(ev *EmpiricalVariogram, types []ModelType, opts *FitOptions) (VariogramModel, error) {
	fits, err := FitAll(ev, types, opts)
	if err != nil {
		return VariogramModel{}, err
	}
	return fits[0], nil
}

func recordFit(typ ModelType, iters int, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.ModelFits.WithLabelValues(string(typ), status).Inc()
	if iters > 0 {
		metrics.FitIterations.WithLabelValues(string(typ)).Observe(float64(iters))
	}
}
