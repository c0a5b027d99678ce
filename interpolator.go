package geostat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/flywave/go-geostat/metrics"
)

type Options struct {
	Variogram *VariogramOptions
	Fit       *FitOptions
	Kriging   *KrigingOptions
	IDW       *IDWOptions

	// Models are the families tried when fitting; all of them when empty.
	Models []ModelType
	// Model skips fitting and krige with this model for every attribute.
	Model *VariogramModel
	// MaxLag overrides MaxLagFraction of the bounding-box diagonal when > 0.
	MaxLag         float64
	MaxLagFraction float64

	// Methods selects the estimators run per attribute; both when empty.
	Methods  []Method
	MaskHull bool
	// Workers bounds the goroutines used per grid solve, GOMAXPROCS when < 1.
	Workers int
	Logger  *zap.Logger
}

type AttributeResult struct {
	Attribute string
	Variogram *EmpiricalVariogram
	Model     VariogramModel
	Kriging   *EstimationResult
	IDW       *EstimationResult
}

// Interpolator runs the variogram, fit and estimation stages for one or
// more attributes of a point set onto a grid.
type Interpolator struct {
	opts   Options
	logger *zap.Logger
}

func NewInterpolator(opts Options) *Interpolator {
	if opts.MaxLagFraction <= 0 {
		opts.MaxLagFraction = DefaultMaxLagFraction
	}
	if len(opts.Methods) == 0 {
		opts.Methods = []Method{MethodKriging, MethodIDW}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Interpolator{opts: opts, logger: logger}
}

func (it *Interpolator) runs(m Method) bool {
	for _, x := range it.opts.Methods {
		if x == m {
			return true
		}
	}
	return false
}

// Interpolate estimates attribute over grid. With hull masking the results
// refer to a masked copy of grid; grid itself is not modified.
func (it *Interpolator) Interpolate(ctx context.Context, ps *PointSet, attribute string, grid *Grid) (*AttributeResult, error) {
	grid, err := it.prepare(ps, grid)
	if err != nil {
		return nil, err
	}
	return it.interpolate(ctx, ps, attribute, grid)
}

// Run interpolates every attribute concurrently. Results follow the order of
// attributes; the first failure cancels the rest.
func (it *Interpolator) Run(ctx context.Context, ps *PointSet, attributes []string, grid *Grid) ([]*AttributeResult, error) {
	if len(attributes) == 0 {
		attributes = ps.Attributes()
	}
	grid, err := it.prepare(ps, grid)
	if err != nil {
		return nil, err
	}
	results := make([]*AttributeResult, len(attributes))
	eg, ctx := errgroup.WithContext(ctx)
	for i, attr := range attributes {
		i, attr := i, attr
		eg.Go(func() error {
			res, err := it.interpolate(ctx, ps, attr, grid)
			if err != nil {
				return fmt.Errorf("attribute %q: %w", attr, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (it *Interpolator) prepare(ps *PointSet, grid *Grid) (*Grid, error) {
	if ps == nil || ps.Len() == 0 {
		return nil, invalidInput("empty point set")
	}
	if grid == nil || grid.Len() == 0 {
		return nil, invalidInput("empty grid")
	}
	if it.opts.MaskHull {
		masked, n := grid.MaskOutsideHull(ps)
		it.logger.Debug("Masked grid nodes outside sample hull",
			zap.Int("masked", n), zap.Int("nodes", grid.Len()))
		return masked, nil
	}
	return grid, nil
}

func (it *Interpolator) interpolate(ctx context.Context, ps *PointSet, attribute string, grid *Grid) (*AttributeResult, error) {
	values, err := ps.Values(attribute)
	if err != nil {
		return nil, err
	}
	logger := it.logger.With(zap.String("attribute", attribute))
	mean, variance := stat.MeanVariance(values, nil)
	logger.Debug("Sample statistics",
		zap.Int("samples", len(values)),
		zap.Float64("mean", mean),
		zap.Float64("variance", variance))

	res := &AttributeResult{Attribute: attribute}

	if it.runs(MethodKriging) {
		var candidates []VariogramModel
		if it.opts.Model != nil {
			candidates = []VariogramModel{*it.opts.Model}
		} else {
			maxLag := it.opts.MaxLag
			if maxLag <= 0 {
				maxLag = DefaultMaxLag(ps, it.opts.MaxLagFraction)
			}
			ev, err := NewEmpiricalVariogram(ps, attribute, maxLag, it.opts.Variogram)
			if err != nil {
				return nil, err
			}
			res.Variogram = ev
			logger.Debug("Empirical variogram",
				zap.Float64("maxLag", ev.MaxLag),
				zap.Int("bins", len(ev.Bins)),
				zap.Int("pairs", ev.Pairs()))

			candidates, err = FitAll(ev, it.opts.Models, it.opts.Fit)
			if err != nil {
				logger.Error("Unable to fit variogram model", zap.Error(err))
				return nil, err
			}
		}

		kri, model, err := it.kriging(logger, ps, attribute, candidates)
		if err != nil {
			return nil, err
		}
		res.Model = model
		logger.Info("Variogram model",
			zap.String("model", string(res.Model.Type)),
			zap.Float64("nugget", res.Model.Nugget),
			zap.Float64("sill", res.Model.Sill),
			zap.Float64("range", res.Model.Range))

		metrics.ConditionNumber.WithLabelValues(attribute).Set(kri.Cond())
		if res.Kriging, err = it.solve(ctx, logger, kri, grid); err != nil {
			return nil, err
		}
	}

	if it.runs(MethodIDW) {
		idw, err := NewIDW(ps, attribute, it.opts.IDW)
		if err != nil {
			return nil, err
		}
		if res.IDW, err = it.solve(ctx, logger, idw, grid); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// kriging builds the solver for the first candidate, in order of fit
// quality, whose system is not singular.
func (it *Interpolator) kriging(logger *zap.Logger, ps *PointSet, attribute string, candidates []VariogramModel) (*OrdinaryKriging, VariogramModel, error) {
	var err error
	for _, m := range candidates {
		var kri *OrdinaryKriging
		kri, err = NewOrdinaryKriging(ps, attribute, m, it.opts.Kriging)
		if err == nil {
			return kri, m, nil
		}
		if !errors.Is(err, ErrSingularSystem) {
			break
		}
		logger.Warn("Variogram model gives a singular kriging system",
			zap.String("model", m.String()), zap.Error(err))
	}
	logger.Error("Unable to build kriging system", zap.Error(err))
	return nil, VariogramModel{}, err
}

func (it *Interpolator) solve(ctx context.Context, logger *zap.Logger, est Estimator, grid *Grid) (*EstimationResult, error) {
	method := string(est.Method())
	start := time.Now()
	res, err := SolveGrid(ctx, est, grid, it.opts.Workers)
	if err != nil {
		logger.Error("Grid estimation failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.SolveDuration.WithLabelValues(method).Observe(elapsed.Seconds())

	n := 0
	for i := 0; i < grid.Len(); i++ {
		if !grid.Masked(i) {
			n++
		}
	}
	metrics.Estimates.WithLabelValues(method).Add(float64(n))
	logger.Info("Grid estimated",
		zap.String("method", method),
		zap.Int("nodes", n),
		zap.Duration("elapsed", elapsed))
	return res, nil
}
