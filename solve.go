package geostat

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// NoData marks masked or undefined nodes in raster output.
const NoData = -9999.0

// EstimationResult holds one estimate per grid node. Variances is nil for
// estimators that do not produce one.
type EstimationResult struct {
	Method    Method
	Grid      *Grid
	Estimates []float64
	Variances []float64
}

// SolveGrid evaluates est at every unmasked node of g using up to workers
// goroutines (GOMAXPROCS when workers < 1). Masked nodes are NaN. The first
// error cancels the remaining work and no partial result is returned.
func SolveGrid(ctx context.Context, est Estimator, g *Grid, workers int) (*EstimationResult, error) {
	if g == nil || g.Len() == 0 {
		return nil, invalidInput("empty grid")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	n := g.Len()
	res := &EstimationResult{
		Method:    est.Method(),
		Grid:      g,
		Estimates: make([]float64, n),
	}
	if res.Method == MethodKriging {
		res.Variances = make([]float64, n)
	}

	chunk := (n + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%256 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if g.Masked(i) {
					res.Estimates[i] = nan
					if res.Variances != nil {
						res.Variances[i] = nan
					}
					continue
				}
				e, err := est.Estimate(g.At(i))
				if err != nil {
					return fmt.Errorf("node %d: %w", i, err)
				}
				res.Estimates[i] = e.Value
				if res.Variances != nil {
					res.Variances[i] = e.Variance
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Raster returns the estimates with NaN replaced by NoData.
func (r *EstimationResult) Raster() []float64 {
	return noData(r.Estimates)
}

func (r *EstimationResult) VarianceRaster() []float64 {
	if r.Variances == nil {
		return nil
	}
	return noData(r.Variances)
}

func noData(src []float64) []float64 {
	ret := make([]float64, len(src))
	for i, v := range src {
		if math.IsNaN(v) {
			v = NoData
		}
		ret[i] = v
	}
	return ret
}

// WriteCSV writes one line per node: x,y,z,estimate[,variance]. Masked
// nodes are left blank.
func (r *EstimationResult) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"x", "y", "z", "estimate"}
	if r.Variances != nil {
		header = append(header, "variance")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	format := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	rec := make([]string, len(header))
	for i, c := range r.Grid.Coordinates {
		rec[0], rec[1], rec[2] = format(c[0]), format(c[1]), format(c[2])
		rec[3] = format(r.Estimates[i])
		if r.Variances != nil {
			rec[4] = format(r.Variances[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
