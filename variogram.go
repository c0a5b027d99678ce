package geostat

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go-geostat/metrics"
)

const (
	DefaultNumBins        = 20
	DefaultMaxLagFraction = 0.5
	DefaultIndexThreshold = 512
	DefaultMaxPairSamples = 20000
)

type VariogramOptions struct {
	// NumBins is the number of equal-width lag bins over [0, maxLag].
	NumBins int
	// IndexThreshold is the sample count from which pairs are found through
	// a k-d tree instead of enumerating all of them.
	IndexThreshold int
	// MaxSamples caps the O(n^2) pair search.
	MaxSamples int
}

func (o *VariogramOptions) withDefaults() VariogramOptions {
	ret := VariogramOptions{
		NumBins:        DefaultNumBins,
		IndexThreshold: DefaultIndexThreshold,
		MaxSamples:     DefaultMaxPairSamples,
	}
	if o == nil {
		return ret
	}
	if o.NumBins != 0 {
		ret.NumBins = o.NumBins
	}
	if o.IndexThreshold != 0 {
		ret.IndexThreshold = o.IndexThreshold
	}
	if o.MaxSamples != 0 {
		ret.MaxSamples = o.MaxSamples
	}
	return ret
}

type Bin struct {
	// Lag is the bin centre.
	Lag float64 `json:"lag"`
	// MeanDistance is the average separation of the pairs in the bin.
	MeanDistance float64 `json:"meanDistance"`
	// Gamma is the mean semivariance; NaN for an empty bin.
	Gamma float64 `json:"gamma"`
	Count int     `json:"count"`
}

func (b Bin) Empty() bool {
	return b.Count == 0
}

type EmpiricalVariogram struct {
	Attribute string  `json:"attribute"`
	MaxLag    float64 `json:"maxLag"`
	Width     float64 `json:"width"`
	Bins      []Bin   `json:"bins"`
}

// BinRange returns the half-open lag interval of bin i. The last bin also
// holds pairs at exactly MaxLag.
func (ev *EmpiricalVariogram) BinRange(i int) (lo, hi float64) {
	lo = float64(i) * ev.Width
	hi = float64(i+1) * ev.Width
	if i == len(ev.Bins)-1 {
		hi = ev.MaxLag
	}
	return lo, hi
}

func (ev *EmpiricalVariogram) NonEmpty() []Bin {
	ret := make([]Bin, 0, len(ev.Bins))
	for _, b := range ev.Bins {
		if !b.Empty() {
			ret = append(ret, b)
		}
	}
	return ret
}

func (ev *EmpiricalVariogram) Pairs() int {
	n := 0
	for _, b := range ev.Bins {
		n += b.Count
	}
	return n
}

// DefaultMaxLag returns fraction of the bounding-box diagonal.
func DefaultMaxLag(ps *PointSet, fraction float64) float64 {
	if fraction <= 0 {
		fraction = DefaultMaxLagFraction
	}
	b := ps.Bounds()
	return fraction * b.Diagonal()
}

// NewEmpiricalVariogram bins half squared differences of attr over every
// unordered pair of samples no farther apart than maxLag.
func NewEmpiricalVariogram(ps *PointSet, attr string, maxLag float64, opts *VariogramOptions) (*EmpiricalVariogram, error) {
	o := opts.withDefaults()
	if ps == nil || ps.Len() < 2 {
		return nil, invalidInput("empirical variogram needs at least 2 samples")
	}
	if !(maxLag > 0) || math.IsInf(maxLag, 0) {
		return nil, invalidInput("max lag %g must be a finite value > 0", maxLag)
	}
	if o.NumBins < 1 {
		return nil, invalidInput("bin count %d must be >= 1", o.NumBins)
	}
	if ps.Len() > o.MaxSamples {
		return nil, invalidInput("%d samples exceed the pair search limit of %d", ps.Len(), o.MaxSamples)
	}
	values, err := ps.Values(attr)
	if err != nil {
		return nil, err
	}
	pos := ps.Positions()

	ev := &EmpiricalVariogram{
		Attribute: attr,
		MaxLag:    maxLag,
		Width:     maxLag / float64(o.NumBins),
		Bins:      make([]Bin, o.NumBins),
	}
	sums := make([]float64, o.NumBins)
	dists := make([]float64, o.NumBins)

	add := func(i, j int) {
		h := distance(&pos[i], &pos[j])
		if h > maxLag {
			return
		}
		k := int(h / ev.Width)
		if k >= o.NumBins {
			k = o.NumBins - 1
		}
		sums[k] += 0.5 * pow2(values[i]-values[j])
		dists[k] += h
		ev.Bins[k].Count++
	}

	if ps.Len() >= o.IndexThreshold {
		forPairsIndexed(pos, maxLag, add)
	} else {
		forPairs(len(pos), add)
	}

	for k := range ev.Bins {
		b := &ev.Bins[k]
		b.Lag = (float64(k) + 0.5) * ev.Width
		if b.Count == 0 {
			b.Gamma = math.NaN()
			b.MeanDistance = math.NaN()
			continue
		}
		b.Gamma = sums[k] / float64(b.Count)
		b.MeanDistance = dists[k] / float64(b.Count)
	}
	metrics.PairsBinned.WithLabelValues(attr).Add(float64(ev.Pairs()))
	return ev, nil
}

func forPairs(n int, fn func(i, j int)) {
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			fn(j, i)
		}
	}
}

func forPairsIndexed(pos []vec3d.T, maxLag float64, fn func(i, j int)) {
	idx := newRadiusIndex(pos)
	for i := range pos {
		idx.within(pos[i], maxLag, func(j int) {
			if j > i {
				fn(i, j)
			}
		})
	}
}
