package geostat

import (
	"sort"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// Sample is a measured location. Two-dimensional data keeps Pos[2] at zero.
type Sample struct {
	Pos    vec3d.T
	Values map[string]float64
}

func (s Sample) Value(attr string) (float64, bool) {
	v, ok := s.Values[attr]
	return v, ok
}

// PointSet is an ordered collection of samples with unique coordinates.
// It is never modified after construction.
type PointSet struct {
	samples []Sample
	attrs   []string
}

// NewPointSet validates samples and takes ownership of them. Every sample
// must carry every attribute found in the first sample, and no coordinate
// may repeat; use Deduplicate for raw input.
func NewPointSet(samples []Sample) (*PointSet, error) {
	ps := &PointSet{samples: samples}
	if len(samples) == 0 {
		return ps, nil
	}

	for name := range samples[0].Values {
		ps.attrs = append(ps.attrs, name)
	}
	sort.Strings(ps.attrs)

	seen := make(map[vec3d.T]int, len(samples))
	for i := range samples {
		s := &samples[i]
		for k := range s.Pos {
			if !isFinite(s.Pos[k]) {
				return nil, invalidInput("sample %d: non-finite coordinate", i)
			}
		}
		if j, ok := seen[s.Pos]; ok {
			return nil, invalidInput("samples %d and %d share coordinate %v", j, i, s.Pos)
		}
		seen[s.Pos] = i
		if len(s.Values) != len(ps.attrs) {
			return nil, invalidInput("sample %d: has %d attributes, want %d", i, len(s.Values), len(ps.attrs))
		}
		for _, a := range ps.attrs {
			v, ok := s.Values[a]
			if !ok {
				return nil, invalidInput("sample %d: missing attribute %q", i, a)
			}
			if !isFinite(v) {
				return nil, invalidInput("sample %d: attribute %q is not finite", i, a)
			}
		}
	}
	return ps, nil
}

func (ps *PointSet) Len() int {
	return len(ps.samples)
}

func (ps *PointSet) Sample(i int) Sample {
	return ps.samples[i]
}

// Attributes returns the attribute names in sorted order.
func (ps *PointSet) Attributes() []string {
	return append([]string(nil), ps.attrs...)
}

func (ps *PointSet) HasAttribute(attr string) bool {
	i := sort.SearchStrings(ps.attrs, attr)
	return i < len(ps.attrs) && ps.attrs[i] == attr
}

func (ps *PointSet) Positions() []vec3d.T {
	ret := make([]vec3d.T, len(ps.samples))
	for i := range ps.samples {
		ret[i] = ps.samples[i].Pos
	}
	return ret
}

// Values returns the attribute column in sample order.
func (ps *PointSet) Values(attr string) ([]float64, error) {
	if !ps.HasAttribute(attr) {
		return nil, invalidInput("unknown attribute %q", attr)
	}
	ret := make([]float64, len(ps.samples))
	for i := range ps.samples {
		ret[i] = ps.samples[i].Values[attr]
	}
	return ret, nil
}

func (ps *PointSet) Bounds() BoundingBox {
	r := BoundingBox{Min: vec3d.MaxVal, Max: vec3d.MinVal}
	for i := range ps.samples {
		r.Extend(&ps.samples[i].Pos)
	}
	return r
}

// BoundingBox is the axis-aligned extent of a point set.
type BoundingBox vec3d.Box

func (b *BoundingBox) Extend(p *vec3d.T) {
	(*vec3d.Box)(b).Extend(p)
}

func (b BoundingBox) Empty() bool {
	return b.Min[0] > b.Max[0]
}

func (b BoundingBox) Size() vec3d.T {
	if b.Empty() {
		return vec3d.T{}
	}
	return vec3d.T{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

func (b BoundingBox) Diagonal() float64 {
	if b.Empty() {
		return 0
	}
	return distance(&b.Min, &b.Max)
}

func (b BoundingBox) Box() vec3d.Box {
	return vec3d.Box(b)
}
