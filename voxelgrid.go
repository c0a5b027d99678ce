package geostat

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

type DedupPolicy string

const (
	// DedupAverage merges colliding samples into one whose coordinate and
	// attribute values are the means of the group.
	DedupAverage DedupPolicy = "average"
	// DedupKeepFirst keeps the first sample of each group unchanged.
	DedupKeepFirst DedupPolicy = "first"
)

type DedupOptions struct {
	Policy DedupPolicy
	// Tolerance is the voxel edge length used to decide that two coordinates
	// collide. Zero means exact equality.
	Tolerance float64
}

func (o *DedupOptions) withDefaults() DedupOptions {
	ret := DedupOptions{Policy: DedupAverage}
	if o != nil {
		if o.Policy != "" {
			ret.Policy = o.Policy
		}
		ret.Tolerance = o.Tolerance
	}
	return ret
}

type voxelKey [3]int64

type voxel struct {
	sum    vec3d.T
	values map[string]float64
	counts map[string]int
	num    int
	index  int
}

type voxelGrid struct {
	leafSize float64
	origin   vec3d.T
}

func (g *voxelGrid) key(p *vec3d.T) voxelKey {
	var k voxelKey
	for i := range p {
		k[i] = int64(math.Floor((p[i] - g.origin[i]) / g.leafSize))
	}
	return k
}

// Deduplicate collapses samples that share a coordinate (or a voxel when
// Tolerance is set) and returns the resulting point set in first-occurrence
// order.
func Deduplicate(samples []Sample, opts *DedupOptions) (*PointSet, error) {
	o := opts.withDefaults()
	if o.Policy != DedupAverage && o.Policy != DedupKeepFirst {
		return nil, invalidInput("unknown dedup policy %q", o.Policy)
	}
	if o.Tolerance < 0 || !isFinite(o.Tolerance) {
		return nil, invalidInput("dedup tolerance must be a finite value >= 0")
	}

	var vg *voxelGrid
	if o.Tolerance > 0 && len(samples) > 0 {
		min := samples[0].Pos
		for i := range samples {
			for k := range min {
				min[k] = math.Min(min[k], samples[i].Pos[k])
			}
		}
		vg = &voxelGrid{leafSize: o.Tolerance, origin: min}
	}

	order := make([]voxelKey, 0, len(samples))
	voxels := make(map[voxelKey]*voxel, len(samples))
	for i := range samples {
		s := &samples[i]
		var k voxelKey
		if vg != nil {
			k = vg.key(&s.Pos)
		} else {
			k = exactKey(&s.Pos)
		}
		v, ok := voxels[k]
		if !ok {
			v = &voxel{index: i, values: map[string]float64{}, counts: map[string]int{}}
			voxels[k] = v
			order = append(order, k)
		}
		v.num++
		v.sum.Add(&s.Pos)
		for name, val := range s.Values {
			v.values[name] += val
			v.counts[name]++
		}
	}

	out := make([]Sample, 0, len(order))
	for _, k := range order {
		v := voxels[k]
		first := samples[v.index]
		if o.Policy == DedupKeepFirst || v.num == 1 {
			out = append(out, Sample{Pos: first.Pos, Values: copyValues(first.Values)})
			continue
		}
		pos := first.Pos
		if vg != nil {
			pos = v.sum
			for i := range pos {
				pos[i] /= float64(v.num)
			}
		}
		vals := make(map[string]float64, len(v.values))
		for name, sum := range v.values {
			vals[name] = sum / float64(v.counts[name])
		}
		out = append(out, Sample{Pos: pos, Values: vals})
	}
	return NewPointSet(out)
}

// exactKey keys a coordinate by its bit pattern so that only identical
// coordinates collide.
func exactKey(p *vec3d.T) voxelKey {
	return voxelKey{
		int64(math.Float64bits(p[0] + 0)),
		int64(math.Float64bits(p[1] + 0)),
		int64(math.Float64bits(p[2] + 0)),
	}
}

func copyValues(m map[string]float64) map[string]float64 {
	ret := make(map[string]float64, len(m))
	for k, v := range m {
		ret[k] = v
	}
	return ret
}
