// Package geoio reads samples from GeoJSON and writes estimation grids as
// GeoTIFF.
package geoio

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/flywave/go-geo"
	"github.com/flywave/go-geoid"
	"github.com/flywave/go-geom/general"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	geostat "github.com/flywave/go-geostat"
)

// HeightAttribute names the attribute holding vertex z values.
const HeightAttribute = "height"

var epsg4326 geo.Proj

func init() {
	epsg4326 = geo.NewProj(4326)
}

var datums = map[string]geoid.VerticalDatum{
	"":        geoid.HAE,
	"hae":     geoid.HAE,
	"egm84":   geoid.EGM84,
	"egm96":   geoid.EGM96,
	"egm2008": geoid.EGM2008,
}

// ParseVerticalDatum accepts hae, egm84, egm96 and egm2008.
func ParseVerticalDatum(s string) (geoid.VerticalDatum, error) {
	d, ok := datums[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return geoid.UNKNOWN, fmt.Errorf("%w: unknown vertical datum %q", geostat.ErrInvalidInput, s)
	}
	return d, nil
}

type Options struct {
	// SRS of the input coordinates, EPSG:4326 when empty. Positions are
	// reprojected to EPSG:4326.
	SRS string
	// HeightModel is the datum of vertex heights; they are converted to
	// ellipsoidal heights. Use ParseVerticalDatum rather than the zero value.
	HeightModel  geoid.VerticalDatum
	HeightOffset float64
	// Properties lists numeric feature properties carried as attributes.
	// Every numeric property of the first feature when empty.
	Properties []string
}

// LoadGeoJSON extracts one sample per vertex of every feature in a
// FeatureCollection. Vertices with a z value get a height attribute and
// inherit the numeric properties of their feature.
func LoadGeoJSON(r io.Reader, opts *Options) ([]geostat.Sample, error) {
	if opts == nil {
		opts = &Options{HeightModel: geoid.HAE}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := general.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &geostat.ParseError{Err: err}
	}

	props := opts.Properties
	if len(props) == 0 && len(fc.Features) > 0 {
		for k, v := range fc.Features[0].Properties {
			if _, ok := v.(float64); ok {
				props = append(props, k)
			}
		}
		sort.Strings(props)
	}

	var samples []geostat.Sample
	var xy []vec2d.T
	for row, feas := range fc.Features {
		values := make(map[string]float64, len(props)+1)
		for _, k := range props {
			v, ok := feas.Properties[k].(float64)
			if !ok {
				return nil, &geostat.ParseError{Row: row + 1, Column: k, Value: fmt.Sprint(feas.Properties[k]), Err: geostat.ErrParse}
			}
			values[k] = v
		}
		visit := func(d []float64) {
			s := geostat.Sample{Values: make(map[string]float64, len(values)+1)}
			for k, v := range values {
				s.Values[k] = v
			}
			if len(d) > 2 {
				s.Values[HeightAttribute] = d[2]
			}
			samples = append(samples, s)
			xy = append(xy, vec2d.T{d[0], d[1]})
		}

		switch g := feas.Geometry.(type) {
		case *general.Point:
			visit(g.Data())
		case *general.MultiPoint:
			for _, pos := range g.Points() {
				visit(pos.Data())
			}
		case *general.LineString:
			for _, pos := range g.Subpoints() {
				visit(pos.Data())
			}
		case *general.MultiLine:
			for _, li := range g.Lines() {
				for _, pos := range li.Subpoints() {
					visit(pos.Data())
				}
			}
		case *general.Polygon:
			for _, sli := range g.Sublines() {
				for _, pos := range sli.Subpoints() {
					visit(pos.Data())
				}
			}
		case *general.MultiPolygon:
			for _, poly := range g.Polygons() {
				for _, sli := range poly.Sublines() {
					for _, pos := range sli.Subpoints() {
						visit(pos.Data())
					}
				}
			}
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no vertices in feature collection", geostat.ErrInvalidInput)
	}

	if opts.SRS != "" {
		proj := geo.NewProj(opts.SRS)
		if proj != nil && !proj.Eq(epsg4326) {
			xy = proj.TransformTo(epsg4326, xy)
		}
	}
	for i := range samples {
		samples[i].Pos = vec3d.T{xy[i][0], xy[i][1], 0}
	}
	convertHeight(samples, opts.HeightModel, opts.HeightOffset)
	return samples, nil
}

func convertHeight(samples []geostat.Sample, model geoid.VerticalDatum, offset float64) {
	if (model == geoid.HAE && offset == 0) || model == geoid.UNKNOWN {
		return
	}
	convert := func(lon, lat, h float64) float64 { return h + offset }
	if model != geoid.HAE {
		gid := geoid.NewGeoid(model, false)
		convert = func(lon, lat, h float64) float64 {
			return gid.ConvertHeight(lon, lat, h, geoid.GEOIDTOELLIPSOID)
		}
	}
	for i := range samples {
		h, ok := samples[i].Values[HeightAttribute]
		if !ok {
			continue
		}
		samples[i].Values[HeightAttribute] = convert(samples[i].Pos[0], samples[i].Pos[1], h)
	}
}
