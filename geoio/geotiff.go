package geoio

import (
	"fmt"
	"image"

	"github.com/flywave/go-cog"
	"github.com/flywave/go-geo"
	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	geostat "github.com/flywave/go-geostat"
)

// WriteGeoTIFF writes the estimates (or variances) of a planar grid as a
// single band LZW GeoTIFF in srs, EPSG:4326 when empty. Nodes are pixel
// centres; masked nodes are written as geostat.NoData.
func WriteGeoTIFF(path string, res *geostat.EstimationResult, srs string, variance bool) error {
	g := res.Grid
	if g.Dims[2] != 1 || g.Dims[0] < 2 || g.Dims[1] < 2 {
		return fmt.Errorf("%w: GeoTIFF output needs a planar grid of at least 2x2 nodes, got %v", geostat.ErrInvalidInput, g.Dims)
	}
	values := res.Raster()
	if variance {
		if values = res.VarianceRaster(); values == nil {
			return fmt.Errorf("%w: %s result has no variances", geostat.ErrInvalidInput, res.Method)
		}
	}

	width, height := g.Dims[0], g.Dims[1]
	// rows run north to south
	tiledata := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tiledata[(height-1-y)*width+x] = values[g.Index(x, y, 0)]
		}
	}

	px := (g.Bounds.Max[0] - g.Bounds.Min[0]) / float64(width-1)
	py := (g.Bounds.Max[1] - g.Bounds.Min[1]) / float64(height-1)
	bbox := vec2d.Rect{
		Min: vec2d.T{g.Bounds.Min[0] - px/2, g.Bounds.Min[1] - py/2},
		Max: vec2d.T{g.Bounds.Max[0] + px/2, g.Bounds.Max[1] + py/2},
	}

	proj := epsg4326
	if srs != "" {
		proj = geo.NewProj(srs)
	}

	rect := image.Rect(0, 0, width, height)
	src := cog.NewSource(tiledata, &rect, cog.CTLZW)
	return cog.WriteTile(path, src, bbox, proj, [2]uint32{uint32(width), uint32(height)}, nil)
}

// GridFromRaster returns a planar grid with one node per pixel centre of
// an existing GeoTIFF, in EPSG:4326.
func GridFromRaster(path string) (*geostat.Grid, error) {
	r := cog.Read(path)
	if r == nil {
		return nil, fmt.Errorf("%w: unable to read raster %s", geostat.ErrInvalidInput, path)
	}
	bounds := r.GetBounds(0)
	si := r.GetSize(0)
	epsgcode, err := r.GetEPSGCode(0)
	if err != nil {
		return nil, err
	}
	if epsgcode != 4326 {
		proj := geo.NewProj(epsgcode)
		bounds = proj.TransformRectTo(epsg4326, bounds, 16)
	}

	width, height := int(si[0]), int(si[1])
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: empty raster %s", geostat.ErrInvalidInput, path)
	}
	px := (bounds.Max[0] - bounds.Min[0]) / float64(width)
	py := (bounds.Max[1] - bounds.Min[1]) / float64(height)
	box := geostat.BoundingBox{
		Min: vec3d.T{bounds.Min[0] + px/2, bounds.Min[1] + py/2, 0},
		Max: vec3d.T{bounds.Max[0] - px/2, bounds.Max[1] - py/2, 0},
	}
	return geostat.NewGrid(box, [3]int{width, height, 1})
}
