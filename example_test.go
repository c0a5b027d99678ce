package geostat

import (
	"context"
	"fmt"
	"strings"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

func ExampleOrdinaryKriging_Estimate() {
	ps, _ := NewPointSet([]Sample{
		{Pos: vec3d.T{0, 0, 0}, Values: map[string]float64{"v": 10}},
		{Pos: vec3d.T{1, 0, 0}, Values: map[string]float64{"v": 20}},
		{Pos: vec3d.T{0, 1, 0}, Values: map[string]float64{"v": 15}},
	})
	model := VariogramModel{Type: Spherical, Nugget: 0, Sill: 1, Range: 2}

	kri, err := NewOrdinaryKriging(ps, "v", model, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	est, _ := kri.Estimate(vec3d.T{0.5, 0.5, 0})
	fmt.Printf("value %.2f variance %.2f\n", est.Value, est.Variance)
	// Output:
	// value 15.53 variance 0.51
}

func ExampleIDW_Estimate() {
	ps, _ := NewPointSet([]Sample{
		{Pos: vec3d.T{0, 0, 0}, Values: map[string]float64{"v": 10}},
		{Pos: vec3d.T{2, 0, 0}, Values: map[string]float64{"v": 20}},
	})
	idw, _ := NewIDW(ps, "v", nil)

	for _, x := range []float64{0, 0.5, 1} {
		est, _ := idw.Estimate(vec3d.T{x, 0, 0})
		fmt.Printf("%.1f: %.2f\n", x, est.Value)
	}
	// Output:
	// 0.0: 10.00
	// 0.5: 11.00
	// 1.0: 15.00
}

func ExampleDeduplicate() {
	samples, _ := LoadCSV(strings.NewReader("x,y,depth\n0,0,4\n1,1,6\n0,0,8\n"),
		CSVOptions{Coordinates: []string{"x", "y"}})

	ps, _ := Deduplicate(samples, nil)
	depth, _ := ps.Values("depth")
	fmt.Println(ps.Len(), depth)
	// Output:
	// 2 [6 6]
}

func ExampleInterpolator_Run() {
	ps, _ := NewPointSet([]Sample{
		{Pos: vec3d.T{0, 0, 0}, Values: map[string]float64{"v": 10}},
		{Pos: vec3d.T{1, 0, 0}, Values: map[string]float64{"v": 20}},
		{Pos: vec3d.T{0, 1, 0}, Values: map[string]float64{"v": 15}},
	})
	it := NewInterpolator(Options{
		Model:   &VariogramModel{Type: Spherical, Sill: 1, Range: 2},
		Methods: []Method{MethodKriging},
	})

	results, err := it.Run(context.Background(), ps, nil, NewPoints([]vec3d.T{{1, 0, 0}}))
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%s %.1f\n", results[0].Attribute, results[0].Kriging.Estimates[0])
	// Output:
	// v 20.0
}
