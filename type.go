package geostat

import (
	"fmt"
	"strings"
)

type ModelType string

const (
	Gaussian    ModelType = "gaussian"
	Exponential ModelType = "exponential"
	Spherical   ModelType = "spherical"
)

// ModelTypes lists every supported family.
var ModelTypes = []ModelType{Spherical, Exponential, Gaussian}

func ParseModelType(s string) (ModelType, error) {
	t := ModelType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := shapes[t]; !ok {
		return "", fmt.Errorf("%w: unknown variogram model %q", ErrInvalidInput, s)
	}
	return t, nil
}

func (t ModelType) String() string {
	return string(t)
}

type Method string

const (
	MethodKriging Method = "kriging"
	MethodIDW     Method = "idw"
)
