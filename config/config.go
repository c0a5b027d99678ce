// Package config loads and saves geostat run settings as YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	geostat "github.com/flywave/go-geostat"
)

// Config represents the settings of an interpolation run.
type Config struct {
	// Dedup controls how coincident samples are merged
	Dedup struct {
		// Policy is "average" or "first"
		Policy string `yaml:"policy"`

		// Tolerance merges samples closer than this per axis; 0 merges exact duplicates only
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"dedup"`

	Variogram struct {
		NumBins int `yaml:"numBins"`

		// MaxLagFraction is the share of the bounding-box diagonal used as max lag
		MaxLagFraction float64 `yaml:"maxLagFraction"`

		// MaxLag overrides MaxLagFraction when > 0
		MaxLag float64 `yaml:"maxLag"`

		IndexThreshold int `yaml:"indexThreshold"`
		MaxSamples     int `yaml:"maxSamples"`
	} `yaml:"variogram"`

	Fit struct {
		// Models lists the families tried; the best weighted fit wins
		Models          []string `yaml:"models"`
		MaxIterations   int      `yaml:"maxIterations"`
		Tolerance       float64  `yaml:"tolerance"`
		ZeroNuggetStart bool     `yaml:"zeroNuggetStart"`
	} `yaml:"fit"`

	Kriging struct {
		ConditionLimit float64 `yaml:"conditionLimit"`
		MaxSamples     int     `yaml:"maxSamples"`
	} `yaml:"kriging"`

	IDW struct {
		Power float64 `yaml:"power"`
	} `yaml:"idw"`

	Grid struct {
		// Nodes along x, y and z
		NX int `yaml:"nx"`
		NY int `yaml:"ny"`
		NZ int `yaml:"nz"`

		// Resolution overrides the node counts with a node spacing when > 0
		Resolution float64 `yaml:"resolution"`

		// MaskHull drops nodes outside the samples' convex hull
		MaskHull bool `yaml:"maskHull"`
	} `yaml:"grid"`

	Processing struct {
		// Workers is the number of goroutines per grid solve
		Workers int `yaml:"workers"`

		// Methods lists the estimators run: "kriging", "idw"
		Methods []string `yaml:"methods"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Dedup.Policy = string(geostat.DedupAverage)

	cfg.Variogram.NumBins = geostat.DefaultNumBins
	cfg.Variogram.MaxLagFraction = geostat.DefaultMaxLagFraction
	cfg.Variogram.IndexThreshold = geostat.DefaultIndexThreshold
	cfg.Variogram.MaxSamples = geostat.DefaultMaxPairSamples

	for _, t := range geostat.ModelTypes {
		cfg.Fit.Models = append(cfg.Fit.Models, string(t))
	}
	cfg.Fit.MaxIterations = geostat.DefaultMaxIterations
	cfg.Fit.Tolerance = geostat.DefaultFitTolerance

	cfg.Kriging.ConditionLimit = geostat.DefaultConditionLimit
	cfg.Kriging.MaxSamples = geostat.DefaultMaxSamples

	cfg.IDW.Power = geostat.DefaultIDWPower

	cfg.Grid.NX, cfg.Grid.NY, cfg.Grid.NZ = 100, 100, 1

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.Methods = []string{string(geostat.MethodKriging), string(geostat.MethodIDW)}

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// DedupOptions returns the deduplication settings.
func (c *Config) DedupOptions() (*geostat.DedupOptions, error) {
	p := geostat.DedupPolicy(c.Dedup.Policy)
	switch p {
	case geostat.DedupAverage, geostat.DedupKeepFirst:
	case "":
		p = geostat.DedupAverage
	default:
		return nil, fmt.Errorf("%w: unknown dedup policy %q", geostat.ErrInvalidInput, c.Dedup.Policy)
	}
	return &geostat.DedupOptions{Policy: p, Tolerance: c.Dedup.Tolerance}, nil
}

// Options converts the configuration into pipeline options.
func (c *Config) Options() (geostat.Options, error) {
	opts := geostat.Options{
		Variogram: &geostat.VariogramOptions{
			NumBins:        c.Variogram.NumBins,
			IndexThreshold: c.Variogram.IndexThreshold,
			MaxSamples:     c.Variogram.MaxSamples,
		},
		Fit: &geostat.FitOptions{
			MaxIterations:   c.Fit.MaxIterations,
			Tolerance:       c.Fit.Tolerance,
			ZeroNuggetStart: c.Fit.ZeroNuggetStart,
		},
		Kriging: &geostat.KrigingOptions{
			ConditionLimit: c.Kriging.ConditionLimit,
			MaxSamples:     c.Kriging.MaxSamples,
		},
		IDW:            &geostat.IDWOptions{Power: c.IDW.Power},
		MaxLag:         c.Variogram.MaxLag,
		MaxLagFraction: c.Variogram.MaxLagFraction,
		MaskHull:       c.Grid.MaskHull,
		Workers:        c.Processing.Workers,
	}
	for _, s := range c.Fit.Models {
		t, err := geostat.ParseModelType(s)
		if err != nil {
			return geostat.Options{}, err
		}
		opts.Models = append(opts.Models, t)
	}
	for _, s := range c.Processing.Methods {
		m := geostat.Method(s)
		if m != geostat.MethodKriging && m != geostat.MethodIDW {
			return geostat.Options{}, fmt.Errorf("%w: unknown method %q", geostat.ErrInvalidInput, s)
		}
		opts.Methods = append(opts.Methods, m)
	}
	return opts, nil
}

// GridDims returns the node counts for bounds, from Resolution when set.
func (c *Config) GridDims(bounds geostat.BoundingBox) [3]int {
	if c.Grid.Resolution > 0 {
		return geostat.DimsForResolution(bounds, c.Grid.Resolution)
	}
	dims := [3]int{c.Grid.NX, c.Grid.NY, c.Grid.NZ}
	size := bounds.Size()
	for i := range dims {
		if dims[i] < 1 || size[i] == 0 {
			dims[i] = 1
		}
	}
	return dims
}
