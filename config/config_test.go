package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	geostat "github.com/flywave/go-geostat"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	a := assert.New(t)
	path := filepath.Join(t.TempDir(), "nested", "geostat.yaml")

	cfg := DefaultConfig()
	cfg.Variogram.NumBins = 12
	cfg.Fit.Models = []string{"gaussian"}
	cfg.Grid.MaskHull = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	a.Equal(cfg, loaded)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geostat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idw:\n  power: 3\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.IDW.Power)
	assert.Equal(t, geostat.DefaultNumBins, cfg.Variogram.NumBins)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geostat.yaml")
	require.NoError(t, os.WriteFile(path, []byte("idw: [\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geostat.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestOptions(t *testing.T) {
	a := assert.New(t)

	opts, err := DefaultConfig().Options()
	require.NoError(t, err)
	a.Equal(geostat.ModelTypes, opts.Models)
	a.Equal([]geostat.Method{geostat.MethodKriging, geostat.MethodIDW}, opts.Methods)
	a.Equal(geostat.DefaultNumBins, opts.Variogram.NumBins)
	a.Equal(geostat.DefaultIDWPower, opts.IDW.Power)
	a.Equal(geostat.DefaultMaxLagFraction, opts.MaxLagFraction)

	cfg := DefaultConfig()
	cfg.Fit.Models = []string{"cubic"}
	_, err = cfg.Options()
	a.True(errors.Is(err, geostat.ErrInvalidInput))

	cfg = DefaultConfig()
	cfg.Processing.Methods = []string{"nearest"}
	_, err = cfg.Options()
	a.True(errors.Is(err, geostat.ErrInvalidInput))
}

func TestDedupOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.DedupOptions()
	require.NoError(t, err)
	assert.Equal(t, geostat.DedupAverage, opts.Policy)

	cfg.Dedup.Policy = "median"
	_, err = cfg.DedupOptions()
	assert.True(t, errors.Is(err, geostat.ErrInvalidInput))
}

func TestGridDims(t *testing.T) {
	a := assert.New(t)
	b := geostat.BoundingBox{Min: vec3d.T{0, 0, 0}, Max: vec3d.T{10, 20, 0}}

	cfg := DefaultConfig()
	a.Equal([3]int{100, 100, 1}, cfg.GridDims(b))

	cfg.Grid.NX, cfg.Grid.NY, cfg.Grid.NZ = 5, 5, 5
	a.Equal([3]int{5, 5, 1}, cfg.GridDims(b))

	cfg.Grid.Resolution = 2
	a.Equal([3]int{6, 11, 1}, cfg.GridDims(b))
}
