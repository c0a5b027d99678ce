package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	geostat "github.com/flywave/go-geostat"
	"github.com/flywave/go-geostat/config"
	"github.com/flywave/go-geostat/geoio"
	"github.com/flywave/go-geostat/store"
)

type Globals struct {
	ConfigFile  string `help:"YAML settings file." default:"geostat.yaml" env:"GEOSTAT_CONFIG" type:"path"`
	Verbose     bool   `help:"Development logging." short:"v" env:"GEOSTAT_VERBOSE"`
	MetricsFile string `help:"Write prometheus metrics to this file on exit." env:"GEOSTAT_METRICS_FILE" type:"path"`
	DB          string `help:"SQLite database recording runs." env:"GEOSTAT_DB" type:"path"`
}

type Input struct {
	Path        string   `arg:"" help:"CSV or GeoJSON samples." type:"existingfile"`
	Coordinates []string `help:"CSV coordinate columns, x,y[,z]." default:"x,y"`
	Attribute   []string `help:"Attributes to process; all when empty." short:"a"`
	SRS         string   `help:"GeoJSON input SRS, reprojected to EPSG:4326." env:"GEOSTAT_SRS"`
	Datum       string   `help:"Vertical datum of GeoJSON heights (hae, egm84, egm96, egm2008)." default:"hae"`
}

type FitCmd struct {
	Input
	Model []string `help:"Model families to try." enum:"spherical,exponential,gaussian"`
}

type InterpolateCmd struct {
	Input
	Output string   `help:"Output directory." default:"." type:"path" short:"o"`
	Format string   `help:"Raster format." enum:"tif,csv" default:"tif"`
	Like   string   `help:"Estimate on the pixel grid of this GeoTIFF." type:"existingfile"`
	Method []string `help:"Estimators to run; config value when empty." enum:"kriging,idw"`
	Model  string   `help:"Krige with this family (spherical, exponential, gaussian) instead of fitting."`
	Nugget float64  `help:"Nugget of the fixed model."`
	Sill   float64  `help:"Sill of the fixed model."`
	Range  float64  `help:"Range of the fixed model."`
}

type ConfigInitCmd struct {
	Path string `arg:"" optional:"" help:"Destination, the --config-file path when empty." type:"path"`
}

type CLI struct {
	Globals

	Fit         FitCmd         `cmd:"" help:"Fit variogram models to sample attributes."`
	Interpolate InterpolateCmd `cmd:"" help:"Estimate attributes over a regular grid."`
	Config      struct {
		Init ConfigInitCmd `cmd:"" help:"Write the default settings file."`
	} `cmd:"" help:"Manage settings."`
}

type app struct {
	globals *Globals
	cfg     *config.Config
	logger  *zap.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("geostat"),
		kong.Description("Variogram fitting, kriging and IDW interpolation of scattered samples."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(cli.Verbose)
	kctx.FatalIfErrorf(err)
	defer logger.Sync()

	cfg, err := config.LoadConfig(cli.ConfigFile)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{globals: &cli.Globals, cfg: cfg, logger: logger}
	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(a)
	if cli.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(cli.MetricsFile, prometheus.DefaultGatherer); werr != nil {
			logger.Error("Unable to write metrics", zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("Command failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (c *ConfigInitCmd) Run(a *app) error {
	path := c.Path
	if path == "" {
		path = a.globals.ConfigFile
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	a.logger.Info("Wrote default settings", zap.String("path", path))
	return nil
}

func (c *FitCmd) Run(ctx context.Context, a *app) error {
	ps, err := c.load(a)
	if err != nil {
		return err
	}
	opts, err := a.cfg.Options()
	if err != nil {
		return err
	}
	if len(c.Model) > 0 {
		opts.Models = nil
		for _, m := range c.Model {
			t, err := geostat.ParseModelType(m)
			if err != nil {
				return err
			}
			opts.Models = append(opts.Models, t)
		}
	}
	opts.Methods = []geostat.Method{geostat.MethodKriging}

	type fitted struct {
		Attribute string                 `json:"attribute"`
		MaxLag    float64                `json:"maxLag"`
		Pairs     int                    `json:"pairs"`
		Model     geostat.VariogramModel `json:"model"`
		Error     float64                `json:"weightedError"`
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, attr := range c.attributes(ps) {
		if err := ctx.Err(); err != nil {
			return err
		}
		maxLag := opts.MaxLag
		if maxLag <= 0 {
			maxLag = geostat.DefaultMaxLag(ps, opts.MaxLagFraction)
		}
		ev, err := geostat.NewEmpiricalVariogram(ps, attr, maxLag, opts.Variogram)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", attr, err)
		}
		m, err := geostat.FitBest(ev, opts.Models, opts.Fit)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", attr, err)
		}
		a.logger.Info("Fitted variogram", zap.String("attribute", attr), zap.Stringer("model", m))
		if err := enc.Encode(fitted{
			Attribute: attr,
			MaxLag:    ev.MaxLag,
			Pairs:     ev.Pairs(),
			Model:     m,
			Error:     geostat.WeightedError(ev, m),
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *InterpolateCmd) Run(ctx context.Context, a *app) error {
	ps, err := c.load(a)
	if err != nil {
		return err
	}
	opts, err := a.cfg.Options()
	if err != nil {
		return err
	}
	opts.Logger = a.logger
	if len(c.Method) > 0 {
		opts.Methods = nil
		for _, m := range c.Method {
			opts.Methods = append(opts.Methods, geostat.Method(m))
		}
	}
	if c.Model != "" {
		t, err := geostat.ParseModelType(c.Model)
		if err != nil {
			return err
		}
		m := geostat.VariogramModel{Type: t, Nugget: c.Nugget, Sill: c.Sill, Range: c.Range}
		if err := m.Validate(); err != nil {
			return err
		}
		opts.Model = &m
	}

	var grid *geostat.Grid
	if c.Like != "" {
		grid, err = geoio.GridFromRaster(c.Like)
	} else {
		bounds := ps.Bounds()
		grid, err = geostat.NewGrid(bounds, a.cfg.GridDims(bounds))
	}
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := geostat.NewInterpolator(opts).Run(ctx, ps, c.attributes(ps), grid)
	if err != nil {
		return err
	}
	a.logger.Info("Interpolation finished",
		zap.Int("attributes", len(results)),
		zap.Int("nodes", grid.Len()),
		zap.Duration("elapsed", time.Since(start)))

	if err := os.MkdirAll(c.Output, 0755); err != nil {
		return err
	}
	for _, r := range results {
		for _, res := range []*geostat.EstimationResult{r.Kriging, r.IDW} {
			if res == nil {
				continue
			}
			if err := c.write(a, r.Attribute, res); err != nil {
				return err
			}
		}
	}

	if a.globals.DB != "" {
		id, err := saveRun(ctx, a, c.Path, ps.Len(), results)
		if err != nil {
			return err
		}
		a.logger.Info("Recorded run", zap.String("run", id))
	}
	return nil
}

func (c *InterpolateCmd) write(a *app, attr string, res *geostat.EstimationResult) error {
	base := filepath.Join(c.Output, fmt.Sprintf("%s_%s", attr, res.Method))
	if c.Format == "csv" {
		f, err := os.Create(base + ".csv")
		if err != nil {
			return err
		}
		if err := res.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		a.logger.Info("Wrote estimates", zap.String("path", f.Name()))
		return f.Close()
	}

	if err := geoio.WriteGeoTIFF(base+".tif", res, "", false); err != nil {
		return err
	}
	a.logger.Info("Wrote estimates", zap.String("path", base+".tif"))
	if res.Variances != nil {
		if err := geoio.WriteGeoTIFF(base+"_variance.tif", res, "", true); err != nil {
			return err
		}
	}
	return nil
}

func saveRun(ctx context.Context, a *app, source string, samples int, results []*geostat.AttributeResult) (string, error) {
	db, err := sql.Open("sqlite", a.globals.DB)
	if err != nil {
		return "", fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, a.logger)
	if err := st.Migrate(); err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	return st.SaveRun(ctx, source, samples, results, time.Now())
}

func (in *Input) load(a *app) (*geostat.PointSet, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var samples []geostat.Sample
	switch strings.ToLower(filepath.Ext(in.Path)) {
	case ".json", ".geojson":
		datum, err := geoio.ParseVerticalDatum(in.Datum)
		if err != nil {
			return nil, err
		}
		samples, err = geoio.LoadGeoJSON(f, &geoio.Options{SRS: in.SRS, HeightModel: datum})
		if err != nil {
			return nil, err
		}
	default:
		samples, err = geostat.LoadCSV(f, geostat.CSVOptions{Coordinates: in.Coordinates})
		if err != nil {
			return nil, err
		}
	}

	dedup, err := a.cfg.DedupOptions()
	if err != nil {
		return nil, err
	}
	ps, err := geostat.Deduplicate(samples, dedup)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Loaded samples",
		zap.String("path", in.Path),
		zap.Int("read", len(samples)),
		zap.Int("unique", ps.Len()),
		zap.Strings("attributes", ps.Attributes()))
	return ps, nil
}

func (in *Input) attributes(ps *geostat.PointSet) []string {
	if len(in.Attribute) > 0 {
		return in.Attribute
	}
	return ps.Attributes()
}
