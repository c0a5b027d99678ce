// Package store persists interpolation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	geostat "github.com/flywave/go-geostat"
)

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

type Run struct {
	ID        string
	Source    string
	Samples   int
	Dims      [3]int
	CreatedAt time.Time
}

// SaveRun records the fitted models, variogram bins and grid estimates of
// results in one transaction and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, source string, samples int, results []*geostat.AttributeResult, now time.Time) (string, error) {
	id := uuid.NewString()

	var dims [3]int
	for _, r := range results {
		if g := resultGrid(r); g != nil {
			dims = g.Dims
			break
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, samples, nx, ny, nz, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, source, samples, dims[0], dims[1], dims[2], now.UTC()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, r := range results {
		if r.Model.Type != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO models (run_id, attribute, model, nugget, sill, model_range)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, r.Attribute, string(r.Model.Type), r.Model.Nugget, r.Model.Sill, r.Model.Range); err != nil {
				return "", fmt.Errorf("insert model %q: %w", r.Attribute, err)
			}
		}
		if r.Variogram != nil {
			for k, b := range r.Variogram.Bins {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO bins (run_id, attribute, idx, lag, mean_distance, gamma, pairs)
					VALUES (?, ?, ?, ?, ?, ?, ?)
				`, id, r.Attribute, k, b.Lag, nullFloat(b.MeanDistance), nullFloat(b.Gamma), b.Count); err != nil {
					return "", fmt.Errorf("insert bin %d of %q: %w", k, r.Attribute, err)
				}
			}
		}
		for _, res := range []*geostat.EstimationResult{r.Kriging, r.IDW} {
			if err := insertEstimates(ctx, tx, id, r.Attribute, res); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	s.logger.Info("Saved run", zap.String("run", id), zap.Int("attributes", len(results)))
	return id, nil
}

func insertEstimates(ctx context.Context, tx *sql.Tx, runID, attribute string, res *geostat.EstimationResult) error {
	if res == nil {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO estimates (run_id, attribute, method, node, x, y, z, value, variance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare estimates: %w", err)
	}
	defer stmt.Close()

	for i, c := range res.Grid.Coordinates {
		variance := sql.NullFloat64{}
		if res.Variances != nil {
			variance = nullFloat(res.Variances[i])
		}
		if _, err := stmt.ExecContext(ctx, runID, attribute, string(res.Method), i,
			c[0], c[1], c[2], nullFloat(res.Estimates[i]), variance); err != nil {
			return fmt.Errorf("insert %s estimate %d of %q: %w", res.Method, i, attribute, err)
		}
	}
	return nil
}

func resultGrid(r *geostat.AttributeResult) *geostat.Grid {
	if r.Kriging != nil {
		return r.Kriging.Grid
	}
	if r.IDW != nil {
		return r.IDW.Grid
	}
	return nil
}

// GetModel returns the model fitted for attribute in a run, or nil when
// there is none.
func (s *Store) GetModel(ctx context.Context, runID, attribute string) (*geostat.VariogramModel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT model, nugget, sill, model_range FROM models
		WHERE run_id = ? AND attribute = ?
	`, runID, attribute)

	var m geostat.VariogramModel
	var typ string
	err := row.Scan(&typ, &m.Nugget, &m.Sill, &m.Range)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m.Type = geostat.ModelType(typ)
	return &m, nil
}

// GetBins returns the stored empirical variogram bins in lag order. Empty
// bins come back with NaN gamma.
func (s *Store) GetBins(ctx context.Context, runID, attribute string) ([]geostat.Bin, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lag, mean_distance, gamma, pairs FROM bins
		WHERE run_id = ? AND attribute = ?
		ORDER BY idx
	`, runID, attribute)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bins []geostat.Bin
	for rows.Next() {
		var b geostat.Bin
		var dist, gamma sql.NullFloat64
		if err := rows.Scan(&b.Lag, &dist, &gamma, &b.Count); err != nil {
			return nil, err
		}
		b.MeanDistance = fromNull(dist)
		b.Gamma = fromNull(gamma)
		bins = append(bins, b)
	}
	return bins, rows.Err()
}

// GetEstimates returns the stored estimates of one method in node order.
// Masked nodes come back as NaN.
func (s *Store) GetEstimates(ctx context.Context, runID, attribute string, method geostat.Method) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM estimates
		WHERE run_id = ? AND attribute = ? AND method = ?
		ORDER BY node
	`, runID, attribute, string(method))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, fromNull(v))
	}
	return values, rows.Err()
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, samples, nx, ny, nz, created_at FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var source sql.NullString
		if err := rows.Scan(&r.ID, &source, &r.Samples, &r.Dims[0], &r.Dims[1], &r.Dims[2], &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Source = source.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func nullFloat(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
