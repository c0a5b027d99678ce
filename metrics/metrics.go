package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PairsBinned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geostat_variogram_pairs_binned_total",
			Help: "Total sample pairs accumulated into empirical variogram bins",
		},
		[]string{"attribute"},
	)

	ModelFits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geostat_model_fits_total",
			Help: "Total variogram model fits by model family and outcome",
		},
		[]string{"model", "status"},
	)

	FitIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geostat_model_fit_iterations",
			Help:    "Levenberg-Marquardt iterations per variogram fit",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11),
		},
		[]string{"model"},
	)

	Estimates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geostat_estimates_total",
			Help: "Total grid nodes estimated",
		},
		[]string{"method"},
	)

	SolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geostat_solve_duration_seconds",
			Help:    "Wall time to estimate a full grid",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ConditionNumber = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geostat_kriging_condition_number",
			Help: "Condition number of the last factorised kriging system",
		},
		[]string{"attribute"},
	)
)
