// Package metrics counts loader outcomes for Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nDmitry/imagefeed/internal/loader"
)

// Pipeline stages
const (
	StageRemote   = "remote"
	StageLocal    = "local"
	StageComposed = "composed"
)

var loadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "imagefeed_loads_total",
		Help: "Total number of resource loads by resource, pipeline stage and outcome",
	},
	[]string{"resource", "stage", "outcome"},
)

var validationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "imagefeed_cache_validations_total",
		Help: "Total number of cache validation runs by resource and outcome",
	},
	[]string{"resource", "outcome"},
)

// Outcome maps a load error to a metric label
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, loader.ErrConnectivity):
		return "connectivity"
	case errors.Is(err, loader.ErrInvalidData):
		return "invalid_data"
	case errors.Is(err, loader.ErrNotFound):
		return "not_found"
	case errors.Is(err, loader.ErrExpired):
		return "expired"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Observe counts the outcome of every call to load
func Observe[T any](resource, stage string, load loader.LoadFunc[T]) loader.LoadFunc[T] {
	return func(ctx context.Context) (T, error) {
		value, err := load(ctx)
		loadsTotal.WithLabelValues(resource, stage, Outcome(err)).Inc()

		return value, err
	}
}

// ObserveValidation counts a cache validation result
func ObserveValidation(resource string, err error) {
	outcome := "success"

	if err != nil {
		outcome = "error"
	}

	validationsTotal.WithLabelValues(resource, outcome).Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
