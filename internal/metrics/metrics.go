// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "motia"

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

	once sync.Once

	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	deploymentsTotal   *prometheus.CounterVec
	deploymentDuration *prometheus.HistogramVec
	generationsTotal   *prometheus.CounterVec
	storeReloads       prometheus.Counter
	persistFailures    *prometheus.CounterVec
)

func initCollectors() {
	once.Do(func() {
		requestTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}))

		requestLatency = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}))

		rateLimitHits = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route"}))

		deploymentsTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deployments_total",
			Help:      "Deployments by lifecycle status reached",
		}, []string{"status"}))

		deploymentDuration = register(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deployment_duration_seconds",
			Help:      "Time from start to terminal state",
			Buckets:   histogramBuckets,
		}, []string{"status"}))

		generationsTotal = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Code generation requests by generator and outcome",
		}, []string{"generator", "outcome"}))

		storeReloads = register(prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reloads_total",
			Help:      "Number of collection reloads from the storage adapter",
		}))

		persistFailures = register(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "persistence_failures_total",
			Help:      "Storage adapter read or write failures",
		}, []string{"collection", "op"}))
	})
}

// register registers c with the default registry, reusing an identical
// collector that is already registered.
func register[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	initCollectors()
	labels := prometheus.Labels{"method": method, "route": route, "status": strconv.Itoa(status)}
	requestTotal.With(labels).Inc()
	requestLatency.With(labels).Observe(d.Seconds())
}

// RateLimitHit records a rejected request.
func RateLimitHit(route string) {
	initCollectors()
	rateLimitHits.WithLabelValues(route).Inc()
}

// DeploymentStarted records a deployment entering the deploying state.
func DeploymentStarted() {
	initCollectors()
	deploymentsTotal.WithLabelValues("deploying").Inc()
}

// DeploymentFinished records a deployment reaching a terminal state.
func DeploymentFinished(status string, d time.Duration) {
	initCollectors()
	deploymentsTotal.WithLabelValues(status).Inc()
	deploymentDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Generation records the outcome of a generation request.
func Generation(generator, outcome string) {
	initCollectors()
	generationsTotal.WithLabelValues(generator, outcome).Inc()
}

// StoreReload records a reload from the adapter.
func StoreReload() {
	initCollectors()
	storeReloads.Inc()
}

// PersistenceFailure records a failed adapter call.
func PersistenceFailure(collection, op string) {
	initCollectors()
	persistFailures.WithLabelValues(collection, op).Inc()
}
