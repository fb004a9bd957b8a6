package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling
// pipeline: generation latency and capacity overruns, regeneration races,
// feedback/retraining activity and schedule cache effectiveness.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationDuration  prometheus.Histogram
	generationTotal     prometheus.Counter
	unscheduledSubjects prometheus.Histogram
	regenerationRaces   prometheus.Counter

	feedbackIngested  prometheus.Counter
	retrainingRuns    *prometheus.CounterVec
	retrainingSeconds prometheus.Histogram

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers the service's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_generation_duration_seconds",
		Help:    "Duration of schedule generation runs",
		Buckets: prometheus.DefBuckets,
	})

	generationTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_generations_total",
		Help: "Total schedule generation runs",
	})

	unscheduledSubjects := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_unscheduled_subjects",
		Help:    "Subjects left unplaced per generation run",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	regenerationRaces := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_regeneration_races_total",
		Help: "Regeneration attempts that lost the active-schedule race",
	})

	feedbackIngested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedback_ingested_total",
		Help: "Total feedback submissions persisted",
	})

	retrainingRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluator_retraining_runs_total",
		Help: "Retraining runs by outcome",
	}, []string{"outcome"})

	retrainingSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluator_retraining_duration_seconds",
		Help:    "Duration of evaluator retraining runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_cache_hits_total",
		Help: "Active-schedule cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_cache_misses_total",
		Help: "Active-schedule cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		generationDuration, generationTotal, unscheduledSubjects, regenerationRaces,
		feedbackIngested, retrainingRuns, retrainingSeconds,
		cacheHits, cacheMisses,
		goroutines,
	)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		generationDuration:  generationDuration,
		generationTotal:     generationTotal,
		unscheduledSubjects: unscheduledSubjects,
		regenerationRaces:   regenerationRaces,
		feedbackIngested:    feedbackIngested,
		retrainingRuns:      retrainingRuns,
		retrainingSeconds:   retrainingSeconds,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *MetricsService) Handler() http.Handler {
	return m.handler
}

// ObserveRequest records one HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveGeneration records one schedule generation run.
func (m *MetricsService) ObserveGeneration(duration time.Duration, unscheduled int) {
	m.generationTotal.Inc()
	m.generationDuration.Observe(duration.Seconds())
	m.unscheduledSubjects.Observe(float64(unscheduled))
}

// ObserveRegenerationRace records a lost regeneration race.
func (m *MetricsService) ObserveRegenerationRace() {
	m.regenerationRaces.Inc()
}

// ObserveFeedbackIngested records a persisted feedback submission.
func (m *MetricsService) ObserveFeedbackIngested() {
	m.feedbackIngested.Inc()
}

// ObserveRetraining records one retraining run and its outcome.
func (m *MetricsService) ObserveRetraining(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.retrainingRuns.WithLabelValues(outcome).Inc()
	m.retrainingSeconds.Observe(duration.Seconds())
}

// ObserveCacheLookup records an active-schedule cache lookup.
func (m *MetricsService) ObserveCacheLookup(hit bool) {
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
