// Package metrics exposes Prometheus instrumentation for podcast jobs and the
// external services they call.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ServiceScript = "script"
	ServiceTTS    = "tts"
	ServiceFetch  = "fetch"
)

type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted   prometheus.Counter
	jobsFinished    *prometheus.CounterVec
	jobsInFlight    prometheus.Gauge
	jobDuration     *prometheus.HistogramVec
	callAttempts    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	audioBytesTotal prometheus.Counter
	storedJobs      prometheus.GaugeFunc
}

// New builds a Metrics bound to its own registry so tests can create as many
// as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		jobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "podcast_jobs_submitted_total",
			Help: "Podcast generation jobs accepted",
		}),
		jobsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "podcast_jobs_finished_total",
			Help: "Podcast generation jobs that reached a terminal state",
		}, []string{"status"}),
		jobsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "podcast_jobs_in_flight",
			Help: "Pipelines currently running",
		}),
		jobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "podcast_job_duration_seconds",
			Help:    "Wall time from submission to terminal state",
			Buckets: []float64{5, 15, 30, 60, 120, 240, 480, 900},
		}, []string{"status"}),
		callAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "podcast_external_call_attempts_total",
			Help: "Attempts against external services by outcome",
		}, []string{"service", "outcome"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		audioBytesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "podcast_audio_bytes_total",
			Help: "Bytes of finished podcast audio produced",
		}),
	}
}

// The recording methods are no-ops on a nil *Metrics.

func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
	m.jobsInFlight.Inc()
}

func (m *Metrics) JobFinished(status string, elapsed time.Duration, audioBytes int) {
	if m == nil {
		return
	}
	m.jobsInFlight.Dec()
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	m.audioBytesTotal.Add(float64(audioBytes))
}

// CallAttempt records one attempt against an external service.
func (m *Metrics) CallAttempt(service string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.callAttempts.WithLabelValues(service, outcome).Inc()
}

// WatchStoredJobs exports size as the number of jobs currently retained,
// including finished ones not yet expired. Call it once.
func (m *Metrics) WatchStoredJobs(size func() int) {
	if m == nil {
		return
	}
	m.storedJobs = promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "podcast_jobs_stored",
		Help: "Jobs held in the in-memory store",
	}, func() float64 { return float64(size()) })
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
