package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	detectionsReceived  prometheus.Counter
	detectionsRejected  *prometheus.CounterVec
	detectionFrequency  prometheus.Histogram
	detectionMagnitude  prometheus.Histogram
	streamSubscribers   prometheus.Gauge
	eventPublishFailure *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, including the Go
// runtime and process collectors
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fftdetect_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fftdetect_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		),
		detectionsReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fftdetect_detections_received_total",
				Help: "Total number of detections recorded",
			},
		),
		detectionsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fftdetect_detections_rejected_total",
				Help: "Total number of detection requests rejected",
			},
			[]string{"reason"},
		),
		detectionFrequency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fftdetect_detection_frequency_hz",
				Help:    "Frequency of recorded detections in Hz",
				Buckets: prometheus.ExponentialBuckets(10, 2, 12),
			},
		),
		detectionMagnitude: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fftdetect_detection_magnitude",
				Help:    "Magnitude of recorded detections",
				Buckets: prometheus.ExponentialBuckets(0.001, 10, 8),
			},
		),
		streamSubscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fftdetect_stream_subscribers",
				Help: "Number of connected live stream subscribers",
			},
		),
		eventPublishFailure: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fftdetect_event_publish_failures_total",
				Help: "Total number of detection events that could not be forwarded",
			},
			[]string{"sink"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveRequest records a completed HTTP request
func (c *Collector) ObserveRequest(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDetection records an accepted detection
func (c *Collector) RecordDetection(frequency, magnitude float64) {
	c.detectionsReceived.Inc()
	c.detectionFrequency.Observe(frequency)
	c.detectionMagnitude.Observe(magnitude)
}

// RecordRejection records a rejected detection request
func (c *Collector) RecordRejection(reason string) {
	c.detectionsRejected.WithLabelValues(reason).Inc()
}

// AddStreamSubscribers adjusts the live subscriber gauge by delta
func (c *Collector) AddStreamSubscribers(delta int) {
	c.streamSubscribers.Add(float64(delta))
}

// RecordPublishFailure records an event that a sink failed to accept
func (c *Collector) RecordPublishFailure(sink string) {
	c.eventPublishFailure.WithLabelValues(sink).Inc()
}
