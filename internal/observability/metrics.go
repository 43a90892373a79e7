package observability

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Object outcomes recorded by the router.
const (
	OutcomeScanned = "scanned"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ScanMetrics exports scanner telemetry to Prometheus. A nil *ScanMetrics
// is valid and records nothing.
type ScanMetrics struct {
	objects        *prometheus.CounterVec
	chunks         prometheus.Counter
	detectDuration prometheus.Histogram
	detectErrors   prometheus.Counter
	entities       *prometheus.CounterVec
	rangeRequests  prometheus.Counter
	rangeBytes     prometheus.Counter
}

// NewScanMetrics registers the scanner metrics on reg (the default
// registerer when nil).
func NewScanMetrics(namespace string, reg prometheus.Registerer) (*ScanMetrics, error) {
	if namespace == "" {
		namespace = "phiscan"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &ScanMetrics{
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Objects handled by the router, by route and outcome.",
		}, []string{"route", "outcome"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Text chunks submitted for detection.",
		}),
		detectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_duration_seconds",
			Help:      "Latency of detection service calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		detectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detection_errors_total",
			Help:      "Failed detection service calls.",
		}),
		entities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Detected entities, by entity type.",
		}, []string{"type"}),
		rangeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_requests_total",
			Help:      "Ranged GET requests issued by the remote reader.",
		}),
		rangeBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_bytes_total",
			Help:      "Bytes returned by ranged GET requests.",
		}),
	}

	var err error
	if m.objects, err = register(reg, m.objects); err != nil {
		return nil, err
	}
	if m.chunks, err = register(reg, m.chunks); err != nil {
		return nil, err
	}
	if m.detectDuration, err = register(reg, m.detectDuration); err != nil {
		return nil, err
	}
	if m.detectErrors, err = register(reg, m.detectErrors); err != nil {
		return nil, err
	}
	if m.entities, err = register(reg, m.entities); err != nil {
		return nil, err
	}
	if m.rangeRequests, err = register(reg, m.rangeRequests); err != nil {
		return nil, err
	}
	if m.rangeBytes, err = register(reg, m.rangeBytes); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("register scan metric: %w", err)
}

func (m *ScanMetrics) RecordObject(route, outcome string) {
	if m == nil {
		return
	}
	m.objects.WithLabelValues(route, outcome).Inc()
}

// RecordDetection tracks one detection call and the entity types it found.
func (m *ScanMetrics) RecordDetection(duration time.Duration, types []string, err error) {
	if m == nil {
		return
	}
	m.chunks.Inc()
	m.detectDuration.Observe(duration.Seconds())
	if err != nil {
		m.detectErrors.Inc()
		return
	}
	for _, t := range types {
		m.entities.WithLabelValues(t).Inc()
	}
}

func (m *ScanMetrics) RecordRange(n int) {
	if m == nil {
		return
	}
	m.rangeRequests.Inc()
	m.rangeBytes.Add(float64(n))
}
