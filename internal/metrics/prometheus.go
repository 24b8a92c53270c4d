package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics is the Prometheus-backed Recorder. A nil *PrometheusMetrics
// is valid; every method guards on it and becomes a no-op, matching the
// teacher's badgerMetrics/cacheMetrics nil-receiver convention.
type PrometheusMetrics struct {
	requestDuration  *prometheus.HistogramVec
	requestTimeouts  *prometheus.CounterVec
	inFlightRequests prometheus.Gauge
	repositoryRecords prometheus.Gauge
	repositoryBytes  prometheus.Gauge
	effecterWrites   *prometheus.CounterVec
	activeHosts      prometheus.Gauge
}

// New registers pldmd's metrics against reg and returns a Recorder. Pass a
// fresh *prometheus.Registry in tests to avoid collisions with
// prometheus.DefaultRegisterer across test runs.
func New(reg prometheus.Registerer) *PrometheusMetrics {
	return &PrometheusMetrics{
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pldmd_request_duration_seconds",
				Help:    "MCTP request/response round-trip duration by PLDM type and command",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type", "command", "completion_code"},
		),
		requestTimeouts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pldmd_request_timeouts_total",
				Help: "Total requests that timed out waiting for a response",
			},
			[]string{"type", "command"},
		),
		inFlightRequests: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pldmd_requests_in_flight",
			Help: "Number of MCTP requests currently awaiting a response",
		}),
		repositoryRecords: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pldmd_pdr_repository_records",
			Help: "Current number of records in the PDR repository",
		}),
		repositoryBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pldmd_pdr_repository_bytes",
			Help: "Current total body size of the PDR repository, in bytes",
		}),
		effecterWrites: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pldmd_effecter_writes_total",
				Help: "Total effecter write attempts by effecter id and outcome",
			},
			[]string{"effecter_id", "outcome"},
		),
		activeHosts: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "pldmd_active_hosts",
			Help: "Number of MCTP endpoints currently marked up",
		}),
	}
}

func (m *PrometheusMetrics) RecordRequest(pldmType, command uint8, duration time.Duration, completionCode uint8) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(
		strconv.Itoa(int(pldmType)),
		strconv.Itoa(int(command)),
		strconv.Itoa(int(completionCode)),
	).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordRequestTimeout(pldmType, command uint8) {
	if m == nil {
		return
	}
	m.requestTimeouts.WithLabelValues(strconv.Itoa(int(pldmType)), strconv.Itoa(int(command))).Inc()
}

func (m *PrometheusMetrics) SetInFlightRequests(count int) {
	if m == nil {
		return
	}
	m.inFlightRequests.Set(float64(count))
}

func (m *PrometheusMetrics) RecordRepositorySize(records, bytes int) {
	if m == nil {
		return
	}
	m.repositoryRecords.Set(float64(records))
	m.repositoryBytes.Set(float64(bytes))
}

func (m *PrometheusMetrics) RecordEffecterWrite(effecterID uint16, outcome string) {
	if m == nil {
		return
	}
	m.effecterWrites.WithLabelValues(strconv.Itoa(int(effecterID)), outcome).Inc()
}

func (m *PrometheusMetrics) SetActiveHosts(count int) {
	if m == nil {
		return
	}
	m.activeHosts.Set(float64(count))
}
