package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	IngestedMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of messages considered by the ingestion pipeline (count)",
		},
		[]string{"channel", "status"},
	)

	IngestProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_processing_duration_ms",
			Help:    "Per-message ingestion duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"channel", "status"},
	)

	DedupChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_checks_total",
			Help: "Total number of dedup store checks (count)",
		},
		[]string{"strategy", "status"},
	)

	DedupCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dedup_check_duration_ms",
			Help:    "Dedup store check duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"status"},
	)

	DedupKeyCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dedup_key_count",
			Help: "Approximate number of live dedup keys (count)",
		},
	)

	NormalizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "normalize_duration_ms",
			Help:    "Content normalization duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"channel"},
	)

	NormalizeSentinelTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "normalize_sentinel_total",
			Help: "Messages whose body degraded to the sentinel value (count)",
		},
		[]string{"channel"},
	)

	IMAPReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imap_reconnects_total",
			Help: "IMAP reconnect attempts (count)",
		},
		[]string{"account", "reason"},
	)

	IMAPConnectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "imap_connection_state",
			Help: "IMAP supervisor state (0=disconnected, 1=connecting, 2=authenticated, 3=idle, 4=disabled) (state code)",
		},
		[]string{"account"},
	)

	IMAPScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imap_scans_total",
			Help: "Catch-up scans executed per trigger (count)",
		},
		[]string{"account", "trigger"},
	)

	SMSPollCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sms_poll_cycles_total",
			Help: "SMS poll cycles by outcome (count)",
		},
		[]string{"account", "status"},
	)

	SMSPollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sms_poll_duration_ms",
			Help:    "One SMS poll cycle duration in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"account"},
	)

	EventPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_total",
			Help: "Inbound-event publishes by outcome (count)",
		},
		[]string{"topic", "status"},
	)

	RecordStoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "record_store_requests_total",
			Help: "Record store calls by operation and outcome (count)",
		},
		[]string{"operation", "status"},
	)

	RecordStoreRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "record_store_request_duration_ms",
			Help:    "Record store call duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"operation"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)
)

func RegisterIngestMetrics() {
	prometheus.MustRegister(IngestedMessagesTotal)
	prometheus.MustRegister(IngestProcessingDuration)
	prometheus.MustRegister(NormalizeDuration)
	prometheus.MustRegister(NormalizeSentinelTotal)
}

func RegisterDedupMetrics() {
	prometheus.MustRegister(DedupChecksTotal)
	prometheus.MustRegister(DedupCheckDuration)
	prometheus.MustRegister(DedupKeyCount)
}

func RegisterChannelMetrics() {
	prometheus.MustRegister(IMAPReconnectsTotal)
	prometheus.MustRegister(IMAPConnectionState)
	prometheus.MustRegister(IMAPScansTotal)
	prometheus.MustRegister(SMSPollCyclesTotal)
	prometheus.MustRegister(SMSPollDuration)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(EventPublishTotal)
}

func RegisterRecordStoreMetrics() {
	prometheus.MustRegister(RecordStoreRequestsTotal)
	prometheus.MustRegister(RecordStoreRequestDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObserveIngestDuration(channel, status string, duration time.Duration) {
	IngestProcessingDuration.WithLabelValues(channel, status).Observe(float64(duration.Milliseconds()))
}

func ObserveDedupCheckDuration(duration time.Duration, status string) {
	DedupCheckDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func SetDedupKeyCount(size int) {
	DedupKeyCount.Set(float64(size))
}

func IncRecordStoreRequest(operation, status string) {
	RecordStoreRequestsTotal.WithLabelValues(operation, status).Inc()
}

func ObserveRecordStoreDuration(operation string, duration time.Duration) {
	RecordStoreRequestDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}
