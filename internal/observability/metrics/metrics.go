package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests handled by the API service",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	dbOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_operation_duration_seconds",
		Help:    "Time spent executing database operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	redisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Time spent executing redis operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	kafkaOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_operation_duration_seconds",
		Help:    "Time spent sending data to Kafka",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	rpcOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solana_rpc_duration_seconds",
		Help:    "Time spent in Solana JSON-RPC calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	submitAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "close_submit_attempts_total",
		Help: "Closing transaction attempts by classified result",
	}, []string{"result"})

	closeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "close_outcomes_total",
		Help: "Terminal outcomes of drop closing by claim method",
	}, []string{"method", "outcome"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Claimant notifications attempted per channel and result",
	}, []string{"channel", "result"})

	consumerProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_process_duration_seconds",
		Help:    "Time spent processing notification batches in the consumer service",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
)

// ObserveHTTPRequest tracks the handling time of HTTP requests.
func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveDBOperation tracks database call duration.
func ObserveDBOperation(operation string, d time.Duration) {
	dbOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRedisOperation tracks redis call duration.
func ObserveRedisOperation(operation string, d time.Duration) {
	redisOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveKafkaOperation tracks kafka call duration.
func ObserveKafkaOperation(operation string, d time.Duration) {
	kafkaOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveRPCOperation tracks Solana RPC call duration.
func ObserveRPCOperation(operation string, d time.Duration) {
	rpcOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// CountSubmitAttempt records one submission attempt ("confirmed", "transient", "terminal").
func CountSubmitAttempt(result string) {
	submitAttempts.WithLabelValues(result).Inc()
}

// CountCloseOutcome records a terminal closing outcome.
func CountCloseOutcome(method, outcome string) {
	closeOutcomes.WithLabelValues(method, outcome).Inc()
}

// CountNotification records one notify call.
func CountNotification(channel string, delivered bool) {
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	notifications.WithLabelValues(channel, result).Inc()
}

// ObserveConsumerProcessing tracks consumer processing stages.
func ObserveConsumerProcessing(step string, d time.Duration) {
	consumerProcessDuration.WithLabelValues(step).Observe(d.Seconds())
}
