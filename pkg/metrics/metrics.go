package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 状态流转计数
	StatusTransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_status_transition_count",
			Help: "Total number of project status transitions",
		},
		[]string{"from", "to", "result"}, // result: success, rejected, conflict
	)

	// 通知分发计数
	NotificationFanoutCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_fanout_count",
			Help: "Total number of notifications written by the fan-out worker",
		},
		[]string{"event_type", "status"}, // status: created, duplicate, failed
	)

	// Outbox 分发计数
	OutboxDispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_dispatch_count",
			Help: "Total number of outbox events dispatched to MQ",
		},
		[]string{"routing_key", "status"}, // status: sent, failed
	)
)

// RegisterConnectedUsersGauge 暴露当前 websocket 在线用户数
func RegisterConnectedUsersGauge(count func() int) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ws_connected_users",
		Help: "Users with at least one live websocket connection",
	}, func() float64 { return float64(count()) })
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordStatusTransition 记录一次状态流转
func RecordStatusTransition(from, to, result string) {
	StatusTransitionCount.WithLabelValues(from, to, result).Inc()
}

// RecordNotificationFanout 记录一次通知分发
func RecordNotificationFanout(eventType, status string) {
	NotificationFanoutCount.WithLabelValues(eventType, status).Inc()
}

// RecordOutboxDispatch 记录一次 outbox 事件发布
func RecordOutboxDispatch(routingKey, status string) {
	OutboxDispatchCount.WithLabelValues(routingKey, status).Inc()
}
